package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// Event — одно окно наблюдения телеметрии, как его прислал сенсор.
// Известные поля (node_id, cloud_provider, timestamp) вынесены явно,
// все остальные атрибуты (числовые фичи, src_ip и т.д.) лежат в Attributes.
// Событие неизменяемо после приема: пайплайн его только читает.
type Event struct {
	NodeID        string    // Идентификатор цели (destination) — ключ для Asset Resolver
	CloudProvider string    // Подсказка сенсора, не доверяем ей при диспетчеризации
	Timestamp     time.Time // Момент наблюдения (UTC)

	// Сырые атрибуты события: API_Call_Freq, Failed_Auth_Count,
	// Network_Egress_MB, src_ip, dst_ip и любые другие поля сенсора
	Attributes map[string]interface{}
}

// UnmarshalJSON принимает произвольный JSON сенсора (extra поля разрешены).
// Отсутствующие служебные поля заменяются дефолтами — малформленный вход
// деградирует, а не роняет запрос.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.NodeID = "unknown-node"
	e.CloudProvider = "unknown-cloud"
	e.Timestamp = time.Now().UTC()
	e.Attributes = make(map[string]interface{}, len(raw))

	for k, v := range raw {
		switch k {
		case "node_id":
			if s, ok := v.(string); ok && s != "" {
				e.NodeID = s
			}
		case "cloud_provider":
			if s, ok := v.(string); ok && s != "" {
				e.CloudProvider = s
			}
		case "timestamp":
			if s, ok := v.(string); ok {
				if ts, err := time.Parse(time.RFC3339, s); err == nil {
					e.Timestamp = ts
				}
			}
		default:
			e.Attributes[k] = v
		}
	}
	return nil
}

// Raw возвращает полную мапу события для аудита и отчетов
// (служебные поля + атрибуты в одном снимке).
func (e *Event) Raw() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Attributes)+3)
	for k, v := range e.Attributes {
		out[k] = v
	}
	out["node_id"] = e.NodeID
	out["cloud_provider"] = e.CloudProvider
	out["timestamp"] = e.Timestamp.Format(time.RFC3339)
	return out
}

// NumericAttr возвращает атрибут события как число. Политика коэрции
// одна на весь пайплайн: классификатор видит те же значения, что и
// выравнивание фич, независимо от JSON-типа, которым прислал сенсор.
func (e Event) NumericAttr(name string) float64 {
	return CoerceNumeric(e.Attributes[name])
}

// CoerceNumeric приводит сырое значение атрибута к float64.
// Непарсящееся или неизвестного типа — 0.0.
func CoerceNumeric(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case bool:
		if t {
			return 1.0
		}
		return 0.0
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
		return 0.0
	default:
		return 0.0
	}
}

// FeatureVector — упорядоченный вектор фич фиксированной длины.
// Длина и порядок задаются артефактом модели, вне его не персистится.
type FeatureVector []float64
