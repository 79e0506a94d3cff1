package features

import (
	"github.com/xela07ax/hawkgrid/internal/domain"
)

// synonyms — статическая таблица переименований: атрибуты сенсора ->
// внутренние имена фич, на которых обучался скорер (датасет UNSW).
var synonyms = map[string]string{
	"API_Call_Freq":     "rate",
	"Failed_Auth_Count": "sttl",
	"Network_Egress_MB": "sbytes",
}

// Aligner выравнивает произвольное событие на фиксированный вектор фич.
// Чистая функция без побочных эффектов: неизвестные поля игнорируются,
// отсутствующие добиваются нулями. Лучше скорить частичный вектор,
// чем уронить детекцию из-за кривого поля.
type Aligner struct{}

func NewAligner() *Aligner {
	return &Aligner{}
}

// Align строит вектор длины len(expected) в порядке expected.
// Нечисловые и непарсящиеся значения коэрсятся в 0.0.
func (a *Aligner) Align(ev domain.Event, expected []string) domain.FeatureVector {
	// 1. Переименовываем известные синонимы
	values := make(map[string]float64, len(ev.Attributes))
	for name, raw := range ev.Attributes {
		if internal, ok := synonyms[name]; ok {
			name = internal
		}
		values[name] = domain.CoerceNumeric(raw)
	}

	// 2. Копируем по порядку модели, чего нет — 0.0
	vec := make(domain.FeatureVector, len(expected))
	for i, name := range expected {
		vec[i] = values[name] // zero value мапы и есть наш zero-fill
	}
	return vec
}
