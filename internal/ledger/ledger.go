package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xela07ax/hawkgrid/internal/domain"
)

// GenesisHash — сентинел предшественника первой записи цепочки.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrLedgerWrite — запись в леджер не удалась. Наружу уходит как
// degraded-ответ: детекция и response сохраняются, но потеря
// форензики видима вызывающему.
var ErrLedgerWrite = errors.New("ledger: append failed")

// Record — один блок hash-цепочки.
// Инвариант: для всех n>0 record[n].PreviousHash == record[n-1].Hash.
// Hash считается по канонической сериализации записи ПОСЛЕ установки
// PreviousHash и ДО аппенда; цепочка append-only, блоки не переписываются.
type Record struct {
	Timestamp      float64         `json:"timestamp"` // epoch seconds
	Incident       domain.Incident `json:"incident"`
	ResponseAction string          `json:"response_action"`
	PreviousHash   string          `json:"previous_hash"`
	Hash           string          `json:"hash,omitempty"`
}

// Ledger — контракт форензик-журнала. Append обязан быть глобально
// сериализован внутри реализации: чтение последнего хэша и запись
// нового блока — одна критическая секция.
type Ledger interface {
	Append(incident domain.Incident, responseAction string) (Record, error)
	Close() error
}

// ComputeHash считает sha256 канонической сериализации записи.
// Каноника = JSON с лексикографически отсортированными ключами
// (маршалинг через map дает сортировку на всех уровнях вложенности),
// поле hash в расчет не входит. Один и тот же логический блок всегда
// дает один и тот же дайджест независимо от порядка полей на входе.
func ComputeHash(rec Record) (string, error) {
	rec.Hash = "" // omitempty выкинет поле из канонической формы

	structJSON, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	var canonical map[string]interface{}
	if err := json.Unmarshal(structJSON, &canonical); err != nil {
		return "", fmt.Errorf("canonicalize record: %w", err)
	}
	payload, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("marshal canonical record: %w", err)
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// seal устанавливает PreviousHash и вычисляет Hash нового блока.
func seal(rec *Record, prevHash string) error {
	rec.PreviousHash = prevHash
	h, err := ComputeHash(*rec)
	if err != nil {
		return err
	}
	rec.Hash = h
	return nil
}

// VerifyChain проверяет целостность последовательности блоков:
// связность previous_hash -> hash и пересчет дайджестов.
// Возвращает индекс первого битого блока или -1, если цепочка цела.
func VerifyChain(records []Record) (int, error) {
	prev := GenesisHash
	for i, rec := range records {
		if rec.PreviousHash != prev {
			return i, fmt.Errorf("record %d: previous_hash %s does not match %s", i, short(rec.PreviousHash), short(prev))
		}
		computed, err := ComputeHash(rec)
		if err != nil {
			return i, err
		}
		if computed != rec.Hash {
			return i, fmt.Errorf("record %d: digest mismatch, stored %s computed %s", i, short(rec.Hash), short(computed))
		}
		prev = rec.Hash
	}
	return -1, nil
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// ParseRecords разбирает JSONL-содержимое в блоки (для верификации).
// Пустые строки пропускаются, битая строка — ошибка с ее номером.
func ParseRecords(data []byte) ([]Record, error) {
	var out []Record
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return out, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
