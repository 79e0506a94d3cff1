package detect

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/xela07ax/hawkgrid/internal/domain"
)

// Artifact — снапшот офлайн-обученного пайплайна.
// Тренировка вне скоупа сервиса: сюда приезжает готовый JSON с порядком
// фич, параметрами StandardScaler и порогом решающей функции.
type Artifact struct {
	Features []string `json:"features"`
	Scaler   Scaler   `json:"scaler"`

	// Threshold — граница решающей функции в единицах |z|.
	// score = Threshold - max|z|; score < 0 => аномалия.
	Threshold float64 `json:"threshold"`
}

// Scaler — параметры стандартизации, снятые на обучающей выборке.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LoadArtifact читает и валидирует артефакт модели.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if len(art.Features) == 0 {
		return nil, fmt.Errorf("model artifact %s: empty feature list", path)
	}
	if len(art.Scaler.Mean) != len(art.Features) || len(art.Scaler.Scale) != len(art.Features) {
		return nil, fmt.Errorf("model artifact %s: scaler size %d/%d does not match %d features",
			path, len(art.Scaler.Mean), len(art.Scaler.Scale), len(art.Features))
	}
	if art.Threshold <= 0 {
		return nil, fmt.Errorf("model artifact %s: non-positive threshold", path)
	}
	return &art, nil
}

// Transform применяет стандартизацию к выровненному вектору.
func (a *Artifact) Transform(vec domain.FeatureVector) domain.FeatureVector {
	scaled := make(domain.FeatureVector, len(vec))
	for i, v := range vec {
		s := a.Scaler.Scale[i]
		if s == 0 {
			s = 1 // вырожденная фича: не делим на ноль
		}
		scaled[i] = (v - a.Scaler.Mean[i]) / s
	}
	return scaled
}

// Score вычисляет решающую функцию по масштабированному вектору.
// Чем отрицательнее — тем аномальнее (см. конвенцию DetectionResult).
func (a *Artifact) Score(scaled domain.FeatureVector) float64 {
	maxDev := 0.0
	for _, z := range scaled {
		if d := math.Abs(z); d > maxDev {
			maxDev = d
		}
	}
	return a.Threshold - maxDev
}
