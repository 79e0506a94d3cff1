package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// SensorClaims — полезная нагрузка токена сенсора/интеграции.
// Scopes решают, какие операции API доступны держателю:
// "events:write" для /v1/detect, "forensics:read" для консоли.
type SensorClaims struct {
	SensorID string          `json:"sensor_id"`
	Scopes   map[string]bool `json:"scopes"`
	jwt.RegisteredClaims
}
