package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/xela07ax/hawkgrid/internal/infra/auth"
	"go.uber.org/zap"
)

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const (
	traceIDKey  ctxKey = "trace_id"
	sensorIDKey ctxKey = "sensor_id"
)

// Скоуп токена, дающий право слать телеметрию в детекцию
const scopeEventsWrite = "events:write"

// TracingMiddleware инициализирует Trace-ID для каждого запроса
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Пытаемся достать ID из заголовка (если пришел от сенсора/прокси)
		traceID := r.Header.Get("X-Trace-ID")

		// 2. Если его нет — генерируем новый
		if traceID == "" {
			traceID = uuid.New().String()
		}

		// 3. Кладем в контекст
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)

		// 4. Добавляем в ответ, чтобы клиент тоже знал ID своего запроса
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractTraceID помогает безопасно достать ID в любом месте кода
func extractTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return "00000000-0000-0000-0000-000000000000" // Fallback
}

// AuthMiddleware проверяет Bearer-токен сенсора и требует скоуп
// events:write. Если валидатор nil (ключ не сконфигурирован) —
// периметр закрыт снаружи, пропускаем всех.
func AuthMiddleware(validator auth.TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			tokenStr, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenStr == "" {
				writeAuthError(w, "missing bearer token")
				return
			}

			claims, err := validator.VerifyToken(tokenStr)
			if err != nil {
				logger.Warn("token rejected", zap.Error(err))
				writeAuthError(w, "invalid token")
				return
			}
			if !claims.Scopes[scopeEventsWrite] {
				logger.Warn("token lacks required scope",
					zap.String("sensor_id", claims.SensorID),
					zap.String("scope", scopeEventsWrite),
				)
				writeAuthError(w, "insufficient scope")
				return
			}

			ctx := context.WithValue(r.Context(), sensorIDKey, claims.SensorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
