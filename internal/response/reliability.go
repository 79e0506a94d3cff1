package response

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/hawkgrid/internal/cloud"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"github.com/xela07ax/hawkgrid/internal/infra"
	"golang.org/x/time/rate"
)

// ReliableIsolator оборачивает облачный isolate в предохранители.
// Зависший или штормящий провайдер не должен останавливать путь
// детекции: каждый вызов ограничен таймаутом, серия отказов
// открывает Circuit Breaker, лимитер гасит шторм containment-ов.
type ReliableIsolator struct {
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

// NewReliableIsolator собирает предохранители. onStateChange (опционален)
// дергается при каждом переходе Circuit Breaker-а — сюда вешается gauge.
func NewReliableIsolator(cfg infra.ResponseConfig, onStateChange func(name string, open bool)) *ReliableIsolator {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "hawkgrid-containment",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Более 5 отказов подряд — открываемся, облако не трогаем
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if onStateChange != nil {
				onStateChange(name, to == gobreaker.StateOpen)
			}
		},
	})

	// Containment — редкое событие; 10 rps с запасом на всплеск
	limiter := rate.NewLimiter(rate.Limit(10), 5)

	return &ReliableIsolator{
		cb:      cb,
		limiter: limiter,
		timeout: cfg.ContainmentTimeout,
	}
}

// Isolate выполняет один containment с ретраями и ограниченным таймаутом.
// Любой исход, кроме подтвержденного успеха, — ошибка для диспетчера.
func (r *ReliableIsolator) Isolate(ctx context.Context, p cloud.Provider, incident domain.Incident, asset domain.Asset) error {
	// 1. Rate Limiter
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	_, err := r.cb.Execute(func() (interface{}, error) {
		rt := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
		)

		return nil, rt.Do(func() error {
			// Каждая попытка — со своим таймаутом: таймаут провайдера
			// трактуем как его отказ, а не как зависание запроса
			tCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			ok, callErr := p.Isolate(tCtx, incident, asset)
			if callErr != nil {
				return callErr
			}
			if !ok {
				return fmt.Errorf("provider %s declined containment", p.Name())
			}
			return nil
		})
	})
	return err
}
