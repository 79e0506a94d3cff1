package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/hawkgrid/internal/console/handler"
	"go.uber.org/zap"
)

// ConsoleServer — read-only форензик-консоль оператора SOC.
// Отчеты, цепочка леджера и ее верификация, список изолированных узлов.
// Консоль никогда не мутирует данные пайплайна.
type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Обработчики бизнес-доменов
	reportsHandler     *handler.ReportsHandler     // /v1/reports
	ledgerHandler      *handler.LedgerHandler      // /v1/ledger
	containmentHandler *handler.ContainmentHandler // /v1/containment
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	reportsH *handler.ReportsHandler,
	ledgerH *handler.LedgerHandler,
	containmentH *handler.ContainmentHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:             chi.NewRouter(),
		logger:             logger.Named("console-api"),
		reportsHandler:     reportsH,
		ledgerHandler:      ledgerH,
		containmentHandler: containmentH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Healthcheck для мониторинга
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// --- 2. Форензик-эндпоинты (read-only) ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/reports", s.reportsHandler.List)

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/", s.ledgerHandler.List)
			r.Get("/verify", s.ledgerHandler.Verify)
		})

		r.Get("/containment", s.containmentHandler.List)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
