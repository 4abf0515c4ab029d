// Package httpapi exposes the expense tracker as a JSON HTTP API and maps the
// service error taxonomy onto status codes. Routing and serialization live
// here; business rules stay in the services package.
package httpapi

import (
	"net/http"

	"expense-api/internal/logging"
	"expense-api/internal/server/config"
	"expense-api/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	http.Server
	logger    logging.Logger
	users     *services.UserService
	expenses  *services.ExpenseService
	jwtSecret []byte
	metrics   *metrics
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, l logging.Logger, us *services.UserService, es *services.ExpenseService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server:    http.Server{Addr: cfg.EndpointAddr},
		logger:    l.With("module", "httpapi"),
		users:     us,
		expenses:  es,
		jwtSecret: []byte(cfg.SecretKey),
	}

	registry := prometheus.NewRegistry()
	s.metrics = newMetrics(registry)

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.HandleFunc("POST /api/expenses", s.requireAuth(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses", s.requireAuth(s.handleListExpenses))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.requireAuth(s.handleDeleteExpense))
	mux.HandleFunc("GET /api/summary", s.requireAuth(s.handleSummary))
	mux.HandleFunc("GET /api/monthly-summary", s.requireAuth(s.handleMonthlySummary))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.Handler = s.withObservability(mux)

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
