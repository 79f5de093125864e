package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/agentdock/internal/console/handler"
	"github.com/xela07ax/agentdock/internal/domain"
	"github.com/xela07ax/agentdock/internal/engine"
	"github.com/xela07ax/agentdock/internal/infra/auth"
	"go.uber.org/zap"
)

// WelcomeMessage отдается на GET /.
const WelcomeMessage = "Welcome to AgentDock MCP Server"

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// nil: периметр выключен, все маршруты открыты
	authValidator auth.TokenValidator

	agentHandler *handler.AgentHandler // /agents
	toolHandler  *handler.ToolHandler  // /tools
	chatHandler  *handler.ChatHandler  // /chat
	logHandler   *handler.LogHandler   // /logs
}

// NewConsoleServer собирает роутер со всеми зависимостями.
func NewConsoleServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	agentH *handler.AgentHandler,
	toolH *handler.ToolHandler,
	chatH *handler.ChatHandler,
	logH *handler.LogHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		authValidator: validator,
		agentHandler:  agentH,
		toolHandler:   toolH,
		chatHandler:   chatH,
		logHandler:    logH,
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
	r.Use(engine.TracingMiddleware)
	// Фронтенд ходит на /agents/ и /tools/
	r.Use(middleware.StripSlashes)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"` + WelcomeMessage + `"}`))
		})

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ПЕРИМЕТР (RS256, если ключ настроен) ---
	r.Group(func(r chi.Router) {
		if s.authValidator != nil {
			r.Use(auth.NewMiddleware(s.authValidator, s.logger))
		}

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", s.agentHandler.List)
			r.With(s.requireScope(domain.ScopeRegistryWrite)).Post("/", s.agentHandler.Register)
			r.With(s.requireScope(domain.ScopeRegistryWrite)).Delete("/{agentID}", s.agentHandler.Deregister)
		})

		r.Route("/tools", func(r chi.Router) {
			r.Get("/", s.toolHandler.List)
			r.With(s.requireScope(domain.ScopeRegistryWrite)).Post("/", s.toolHandler.Register)
		})

		r.With(s.requireScope(domain.ScopeChat)).Post("/chat", s.chatHandler.Chat)
		r.Get("/logs", s.logHandler.List)
	})
}

// requireScope проверяет scope только при включенном периметре.
func (s *ConsoleServer) requireScope(scope string) func(http.Handler) http.Handler {
	if s.authValidator == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.RequireScope(scope)
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
