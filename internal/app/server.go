package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/damage-detector/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/damage-detector/internal/api/middlewares"
	"github.com/markdave123-py/damage-detector/internal/config"
	"github.com/markdave123-py/damage-detector/internal/core/auth"
	"github.com/markdave123-py/damage-detector/internal/services"
)

// requestTimeout bounds a whole request, including model inference and uploads.
const requestTimeout = 5 * time.Minute

// Services is everything the HTTP layer calls into.
type Services struct {
	Users       *services.UserService
	History     *services.HistoryService
	Advisor     *services.Advisor
	Assessments *services.AssessmentService
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewRouter builds and wires all routes.
func NewRouter(cfg *config.Config, tokens *auth.TokenManager, svc Services) http.Handler {
	authHandler := handlers.NewAuthHandler(svc.Users)
	assessmentHandler := handlers.NewAssessmentHandler(svc.Assessments, cfg.MaxUploadMB, cfg.TempDir)
	chatHandler := handlers.NewChatHandler(svc.Advisor)
	historyHandler := handlers.NewHistoryHandler(svc.History, svc.Advisor)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.FrontendURL),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Get("/health", handlers.Health)
		api.Post("/predict_car", assessmentHandler.PredictCar)
		api.Post("/predict_severity", assessmentHandler.PredictSeverity)
		api.Post("/predict_yolo", assessmentHandler.PredictDamage)
		api.Post("/estimate_cost", assessmentHandler.EstimateCost)
		api.Post("/generate_suggestions", chatHandler.GenerateSuggestions)
		api.Post("/chat", chatHandler.Chat)

		api.Post("/auth/register", authHandler.Register)
		api.Post("/auth/login", authHandler.Login)
		api.Post("/auth/google", authHandler.Google)

		api.With(appMiddleware.OptionalJWT(tokens)).Post("/analyze_assessment", assessmentHandler.AnalyzeAssessment)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(tokens))
			protected.Get("/auth/me", authHandler.Me)
			protected.Post("/history", historyHandler.SaveHistory)
			protected.Get("/history", historyHandler.GetHistory)
			protected.Get("/analytics", historyHandler.GetAnalytics)
			protected.Get("/analytics/summary", historyHandler.GetAnalyticsSummary)
		})
	})

	return r
}

// allowedOrigins splits FRONTEND_URL on commas.
func allowedOrigins(frontendURL string) []string {
	var out []string
	for _, o := range strings.Split(frontendURL, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:5173"}
	}
	return out
}

func NewServer(cfg *config.Config, tokens *auth.TokenManager, svc Services) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, tokens, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
