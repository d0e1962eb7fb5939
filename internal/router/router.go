package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/idfuturestars/starguide/internal/handlers"
	"github.com/idfuturestars/starguide/internal/middleware"
	"github.com/idfuturestars/starguide/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	groupHandler *handlers.GroupHandler,
	quizHandler *handlers.QuizHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	userHandler *handlers.UserHandler,
	aiHandler *handlers.AIHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/me", authHandler.Me)
			})
		})

		// ──── Study Group Routes ────
		r.Route("/groups", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", groupHandler.Create)
			r.Post("/join", groupHandler.Join)
			r.Get("/mine", groupHandler.MyGroups)
			r.Get("/discover", groupHandler.Discover)
			r.Delete("/{groupID}/membership", groupHandler.Leave)
			r.Get("/{groupID}/messages", groupHandler.Messages)
		})

		// ──── Quiz Room Routes ────
		r.Route("/quiz-rooms", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", quizHandler.CreateRoom)
			r.Post("/join", quizHandler.JoinRoom)
			r.Get("/active", quizHandler.ActiveRooms)
		})

		// ──── Assessment Routes ────
		r.Route("/assessments", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", quizHandler.Assessments)
		})

		// ──── AI Helper Routes ────
		r.Route("/ai", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/chat", aiHandler.Chat)
		})

		// ──── Analytics Routes ────
		r.Route("/analytics", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/dashboard", analyticsHandler.Dashboard)
		})

		// ──── User Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/profile", userHandler.Profile)
			r.Put("/profile", userHandler.UpdateProfile)
			r.Get("/notifications", userHandler.Notifications)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/leaderboard", userHandler.Leaderboard)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
