package routes

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/sabo-arena/docs"
	"github.com/Dosada05/sabo-arena/handlers"
	"github.com/Dosada05/sabo-arena/middleware"
	"github.com/Dosada05/sabo-arena/models"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Challenge  *handlers.ChallengeHandler
	Tournament *handlers.TournamentHandler
	Rank       *handlers.RankHandler
	Admin      *handlers.AdminHandler
	Dashboard  *handlers.DashboardHandler
	WebSocket  *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	// AuthLimiter throttles login and registration per client address.
	AuthLimiter *middleware.IPRateLimiter
	Logger      *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: !slices.Contains(opts.AllowedOrigins, "*"),
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret, opts.Logger)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleOrganizer)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Route("/ws", func(r chi.Router) {
		r.Get("/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
		r.With(authenticate).Get("/me", h.WebSocket.ServeUser)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if opts.AuthLimiter != nil {
				r.Use(middleware.RateLimit(opts.AuthLimiter))
			}
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
		})

		// Public reads
		r.Get("/handicap", h.Challenge.PreviewHandicap)
		r.Get("/leaderboard", h.User.Leaderboard)
		r.Get("/users/search", h.User.Search)
		r.Get("/users/{id}", h.User.GetUserByID)
		r.Get("/users/{id}/elo-history", h.User.EloHistory)
		r.Get("/users/{id}/spa-history", h.User.SpaHistory)
		r.Get("/tournaments", h.Tournament.ListHandler)
		r.Get("/tournaments/{tournamentID}", h.Tournament.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/users/me", h.User.GetMe)
			r.Patch("/users/me", h.User.UpdateMe)
			r.Post("/users/me/avatar", h.User.UploadAvatar)
			r.Get("/users/me/penalties", h.Admin.ListMyPenalties)

			r.Route("/challenges", func(r chi.Router) {
				r.Post("/", h.Challenge.Create)
				r.Get("/", h.Challenge.ListMine)
				r.Get("/{challengeID}", h.Challenge.GetByID)
				r.Post("/{challengeID}/accept", h.Challenge.Accept)
				r.Post("/{challengeID}/decline", h.Challenge.Decline)
				r.Post("/{challengeID}/cancel", h.Challenge.Cancel)
				r.Post("/{challengeID}/score", h.Challenge.SubmitScore)
			})

			r.Post("/rank-requests", h.Rank.Submit)
			r.Get("/rank-requests/mine", h.Rank.ListMine)

			r.Post("/penalties/{penaltyID}/appeal", h.Admin.AppealPenalty)

			r.Post("/tournaments/{tournamentID}/registrations", h.Tournament.RegisterHandler)
			r.Delete("/tournaments/{tournamentID}/registrations", h.Tournament.WithdrawHandler)

			r.Group(func(r chi.Router) {
				r.Use(staff)
				r.Post("/tournaments", h.Tournament.CreateHandler)
				r.Patch("/tournaments/{tournamentID}/status", h.Tournament.UpdateStatusHandler)
				r.Post("/tournaments/{tournamentID}/logo", h.Tournament.UploadLogoHandler)
				r.Post("/tournaments/{tournamentID}/bracket", h.Tournament.GenerateBracketHandler)
				r.Post("/tournaments/{tournamentID}/results", h.Tournament.ReportResultHandler)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/dashboard", h.Dashboard.Stats)

				r.Get("/users", h.Admin.ListUsers)
				r.Post("/users/{id}/ban", h.Admin.BanUser)
				r.Post("/users/{id}/unban", h.Admin.UnbanUser)
				r.Get("/users/{id}/penalties", h.Admin.ListUserPenalties)

				r.Post("/penalties", h.Admin.IssuePenalty)
				r.Get("/appeals", h.Admin.ListOpenAppeals)
				r.Post("/penalties/{penaltyID}/resolve", h.Admin.ResolveAppeal)

				r.Get("/rank-requests", h.Rank.ListPending)
				r.Post("/rank-requests/{requestID}/approve", h.Rank.Approve)
				r.Post("/rank-requests/{requestID}/reject", h.Rank.Reject)

				r.Get("/migrations", h.Admin.MigrationStatus)
				r.Post("/migrations/up", h.Admin.RunMigrations)
			})
		})
	})
}
