package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/subfinder/api/internal/application/auth"
	"github.com/subfinder/api/internal/application/catalog"
	"github.com/subfinder/api/internal/config"
	"github.com/subfinder/api/internal/infrastructure/dynamo"
	jwtinfra "github.com/subfinder/api/internal/infrastructure/jwt"
	"github.com/subfinder/api/internal/infrastructure/smtp"
	"github.com/subfinder/api/internal/transport/http/handler"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      *dynamo.UserRepo
	ResetTokens   *auth.ResetTokenManager
	SubredditRepo *dynamo.SubredditRepo
	Mail          *smtp.Dispatcher
	TokenProvider *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    deps.UserRepo,
		ResetTokens: deps.ResetTokens,
		TokenIssuer: deps.TokenProvider,
		Mail:        deps.Mail,
		Origin:      cfg.Origin,
		BcryptCost:  cfg.BcryptCost,
	})
	catalogSvc := catalog.NewService(deps.SubredditRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, cfg.SessionExpiry, cfg.AppEnv != "development")
	subredditH := handler.NewSubredditHandler(catalogSvc, deps.TokenProvider)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check", healthH.Ping)

		r.Post("/sign-up", authH.SignUp)
		r.Post("/sign-in", authH.SignIn)
		r.Get("/verify-email/{id}/{token}", authH.VerifyEmail)
		r.Post("/forgot-password", authH.ForgotPassword)
		r.Post("/reset-password", authH.ResetPassword)

		r.Get("/subreddits", subredditH.List)
	})

	return r
}
