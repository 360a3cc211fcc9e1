package auth

import (
	"net/http"
	"time"

	"github.com/VerbClub/VC-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Credential endpoints get a per-IP limiter; OAuth redirects don't carry
	// credentials and stay unthrottled.
	limiter := middleware.NewRateLimiter(rate.Every(time.Second), 5)

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Post("/register", RegisterHandler)
		r.Post("/login", LoginHandler)
	})

	r.Get("/{provider}", BeginOAuthHandler)
	r.Get("/{provider}/callback", OAuthCallbackHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(Tokens))
		r.Get("/me", MeHandler)
	})

	return r
}
