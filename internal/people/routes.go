package people

import (
	"net/http"

	"github.com/VerbClub/VC-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(verifier middleware.TokenVerifier) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(verifier))

		r.Get("/", ListPeopleHandler)
		r.Post("/", CreatePersonHandler)
		r.Get("/me", MeHandler)
		r.Patch("/me", UpdateMeHandler)

		r.Get("/me/connections", ListConnectionsHandler)
		r.Post("/me/connections", CreateConnectionHandler)
		r.Delete("/me/connections/{personId}", DeleteConnectionHandler)

		r.Get("/me/blocks", ListBlocksHandler)
		r.Post("/me/blocks", CreateBlockHandler)
		r.Delete("/me/blocks/{personId}", DeleteBlockHandler)

		r.Get("/{id}", GetPersonHandler)
	})

	return r
}
