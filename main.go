package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/VerbClub/VC-Backend/internal/areas"
	"github.com/VerbClub/VC-Backend/internal/auth"
	"github.com/VerbClub/VC-Backend/internal/db"
	"github.com/VerbClub/VC-Backend/internal/middleware"
	"github.com/VerbClub/VC-Backend/internal/people"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

// startBreadcrumbRefresh schedules periodic breadcrumb recomputes when
// BREADCRUMB_REFRESH_CRON is set (e.g. "0 4 * * *"). The read path never
// depends on the cache, so this only keeps exports and ad-hoc queries fresh.
func startBreadcrumbRefresh() {
	spec := os.Getenv("BREADCRUMB_REFRESH_CRON")
	if spec == "" {
		return
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		err := db.DB.Transaction(func(tx *gorm.DB) error {
			updated, err := areas.RecomputeBreadcrumbs(tx)
			if err != nil {
				return err
			}
			log.Printf("[Breadcrumbs] scheduled refresh updated %d areas", updated)
			return nil
		})
		if err != nil {
			log.Printf("[Breadcrumbs] scheduled refresh failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Invalid BREADCRUMB_REFRESH_CRON %q: %v", spec, err)
	}

	c.Start()
	log.Printf("[Breadcrumbs] refresh scheduled: %s", spec)
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	auth.Init()
	people.Init()
	areas.Init()
	startBreadcrumbRefresh()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)

	r.Mount("/auth", auth.SetupRoutes())
	r.Mount("/api/areas", areas.SetupRoutes())
	r.Mount("/api/people", people.SetupRoutes(auth.Tokens))

	fmt.Printf("Server listening on port :%s...\n", port)

	http.ListenAndServe("0.0.0.0:"+port, r)
}
