package main

import (
	"fmt"
	"log"
	"os"

	"github.com/VerbClub/VC-Backend/internal/areas"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	godotenv.Load(".env.local")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("DB connection error: %v", err)
	}

	var updated int64
	err = db.Transaction(func(tx *gorm.DB) error {
		updated, err = areas.RecomputeBreadcrumbs(tx)
		return err
	})
	if err != nil {
		log.Fatalf("Error recomputing breadcrumbs: %v", err)
	}

	fmt.Printf("✓ Recomputed breadcrumbs for %d areas\n", updated)
}
