package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/VerbClub/VC-Backend/internal/areas/openbeta"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load(".env.local")

	var (
		jobPath = flag.String("job", "", "path to import job YAML")
		dbURL   = flag.String("db", os.Getenv("DATABASE_URL"), "database URL (defaults to DATABASE_URL)")
	)
	flag.Parse()

	if *jobPath == "" || *dbURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := openbeta.Config{
		DatabaseURL: *dbURL,
		JobPath:     *jobPath,
	}

	if err := openbeta.Run(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}
