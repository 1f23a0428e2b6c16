package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/egx-lab/backend-cotacao/internal/db"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration instead of migrating up")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if *down {
		if err := db.MigrateDown(dbURL); err != nil {
			log.Fatalf("Migrate down failed: %v", err)
		}
		log.Println("Rolled back one migration")
		return
	}

	if err := db.MigrateUp(dbURL); err != nil {
		log.Fatalf("Migrate up failed: %v", err)
	}
	log.Println("Migrations applied")
}
