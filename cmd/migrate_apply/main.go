package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"boostclics/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	apply := flag.Bool("apply", false, "apply pending migrations (default: print status)")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if !*apply {
		if err := db.MigrationStatus(ctx, pool); err != nil {
			log.Fatalf("migration status: %v", err)
		}
		return
	}

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}
	log.Println("migrations applied")
}
