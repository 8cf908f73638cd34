package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/mapsmyway/heli-backend/internal/config"
	"github.com/mapsmyway/heli-backend/internal/database"
)

// Rewrites legacy operator rows still carrying status 'approved' to the
// canonical 'active'. Reads already treat both as active, so this can run
// at any time without affecting booking behaviour.
func main() {
	var dbURLFlag string
	var dryRun bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&dryRun, "dry-run", false, "count legacy rows without rewriting them")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if dryRun {
		var count int
		if err := db.Get(&count, `SELECT COUNT(*) FROM operators WHERE status = 'approved'`); err != nil {
			log.Fatalf("failed to count legacy rows: %v", err)
		}
		fmt.Printf("%d operator(s) still carry the legacy 'approved' status\n", count)
		return
	}

	operatorRepo := database.NewOperatorRepository(db)
	migrated, err := operatorRepo.MigrateLegacyApprovedStatus()
	if err != nil {
		log.Fatalf("failed to migrate operator statuses: %v", err)
	}

	fmt.Printf("Migrated %d operator(s) from 'approved' to 'active'\n", migrated)
}
