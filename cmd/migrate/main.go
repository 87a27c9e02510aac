package main

import (
	"log"

	"wastecollect-backend/internal/config"
	"wastecollect-backend/internal/database"
)

// Runs migrations and the idempotent seed without starting the server
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := database.SeedUsers(db, cfg.SeedAdminEmail, cfg.SeedAdminPassword, cfg.SeedDemoUsers); err != nil {
		log.Fatalf("User seeding failed: %v", err)
	}
	if err := database.SeedBins(db); err != nil {
		log.Fatalf("Bin seeding failed: %v", err)
	}

	var summary struct {
		Users           int `db:"users"`
		Collectors      int `db:"collectors"`
		Bins            int `db:"bins"`
		Routes          int `db:"routes"`
		CompletedRoutes int `db:"completed_routes"`
	}
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM users WHERE role = 'collector') AS collectors,
			(SELECT COUNT(*) FROM bins) AS bins,
			(SELECT COUNT(*) FROM routes) AS routes,
			(SELECT COUNT(*) FROM routes WHERE status = 'completed') AS completed_routes
	`
	if err := db.Get(&summary, query); err != nil {
		log.Fatalf("Failed to read summary: %v", err)
	}

	log.Println("Migration completed successfully!")
	log.Printf("  Users:            %d (%d collectors)", summary.Users, summary.Collectors)
	log.Printf("  Bins:             %d", summary.Bins)
	log.Printf("  Routes:           %d (%d completed)", summary.Routes, summary.CompletedRoutes)
}
