package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// Connect opens the Postgres pool and verifies it with a ping
func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 URL prefix: %s...", dbURL[:min(30, len(dbURL))])
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Open("postgres", dbURL)
	if err != nil {
		log.Printf("❌ DATABASE OPEN FAILED: %v", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ DATABASE CONNECTION FAILED AT Ping()")
		log.Printf("   Error type: %T", err)
		log.Printf("   Error message: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("✅ DATABASE CONNECTION SUCCESSFUL (pool: %d open / %d idle)", maxOpenConns, maxIdleConns)
	return db, nil
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('admin', 'collector', 'resident', 'user')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS bins (
			id TEXT PRIMARY KEY,
			bin_number INT NOT NULL UNIQUE,
			bin_type TEXT NOT NULL CHECK(bin_type IN ('General', 'Recyclable', 'Organic', 'Hazardous')),
			capacity DOUBLE PRECISION NOT NULL CHECK(capacity >= 0),
			fill_level INT CHECK(fill_level BETWEEN 0 AND 100),
			owner_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			current_street TEXT NOT NULL,
			city TEXT NOT NULL,
			zip TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Active',
			last_collected BIGINT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Visits and the checklist live on the route row as JSONB so a
		// single conditional UPDATE covers every mutation.
		`CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			route_name TEXT NOT NULL,
			created_by TEXT NOT NULL,
			assigned_to TEXT REFERENCES users(id) ON DELETE SET NULL,
			scheduled_date TEXT NOT NULL,
			scheduled_time TEXT NOT NULL,
			notes TEXT,
			status TEXT NOT NULL CHECK(status IN ('scheduled', 'in-progress', 'completed', 'cancelled')),
			started_at BIGINT,
			completed_at BIGINT,
			pre_route_checklist JSONB,
			bins JSONB NOT NULL DEFAULT '[]'::jsonb,
			bins_collected INT NOT NULL DEFAULT 0,
			waste_collected INT NOT NULL DEFAULT 0,
			recyclable_waste INT NOT NULL DEFAULT 0,
			efficiency INT NOT NULL DEFAULT 0 CHECK(efficiency BETWEEN 0 AND 100),
			satisfaction DOUBLE PRECISION NOT NULL DEFAULT 0,
			route_duration INT,
			start_time BIGINT,
			end_time BIGINT,
			version INT NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_routes_route_name ON routes(route_name)`,
		`CREATE INDEX IF NOT EXISTS idx_routes_assigned_to ON routes(assigned_to)`,
		`CREATE INDEX IF NOT EXISTS idx_routes_status ON routes(status)`,
		`CREATE INDEX IF NOT EXISTS idx_routes_scheduled_date ON routes(scheduled_date)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
