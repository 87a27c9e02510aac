package database

import (
	"log"
	"time"

	"wastecollect-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedBins loads a demo bin catalog when the table is empty
func SeedBins(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM bins"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Bins already seeded, skipping...")
		return nil
	}

	bins := []struct {
		street, city, zip string
		binType           string
		capacity          float64
		fill              int
		lat, lng          float64
	}{
		{"325 S 1st St", "San Jose", "95113", models.BinTypeGeneral, 120, 45, 37.3329, -121.8866},
		{"200 E Santa Clara St", "San Jose", "95113", models.BinTypeRecyclable, 240, 67, 37.3361, -121.8869},
		{"151 W Mission St", "San Jose", "95110", models.BinTypeOrganic, 80, 23, 37.3343, -121.8936},
		{"408 Almaden Blvd", "San Jose", "95110", models.BinTypeGeneral, 120, 89, 37.3313, -121.8917},
		{"180 Park Ave", "San Jose", "95113", models.BinTypeRecyclable, 240, 12, 37.3351, -121.8894},
		{"72 N Almaden Ave", "San Jose", "95110", models.BinTypeGeneral, 360, 78, 37.3352, -121.8931},
		{"345 E Santa Clara St", "San Jose", "95113", models.BinTypeOrganic, 80, 56, 37.3357, -121.8826},
		{"99 S Market St", "San Jose", "95113", models.BinTypeRecyclable, 240, 34, 37.3339, -121.8905},
		{"201 S 2nd St", "San Jose", "95113", models.BinTypeHazardous, 60, 91, 37.3326, -121.8863},
		{"150 S 1st St", "San Jose", "95113", models.BinTypeGeneral, 120, 15, 37.3344, -121.8877},
		{"88 W San Carlos St", "San Jose", "95113", models.BinTypeRecyclable, 360, 82, 37.3307, -121.8901},
		{"250 S 3rd St", "San Jose", "95112", models.BinTypeGeneral, 240, 47, 37.3311, -121.8842},
	}

	log.Printf("🌱 Seeding %d bins...", len(bins))

	now := time.Now().Unix()
	for i, b := range bins {
		fill, lat, lng := b.fill, b.lat, b.lng
		_, err := db.NamedExec(`
			INSERT INTO bins (id, bin_number, bin_type, capacity, fill_level, current_street, city, zip, status, latitude, longitude, created_at, updated_at)
			VALUES (:id, :bin_number, :bin_type, :capacity, :fill_level, :current_street, :city, :zip, :status, :latitude, :longitude, :created_at, :updated_at)
		`, &models.Bin{
			ID:            uuid.New().String(),
			BinNumber:     i + 1,
			BinType:       b.binType,
			Capacity:      b.capacity,
			FillLevel:     &fill,
			CurrentStreet: b.street,
			City:          b.city,
			Zip:           b.zip,
			Status:        "Active",
			Latitude:      &lat,
			Longitude:     &lng,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d bins", len(bins))
	return nil
}

// SeedUsers creates the bootstrap admin, and the demo collector and resident
// when demoUsers is set, if the users table is empty. The admin is skipped
// when no password is configured.
func SeedUsers(db *sqlx.DB, adminEmail, adminPassword string, demoUsers bool) error {
	type seedUser struct {
		email, password, name, role string
	}

	var users []seedUser
	if adminPassword != "" {
		users = append(users, seedUser{adminEmail, adminPassword, "Admin User", models.RoleAdmin})
	} else {
		log.Println("⚠️  SEED_ADMIN_PASSWORD not set, skipping admin user")
	}
	if demoUsers {
		users = append(users,
			seedUser{"collector@wastecollect.local", "collector123", "Casey Collector", models.RoleCollector},
			seedUser{"resident@wastecollect.local", "resident123", "Riley Resident", models.RoleResident},
		)
	}
	if len(users) == 0 {
		return nil
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding users...")

	now := time.Now().Unix()
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO users (id, email, password, name, role, created_at, updated_at)
			VALUES (:id, :email, :password, :name, :role, :created_at, :updated_at)
		`
		user := &models.User{
			ID:        uuid.New().String(),
			Email:     u.email,
			Password:  string(hash),
			Name:      u.name,
			Role:      u.role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", u.email, u.role)
	}

	log.Printf("✓ Successfully seeded %d users", len(users))
	return nil
}
