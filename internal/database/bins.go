package database

import (
	"context"
	"fmt"

	"wastecollect-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

const binColumns = `id, bin_number, bin_type, capacity, fill_level, owner_id, current_street, city, zip,
	status, last_collected, latitude, longitude, created_at, updated_at`

// BinRepository is the bin catalog
type BinRepository struct {
	db *sqlx.DB
}

func NewBinRepository(db *sqlx.DB) *BinRepository {
	return &BinRepository{db: db}
}

// GetBinsByIDs returns the bins found, keyed by id. Unknown ids are left out.
func (r *BinRepository) GetBinsByIDs(ctx context.Context, ids []string) (map[string]*models.Bin, error) {
	result := make(map[string]*models.Bin, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+binColumns+` FROM bins WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build bin query: %w", err)
	}

	var bins []models.Bin
	if err := r.db.SelectContext(ctx, &bins, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get bins: %w", err)
	}
	for i := range bins {
		result[bins[i].ID] = &bins[i]
	}
	return result, nil
}

// ListBins returns the catalog ordered by bin number
func (r *BinRepository) ListBins(ctx context.Context) ([]models.Bin, error) {
	bins := []models.Bin{}
	if err := r.db.SelectContext(ctx, &bins, `SELECT `+binColumns+` FROM bins ORDER BY bin_number ASC`); err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	return bins, nil
}

// CreateBin inserts a bin, assigning the next bin number when none is given
func (r *BinRepository) CreateBin(ctx context.Context, bin *models.Bin) error {
	if bin.BinNumber == 0 {
		if err := r.db.GetContext(ctx, &bin.BinNumber, `SELECT COALESCE(MAX(bin_number), 0) + 1 FROM bins`); err != nil {
			return fmt.Errorf("failed to get next bin number: %w", err)
		}
	}

	query := `
		INSERT INTO bins (` + binColumns + `)
		VALUES (
			:id, :bin_number, :bin_type, :capacity, :fill_level, :owner_id, :current_street, :city, :zip,
			:status, :last_collected, :latitude, :longitude, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, bin); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("bin number %d already exists: %w", bin.BinNumber, err)
		}
		return fmt.Errorf("failed to insert bin: %w", err)
	}
	return nil
}

// MarkCollected records a collection on the catalog entry
func (r *BinRepository) MarkCollected(ctx context.Context, binID string, collectedAt int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bins SET last_collected = $1, fill_level = 0, updated_at = $1
		WHERE id = $2
	`, collectedAt, binID)
	if err != nil {
		return fmt.Errorf("failed to mark bin collected: %w", err)
	}
	return nil
}
