package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wastecollect-backend/internal/models"
	"wastecollect-backend/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const routeColumns = `id, route_name, created_by, assigned_to, scheduled_date, scheduled_time, notes,
	status, started_at, completed_at, pre_route_checklist, bins,
	bins_collected, waste_collected, recyclable_waste, efficiency, satisfaction,
	route_duration, start_time, end_time, version, created_at, updated_at`

// RouteRepository stores routes in Postgres with optimistic versioning
type RouteRepository struct {
	db *sqlx.DB
}

func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// Create inserts a new route
func (r *RouteRepository) Create(ctx context.Context, route *models.Route) error {
	query := `
		INSERT INTO routes (` + routeColumns + `)
		VALUES (
			:id, :route_name, :created_by, :assigned_to, :scheduled_date, :scheduled_time, :notes,
			:status, :started_at, :completed_at, :pre_route_checklist, :bins,
			:bins_collected, :waste_collected, :recyclable_waste, :efficiency, :satisfaction,
			:route_duration, :start_time, :end_time, :version, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, route); err != nil {
		if isUniqueViolation(err) {
			return services.ErrDuplicateName
		}
		return fmt.Errorf("failed to insert route: %w", err)
	}
	return nil
}

// Get loads a route by id
func (r *RouteRepository) Get(ctx context.Context, id string) (*models.Route, error) {
	var route models.Route
	err := r.db.GetContext(ctx, &route, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &route, nil
}

// List returns routes matching filter ordered by schedule
func (r *RouteRepository) List(ctx context.Context, filter models.RouteFilter) ([]models.Route, error) {
	var conditions []string
	var args []interface{}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.AssignedTo != "" {
		add("assigned_to = $%d", filter.AssignedTo)
	}
	if filter.FromDate != "" {
		add("scheduled_date >= $%d", filter.FromDate)
	}
	if filter.ToDate != "" {
		add("scheduled_date <= $%d", filter.ToDate)
	}

	query := `SELECT ` + routeColumns + ` FROM routes`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY scheduled_date ASC, scheduled_time ASC, created_at ASC"

	routes := []models.Route{}
	if err := r.db.SelectContext(ctx, &routes, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

// Update saves route only if the stored version still equals route.Version.
// On success route.Version is advanced to the stored value.
func (r *RouteRepository) Update(ctx context.Context, route *models.Route) error {
	query := `
		UPDATE routes SET
			assigned_to = :assigned_to,
			scheduled_date = :scheduled_date,
			scheduled_time = :scheduled_time,
			notes = :notes,
			status = :status,
			started_at = :started_at,
			completed_at = :completed_at,
			pre_route_checklist = :pre_route_checklist,
			bins = :bins,
			bins_collected = :bins_collected,
			waste_collected = :waste_collected,
			recyclable_waste = :recyclable_waste,
			efficiency = :efficiency,
			satisfaction = :satisfaction,
			route_duration = :route_duration,
			start_time = :start_time,
			end_time = :end_time,
			updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version
	`
	result, err := r.db.NamedExecContext(ctx, query, route)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM routes WHERE id = $1)`, route.ID); err != nil {
			return fmt.Errorf("failed to check route: %w", err)
		}
		if !exists {
			return services.ErrRouteNotFound
		}
		return services.ErrVersionConflict
	}

	route.Version++
	return nil
}

// Delete removes a route
func (r *RouteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return services.ErrRouteNotFound
	}
	return nil
}

// NameExists reports whether a route already uses name
func (r *RouteRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM routes WHERE route_name = $1)`, name)
	if err != nil {
		return false, fmt.Errorf("failed to check route name: %w", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
