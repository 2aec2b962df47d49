package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unklstewy/sonde-scope/pkg/geodesy"
)

// ObservationSite is a user-defined ground observer location. Look angles,
// visibility searches and the scope display are computed relative to the
// user's active site.
type ObservationSite struct {
	ID              int       `json:"id"`
	UserID          int       `json:"userId"`
	Name            string    `json:"name"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	ElevationMeters float64   `json:"elevationMeters"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Position returns the site location in the form the look-angle solver takes.
func (s *ObservationSite) Position() geodesy.Position {
	return geodesy.Position{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Altitude:  s.ElevationMeters,
	}
}

// ObservationSiteRepository provides methods for managing observation sites.
type ObservationSiteRepository struct {
	db *DB
}

// NewObservationSiteRepository creates a new observation site repository.
func NewObservationSiteRepository(db *DB) *ObservationSiteRepository {
	return &ObservationSiteRepository{db: db}
}

// GetUserSites returns all observation sites for a user, active first.
func (r *ObservationSiteRepository) GetUserSites(ctx context.Context, userID int) ([]ObservationSite, error) {
	query := `
		SELECT id, user_id, name, latitude, longitude, elevation_meters, is_active, created_at, updated_at
		FROM observation_sites
		WHERE user_id = $1
		ORDER BY is_active DESC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query observation sites: %w", err)
	}
	defer rows.Close()

	var sites []ObservationSite
	for rows.Next() {
		var s ObservationSite
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Name,
			&s.Latitude,
			&s.Longitude,
			&s.ElevationMeters,
			&s.IsActive,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation site: %w", err)
		}
		sites = append(sites, s)
	}

	return sites, rows.Err()
}

// GetActiveSite returns the active observation site for a user, or nil when
// the user has none.
func (r *ObservationSiteRepository) GetActiveSite(ctx context.Context, userID int) (*ObservationSite, error) {
	query := `
		SELECT id, user_id, name, latitude, longitude, elevation_meters, is_active, created_at, updated_at
		FROM observation_sites
		WHERE user_id = $1 AND is_active = TRUE
		LIMIT 1
	`

	var s ObservationSite
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&s.Latitude,
		&s.Longitude,
		&s.ElevationMeters,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active observation site: %w", err)
	}

	return &s, nil
}

// GetByID returns a specific observation site owned by the user.
func (r *ObservationSiteRepository) GetByID(ctx context.Context, siteID, userID int) (*ObservationSite, error) {
	query := `
		SELECT id, user_id, name, latitude, longitude, elevation_meters, is_active, created_at, updated_at
		FROM observation_sites
		WHERE id = $1 AND user_id = $2
	`

	var s ObservationSite
	err := r.db.QueryRowContext(ctx, query, siteID, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&s.Latitude,
		&s.Longitude,
		&s.ElevationMeters,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("observation site not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get observation site: %w", err)
	}

	return &s, nil
}

// Create creates a new observation site.
func (r *ObservationSiteRepository) Create(ctx context.Context, site *ObservationSite) error {
	query := `
		INSERT INTO observation_sites (user_id, name, latitude, longitude, elevation_meters, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		site.UserID,
		site.Name,
		site.Latitude,
		site.Longitude,
		site.ElevationMeters,
		site.IsActive,
	).Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create observation site: %w", err)
	}

	return nil
}

// Update updates an existing observation site.
func (r *ObservationSiteRepository) Update(ctx context.Context, site *ObservationSite) error {
	query := `
		UPDATE observation_sites
		SET name = $1, latitude = $2, longitude = $3, elevation_meters = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		site.Name,
		site.Latitude,
		site.Longitude,
		site.ElevationMeters,
		site.IsActive,
		site.ID,
		site.UserID,
	).Scan(&site.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("observation site not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update observation site: %w", err)
	}

	return nil
}

// Delete deletes an observation site.
func (r *ObservationSiteRepository) Delete(ctx context.Context, siteID, userID int) error {
	query := `DELETE FROM observation_sites WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, siteID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete observation site: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("observation site not found")
	}

	return nil
}

// SetActive makes one site the user's active observer location and
// deactivates the rest. A user has at most one active site.
func (r *ObservationSiteRepository) SetActive(ctx context.Context, siteID, userID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE observation_sites
		 SET is_active = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND is_active = TRUE AND id <> $2`,
		userID, siteID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate observation sites: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE observation_sites
		 SET is_active = TRUE, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		siteID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set active observation site: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("observation site not found")
	}

	return tx.Commit()
}
