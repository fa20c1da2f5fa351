package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nadimkh/mouneh/internal/model"
)

// UpsertLocation creates a location or updates its display fields.
// Locations are never deleted.
func UpsertLocation(ctx context.Context, db *sql.DB, loc model.Location) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO locations (id, name, name_ar, description, icon, type)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = ?, name_ar = ?, description = ?, icon = ?`,
		loc.ID, loc.Name, loc.NameAr, loc.Description, loc.Icon, loc.Type,
		loc.Name, loc.NameAr, loc.Description, loc.Icon,
	)
	if err != nil {
		return fmt.Errorf("upserting location: %w", err)
	}
	return nil
}

// GetLocation returns a location by ID, or nil if it does not exist.
func GetLocation(ctx context.Context, db *sql.DB, id string) (*model.Location, error) {
	loc := &model.Location{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, name_ar, description, icon, type, created_at
		 FROM locations WHERE id = ?`, id,
	).Scan(&loc.ID, &loc.Name, &loc.NameAr, &loc.Description, &loc.Icon, &loc.Type, &loc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return loc, nil
}

// ListLocations returns all locations, central ones first.
func ListLocations(ctx context.Context, db *sql.DB) ([]model.Location, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, name_ar, description, icon, type, created_at
		 FROM locations ORDER BY type DESC, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locs []model.Location
	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.NameAr, &loc.Description,
			&loc.Icon, &loc.Type, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}
