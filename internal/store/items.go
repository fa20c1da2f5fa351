package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nadimkh/mouneh/internal/model"
)

// InsertItem inserts an inventory item and returns its assigned ID.
func InsertItem(ctx context.Context, db *sql.DB, item model.Item) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO inventory_items (location_id, name_en, name_ar, category, unit, quantity, min_threshold, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.LocationID, item.NameEn, item.NameAr, item.Category, item.Unit,
		item.Quantity, item.MinThreshold, item.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting item id: %w", err)
	}
	return id, nil
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item := &model.Item{}
	err := db.QueryRowContext(ctx,
		`SELECT id, location_id, name_en, name_ar, category, unit, quantity,
		        min_threshold, description, COALESCE(image_mime, ''), last_updated
		 FROM inventory_items WHERE id = ?`, id,
	).Scan(&item.ID, &item.LocationID, &item.NameEn, &item.NameAr, &item.Category,
		&item.Unit, &item.Quantity, &item.MinThreshold, &item.Description,
		&item.ImageMime, &item.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns items, optionally filtered by location. An empty
// location returns the full cross-location inventory.
func ListItems(ctx context.Context, db *sql.DB, locationID string) ([]model.Item, error) {
	query := `SELECT id, location_id, name_en, name_ar, category, unit, quantity,
	                 min_threshold, description, COALESCE(image_mime, ''), last_updated
	          FROM inventory_items`
	var args []any

	if locationID != "" {
		query += ` WHERE location_id = ?`
		args = append(args, locationID)
	}
	query += ` ORDER BY name_en`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(&item.ID, &item.LocationID, &item.NameEn, &item.NameAr,
			&item.Category, &item.Unit, &item.Quantity, &item.MinThreshold,
			&item.Description, &item.ImageMime, &item.LastUpdated); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItemQuantity sets an item's quantity.
func UpdateItemQuantity(ctx context.Context, db *sql.DB, id int64, quantity float64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = ?, last_updated = CURRENT_TIMESTAMP WHERE id = ?`,
		quantity, id,
	)
	if err != nil {
		return fmt.Errorf("updating item quantity: %w", err)
	}
	return nil
}

// UpdateItem updates an item's editable fields.
func UpdateItem(ctx context.Context, db *sql.DB, item model.Item) error {
	_, err := db.ExecContext(ctx,
		`UPDATE inventory_items
		 SET name_en = ?, name_ar = ?, category = ?, unit = ?, quantity = ?,
		     min_threshold = ?, description = ?, last_updated = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		item.NameEn, item.NameAr, item.Category, item.Unit, item.Quantity,
		item.MinThreshold, item.Description, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem removes an item. Stock records are quantity-based, so
// deletion is hard; the transaction log keeps the movement history.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM inventory_items WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE inventory_items SET image = ?, image_mime = ?, last_updated = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM inventory_items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
