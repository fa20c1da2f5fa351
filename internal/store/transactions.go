package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nadimkh/mouneh/internal/model"
)

// InsertTransaction appends a transaction and returns its assigned ID.
func InsertTransaction(ctx context.Context, db *sql.DB, t model.Transaction) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO transactions (group_id, type, status, from_location, to_location,
		                           item_name_en, item_name_ar, quantity, unit,
		                           performed_by, notes, rejection_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.GroupID, t.Type, t.Status, t.FromLocation, t.ToLocation,
		t.ItemNameEn, t.ItemNameAr, t.Quantity, t.Unit,
		t.PerformedBy, t.Notes, t.RejectionReason,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transaction id: %w", err)
	}
	return id, nil
}

// UpdateTransactionStatus sets a transaction's status and, when non-empty,
// its rejection reason. Transactions are never deleted.
func UpdateTransactionStatus(ctx context.Context, db *sql.DB, id int64, status, rejectionReason string) error {
	var err error
	if rejectionReason != "" {
		_, err = db.ExecContext(ctx,
			`UPDATE transactions SET status = ?, rejection_reason = ? WHERE id = ?`,
			status, rejectionReason, id,
		)
	} else {
		_, err = db.ExecContext(ctx,
			`UPDATE transactions SET status = ? WHERE id = ?`,
			status, id,
		)
	}
	if err != nil {
		return fmt.Errorf("updating transaction status: %w", err)
	}
	return nil
}

// GetTransaction returns a transaction by ID, or nil if it does not exist.
func GetTransaction(ctx context.Context, db *sql.DB, id int64) (*model.Transaction, error) {
	t := &model.Transaction{}
	err := db.QueryRowContext(ctx,
		`SELECT id, group_id, type, status, from_location, to_location,
		        item_name_en, item_name_ar, quantity, unit,
		        performed_by, notes, rejection_reason, created_at
		 FROM transactions WHERE id = ?`, id,
	).Scan(&t.ID, &t.GroupID, &t.Type, &t.Status, &t.FromLocation, &t.ToLocation,
		&t.ItemNameEn, &t.ItemNameAr, &t.Quantity, &t.Unit,
		&t.PerformedBy, &t.Notes, &t.RejectionReason, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns transactions newest first, optionally filtered
// by location (matching either end) and status.
func ListTransactions(ctx context.Context, db *sql.DB, locationID, status string) ([]model.Transaction, error) {
	query := `SELECT id, group_id, type, status, from_location, to_location,
	                 item_name_en, item_name_ar, quantity, unit,
	                 performed_by, notes, rejection_reason, created_at
	          FROM transactions WHERE 1=1`
	var args []any

	if locationID != "" {
		query += ` AND (from_location = ? OR to_location = ?)`
		args = append(args, locationID, locationID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListTransactionGroup returns all transactions sharing a group ID.
func ListTransactionGroup(ctx context.Context, db *sql.DB, groupID string) ([]model.Transaction, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, group_id, type, status, from_location, to_location,
		        item_name_en, item_name_ar, quantity, unit,
		        performed_by, notes, rejection_reason, created_at
		 FROM transactions WHERE group_id = ? ORDER BY id`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transaction group: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.GroupID, &t.Type, &t.Status, &t.FromLocation,
			&t.ToLocation, &t.ItemNameEn, &t.ItemNameAr, &t.Quantity, &t.Unit,
			&t.PerformedBy, &t.Notes, &t.RejectionReason, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
