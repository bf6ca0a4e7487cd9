package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/optiplus/storefront/internal/models"
)

// Subscribe creates the subscriber if needed. created is false when the
// address was already on the list.
func Subscribe(ctx context.Context, db *sql.DB, email string) (sub *models.Subscriber, created bool, err error) {
	sub = &models.Subscriber{}
	email = normalizeEmail(email)

	err = db.QueryRowContext(ctx, `
		INSERT INTO subscribers (email, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, created_at`, email).Scan(&sub.ID, &sub.Email, &sub.CreatedAt)
	if err == nil {
		return sub, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("create subscriber: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM subscribers WHERE email = $1`, email).
		Scan(&sub.ID, &sub.Email, &sub.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("get subscriber: %w", err)
	}

	return sub, false, nil
}
