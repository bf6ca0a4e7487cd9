package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/optiplus/storefront/internal/database"
)

const (
	orderNumberPrefix      = "OPT"
	orderNumberLayout      = "060102150405"
	orderNumberSuffixLen   = 6
	maxOrderNumberAttempts = 5
)

// NewOrderNumber formats OPT<YYMMDDHHMMSS><6 hex> for t in UTC.
func NewOrderNumber(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:orderNumberSuffixLen]
	return orderNumberPrefix + t.UTC().Format(orderNumberLayout) + suffix
}

type orderNumberTaken func(ctx context.Context, candidate string) (bool, error)

// allocateOrderNumber draws candidates until taken reports one as free.
func allocateOrderNumber(ctx context.Context, now func() time.Time, taken orderNumberTaken) (string, error) {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		candidate := NewOrderNumber(now())

		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", database.ErrOrderNumberExhausted
}

func orderNumberExists(q database.Queryer) orderNumberTaken {
	return func(ctx context.Context, candidate string) (bool, error) {
		var exists bool
		err := q.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)`, candidate).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("check order number: %w", err)
		}
		return exists, nil
	}
}
