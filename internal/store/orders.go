package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/models"
)

// OrderDetails are the contact and shipping fields captured at checkout.
type OrderDetails struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Address       string
	City          string
	PostalCode    string
	Notes         string
	PaymentMethod models.PaymentMethod
}

const orderColumns = `
	id, order_number, user_id, first_name, last_name, email, phone, address, city, postal_code,
	order_notes, total_amount, status, payment_status, payment_method, payment_phone,
	transaction_ref, tracking_number, created_at, updated_at, version`

func scanOrder(row rowScanner, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.FirstName,
		&order.LastName,
		&order.Email,
		&order.Phone,
		&order.Address,
		&order.City,
		&order.PostalCode,
		&order.Notes,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.PaymentPhone,
		&order.TransactionRef,
		&order.TrackingNumber,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
}

// CheckoutCart turns the user's cart into an order. The order, its item
// snapshots and the emptied cart commit together; an empty or missing cart
// fails with ErrCartEmpty and writes nothing.
func CheckoutCart(ctx context.Context, db *sql.DB, userID int64, details OrderDetails) (*models.Order, error) {
	if details.PaymentMethod == "" {
		details.PaymentMethod = models.PaymentMethodMpesa
	}
	if !details.PaymentMethod.Valid() {
		return nil, database.ErrUnsupportedPaymentMethod
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		var cartID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrCartEmpty
			}
			return fmt.Errorf("lock cart: %w", err)
		}

		summary, err := GetCartSummary(ctx, tx, cartID)
		if err != nil {
			return err
		}
		if summary.Empty() {
			return database.ErrCartEmpty
		}

		orderNumber, err := allocateOrderNumber(ctx, time.Now, orderNumberExists(tx))
		if err != nil {
			return err
		}

		var orderID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (
				order_number, user_id, first_name, last_name, email, phone, address, city,
				postal_code, order_notes, total_amount, status, payment_status, payment_method,
				created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW(), 1)
			RETURNING id`,
			orderNumber, userID, details.FirstName, details.LastName, details.Email, details.Phone,
			details.Address, details.City, details.PostalCode, details.Notes,
			summary.Total.Round(2), models.OrderStatusPending, models.PaymentStatusPending,
			details.PaymentMethod).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, line := range summary.Items {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, product_name, price, quantity, created_at)
				VALUES ($1, $2, $3, $4, $5, NOW())`,
				orderID, line.ProductID, line.ProductName, line.UnitPrice, line.Quantity)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		if _, err := deleteCartItems(ctx, tx, cartID); err != nil {
			return err
		}
		if err := touchCart(ctx, tx, cartID); err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, `id = $1`, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func getOrder(ctx context.Context, q database.Queryer, where string, args ...any) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where, args...), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := getOrderItems(ctx, q, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func getOrderItems(ctx context.Context, q database.Queryer, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, price, quantity, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Price,
			&item.Quantity,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetOrderForUser returns ErrOrderNotFound for orders owned by someone else.
func GetOrderForUser(ctx context.Context, db *sql.DB, userID int64, orderNumber string) (*models.Order, error) {
	return getOrder(ctx, db, `order_number = $1 AND user_id = $2`, orderNumber, userID)
}

func GetOrderByNumber(ctx context.Context, db database.Queryer, orderNumber string) (*models.Order, error) {
	return getOrder(ctx, db, `order_number = $1`, orderNumber)
}

func CountOrders(ctx context.Context, db database.Queryer) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func ListOrdersCursor(ctx context.Context, db *sql.DB, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func lockOrder(ctx context.Context, tx *sql.Tx, where string, args ...any) (*models.Order, error) {
	order := &models.Order{}
	err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where+` FOR UPDATE`, args...), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return order, nil
}

// NewTransactionRef returns the reference recorded for a simulated payment.
func NewTransactionRef() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "SIMULATED-" + strings.ToUpper(hex[:8])
}

// ConfirmPayment records a simulated mobile payment for an order owned by
// userID: payment pending -> completed and status pending -> processing.
func ConfirmPayment(ctx context.Context, db *sql.DB, userID int64, orderNumber, phone string) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		locked, err := lockOrder(ctx, tx, `order_number = $1 AND user_id = $2`, orderNumber, userID)
		if err != nil {
			return err
		}

		if locked.PaymentMethod != models.PaymentMethodMpesa {
			return database.ErrUnsupportedPaymentMethod
		}
		if locked.PaymentStatus != models.PaymentStatusPending ||
			!locked.Status.CanTransitionTo(models.OrderStatusProcessing) {
			return database.ErrInvalidTransition
		}

		if phone == "" {
			phone = locked.Phone
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET payment_status = $1, status = $2, transaction_ref = $3, payment_phone = $4,
			    version = version + 1, updated_at = NOW()
			WHERE id = $5`,
			models.PaymentStatusCompleted, models.OrderStatusProcessing, NewTransactionRef(), phone, locked.ID)
		if err != nil {
			return fmt.Errorf("confirm payment: %w", err)
		}

		order, err = getOrder(ctx, tx, `id = $1`, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// UpdateOrderStatus moves an order along the fulfillment track. The tracking
// number, when given, is stored with the shipped transition.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, orderNumber string, next models.OrderStatus, trackingNumber string) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		locked, err := lockOrder(ctx, tx, `order_number = $1`, orderNumber)
		if err != nil {
			return err
		}

		if err := setOrderStatus(ctx, tx, locked, next, trackingNumber); err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, `id = $1`, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func setOrderStatus(ctx context.Context, tx *sql.Tx, order *models.Order, next models.OrderStatus, trackingNumber string) error {
	if !order.Status.CanTransitionTo(next) {
		return database.ErrInvalidTransition
	}

	var tracking any
	if trackingNumber != "" {
		tracking = trackingNumber
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, tracking_number = COALESCE($2, tracking_number),
		    version = version + 1, updated_at = NOW()
		WHERE id = $3`,
		next, tracking, order.ID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	return nil
}

func UpdatePaymentStatus(ctx context.Context, db *sql.DB, orderNumber string, next models.PaymentStatus) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		locked, err := lockOrder(ctx, tx, `order_number = $1`, orderNumber)
		if err != nil {
			return err
		}

		if !locked.PaymentStatus.CanTransitionTo(next) {
			return database.ErrInvalidTransition
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET payment_status = $1, version = version + 1, updated_at = NOW()
			WHERE id = $2`, next, locked.ID)
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}

		order, err = getOrder(ctx, tx, `id = $1`, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// ClaimNextOrderToShip locks the oldest paid order waiting for shipment,
// skipping orders another worker already holds.
func ClaimNextOrderToShip(ctx context.Context, tx *sql.Tx) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND payment_status = $2
		ORDER BY created_at, id
		FOR UPDATE SKIP LOCKED
		LIMIT 1`

	err := scanOrder(tx.QueryRowContext(ctx, query,
		models.OrderStatusProcessing, models.PaymentStatusCompleted), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get next order to ship: %w", err)
	}

	return order, nil
}

// ShipNextOrder claims the next order to ship and marks it shipped with the
// given tracking number.
func ShipNextOrder(ctx context.Context, db *sql.DB, trackingNumber string) (*models.Order, error) {
	var order *models.Order

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		claimed, err := ClaimNextOrderToShip(ctx, tx)
		if err != nil {
			return err
		}

		if err := setOrderStatus(ctx, tx, claimed, models.OrderStatusShipped, trackingNumber); err != nil {
			return err
		}

		order, err = getOrder(ctx, tx, `id = $1`, claimed.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}
