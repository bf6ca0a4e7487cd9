package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// CartLine is a cart item joined with the product data needed to price it.
type CartLine struct {
	ItemID      int64               `json:"item_id"`
	ProductID   int64               `json:"product_id"`
	ProductName string              `json:"product_name"`
	ProductSlug string              `json:"product_slug"`
	SKU         string              `json:"sku"`
	BrandName   string              `json:"brand_name"`
	Price       decimal.Decimal     `json:"price"`
	SalePrice   decimal.NullDecimal `json:"sale_price"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	Quantity    int                 `json:"quantity"`
	LineTotal   decimal.Decimal     `json:"line_total"`
	AddedAt     time.Time           `json:"added_at"`
}

type CartSummary struct {
	CartID    int64           `json:"cart_id"`
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func (s *CartSummary) Empty() bool {
	return len(s.Items) == 0
}

func (s *CartSummary) Line(itemID int64) (CartLine, bool) {
	for _, line := range s.Items {
		if line.ItemID == itemID {
			return line, true
		}
	}
	return CartLine{}, false
}

const cartColumns = `id, user_id, session_key, created_at, updated_at`

func scanCart(row rowScanner, cart *models.Cart) error {
	return row.Scan(&cart.ID, &cart.UserID, &cart.SessionKey, &cart.CreatedAt, &cart.UpdatedAt)
}

// ResolveUserCart returns the user's cart, creating it on first use. The
// partial unique index on carts.user_id makes the insert race-free.
func ResolveUserCart(ctx context.Context, db *sql.DB, userID int64) (*models.Cart, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO carts (user_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (user_id) WHERE user_id IS NOT NULL DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("create user cart: %w", err)
	}

	cart := &models.Cart{}
	err = scanCart(db.QueryRowContext(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID), cart)
	if err != nil {
		return nil, fmt.Errorf("get user cart: %w", err)
	}

	return cart, nil
}

// ResolveSessionCart returns the anonymous cart referenced by cartID if it
// still exists and still belongs to sessionKey. Otherwise it creates a new
// session cart and reports created so the caller can store the new reference.
func ResolveSessionCart(ctx context.Context, db *sql.DB, sessionKey string, cartID int64) (cart *models.Cart, created bool, err error) {
	cart = &models.Cart{}

	if cartID != 0 {
		err = scanCart(db.QueryRowContext(ctx, `
			SELECT `+cartColumns+`
			FROM carts
			WHERE id = $1 AND session_key = $2 AND user_id IS NULL`,
			cartID, sessionKey), cart)
		if err == nil {
			return cart, false, nil
		}
		if err != sql.ErrNoRows {
			return nil, false, fmt.Errorf("get session cart: %w", err)
		}
	}

	err = scanCart(db.QueryRowContext(ctx, `
		INSERT INTO carts (session_key, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING `+cartColumns, sessionKey), cart)
	if err != nil {
		return nil, false, fmt.Errorf("create session cart: %w", err)
	}

	return cart, true, nil
}

// FindUserCart returns the user's cart without creating one.
func FindUserCart(ctx context.Context, db database.Queryer, userID int64) (*models.Cart, error) {
	cart := &models.Cart{}
	err := scanCart(db.QueryRowContext(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID), cart)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartNotFound
		}
		return nil, fmt.Errorf("find user cart: %w", err)
	}
	return cart, nil
}

func CartExists(ctx context.Context, db database.Queryer, cartID int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cart exists: %w", err)
	}
	return exists, nil
}

// lockCart takes the row lock that serializes every mutation of one cart.
func lockCart(ctx context.Context, tx *sql.Tx, cartID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM carts WHERE id = $1 FOR UPDATE`, cartID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return database.ErrCartNotFound
		}
		return fmt.Errorf("lock cart %d: %w", cartID, err)
	}
	return nil
}

func touchCart(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

const cartItemColumns = `id, cart_id, product_id, quantity, created_at, updated_at`

func scanCartItem(row rowScanner, item *models.CartItem) error {
	return row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
}

// MaxItemQuantity caps the quantity of a single cart line.
const MaxItemQuantity = 999

// AddItem adds quantity of the product to the cart, merging with an existing
// line for the same product. A line may not grow past MaxItemQuantity.
func AddItem(ctx context.Context, db *sql.DB, cartID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity <= 0 || quantity > MaxItemQuantity {
		return nil, database.ErrInvalidQuantity
	}

	item := &models.CartItem{}
	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := lockCart(ctx, tx, cartID); err != nil {
			return err
		}

		var available bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_available FROM products WHERE id = $1 FOR SHARE`, productID).Scan(&available)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("check product: %w", err)
		}
		if !available {
			return database.ErrProductUnavailable
		}

		err = scanCartItem(tx.QueryRowContext(ctx, `
			INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			ON CONFLICT (cart_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
			RETURNING `+cartItemColumns,
			cartID, productID, quantity), item)
		if database.NumericOutOfRange(err) {
			return database.ErrInvalidQuantity
		}
		if err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}
		if item.Quantity > MaxItemQuantity {
			return database.ErrInvalidQuantity
		}

		return touchCart(ctx, tx, cartID)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// UpdateItem sets the quantity of an item in the cart. A zero quantity
// removes the item, reported through removed.
func UpdateItem(ctx context.Context, db *sql.DB, cartID, itemID int64, quantity int) (item *models.CartItem, removed bool, err error) {
	if quantity < 0 || quantity > MaxItemQuantity {
		return nil, false, database.ErrInvalidQuantity
	}
	if quantity == 0 {
		return nil, true, RemoveItem(ctx, db, cartID, itemID)
	}

	item = &models.CartItem{}
	err = database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := lockCart(ctx, tx, cartID); err != nil {
			return err
		}

		err := scanCartItem(tx.QueryRowContext(ctx, `
			UPDATE cart_items
			SET quantity = $1, updated_at = NOW()
			WHERE id = $2 AND cart_id = $3
			RETURNING `+cartItemColumns,
			quantity, itemID, cartID), item)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrCartItemNotFound
			}
			return fmt.Errorf("update cart item: %w", err)
		}

		return touchCart(ctx, tx, cartID)
	})
	if err != nil {
		return nil, false, err
	}

	return item, false, nil
}

// RemoveItem deletes an item, but only from the given cart.
func RemoveItem(ctx context.Context, db *sql.DB, cartID, itemID int64) error {
	return database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := lockCart(ctx, tx, cartID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return database.ErrCartItemNotFound
		}

		return touchCart(ctx, tx, cartID)
	})
}

// ClearCart removes every item and keeps the cart itself.
func ClearCart(ctx context.Context, db *sql.DB, cartID int64) (int64, error) {
	var removed int64
	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := lockCart(ctx, tx, cartID); err != nil {
			return err
		}

		n, err := deleteCartItems(ctx, tx, cartID)
		if err != nil {
			return err
		}
		removed = n

		return touchCart(ctx, tx, cartID)
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

func deleteCartItems(ctx context.Context, tx *sql.Tx, cartID int64) (int64, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

func GetCartSummary(ctx context.Context, db database.Queryer, cartID int64) (*CartSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ci.id, ci.product_id, p.name, p.slug, p.sku, b.name, p.price, p.sale_price,
		       ci.quantity, ci.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		JOIN brands b ON b.id = p.brand_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	summary := &CartSummary{CartID: cartID, Items: []CartLine{}, Total: decimal.Zero}
	for rows.Next() {
		var line CartLine
		if err := rows.Scan(
			&line.ItemID,
			&line.ProductID,
			&line.ProductName,
			&line.ProductSlug,
			&line.SKU,
			&line.BrandName,
			&line.Price,
			&line.SalePrice,
			&line.Quantity,
			&line.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}

		line.UnitPrice = models.EffectivePrice(line.Price, line.SalePrice)
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))

		summary.Items = append(summary.Items, line)
		summary.Total = summary.Total.Add(line.LineTotal)
		summary.ItemCount += line.Quantity
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return summary, nil
}

type MergeResult struct {
	// Reassigned is set when the session cart itself became the user's cart.
	Reassigned bool
	// MergedItems counts session items folded into an existing user line.
	MergedItems int64
	// MovedItems counts session items moved over as new user lines.
	MovedItems int64
}

// MergeSessionCart folds the anonymous cart sessionCartID into the user's
// cart in one transaction. A session cart that no longer exists, or that no
// longer belongs to sessionKey, makes this a no-op, so running it twice is
// safe.
func MergeSessionCart(ctx context.Context, db *sql.DB, sessionCartID int64, sessionKey string, userID int64) (*MergeResult, error) {
	result := &MergeResult{}
	if sessionCartID == 0 {
		return result, nil
	}

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		*result = MergeResult{}

		// Lock in id order so two merges touching the same carts cannot deadlock.
		rows, err := tx.QueryContext(ctx, `
			SELECT `+cartColumns+`
			FROM carts
			WHERE id = $1 OR user_id = $2
			ORDER BY id
			FOR UPDATE`, sessionCartID, userID)
		if err != nil {
			return fmt.Errorf("lock carts: %w", err)
		}

		var sessionCart, userCart *models.Cart
		for rows.Next() {
			cart := &models.Cart{}
			if err := scanCart(rows, cart); err != nil {
				rows.Close()
				return fmt.Errorf("scan cart: %w", err)
			}
			switch {
			case cart.UserID != nil && *cart.UserID == userID:
				userCart = cart
			case cart.ID == sessionCartID && cart.UserID == nil &&
				cart.SessionKey != nil && *cart.SessionKey == sessionKey:
				sessionCart = cart
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("rows error: %w", err)
		}
		rows.Close()

		if sessionCart == nil {
			return nil
		}

		if userCart == nil {
			_, err := tx.ExecContext(ctx, `
				UPDATE carts
				SET user_id = $1, session_key = NULL, updated_at = NOW()
				WHERE id = $2`, userID, sessionCart.ID)
			if err != nil {
				return fmt.Errorf("assign session cart: %w", err)
			}
			result.Reassigned = true
			return nil
		}

		merged, err := tx.ExecContext(ctx, `
			UPDATE cart_items u
			SET quantity = LEAST(u.quantity + s.quantity, $3), updated_at = NOW()
			FROM cart_items s
			WHERE u.cart_id = $1 AND s.cart_id = $2 AND u.product_id = s.product_id`,
			userCart.ID, sessionCart.ID, MaxItemQuantity)
		if err != nil {
			return fmt.Errorf("merge cart items: %w", err)
		}
		if result.MergedItems, err = merged.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		moved, err := tx.ExecContext(ctx, `
			UPDATE cart_items
			SET cart_id = $1, updated_at = NOW()
			WHERE cart_id = $2
			  AND product_id NOT IN (SELECT product_id FROM cart_items WHERE cart_id = $1)`,
			userCart.ID, sessionCart.ID)
		if err != nil {
			return fmt.Errorf("move cart items: %w", err)
		}
		if result.MovedItems, err = moved.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, sessionCart.ID); err != nil {
			return fmt.Errorf("delete session cart: %w", err)
		}

		return touchCart(ctx, tx, userCart.ID)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
