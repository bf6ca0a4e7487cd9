package shop

import (
	"context"
	"errors"
	"strings"

	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/models"
	"github.com/optiplus/storefront/internal/store"
	"go.uber.org/zap"
)

type CheckoutForm struct {
	FirstName     string `form:"first_name" json:"first_name" validate:"required,max=100"`
	LastName      string `form:"last_name" json:"last_name" validate:"required,max=100"`
	Email         string `form:"email" json:"email" validate:"required,email"`
	Phone         string `form:"phone" json:"phone" validate:"required,max=20"`
	Address       string `form:"address" json:"address" validate:"required"`
	City          string `form:"city" json:"city" validate:"required,max=100"`
	PostalCode    string `form:"postal_code" json:"postal_code" validate:"max=20"`
	Notes         string `form:"order_notes" json:"order_notes"`
	PaymentMethod string `form:"payment_method" json:"payment_method" validate:"omitempty,oneof=mpesa bank"`
}

func (f *CheckoutForm) trim() {
	for _, field := range []*string{
		&f.FirstName, &f.LastName, &f.Email, &f.Phone, &f.Address,
		&f.City, &f.PostalCode, &f.Notes, &f.PaymentMethod,
	} {
		*field = strings.TrimSpace(*field)
	}
}

type CheckoutView struct {
	Form           CheckoutForm
	Cart           *store.CartSummary
	PaymentMethods []models.PaymentMethod
}

// CheckoutForm returns the checkout form pre-filled from the user's profile.
// An empty cart fails with ErrCartEmpty.
func (s *Service) CheckoutForm(ctx context.Context, userID int64) (*CheckoutView, error) {
	summary, err := s.checkoutCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, err := store.GetUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	return &CheckoutView{
		Form: CheckoutForm{
			FirstName:     user.FirstName,
			LastName:      user.LastName,
			Email:         user.Email,
			Phone:         user.PhoneNumber,
			PaymentMethod: string(models.PaymentMethodMpesa),
		},
		Cart:           summary,
		PaymentMethods: models.PaymentMethods,
	}, nil
}

func (s *Service) checkoutCart(ctx context.Context, userID int64) (*store.CartSummary, error) {
	cart, err := store.FindUserCart(ctx, s.db, userID)
	if errors.Is(err, database.ErrCartNotFound) {
		return nil, database.ErrCartEmpty
	}
	if err != nil {
		return nil, err
	}

	summary, err := store.GetCartSummary(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}
	if summary.Empty() {
		return nil, database.ErrCartEmpty
	}
	return summary, nil
}

type CheckoutResult struct {
	Order *models.Order
	// NotifyErr is set when the order was placed but the confirmation email
	// could not be sent.
	NotifyErr error
}

func (s *Service) Checkout(ctx context.Context, userID int64, form CheckoutForm) (*CheckoutResult, error) {
	if _, err := s.checkoutCart(ctx, userID); err != nil {
		return nil, err
	}

	form.trim()
	if err := s.validateForm(form); err != nil {
		return nil, err
	}

	method := models.PaymentMethod(form.PaymentMethod)
	if method == "" {
		method = models.PaymentMethodMpesa
	}

	order, err := store.CheckoutCart(ctx, s.db, userID, store.OrderDetails{
		FirstName:     form.FirstName,
		LastName:      form.LastName,
		Email:         form.Email,
		Phone:         form.Phone,
		Address:       form.Address,
		City:          form.City,
		PostalCode:    form.PostalCode,
		Notes:         form.Notes,
		PaymentMethod: method,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.OrderNumber),
		zap.Int64("user_id", userID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	result := &CheckoutResult{Order: order}
	if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
		result.NotifyErr = err
	}
	return result, nil
}

type PaymentForm struct {
	PhoneNumber string `form:"phone_number" validate:"omitempty,phone"`
}

// ConfirmPayment simulates a successful mobile money payment. The phone
// number defaults to the one on the order.
func (s *Service) ConfirmPayment(ctx context.Context, userID int64, orderNumber string, form PaymentForm) (*models.Order, error) {
	form.PhoneNumber = strings.TrimSpace(form.PhoneNumber)
	if err := s.validateForm(form); err != nil {
		return nil, err
	}

	order, err := store.ConfirmPayment(ctx, s.db, userID, orderNumber, form.PhoneNumber)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment confirmed",
		zap.String("order_id", order.OrderNumber),
		zap.Stringp("transaction_ref", order.TransactionRef),
	)
	return order, nil
}

func (s *Service) ResendConfirmation(ctx context.Context, userID int64, orderNumber string) error {
	order, err := store.GetOrderForUser(ctx, s.db, userID, orderNumber)
	if err != nil {
		return err
	}
	return s.notifier.SendOrderConfirmation(ctx, order)
}

func (s *Service) Order(ctx context.Context, userID int64, orderNumber string) (*models.Order, error) {
	return store.GetOrderForUser(ctx, s.db, userID, orderNumber)
}

const defaultOrdersPageSize = 20

func (s *Service) Orders(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error) {
	if limit < 1 || limit > 100 {
		limit = defaultOrdersPageSize
	}
	return store.ListOrdersCursor(ctx, s.db, userID, cursor, limit)
}
