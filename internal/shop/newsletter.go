package shop

import (
	"context"
	"strings"

	"github.com/optiplus/storefront/internal/store"
)

type subscribeForm struct {
	Email string `form:"email" validate:"required,email"`
}

// Subscribe adds email to the newsletter. created is false when the address
// was already subscribed.
func (s *Service) Subscribe(ctx context.Context, email string) (created bool, err error) {
	form := subscribeForm{Email: strings.TrimSpace(email)}
	if err := s.validateForm(form); err != nil {
		return false, fieldError("email", "Please provide a valid email address.")
	}

	_, created, err = store.Subscribe(ctx, s.db, form.Email)
	return created, err
}
