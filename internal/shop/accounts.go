package shop

import (
	"context"
	"errors"
	"strings"

	"github.com/optiplus/storefront/internal/auth"
	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/models"
	"github.com/optiplus/storefront/internal/session"
	"github.com/optiplus/storefront/internal/store"
	"go.uber.org/zap"
)

type RegisterForm struct {
	Email       string `form:"email" validate:"required,email,max=254"`
	PhoneNumber string `form:"phone_number" validate:"required,phone"`
	FirstName   string `form:"first_name" validate:"max=150"`
	LastName    string `form:"last_name" validate:"max=150"`
	Password1   string `form:"password1" validate:"required,min=8"`
	Password2   string `form:"password2" validate:"required,eqfield=Password1"`
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// Register creates the account and hands the visitor's anonymous cart over
// to it.
func (s *Service) Register(ctx context.Context, sess *session.Session, form RegisterForm) (*models.User, error) {
	form.Email = strings.TrimSpace(form.Email)
	form.PhoneNumber = strings.TrimSpace(form.PhoneNumber)

	if err := s.validateForm(form); err != nil {
		return nil, err
	}

	if taken, err := store.EmailExists(ctx, s.db, form.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, fieldError("email", "This email address is already in use.")
	}
	if taken, err := store.PhoneExists(ctx, s.db, form.PhoneNumber); err != nil {
		return nil, err
	} else if taken {
		return nil, fieldError("phone_number", "This phone number is already registered.")
	}

	hash, err := auth.HashPassword(form.Password1)
	if err != nil {
		return nil, err
	}

	user, err := store.CreateUser(ctx, s.db, store.NewUser{
		Email:        form.Email,
		PhoneNumber:  form.PhoneNumber,
		FirstName:    strings.TrimSpace(form.FirstName),
		LastName:     strings.TrimSpace(form.LastName),
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, database.ErrEmailTaken):
		return nil, fieldError("email", "This email address is already in use.")
	case errors.Is(err, database.ErrPhoneTaken):
		return nil, fieldError("phone_number", "This phone number is already registered.")
	case err != nil:
		return nil, err
	}

	if err := s.adoptSessionCart(ctx, sess, user.ID); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login checks the credentials and merges the visitor's anonymous cart into
// the user's cart.
func (s *Service) Login(ctx context.Context, sess *session.Session, form LoginForm) (*models.User, error) {
	if err := s.validateForm(form); err != nil {
		return nil, err
	}

	user, err := store.GetUserByEmail(ctx, s.db, form.Email)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, database.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, form.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, database.ErrInvalidCredentials
	}

	if err := s.adoptSessionCart(ctx, sess, user.ID); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) adoptSessionCart(ctx context.Context, sess *session.Session, userID int64) error {
	if sess == nil || sess.CartID == 0 {
		return nil
	}

	result, err := store.MergeSessionCart(ctx, s.db, sess.CartID, sess.Token, userID)
	if err != nil {
		return err
	}
	sess.CartID = 0

	s.logger.Debug("session cart merged",
		zap.Int64("user_id", userID),
		zap.Bool("reassigned", result.Reassigned),
		zap.Int64("merged_items", result.MergedItems),
		zap.Int64("moved_items", result.MovedItems),
	)
	return nil
}

// Logout forgets the session's cart reference.
func (s *Service) Logout(sess *session.Session) {
	sess.CartID = 0
}

func (s *Service) Profile(ctx context.Context, userID int64) (*models.User, error) {
	return store.GetUser(ctx, s.db, userID)
}
