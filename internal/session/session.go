// Package session keeps per-visitor state: the anonymous cart reference and
// queued flash messages.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashInfo    FlashLevel = "info"
	FlashWarning FlashLevel = "warning"
	FlashError   FlashLevel = "error"
)

type Flash struct {
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
}

type Session struct {
	Token   string  `json:"token"`
	CartID  int64   `json:"cart_id,omitempty"`
	Flashes []Flash `json:"flashes,omitempty"`
}

// Store persists sessions by token. Load returns ErrNotFound for unknown or
// expired tokens.
type Store interface {
	Load(ctx context.Context, token string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, token string) error
}

func New() *Session {
	return &Session{Token: uuid.NewString()}
}

func (s *Session) AddFlash(level FlashLevel, message string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Message: message})
}

// PopFlashes returns the queued messages and clears the queue.
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}

// LoadOrNew loads the session for token, starting a fresh one when the token
// is empty or unknown.
func LoadOrNew(ctx context.Context, store Store, token string) (sess *Session, created bool, err error) {
	if token != "" {
		sess, err = store.Load(ctx, token)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}
	return New(), true, nil
}
