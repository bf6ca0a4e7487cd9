// Package notify renders and delivers customer emails.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/optiplus/storefront/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

var ErrNoRecipient = errors.New("order has no email address")

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var funcs = map[string]any{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

var (
	confirmationHTML = htmltemplate.Must(
		htmltemplate.New("order_confirmation.html").Funcs(funcs).
			ParseFS(templateFS, "templates/order_confirmation.html"))
	confirmationText = texttemplate.Must(
		texttemplate.New("order_confirmation.txt").Funcs(funcs).
			ParseFS(templateFS, "templates/order_confirmation.txt"))
)

type Dispatcher struct {
	sender   Sender
	currency string
	logger   *zap.Logger
}

func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, currency: "KES", logger: logger}
}

type confirmationData struct {
	Order    *models.Order
	Currency string
}

func ConfirmationSubject(orderNumber string) string {
	return "Order Confirmation - " + orderNumber
}

// RenderOrderConfirmation builds the confirmation email for order, which must
// carry its items.
func (d *Dispatcher) RenderOrderConfirmation(order *models.Order) (Message, error) {
	if order.Email == "" {
		return Message{}, ErrNoRecipient
	}

	data := confirmationData{Order: order, Currency: d.currency}

	var html, text bytes.Buffer
	if err := confirmationHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}
	if err := confirmationText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text body: %w", err)
	}

	return Message{
		To:      order.Email,
		Subject: ConfirmationSubject(order.OrderNumber),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func (d *Dispatcher) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	msg, err := d.RenderOrderConfirmation(order)
	if err != nil {
		return err
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Warn("order confirmation not sent",
			zap.String("order_id", order.OrderNumber),
			zap.Error(err),
		)
		return fmt.Errorf("send order confirmation: %w", err)
	}

	d.logger.Info("order confirmation sent",
		zap.String("order_id", order.OrderNumber),
		zap.String("to", msg.To),
	)
	return nil
}
