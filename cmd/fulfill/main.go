// Command fulfill moves paid orders through shipping from the warehouse.
//
//	fulfill ship-next <tracking-number>
//	fulfill deliver <order-id>
//	fulfill cancel <order-id>
//	fulfill refund <order-id>
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/optiplus/storefront/internal/config"
	"github.com/optiplus/storefront/internal/database"
	"github.com/optiplus/storefront/internal/logging"
	"github.com/optiplus/storefront/internal/models"
	"github.com/optiplus/storefront/internal/store"
	"go.uber.org/zap"
)

const usage = "Usage: fulfill [ship-next <tracking>|deliver <order_id>|cancel <order_id>|refund <order_id>]"

func main() {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}
	command, arg := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()

	var order *models.Order
	switch command {
	case "ship-next":
		order, err = store.ShipNextOrder(ctx, db, arg)
		if errors.Is(err, database.ErrOrderNotFound) {
			logger.Info("no paid orders waiting to ship")
			return
		}
	case "deliver":
		order, err = store.UpdateOrderStatus(ctx, db, arg, models.OrderStatusDelivered, "")
	case "cancel":
		order, err = store.UpdateOrderStatus(ctx, db, arg, models.OrderStatusCancelled, "")
	case "refund":
		order, err = store.UpdatePaymentStatus(ctx, db, arg, models.PaymentStatusRefunded)
	default:
		log.Fatal(usage)
	}
	if err != nil {
		logger.Fatal(fmt.Sprintf("%s failed", command), zap.String("arg", arg), zap.Error(err))
	}

	logger.Info("order updated",
		zap.String("order_id", order.OrderNumber),
		zap.String("status", string(order.Status)),
		zap.String("payment_status", string(order.PaymentStatus)),
		zap.Stringp("tracking_number", order.TrackingNumber),
	)
}
