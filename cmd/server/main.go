package main

import (
	"log"
	"net/http"

	"tabletap-be/internal/api"
	"tabletap-be/internal/config"
	"tabletap-be/internal/db"
	"tabletap-be/internal/idempotency"
	"tabletap-be/internal/logger"
	"tabletap-be/internal/metrics"
	"tabletap-be/internal/middleware"
	"tabletap-be/internal/notify"
	"tabletap-be/internal/order"
	"tabletap-be/internal/payment"
	"tabletap-be/internal/payment/webhook"
	"tabletap-be/internal/staff"
	"tabletap-be/internal/tablesession"
	"tabletap-be/internal/venue"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	var events notify.Publisher = notify.Nop{}
	if cfg.AMQPURL != "" {
		pub, err := notify.NewAMQPPublisher(cfg.AMQPURL, "tabletap.orders")
		if err != nil {
			logger.L().Fatal("failed to connect to AMQP broker", zap.Error(err))
		}
		defer pub.Close()
		events = pub
	}

	venues := venue.NewRepository(database)
	orderRepo := order.NewRepository(database)
	gateway := payment.NewHTTPGateway(cfg.PayProcBaseURL, cfg.PayProcAPIKey)
	orderSvc := order.NewService(orderRepo, venues, gateway, events)

	paymentRepo := payment.NewRepository(database)
	idem := idempotency.NewStore(database)
	recon := webhook.NewHandler(orderSvc, idem, paymentRepo, &metrics.Reconciliation{})

	staffSvc := staff.NewService(staff.NewRepository(database), []byte(cfg.JWTSecret))

	login := api.NewAuthHandler(staffSvc)
	orders := api.NewOrderHandler(orderSvc, paymentRepo, idem)
	tables := api.NewTableHandler(tablesession.NewManager(database))
	mux := api.NewRouter(login, orders, tables, recon)

	handler := middleware.Chain(mux, []byte(cfg.JWTSecret))

	logger.L().Info("order engine listening", zap.String("port", cfg.AppPort))
	log.Fatal(http.ListenAndServe(":"+cfg.AppPort, handler))
}
