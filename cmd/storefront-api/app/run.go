package app

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/lapstore/storefront-api/configs"
	"github.com/lapstore/storefront-api/internal/adapter/cache"
	"github.com/lapstore/storefront-api/internal/adapter/http"
	"github.com/lapstore/storefront-api/internal/adapter/http/middleware"
	"github.com/lapstore/storefront-api/internal/adapter/kafka"
	"github.com/lapstore/storefront-api/internal/adapter/payment"
	"github.com/lapstore/storefront-api/internal/adapter/queue"
	"github.com/lapstore/storefront-api/internal/adapter/repo"
	"github.com/lapstore/storefront-api/internal/logging"
	"github.com/lapstore/storefront-api/internal/security"
	"github.com/lapstore/storefront-api/internal/usecase"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logging.Init(cfg.App.Name, cfg.App.LogFile)
	log := logging.New("app")

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, err
	}

	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	producer, err := queue.NewRabbitProducer(ch)
	if err != nil {
		return nil, nil, err
	}

	// repos + caches
	orderRepo := repo.NewMySQLOrderRepo(db)
	paymentRepo := repo.NewMySQLPaymentRepo(db)
	couponRepo := repo.NewMySQLCouponRepo(db)
	catalogRepo := repo.NewMySQLCatalogRepo(db)
	checkout := repo.NewMySQLCheckoutStore(db)
	outboxRepo := repo.NewMySQLOutboxRepo(db)
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	statusCache := cache.NewRedisStatusCache(rdb, cfg.Cache.TTL)

	// payment providers
	momo := payment.NewMoMoProvider(
		cfg.Payment.MoMo.Endpoint,
		cfg.Payment.MoMo.PartnerCode,
		cfg.Payment.MoMo.AccessKey,
		cfg.Payment.MoMo.SecretKey,
		cfg.Payment.ReturnURL,
		cfg.Payment.IPNBase+"/v1/payments/momo/ipn",
	)
	payos := payment.NewPayOSProvider(
		cfg.Payment.PayOS.Endpoint,
		cfg.Payment.PayOS.ClientID,
		cfg.Payment.PayOS.APIKey,
		cfg.Payment.PayOS.ChecksumKey,
		cfg.Payment.ReturnURL,
		cfg.Payment.CancelURL,
	)
	providers := payment.NewRegistry(momo, payos)

	// use cases
	applyCoupon := usecase.NewApplyCoupon(couponRepo)
	createOrder := usecase.NewCreateOrder(checkout, orderRepo, paymentRepo, applyCoupon, providers, idem, producer)
	reconcile := usecase.NewReconcilePayment(paymentRepo, providers, idem, statusCache)
	cancelPayment := usecase.NewCancelPayment(paymentRepo, providers, statusCache)
	refundPayment := usecase.NewRefundPayment(paymentRepo, statusCache)
	statusQuery := usecase.NewPaymentStatusQuery(paymentRepo, statusCache)

	// background consumers + outbox relay
	setupQueue(ch, reconcile, log)
	relayCtx, stopRelay := context.WithCancel(context.Background())
	go queue.NewOutboxRelay(outboxRepo, producer, logging.New("outbox")).Run(relayCtx)
	if len(cfg.Kafka.Brokers) > 0 {
		if err := setupKafkaListener(cfg, reconcile, log); err != nil {
			stopRelay()
			return nil, nil, err
		}
	}

	// HTTP surface
	handlers := http.Handlers{
		Orders:   http.NewOrderHandler(createOrder, orderRepo),
		Payments: http.NewPaymentHandler(reconcile, cancelPayment, refundPayment, statusQuery),
		Coupons:  http.NewCouponHandler(applyCoupon, couponRepo),
		Catalog:  http.NewCatalogHandler(catalogRepo),
		Tokens:   http.NewTokenHandler(cfg),
	}
	authz := middleware.NewAuthz(cfg)
	wv := middleware.NewWebhookVerify(map[string]*security.Signer{
		"momo":  security.NewSigner(cfg.Payment.MoMo.SecretKey),
		"payos": security.NewSigner(cfg.Payment.PayOS.ChecksumKey),
	})
	router := http.NewRouter(handlers, authz, wv, cfg.HTTP.AllowedOrigins, logging.New("http"))

	cleanup := func() {
		stopRelay()
		_ = ch.Close()
		_ = conn.Close()
		_ = rdb.Close()
		_ = db.Close()
	}
	return &App{Router: router}, cleanup, nil
}

func setupQueue(ch *amqp091.Channel, reconcile *usecase.ReconcilePayment, log *slog.Logger) {
	router := queue.NewRouter(ch, log, queue.WithPrefetch(50))
	router.Register("payment.reconcile.q", queue.NewReconcileHandler(reconcile))
	if err := router.Start(); err != nil {
		panic(err)
	}
}

func setupKafkaListener(cfg configs.Config, reconcile *usecase.ReconcilePayment, log *slog.Logger) error {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		return err
	}
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.SettlementTopic}, kafka.NewSettlementHandler(reconcile), log)
	go func() {
		if err := consumer.Start(context.Background()); err != nil {
			log.Error("settlement consumer stopped", "err", err)
		}
	}()
	return nil
}
