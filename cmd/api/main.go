package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-marketplace-orders.git/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/catalog"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/config"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace-orders.git/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/postgres"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers (satu per topic)
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)
	pReconcile := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockReconcile, 256)
	pReconcile.Start(ctx)

	// Stores & services
	catalogStore := &catalog.PostgresStore{DB: db}
	cartStore := &cart.RedisStore{RDB: rdb}
	ledger := &orders.PostgresLedger{DB: db}

	cartSvc := &cart.Service{Store: cartStore, Catalog: catalogStore}
	orderSvc := &orders.Service{
		Ledger:            ledger,
		Catalog:           catalogStore,
		ProducerStatus:    pStatus,
		ProducerReconcile: pReconcile,
		ServiceName:       cfg.ServiceName,
	}
	checkoutSvc := &checkout.Service{
		Carts:             cartStore,
		Catalog:           catalogStore,
		Ledger:            ledger,
		ProducerCreated:   pCreated,
		ProducerReconcile: pReconcile,
		ServiceName:       cfg.ServiceName,
	}

	// Router & handlers
	router := httpx.NewRouter()
	(&httpx.ProductsHandler{Catalog: catalogStore}).Register(router)
	(&httpx.CartHandler{Carts: cartSvc}).Register(router)
	(&httpx.OrdersHandler{Checkout: checkoutSvc, Orders: orderSvc, Redis: rdb}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// tutup inbox -> flush & close writer
	pCreated.Close()
	pStatus.Close()
	pReconcile.Close()
	cancel()
	pCreated.WaitClosed()
	pStatus.WaitClosed()
	pReconcile.WaitClosed()
}
