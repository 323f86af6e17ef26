package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/flashdealz/flash-deal-engine/internal/claim"
	"github.com/flashdealz/flash-deal-engine/internal/config"
	"github.com/flashdealz/flash-deal-engine/internal/deals"
	"github.com/flashdealz/flash-deal-engine/internal/discovery"
	"github.com/flashdealz/flash-deal-engine/internal/httpx"
	kafkax "github.com/flashdealz/flash-deal-engine/internal/kafka"
	"github.com/flashdealz/flash-deal-engine/internal/postgres"
	"github.com/flashdealz/flash-deal-engine/internal/projector"
	"github.com/flashdealz/flash-deal-engine/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers (tiga topic berbeda)
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, deals.TopicDealCreated, 1024)
	pCreated.Start(ctx)
	pClaimed := kafkax.NewProducer(cfg.KafkaBrokers, deals.TopicDealClaimed, 1024)
	pClaimed.Start(ctx)
	pRedeemed := kafkax.NewProducer(cfg.KafkaBrokers, deals.TopicVoucherRedeemed, 1024)
	pRedeemed.Start(ctx)

	// Wiring: claim engine + discovery di atas repo & redis
	dealRepo := &deals.Repo{DB: db}
	claimRepo := &deals.ClaimRepo{DB: db}
	engine := &claim.Engine{
		Reserver: &claim.RedisReserver{RDB: rdb, Loader: dealRepo},
		Ledger:   claimRepo,
	}
	disc := &discovery.Service{Redis: rdb, Store: dealRepo}
	proj := &projector.Service{Redis: rdb, ServiceName: cfg.ServiceName}

	router := httpx.NewRouter()
	dh := &httpx.DealsHandler{
		Deals:            dealRepo,
		Engine:           engine,
		Discovery:        disc,
		Claims:           claimRepo,
		Redis:            rdb,
		Projector:        proj,
		ProducerCreated:  pCreated,
		ProducerClaimed:  pClaimed,
		ProducerRedeemed: pRedeemed,
		Service:          cfg.ServiceName,
	}
	dh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close()
	pClaimed.Close()
	pRedeemed.Close()
	cancel()
	pCreated.WaitClosed()
	pClaimed.WaitClosed()
	pRedeemed.WaitClosed()
}
