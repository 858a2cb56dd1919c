package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"auctionlotgo/internal/config"
	"auctionlotgo/internal/database/db_client"
	"auctionlotgo/internal/events"
	"auctionlotgo/internal/http/http_server"
	"auctionlotgo/internal/persist"
	"auctionlotgo/internal/redis/redis_client"
	"auctionlotgo/internal/registry"
	"auctionlotgo/internal/reservation"
	"auctionlotgo/internal/services/auction"
	"auctionlotgo/internal/services/bidding"
	"auctionlotgo/internal/services/lifecycle"
	"auctionlotgo/internal/services/sequencer"
	"auctionlotgo/internal/wallet"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (event fan-out)
	redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres db client (read-model mirror + audit trail)
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Core wiring: registry, journal, ledger, reservations
	reg := registry.New()
	journal := persist.NewJournal(cfg.JournalBuffer)
	ledger := wallet.NewLedger(journal.RecordWalletTxn)
	reservations := reservation.NewManager(ledger)
	publisher := events.NewRedisPublisher(redisClient)

	// 6. State machines: lifecycle <-> sequencer, bid admission
	machine := lifecycle.New(ctx, reg, reservations, publisher, lifecycle.Config{
		GraceWindow:  cfg.GraceWindow(),
		MaxExtension: cfg.MaxExtension(),
	})
	defer machine.Shutdown()
	seq := sequencer.New(reg, machine, publisher)
	machine.SetNotifier(seq)

	bidService := bidding.New(reg, reservations, machine, publisher,
		bidding.Config{AllowSelfOutbid: cfg.AllowSelfOutbid},
		journal.RecordBid,
	)
	auctionService := auction.NewAuctionService(reg, machine, publisher)

	// 7. Background: journal drain + snapshot mirror into Postgres
	persist.Run(ctx, persist.NewStore(pgDb), reg, journal, cfg.MirrorInterval())

	// 8. HTTP server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, auctionService, bidService, ledger)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
