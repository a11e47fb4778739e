package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"brokerageProject/internal/api"
	"brokerageProject/internal/binance"
	"brokerageProject/internal/catalog"
	"brokerageProject/internal/config"
	"brokerageProject/internal/database"
	"brokerageProject/internal/exchange"
	redisPub "brokerageProject/internal/infrastructure/redis"
	"brokerageProject/internal/ledger"
	"brokerageProject/internal/money"
	"brokerageProject/internal/utils"
)

func main() {
	loadEnv()

	cfg := exchange.DefaultConfig()
	cfg.Products = defaultProducts()

	ex, err := exchange.New(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: exchange.New: %v", err)
	}

	var audit *utils.AuditLogger
	if dbURL := config.DatabaseURL(); dbURL != "" {
		if err := database.RunMigrations(dbURL); err != nil {
			log.Printf("WARNING: migration error: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mirror, err := ledger.OpenPostgresMirror(ctx, dbURL)
		cancel()
		if err != nil {
			log.Printf("WARNING: ledger Postgres mirror disabled: %v", err)
		} else {
			ex.Ledger.SetMirror(mirror)
			defer mirror.Close()
			audit = utils.NewAuditLogger(mirror.Pool())
			log.Println("ledger Postgres mirror and admin audit log active")
		}
	} else {
		log.Println("DATABASE_URL not set, running without the Postgres durability mirror")
	}

	ctx := context.Background()
	if seq, err := ex.Recover(ctx); err != nil {
		log.Fatalf("CRITICAL: exchange.Recover: %v", err)
	} else if seq > 0 {
		log.Printf("recovered event journal through seq %d", seq)
	}

	if config.FeedEnabled() {
		ex.Feed = binance.NewClient(config.BinanceStreamURL())
	}

	if addr := config.RedisAddr(); addr != "" {
		rdb, err := redisPub.NewClient(addr, config.RedisPassword(), config.RedisDB())
		if err != nil {
			log.Printf("WARNING: Redis pub/sub publisher disabled: %v", err)
		} else {
			defer rdb.Close()
			ex.PricePublisher = rdb
			ex.Risk.Breaker().SetPublisher(rdb)
			log.Println("Redis mark-price/circuit-breaker pub/sub active")
		}
	}

	if err := ex.Start(ctx); err != nil {
		log.Fatalf("CRITICAL: exchange.Start: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + config.Port(),
		Handler: api.NewServer(ex, audit).Routes(),
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("CRITICAL: ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARNING: HTTP shutdown: %v", err)
	}
	ex.Stop(shutdownCtx)
}

// loadEnv loads a .env file from either the project root or cmd/server,
// falling back silently to the process environment if neither is present.
func loadEnv() {
	for _, path := range []string{".env", filepath.Join("..", "..", ".env")} {
		if err := godotenv.Load(path); err == nil {
			log.Printf("loaded environment from %s", path)
			return
		}
	}
	log.Println(".env not found, using process environment")
}

// defaultProducts is the demo catalog seeded at startup. A production
// deployment would instead load rows persisted by the admin product-
// management path; §6 scopes that out as out-of-scope front end.
func defaultProducts() []catalog.Product {
	now := time.Now()
	return []catalog.Product{
		{
			Symbol:         "BTC-PERP",
			Category:       "perpetual",
			QuoteCurrency:  "USD",
			ExternalSymbol: "BTCUSDT",
			TickSize:       money.MustFromFloat(0.5),
			MinOrderSize:   0.0001,
			MaxOrderSize:   100,
			MarginRate:     0.05,
			MakerFee:       0.0002,
			TakerFee:       0.0005,
			MarkPrice:      money.MustFromFloat(50000),
			LastPrice:      money.MustFromFloat(50000),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			Symbol:         "ETH-PERP",
			Category:       "perpetual",
			QuoteCurrency:  "USD",
			ExternalSymbol: "ETHUSDT",
			TickSize:       money.MustFromFloat(0.05),
			MinOrderSize:   0.001,
			MaxOrderSize:   1000,
			MarginRate:     0.05,
			MakerFee:       0.0002,
			TakerFee:       0.0005,
			MarkPrice:      money.MustFromFloat(3000),
			LastPrice:      money.MustFromFloat(3000),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			Symbol:        "BTC-USD",
			Category:      "spot",
			BaseCurrency:  "BTC",
			QuoteCurrency: "USD",
			TickSize:      money.MustFromFloat(0.01),
			MinOrderSize:  0.0001,
			MaxOrderSize:  100,
			MakerFee:      0.0001,
			TakerFee:      0.0003,
			MarkPrice:     money.MustFromFloat(50000),
			LastPrice:     money.MustFromFloat(50000),
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}
