// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/Sarthaknimje/squid-arena/internal/config"
	"github.com/Sarthaknimje/squid-arena/internal/gateway"
	"github.com/Sarthaknimje/squid-arena/internal/ledger"
	"github.com/Sarthaknimje/squid-arena/internal/match"
	"github.com/Sarthaknimje/squid-arena/internal/middleware"
	"github.com/Sarthaknimje/squid-arena/internal/reaper"
	"github.com/Sarthaknimje/squid-arena/internal/registry"
	"github.com/Sarthaknimje/squid-arena/internal/room"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	led, err := ledger.Connect(cfg.RedisAddr, cfg.RedisDB, cfg.LedgerList, logger)
	if err != nil {
		log.Fatalf("settlement ledger: %v", err)
	}
	if led == nil {
		logger.Info("settlement ledger disabled (REDIS_ADDR not set)")
	}

	rooms := room.NewStore()
	queue := match.NewQueue(cfg.BetTolerance)
	reg := registry.New()

	gw := gateway.New(logger, rooms, queue, reg, led, cfg.CommissionRate, cfg.StartDelay)

	rp := reaper.New(rooms, queue, reg, logger, cfg.RoomRetention)
	if err := rp.Start(cfg.ReapInterval, cfg.DiagInterval); err != nil {
		log.Fatalf("reaper: %v", err)
	}
	defer rp.Stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		gateway.WSHandler(logger, gw, cfg.AllowedOrigins),
	)))
	mux.Handle("/healthz", middleware.LogMiddleware(logger)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		},
	)))

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
