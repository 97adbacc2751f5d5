// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/coastlinkr/fighting-game-server/internal/config"
	"github.com/coastlinkr/fighting-game-server/internal/handlers"
	"github.com/coastlinkr/fighting-game-server/internal/history"
	"github.com/coastlinkr/fighting-game-server/internal/middleware"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.FromEnv()

	srv := handlers.NewServer(logger)
	srv.ResetDelay = cfg.ResetDelay

	if cfg.RedisAddr != "" {
		pub, err := history.Connect(cfg.RedisAddr)
		if err != nil {
			logger.Fatalf("redis connect failed: %v", err)
		}
		defer pub.Close()
		srv.History = pub
		logger.Infof("Match history publishing enabled (%s)", cfg.RedisAddr)
	} else {
		logger.Info("REDIS_ADDR not set, match history publishing disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Lobbies.StartReaper(ctx, cfg.ReapInterval, cfg.IdleTTL)

	r := mux.NewRouter()
	r.Use(middleware.LogMiddleware(logger))
	r.HandleFunc("/ws", srv.WSHandler())
	r.HandleFunc("/api/stats", srv.StatsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/lobbies/{code}", srv.LobbyHandler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", cfg.Addr)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("server exited: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
