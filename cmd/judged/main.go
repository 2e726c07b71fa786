package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"judged/config"
	"judged/native/judge"
	"judged/native/judge/resolver"
	"judged/observability/logging"
	"judged/rpc"
	"judged/state"
	"judged/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memFlag := flag.Bool("mem", false, "Use an in-memory store instead of the configured data directory")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("JUDGED_ENV"))
	logger := logging.Setup("judged", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "path", *configFile, "err", err)
		os.Exit(1)
	}

	var db storage.Database
	if *memFlag {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open data directory", "dir", cfg.DataDir, "err", err)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	manager := state.NewManager(db)
	if len(cfg.Alloc) > 0 {
		if err := manager.ApplyAllocation(cfg.Alloc); err != nil {
			logger.Error("failed to apply genesis allocation", "err", err)
			os.Exit(1)
		}
	}

	engine := judge.NewEngine()
	engine.SetState(manager)
	engine.SetActivator(resolver.NewExecutor(manager))
	if err := engine.SetCollateralBps(cfg.CollateralBps); err != nil {
		logger.Error("invalid collateral configuration", "err", err)
		os.Exit(1)
	}

	feed := rpc.NewEventFeed(0)
	engine.SetEmitter(feed)

	server := rpc.NewServer(engine, feed, logger)
	httpServer := &http.Server{Addr: cfg.RPCAddress, Handler: server.Handler()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting JSON-RPC server", "addr", cfg.RPCAddress, "network", cfg.NetworkName)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("RPC server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info(fmt.Sprintf("received %s, shutting down", sig))
		_ = httpServer.Close()
	}
}
