package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/joripage/ordermatch-dev/config"
	postgres_wrapper "github.com/joripage/ordermatch-dev/pkg/infra/postgres"
	"github.com/joripage/ordermatch-dev/pkg/repo"
	"github.com/joripage/ordermatch-dev/pkg/tradefeed"
	"github.com/joripage/ordermatch-dev/pkg/worker"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	// init db
	db, err := postgres_wrapper.InitPostgres(cfg.LedgerDB)
	if err != nil {
		zap.S().Errorf("init db fail with err: %v", err)
		panic(err)
	}

	// init repo
	sqlRepo := repo.NewRepo(db)

	consumer := tradefeed.NewConsumer(cfg.TradeFeed)
	defer consumer.Close()

	w := worker.NewWorker(sqlRepo)
	if err := w.StartConsumer(ctx, consumer); err != nil && err != context.Canceled {
		zap.S().Errorf("consumer stopped with err: %v", err)
	}
}
