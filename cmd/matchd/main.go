package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joripage/ordermatch-dev/config"
	"github.com/joripage/ordermatch-dev/pkg/api"
	redis_wrapper "github.com/joripage/ordermatch-dev/pkg/infra/redis"
	"github.com/joripage/ordermatch-dev/pkg/matching"
	"github.com/joripage/ordermatch-dev/pkg/metrics"
	"github.com/joripage/ordermatch-dev/pkg/service"
	"github.com/joripage/ordermatch-dev/pkg/tradefeed"
)

func main() {
	var configFile string
	var listenAddr string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&listenAddr, "listen-addr", ":4000", "HTTP listen address")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	go func() {
		http.ListenAndServe("localhost:6060", nil)
	}()
	if cfg.MetricsAddr != "" {
		metrics.StartMetricsServer(cfg.MetricsAddr)
	}

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	store := matching.NewMemoryOrderStore()
	ledger := matching.NewMemoryLedger(store)
	orderService := service.NewOrderService(store, ledger)

	var publisher *tradefeed.Publisher
	if cfg.TradeFeed != nil {
		publisher = tradefeed.NewPublisher(cfg.TradeFeed)
		orderService.WithFeed(publisher)
	}

	if cfg.Redis != nil {
		redisClient, err := redis_wrapper.InitRedis(cfg.Redis)
		if err != nil {
			zap.S().Warnf("redis unavailable, last-price cache disabled: %v", err)
		} else {
			orderService.WithCache(redisClient)
		}
	}

	r := gin.Default()
	api.NewHandler(orderService).Register(r)

	srv := &http.Server{Addr: listenAddr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.S().Fatalf("http server fail: %v", err)
		}
	}()

	fmt.Printf("Matching service listening on %s. Press Ctrl+C to exit.\n", listenAddr)

	<-sigs
	fmt.Println("Shutting down...")

	cancel()
	_ = srv.Shutdown(context.Background())
	if publisher != nil {
		_ = publisher.Close()
	}

	fmt.Println("Exited cleanly.")
}
