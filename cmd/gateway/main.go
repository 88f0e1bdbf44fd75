package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tripmesh/gateway/internal/api"
	"github.com/tripmesh/gateway/internal/auth"
	"github.com/tripmesh/gateway/internal/config"
	"github.com/tripmesh/gateway/internal/gateway"
	"github.com/tripmesh/gateway/internal/notify"
	"github.com/tripmesh/gateway/internal/stats"
	"github.com/tripmesh/gateway/internal/store"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr            string
	storePath       string
	signingKey      string
	allowedOrigins  stringSliceFlag
	locationRate    float64
	locationBurst   int
	vapidPublicKey  string
	vapidPrivateKey string
	pushSubscriber  string
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&storePath, "store", "gateway.db", "path to the event store file")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Float64Var(&locationRate, "location-rate", 1, "location updates allowed per second per user (0 disables)")
	flag.IntVar(&locationBurst, "location-burst", 5, "location update burst size per user")
	flag.StringVar(&vapidPublicKey, "vapid-public-key", "", "VAPID public key for emergency push notifications")
	flag.StringVar(&vapidPrivateKey, "vapid-private-key", "", "VAPID private key for emergency push notifications")
	flag.StringVar(&pushSubscriber, "push-subscriber", "mailto:ops@tripmesh.io", "subscriber contact for push notifications")
	flag.Parse()

	logger := log.New(os.Stderr, "[trip-gateway] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, storePath, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.LocationRate = locationRate
	cfg.LocationBurst = locationBurst
	cfg.VAPIDPublicKey = vapidPublicKey
	cfg.VAPIDPrivateKey = vapidPrivateKey
	cfg.PushSubscriber = pushSubscriber

	eventStore, err := store.NewBboltStore(cfg.StorePath)
	if err != nil {
		logger.Fatal("store open:", err)
	}
	defer func() {
		if err := eventStore.Close(); err != nil {
			logger.Println("store close:", err)
		}
	}()

	writer := store.NewAsyncWriter(logger, eventStore)
	writer.Run()
	defer writer.Stop()

	var push *notify.WebPushNotifier
	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		push = notify.NewWebPushNotifier(logger, cfg.PushSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		notifier = push
	}

	var limiter gateway.LocationLimiter
	if cfg.LocationRate > 0 {
		limiter = gateway.NewRateLimiter(cfg.LocationRate, cfg.LocationBurst)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	resolver := auth.NewJWTResolver(cfg.SigningKey)

	gw, err := gateway.NewGateway(logger, resolver, writer, notifier, limiter, statsUpdater)
	if err != nil {
		logger.Fatal("new gateway:", err)
	}

	srv := api.NewGatewayApp(mux, logger, gw, eventStore, push, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Println("HTTP server shutdown:", err)
		}

		return gw.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalln("server:", err)
	}

	logger.Println("shutdown complete")
}
