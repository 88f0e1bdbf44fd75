package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/tripmesh/gateway/internal/config"
	"github.com/tripmesh/gateway/internal/gateway"
	"github.com/tripmesh/gateway/internal/notify"
	"github.com/tripmesh/gateway/internal/store"
)

// GatewayApp is the HTTP surface in front of the gateway: the WebSocket
// upgrade endpoint plus a small operational API.
type GatewayApp struct {
	log            *log.Logger
	gw             *gateway.Gateway
	es             store.EventStore
	push           *notify.WebPushNotifier
	srv            *http.Server
	allowedOrigins []string
}

func NewGatewayApp(mux *http.ServeMux, logger *log.Logger, gw *gateway.Gateway,
	es store.EventStore, push *notify.WebPushNotifier, cfg *config.Config) *GatewayApp {
	s := &GatewayApp{
		log:            logger,
		gw:             gw,
		es:             es,
		push:           push,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("GET /api/presence", s.presence)
	mux.HandleFunc("POST /api/push/subscriptions", s.pushSubscribe)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *GatewayApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *GatewayApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *GatewayApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}
