package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

type Config struct {
	ServerAddr     string
	StorePath      string
	SigningKey     []byte
	AllowedOrigins []string

	// Location rate limiting. Zero LocationRate disables the limiter
	// entirely; emergency updates are never throttled regardless.
	LocationRate  float64
	LocationBurst int

	// Web Push credentials for the emergency side channel. Both empty
	// disables push notifications.
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string

	ShutdownTimeout time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, storePath, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if storePath == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:      serverAddr,
		StorePath:       storePath,
		SigningKey:      signingKey,
		AllowedOrigins:  allowedOrigins,
		LocationRate:    1,
		LocationBurst:   5,
		ShutdownTimeout: 10 * time.Second,
	}, nil
}
