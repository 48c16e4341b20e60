package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/pkg/config"
	pkgsecrets "github.com/Checker-Finance/refdata/pkg/secrets"
)

// Keys read from the connection secret. Absent keys leave the env value alone.
const (
	KeyDatabaseURL = "database_url"
	KeyRedisPass   = "redis_pass"
	KeyNATSURL     = "nats_url"
	KeyRabbitMQURL = "rabbitmq_url"
)

// Connections holds the connection settings a secret may override.
type Connections struct {
	DatabaseURL string
	RedisPass   string
	NATSURL     string
	RabbitMQURL string
}

// Resolver fetches connection settings from a secrets provider and caches
// them by secret name.
type Resolver struct {
	logger   *zap.Logger
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[Connections]
}

func NewResolver(logger *zap.Logger, provider pkgsecrets.Provider, cache *pkgsecrets.Cache[Connections]) *Resolver {
	return &Resolver{logger: logger, provider: provider, cache: cache}
}

// Resolve returns the connection settings stored under secretName.
func (r *Resolver) Resolve(ctx context.Context, secretName string) (Connections, error) {
	if conns, ok := r.cache.Get(secretName); ok {
		return conns, nil
	}

	m, err := r.provider.GetSecret(ctx, secretName)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed",
			zap.String("secret", secretName),
			zap.Error(err))
		return Connections{}, fmt.Errorf("resolve connections from %q: %w", secretName, err)
	}

	conns := Connections{
		DatabaseURL: m[KeyDatabaseURL],
		RedisPass:   m[KeyRedisPass],
		NATSURL:     m[KeyNATSURL],
		RabbitMQURL: m[KeyRabbitMQURL],
	}
	r.cache.Put(secretName, conns)

	r.logger.Info("secrets.connections_resolved",
		zap.String("secret", secretName),
		zap.Bool("database_url", conns.DatabaseURL != ""),
		zap.Bool("redis_pass", conns.RedisPass != ""),
		zap.Bool("nats_url", conns.NATSURL != ""),
		zap.Bool("rabbitmq_url", conns.RabbitMQURL != ""))
	return conns, nil
}

// Overlay resolves cfg.SecretName and writes every non-empty setting onto cfg.
// It is a no-op when no secret name is configured.
func (r *Resolver) Overlay(ctx context.Context, cfg *config.Config) error {
	if cfg.SecretName == "" {
		return nil
	}
	conns, err := r.Resolve(ctx, cfg.SecretName)
	if err != nil {
		return err
	}
	if conns.DatabaseURL != "" {
		cfg.DatabaseURL = conns.DatabaseURL
	}
	if conns.RedisPass != "" {
		cfg.RedisPass = conns.RedisPass
	}
	if conns.NATSURL != "" {
		cfg.NATSURL = conns.NATSURL
	}
	if conns.RabbitMQURL != "" {
		cfg.RabbitMQURL = conns.RabbitMQURL
	}
	return nil
}
