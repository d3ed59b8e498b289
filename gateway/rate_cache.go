package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"dicewager/models"
)

const exchangeRateKey = "dicewager:bridge:exchange_rate"

// rateGateway is the gateway whose exchange rate is cached
type rateGateway interface {
	GetExchangeRate(ctx context.Context) (decimal.Decimal, error)
	RequestTransfer(ctx context.Context, req models.TransferRequest) (<-chan models.TransferResult, error)
}

// rateStore is the part of the redis client the cache uses
type rateStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedRateGateway serves the exchange rate from redis and delegates everything else
type CachedRateGateway struct {
	inner rateGateway
	store rateStore
	ttl   time.Duration
}

// NewRedisClient connects to redis and checks the connection
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewCachedRateGateway wraps inner with a redis-backed rate cache
func NewCachedRateGateway(inner rateGateway, store rateStore, ttl time.Duration) *CachedRateGateway {
	return &CachedRateGateway{inner: inner, store: store, ttl: ttl}
}

// GetExchangeRate returns the cached rate, refreshing it from the chain when missing.
// A redis failure falls through to the chain.
func (g *CachedRateGateway) GetExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	cached, err := g.store.Get(ctx, exchangeRateKey).Result()
	switch {
	case err == nil:
		rate, perr := decimal.NewFromString(cached)
		if perr == nil {
			return rate, nil
		}
		log.WithField("value", cached).Warn("Discarding unparsable cached exchange rate")
	case !errors.Is(err, redis.Nil):
		log.WithError(err).Warn("Exchange rate cache unavailable")
	}

	rate, err := g.inner.GetExchangeRate(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if err := g.store.Set(ctx, exchangeRateKey, rate.String(), g.ttl).Err(); err != nil {
		log.WithError(err).Warn("Failed to cache exchange rate")
	}
	return rate, nil
}

// RequestTransfer delegates to the wrapped gateway
func (g *CachedRateGateway) RequestTransfer(ctx context.Context, req models.TransferRequest) (<-chan models.TransferResult, error) {
	return g.inner.RequestTransfer(ctx, req)
}
