package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/smartticket/config"
	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type RedisCache struct {
	client    *redis.Client
	routesTTL time.Duration
	ticketTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, routesTTL, ticketTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		routesTTL, ticketTTL,
	)
}

func NewRedisCacheWithClient(client *redis.Client, routesTTL, ticketTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, routesTTL: routesTTL, ticketTTL: ticketTTL}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetRoutes returns nil, nil on a cache miss.
func (c *RedisCache) GetRoutes(ctx context.Context) ([]domain.Route, error) {
	data, err := c.client.Get(ctx, routesKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var routes []domain.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

func (c *RedisCache) SetRoutes(ctx context.Context, routes []domain.Route) error {
	payload, err := json.Marshal(routes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, routesKey(), payload, c.routesTTL).Err()
}

// GetBaseFare reports ok=false on a cache miss.
func (c *RedisCache) GetBaseFare(ctx context.Context, departure, destination string) (decimal.Decimal, bool, error) {
	value, err := c.client.Get(ctx, fareKey(departure, destination)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	fare, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false, err
	}
	return fare, true, nil
}

func (c *RedisCache) SetBaseFare(ctx context.Context, departure, destination string, fare decimal.Decimal) error {
	return c.client.Set(ctx, fareKey(departure, destination), fare.String(), c.routesTTL).Err()
}

// GetTicket returns nil, nil when no ticket is stored for this snapshot of b.
func (c *RedisCache) GetTicket(ctx context.Context, b domain.Booking) ([]byte, error) {
	data, err := c.client.Get(ctx, ticketKey(b)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (c *RedisCache) SetTicket(ctx context.Context, b domain.Booking, content []byte) error {
	return c.client.Set(ctx, ticketKey(b), content, c.ticketTTL).Err()
}

// DeleteTickets removes every stored version of the booking's ticket.
func (c *RedisCache) DeleteTickets(ctx context.Context, bookingID int64) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, ticketPattern(bookingID), 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func routesKey() string {
	return "cache:routes"
}

func fareKey(departure, destination string) string {
	return fmt.Sprintf("cache:fare:%s:%s", strings.ToLower(strings.TrimSpace(departure)), strings.ToLower(strings.TrimSpace(destination)))
}

// ticketKey is versioned by the snapshot's UpdatedAt.
func ticketKey(b domain.Booking) string {
	return fmt.Sprintf("ticket:booking:%d:%d", b.ID, b.UpdatedAt.UnixMicro())
}

func ticketPattern(bookingID int64) string {
	return fmt.Sprintf("ticket:booking:%d:*", bookingID)
}
