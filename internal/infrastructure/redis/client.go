// Package redis fans out mark-price ticks and circuit-breaker state
// transitions to any external subscriber (dashboards, hedge desks) over
// Redis pub/sub. It replaces the teacher's OTP/session-cache singleton: the
// connection setup is the same go-redis/v9 shape, the payload is not.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps a *redis.Client for the two channels internal/risk
// publishes to. A nil *Client is valid and every method on it is a no-op,
// so callers can wire it unconditionally and only pay for Redis when
// REDIS_ADDR is configured.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to addr (host:port) with password and db selected,
// pinging once to fail fast on misconfiguration.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	log.Printf("[REDIS] connected to %s", addr)
	return &Client{rdb: rdb}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

type markPriceMessage struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// PublishMarkPrice implements risk.MarkPricePublisher, broadcasting symbol's
// new mark price on the "markprice:<symbol>" channel.
func (c *Client) PublishMarkPrice(symbol string, price float64) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(markPriceMessage{Symbol: symbol, Price: price, Timestamp: time.Now().Unix()})
	if err != nil {
		log.Printf("redis: marshal mark price: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.rdb.Publish(ctx, "markprice:"+symbol, b).Err(); err != nil {
		log.Printf("redis: publish mark price %s: %v", symbol, err)
	}
}

type circuitStateMessage struct {
	Symbol    string `json:"symbol"`
	From      string `json:"from"`
	To        string `json:"to"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// PublishCircuitBreakerState implements risk.StatePublisher, broadcasting a
// breaker transition on the "circuit:<symbol>" channel.
func (c *Client) PublishCircuitBreakerState(symbol, from, to, price string, timestamp time.Time) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(circuitStateMessage{Symbol: symbol, From: from, To: to, Price: price, Timestamp: timestamp.Unix()})
	if err != nil {
		log.Printf("redis: marshal circuit state: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.rdb.Publish(ctx, "circuit:"+symbol, b).Err(); err != nil {
		log.Printf("redis: publish circuit state %s: %v", symbol, err)
	}
}
