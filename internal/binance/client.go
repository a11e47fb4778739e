// Package binance implements catalog.MarkPriceFeed against Binance's public
// combined-stream websocket, the only external oracle this exchange trusts
// for mark/last price updates.
package binance

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultStreamURL is the combined trade stream for the instruments this
// exchange quotes against Binance spot prices.
const DefaultStreamURL = "wss://stream.binance.com:9443/stream?streams=btcusdt@trade/ethusdt@trade/solusdt@trade"

// combinedStreamMessage is Binance's wrapper format for combined streams.
// Ref: binance-spot-api-docs/web-socket-streams.md#general-wss-information
type combinedStreamMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		Symbol    string `json:"s"`
		Price     string `json:"p"`
	} `json:"data"`
}

// Client streams trade prints from Binance and forwards them to a
// catalog.Catalog via the onTick callback. It satisfies catalog.MarkPriceFeed.
type Client struct {
	url string

	mu        sync.Mutex
	onTick    func(string, float64)
	isRunning bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewClient returns a Client against the given combined-stream URL. An empty
// url falls back to DefaultStreamURL.
func NewClient(url string) *Client {
	if url == "" {
		url = DefaultStreamURL
	}
	return &Client{url: url}
}

// Subscribe implements catalog.MarkPriceFeed. symbols is informational only:
// the combined stream URL already fixes which instruments are carried.
func (c *Client) Subscribe(symbols []string, onTick func(symbol string, price float64)) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("binance: client already running")
	}
	c.onTick = onTick
	c.isRunning = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()
	log.Printf("[binance] subscribed to %d symbols via combined stream", len(symbols))
	return nil
}

// Stop implements catalog.MarkPriceFeed.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	close(c.stopCh)
	c.mu.Unlock()
	c.wg.Wait()
	log.Println("[binance] stopped")
}

func (c *Client) run() {
	defer c.wg.Done()

	backoff := time.Second
	const maxBackoff = 60 * time.Second
	dialer := &websocket.Dialer{
		HandshakeTimeout: 45 * time.Second,
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
	}

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		headers := http.Header{}
		headers.Add("User-Agent", "Mozilla/5.0")

		conn, _, err := dialer.Dial(c.url, headers)
		if err != nil {
			log.Printf("[binance] dial error: %v, reconnecting in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-c.stopCh:
				return
			}
			backoff = minDuration(backoff*2, maxBackoff)
			continue
		}

		log.Println("[binance] connected:", c.url)
		backoff = time.Second
		c.readLoop(conn)
		conn.Close()

		select {
		case <-c.stopCh:
			return
		default:
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[binance] read error: %v", err)
			return
		}

		var msg combinedStreamMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Data.EventType != "trade" {
			continue
		}

		var price float64
		if _, err := fmt.Sscanf(msg.Data.Price, "%f", &price); err != nil || price <= 0 {
			continue
		}

		c.mu.Lock()
		onTick := c.onTick
		c.mu.Unlock()
		if onTick != nil {
			onTick(msg.Data.Symbol, price)
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
