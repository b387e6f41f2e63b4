// Package zerodha is the live broker backend: it drives the Kite Connect
// REST API for requests and the Kite ticker websocket for streaming
// callbacks.
package zerodha

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"ibconn/internal/broker"
	"ibconn/internal/logger"
)

var ErrMissingCredentials = errors.New("missing API key/access token")

type Params struct {
	APIKey      string
	AccessToken string
	// Exchange is used for orders whose contract names none.
	Exchange string
	// Product is the Kite product for orders (MIS, CNC, NRML).
	Product string
	// Instruments maps trading symbols to instrument tokens.
	Instruments map[string]uint32
	Now         func() time.Time
}

// kiteAPI is the part of the Kite REST client the backend uses.
type kiteAPI interface {
	GetUserProfile() (kiteconnect.UserProfile, error)
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
	CancelOrder(variety string, orderID string, parentOrderID *string) (kiteconnect.OrderResponse, error)
	GetOrders() (kiteconnect.Orders, error)
	GetPositions() (kiteconnect.Positions, error)
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

// tickerAPI is the part of the Kite ticker the backend uses.
type tickerAPI interface {
	OnConnect(f func())
	OnError(f func(err error))
	OnClose(f func(code int, reason string))
	OnReconnect(f func(attempt int, delay time.Duration))
	OnNoReconnect(f func(attempt int))
	OnTick(f func(tick models.Tick))
	OnOrderUpdate(f func(order kiteconnect.Order))
	Serve()
	Stop()
	Subscribe(tokens []uint32) error
	Unsubscribe(tokens []uint32) error
	SetMode(mode kiteticker.Mode, tokens []uint32) error
}

// Client implements broker.Client over Kite Connect.
type Client struct {
	p         Params
	newKite   func(apiKey, accessToken string) kiteAPI
	newTicker func(apiKey, accessToken string) tickerAPI

	mapper *instrumentMapper
	orders *orderBook

	mu        sync.Mutex
	kc        kiteAPI
	ticker    tickerAPI
	wrapper   broker.Wrapper
	clientID  int
	account   string
	connected bool
	closing   bool
	ready     chan error
}

var _ broker.Client = (*Client)(nil)

func New(p Params) *Client {
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	if p.Product == "" {
		p.Product = kiteconnect.ProductMIS
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Client{
		p:         p,
		newKite:   newKiteClient,
		newTicker: newKiteTicker,
		mapper:    newInstrumentMapper(p.Instruments),
		orders:    newOrderBook(),
	}
}

func newKiteClient(apiKey, accessToken string) kiteAPI {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return kc
}

func newKiteTicker(apiKey, accessToken string) tickerAPI {
	return kiteticker.New(apiKey, accessToken)
}

// Connect starts the ticker and blocks until it is connected. Kite has
// fixed endpoints, so host and port are only logged.
func (c *Client) Connect(ctx context.Context, host string, port int, clientID int, w broker.Wrapper) error {
	if c.p.APIKey == "" || c.p.AccessToken == "" {
		return ErrMissingCredentials
	}

	kc := c.newKite(c.p.APIKey, c.p.AccessToken)
	profile, err := kc.GetUserProfile()
	if err != nil {
		return fmt.Errorf("failed to fetch user profile: %w", err)
	}

	ticker := c.newTicker(c.p.APIKey, c.p.AccessToken)
	ready := make(chan error, 1)

	c.mu.Lock()
	c.kc, c.ticker, c.wrapper = kc, ticker, w
	c.clientID, c.account = clientID, profile.UserID
	c.closing = false
	c.ready = ready
	c.mu.Unlock()

	c.setupEventHandlers(ticker)

	go func() {
		logger.Info(ctx, "Starting Zerodha WebSocket ticker", "host", host, "port", port, "client_id", clientID)
		ticker.Serve()
	}()

	select {
	case err := <-ready:
		if err != nil {
			ticker.Stop()
			return fmt.Errorf("failed to connect ticker: %w", err)
		}
	case <-ctx.Done():
		c.mu.Lock()
		c.closing = true
		c.mu.Unlock()
		ticker.Stop()
		return ctx.Err()
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	w.ConnectAck(ctx)
	w.NextValidID(ctx, c.orders.nextID())
	w.ManagedAccounts(ctx, profile.UserID)
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	ticker, w, was := c.ticker, c.wrapper, c.connected
	c.connected = false
	c.closing = true
	c.mu.Unlock()

	if ticker != nil {
		logger.Info(ctx, "Stopping Zerodha WebSocket ticker")
		ticker.Stop()
	}
	c.mapper.clearSubscriptions()
	if was && w != nil {
		w.ConnectionClosed(ctx)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// session returns what requests need, or ErrNotConnected.
func (c *Client) session() (kiteAPI, tickerAPI, broker.Wrapper, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, nil, nil, broker.ErrNotConnected
	}
	return c.kc, c.ticker, c.wrapper, nil
}
