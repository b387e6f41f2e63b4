package zerodha

import (
	"context"
	"strconv"
	"strings"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"

	"ibconn/internal/broker"
	"ibconn/internal/logger"
)

// Error codes for connectivity events, as the broker API numbers them.
const (
	codeConnectivityLost     = broker.CodeConnectivityLost
	codeConnectivityRestored = 1102
)

// setupEventHandlers configures all WebSocket event callbacks
func (c *Client) setupEventHandlers(t tickerAPI) {
	t.OnConnect(c.onConnect)
	t.OnError(c.onError)
	t.OnClose(c.onClose)
	t.OnReconnect(c.onReconnect)
	t.OnNoReconnect(c.onNoReconnect)
	t.OnTick(c.onTick)
	t.OnOrderUpdate(c.onOrderUpdate)
}

// signalReady completes a pending Connect. It reports false once the
// handshake is over.
func (c *Client) signalReady(err error) bool {
	c.mu.Lock()
	ready := c.ready
	c.ready = nil
	c.mu.Unlock()
	if ready == nil {
		return false
	}
	ready <- err
	return true
}

func (c *Client) liveWrapper() broker.Wrapper {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	return c.wrapper
}

func (c *Client) onConnect() {
	ctx := context.Background()
	if c.signalReady(nil) {
		logger.Info(ctx, "WebSocket connected")
		return
	}

	// Reconnected: the ticker does not replay subscriptions.
	logger.Info(ctx, "WebSocket reconnected")
	if tokens := c.mapper.subscribedTokens(); len(tokens) > 0 {
		c.mu.Lock()
		t := c.ticker
		c.mu.Unlock()
		if err := subscribeFull(t, tokens); err != nil {
			logger.ErrorWithErr(ctx, "Failed to restore subscriptions", err, "count", len(tokens))
		}
	}
	if w := c.liveWrapper(); w != nil {
		w.Error(ctx, -1, codeConnectivityRestored, "Connectivity between Kite and ibconn has been restored - data maintained.", "")
	}
}

func (c *Client) onError(err error) {
	ctx := context.Background()
	if c.signalReady(err) {
		return
	}
	logger.ErrorWithErr(ctx, "WebSocket error", err)
	if w := c.liveWrapper(); w != nil {
		w.Error(ctx, -1, codeConnectivityLost, "Connectivity between Kite and ibconn has been lost: "+err.Error(), "")
	}
}

func (c *Client) onClose(code int, reason string) {
	logger.Warn(context.Background(), "WebSocket closed", "code", code, "reason", reason)
}

func (c *Client) onReconnect(attempt int, delay time.Duration) {
	logger.Info(context.Background(), "WebSocket reconnecting", "attempt", attempt, "delay", delay)
}

// onNoReconnect ends the session: the ticker has given up.
func (c *Client) onNoReconnect(attempt int) {
	ctx := context.Background()
	logger.Warn(ctx, "WebSocket reconnection failed", "attempt", attempt)

	c.mu.Lock()
	w, was := c.wrapper, c.connected && !c.closing
	c.connected = false
	c.mu.Unlock()

	c.mapper.clearSubscriptions()
	if was && w != nil {
		w.ConnectionClosed(ctx)
	}
}

// onTick fans a full-mode tick out as price, size and last trade time
// ticks to every market data request on its instrument. Snapshot requests
// end after this tick.
func (c *Client) onTick(tick models.Tick) {
	w := c.liveWrapper()
	if w == nil {
		return
	}
	reqIDs := c.mapper.requestsFor(tick.InstrumentToken)
	if len(reqIDs) == 0 {
		return
	}

	ctx := context.Background()
	logger.Debug(ctx, "Tick received", "symbol", c.mapper.getSymbol(tick.InstrumentToken),
		"token", tick.InstrumentToken, "last", tick.LastPrice, "requests", len(reqIDs))

	prices, sizes := tickFields(tick)
	for _, reqID := range reqIDs {
		for _, p := range prices {
			w.TickPrice(ctx, reqID, p.tickType, p.value, broker.TickAttrib{})
		}
		for _, s := range sizes {
			w.TickSize(ctx, reqID, s.tickType, s.value)
		}
		if !tick.LastTradeTime.IsZero() {
			w.TickString(ctx, reqID, broker.TickLastTime, strconv.FormatInt(tick.LastTradeTime.Unix(), 10))
		}
	}

	c.endSnapshots(ctx, w, tick.InstrumentToken)
}

// endSnapshots completes the snapshot requests on token and drops the
// ticker subscription when nothing streams it any more.
func (c *Client) endSnapshots(ctx context.Context, w broker.Wrapper, token uint32) {
	done, last := c.mapper.endSnapshots(token)
	if len(done) == 0 {
		return
	}
	if last {
		c.mu.Lock()
		t := c.ticker
		c.mu.Unlock()
		if t != nil {
			if err := t.Unsubscribe([]uint32{token}); err != nil {
				logger.ErrorWithErr(ctx, "Failed to unsubscribe after snapshot", err, "token", token)
			}
		}
	}
	for _, reqID := range done {
		if err := w.Receive(ctx, "tickSnapshotEnd", reqID); err != nil {
			logger.ErrorWithErr(ctx, "Failed to deliver snapshot end", err, "req_id", reqID)
		}
	}
}

type tickValue struct {
	tickType int
	value    float64
}

func tickFields(tick models.Tick) (prices, sizes []tickValue) {
	addPrice := func(tt int, v float64) {
		if v > 0 {
			prices = append(prices, tickValue{tt, v})
		}
	}
	addSize := func(tt int, v float64) {
		if v > 0 {
			sizes = append(sizes, tickValue{tt, v})
		}
	}

	bid, ask := tick.Depth.Buy[0], tick.Depth.Sell[0]
	addPrice(broker.TickBid, bid.Price)
	addPrice(broker.TickAsk, ask.Price)
	addPrice(broker.TickLast, tick.LastPrice)
	addPrice(broker.TickHigh, tick.OHLC.High)
	addPrice(broker.TickLow, tick.OHLC.Low)
	addPrice(broker.TickClose, tick.OHLC.Close)
	addPrice(broker.TickOpen, tick.OHLC.Open)

	addSize(broker.TickBidSize, float64(bid.Quantity))
	addSize(broker.TickAskSize, float64(ask.Quantity))
	addSize(broker.TickLastSize, float64(tick.LastTradedQuantity))
	addSize(broker.TickVolume, float64(tick.VolumeTraded))
	return prices, sizes
}

// onOrderUpdate reports Kite order postbacks as order status callbacks.
func (c *Client) onOrderUpdate(order kiteconnect.Order) {
	ctx := context.Background()
	logger.Debug(ctx, "Order update received", "order_id", order.OrderID, "status", order.Status)

	w := c.liveWrapper()
	if w == nil {
		return
	}
	c.mu.Lock()
	clientID := c.clientID
	c.mu.Unlock()

	id := c.orders.idFor(order.OrderID)
	status := orderStatus(order.Status)
	whyHeld := ""
	if status == "Inactive" {
		whyHeld = order.StatusMessage
	}
	w.OrderStatus(ctx, id, status, float64(order.FilledQuantity), float64(order.PendingQuantity),
		order.AveragePrice, 0, 0, order.AveragePrice, clientID, whyHeld, 0)
}

// orderStatus maps a Kite order status to the broker API's status names.
func orderStatus(kite string) string {
	switch strings.ToUpper(kite) {
	case "COMPLETE":
		return "Filled"
	case "CANCELLED":
		return "Cancelled"
	case "REJECTED":
		return "Inactive"
	case "OPEN":
		return "Submitted"
	case "TRIGGER PENDING":
		return "PreSubmitted"
	case "":
		return "Unknown"
	default:
		return "PendingSubmit"
	}
}

// isOpenStatus reports whether a Kite order can still trade.
func isOpenStatus(kite string) bool {
	switch orderStatus(kite) {
	case "Submitted", "PreSubmitted", "PendingSubmit":
		return true
	}
	return false
}
