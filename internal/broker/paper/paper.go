// Package paper is an in-memory broker for DRY_RUN sessions. Orders fill
// against the last known price of their symbol; nothing leaves the process.
package paper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ibconn/internal/broker"
)

const (
	DefaultAccount  = "DU0000000"
	DefaultCurrency = "INR"
	DefaultCash     = 1_000_000
)

type Params struct {
	Account  string
	Currency string
	Cash     float64
	// Prices seeds the last price per symbol.
	Prices map[string]float64
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

type order struct {
	id       int
	contract broker.Contract
	order    broker.Order
	status   string
	filled   float64
	avgPrice float64
}

type position struct {
	contract broker.Contract
	qty      float64
	avgCost  float64
}

// Client implements broker.Client without a network.
type Client struct {
	params Params

	mu          sync.Mutex
	wrapper     broker.Wrapper
	connected   bool
	nextOrderID int
	cash        float64
	prices      map[string]float64
	subs        map[int]broker.Contract
	orders      map[int]*order
	positions   map[string]*position
	executions  []broker.Execution
	execByID    map[string]broker.Contract
}

var _ broker.Client = (*Client)(nil)

func New(p Params) *Client {
	if p.Account == "" {
		p.Account = DefaultAccount
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	if p.Cash == 0 {
		p.Cash = DefaultCash
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	c := &Client{
		params:      p,
		nextOrderID: 1,
		cash:        p.Cash,
		prices:      make(map[string]float64),
		subs:        make(map[int]broker.Contract),
		orders:      make(map[int]*order),
		positions:   make(map[string]*position),
		execByID:    make(map[string]broker.Contract),
	}
	for sym, px := range p.Prices {
		c.prices[strings.ToUpper(sym)] = px
	}
	return c
}

// Connect completes the handshake immediately: connectAck, nextValidId and
// managedAccounts are delivered before it returns.
func (c *Client) Connect(ctx context.Context, host string, port int, clientID int, w broker.Wrapper) error {
	c.mu.Lock()
	c.wrapper = w
	c.connected = true
	next := c.nextOrderID
	c.mu.Unlock()

	w.ConnectAck(ctx)
	w.NextValidID(ctx, next)
	w.ManagedAccounts(ctx, c.params.Account)
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	w := c.wrapper
	was := c.connected
	c.connected = false
	c.subs = make(map[int]broker.Contract)
	c.mu.Unlock()

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

// Request handles the requests the simulator models. Other request
// methods are accepted and produce no callbacks.
func (c *Client) Request(ctx context.Context, method string, args ...any) error {
	c.mu.Lock()
	w, connected := c.wrapper, c.connected
	c.mu.Unlock()
	if !connected {
		return broker.ErrNotConnected
	}

	a := broker.Args(args)
	switch method {
	case "reqCurrentTime":
		w.CurrentTime(ctx, c.params.Now().Unix())
	case "reqIds":
		c.mu.Lock()
		next := c.nextOrderID
		c.mu.Unlock()
		w.NextValidID(ctx, next)
	case "reqManagedAccts":
		w.ManagedAccounts(ctx, c.params.Account)
	case "reqMktData":
		return c.reqMktData(ctx, w, a)
	case "cancelMktData":
		reqID, err := a.Int(0)
		if err != nil {
			return fmt.Errorf("cancelMktData: %w", err)
		}
		c.mu.Lock()
		delete(c.subs, reqID)
		c.mu.Unlock()
	case "placeOrder":
		return c.placeOrder(ctx, w, a)
	case "cancelOrder":
		id, err := a.Int(0)
		if err != nil {
			return fmt.Errorf("cancelOrder: %w", err)
		}
		c.cancel(ctx, w, id)
	case "reqGlobalCancel":
		for _, o := range c.openOrders() {
			c.cancel(ctx, w, o.id)
		}
	case "reqOpenOrders", "reqAllOpenOrders":
		for _, o := range c.openOrders() {
			w.OpenOrder(ctx, o.id, o.contract, o.order, broker.OrderState{Status: o.status})
		}
		w.OpenOrderEnd(ctx)
	case "reqPositions":
		for _, p := range c.snapshotPositions() {
			w.Position(ctx, c.params.Account, p.contract, p.qty, p.avgCost)
		}
		w.PositionEnd(ctx)
	case "reqExecutions":
		reqID, err := a.Int(0)
		if err != nil {
			return fmt.Errorf("reqExecutions: %w", err)
		}
		c.mu.Lock()
		execs := append([]broker.Execution(nil), c.executions...)
		c.mu.Unlock()
		for _, e := range execs {
			c.mu.Lock()
			contract := c.execByID[e.ExecID]
			c.mu.Unlock()
			w.ExecDetails(ctx, reqID, contract, e)
		}
		w.ExecDetailsEnd(ctx, reqID)
	case "reqAccountSummary":
		reqID, err := a.Int(0)
		if err != nil {
			return fmt.Errorf("reqAccountSummary: %w", err)
		}
		c.mu.Lock()
		cash := c.cash
		c.mu.Unlock()
		w.AccountSummary(ctx, reqID, c.params.Account, "TotalCashValue", fmt.Sprintf("%.2f", cash), c.params.Currency)
		w.AccountSummaryEnd(ctx, reqID)
	}
	return nil
}

func (c *Client) reqMktData(ctx context.Context, w broker.Wrapper, a broker.Args) error {
	reqID, err := a.Int(0)
	if err != nil {
		return fmt.Errorf("reqMktData: %w", err)
	}
	contract, err := a.Contract(1)
	if err != nil {
		return fmt.Errorf("reqMktData: %w", err)
	}
	snapshot, err := a.Bool(3)
	if err != nil {
		return fmt.Errorf("reqMktData: %w", err)
	}

	sym := strings.ToUpper(contract.Symbol)
	c.mu.Lock()
	px, known := c.prices[sym]
	if !snapshot {
		c.subs[reqID] = contract
	}
	c.mu.Unlock()

	if !known {
		w.Error(ctx, reqID, broker.CodeNoSecurity, "No price for "+contract.Symbol, "")
		return nil
	}
	w.TickPrice(ctx, reqID, broker.TickLast, px, broker.TickAttrib{})
	return nil
}

func (c *Client) placeOrder(ctx context.Context, w broker.Wrapper, a broker.Args) error {
	id, err := a.Int(0)
	if err != nil {
		return fmt.Errorf("placeOrder: %w", err)
	}
	contract, err := a.Contract(1)
	if err != nil {
		return fmt.Errorf("placeOrder: %w", err)
	}
	ticket, err := a.Order(2)
	if err != nil {
		return fmt.Errorf("placeOrder: %w", err)
	}

	action := strings.ToUpper(ticket.Action)
	if (action != "BUY" && action != "SELL") || ticket.TotalQuantity <= 0 {
		w.Error(ctx, id, broker.CodeOrderRejected, fmt.Sprintf("Order rejected: %s %v", ticket.Action, ticket.TotalQuantity), "")
		return nil
	}

	c.mu.Lock()
	if id >= c.nextOrderID {
		c.nextOrderID = id + 1
	}
	o := &order{id: id, contract: contract, order: ticket, status: "Submitted"}
	c.orders[id] = o
	px, known := c.prices[strings.ToUpper(contract.Symbol)]
	c.mu.Unlock()

	if !known && !isLimit(ticket) {
		c.setStatus(id, "Cancelled")
		w.Error(ctx, id, broker.CodeNoSecurity, "No market price for "+contract.Symbol, "")
		return nil
	}
	fillPx, fills := fillPrice(ticket, px, known)
	if !fills {
		w.OpenOrder(ctx, id, contract, ticket, broker.OrderState{Status: "Submitted"})
		w.OrderStatus(ctx, id, "Submitted", 0, ticket.TotalQuantity, 0, id, 0, 0, 0, "", 0)
		return nil
	}
	c.fill(ctx, w, o, fillPx)
	return nil
}

func isLimit(o broker.Order) bool {
	return strings.EqualFold(o.OrderType, "LMT")
}

// fillPrice decides whether an order is marketable now and at what price.
func fillPrice(o broker.Order, last float64, known bool) (float64, bool) {
	if !isLimit(o) {
		return last, true
	}
	if !known {
		return o.LmtPrice, true
	}
	buy := strings.EqualFold(o.Action, "BUY")
	if (buy && o.LmtPrice >= last) || (!buy && o.LmtPrice <= last) {
		return last, true
	}
	return 0, false
}

func (c *Client) fill(ctx context.Context, w broker.Wrapper, o *order, px float64) {
	qty := o.order.TotalQuantity
	signed, side := qty, "BOT"
	if strings.EqualFold(o.order.Action, "SELL") {
		signed, side = -qty, "SLD"
	}

	c.mu.Lock()
	o.status, o.filled, o.avgPrice = "Filled", qty, px
	key := strings.ToUpper(o.contract.Symbol)
	p, ok := c.positions[key]
	if !ok {
		p = &position{contract: o.contract}
		c.positions[key] = p
	}
	p.avgCost = nextAvgCost(p.qty, p.avgCost, signed, px)
	p.qty += signed
	c.cash -= signed * px
	exec := broker.Execution{
		ExecID:   fmt.Sprintf("paper.%d.%d", o.id, len(c.executions)+1),
		OrderID:  o.id,
		Time:     c.params.Now().Format("20060102 15:04:05"),
		Account:  c.params.Account,
		Exchange: o.contract.Exchange,
		Side:     side,
		Shares:   qty,
		Price:    px,
	}
	c.executions = append(c.executions, exec)
	c.execByID[exec.ExecID] = o.contract
	c.mu.Unlock()

	w.OpenOrder(ctx, o.id, o.contract, o.order, broker.OrderState{Status: "Filled"})
	w.OrderStatus(ctx, o.id, "Filled", qty, 0, px, o.id, 0, px, 0, "", 0)
	w.ExecDetails(ctx, -1, o.contract, exec)
}

// nextAvgCost keeps the average entry price while a position grows and
// resets it when the position flips sign.
func nextAvgCost(qty, avg, delta, px float64) float64 {
	total := qty + delta
	switch {
	case total == 0:
		return 0
	case qty == 0 || (qty > 0) != (total > 0):
		return px
	case (qty > 0) == (delta > 0):
		return (qty*avg + delta*px) / total
	default:
		return avg
	}
}

func (c *Client) cancel(ctx context.Context, w broker.Wrapper, id int) {
	c.mu.Lock()
	o, ok := c.orders[id]
	var status string
	if ok {
		status = o.status
		if status == "Submitted" {
			o.status = "Cancelled"
		}
	}
	c.mu.Unlock()

	switch {
	case !ok:
		w.Error(ctx, id, 135, fmt.Sprintf("Can't find order with id =%d", id), "")
	case status != "Submitted":
		w.Error(ctx, id, 10148, fmt.Sprintf("OrderId %d that needs to be cancelled cannot be cancelled, state: %s.", id, status), "")
	default:
		w.OrderStatus(ctx, id, "Cancelled", 0, o.order.TotalQuantity, 0, id, 0, 0, 0, "", 0)
	}
}

func (c *Client) setStatus(id int, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o, ok := c.orders[id]; ok {
		o.status = status
	}
}

func (c *Client) openOrders() []order {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []order
	for _, o := range c.orders {
		if o.status == "Submitted" {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (c *Client) snapshotPositions() []position {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]position, 0, len(c.positions))
	for _, p := range c.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].contract.Symbol < out[j].contract.Symbol })
	return out
}

// SetPrice moves the last price of symbol: subscribers get a tick and
// resting limit orders that became marketable fill.
func (c *Client) SetPrice(ctx context.Context, symbol string, px float64) {
	sym := strings.ToUpper(symbol)
	c.mu.Lock()
	c.prices[sym] = px
	w, connected := c.wrapper, c.connected
	var reqIDs []int
	for id, contract := range c.subs {
		if strings.ToUpper(contract.Symbol) == sym {
			reqIDs = append(reqIDs, id)
		}
	}
	var resting []*order
	for _, o := range c.orders {
		if o.status == "Submitted" && strings.ToUpper(o.contract.Symbol) == sym {
			resting = append(resting, o)
		}
	}
	c.mu.Unlock()

	if !connected || w == nil {
		return
	}
	sort.Ints(reqIDs)
	for _, id := range reqIDs {
		w.TickPrice(ctx, id, broker.TickLast, px, broker.TickAttrib{})
	}
	sort.Slice(resting, func(i, j int) bool { return resting[i].id < resting[j].id })
	for _, o := range resting {
		if fillPx, ok := fillPrice(o.order, px, true); ok {
			c.fill(ctx, w, o, fillPx)
		}
	}
}
