package zerodha

import (
	"context"
	"fmt"
	"strings"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"ibconn/internal/broker"
	"ibconn/internal/logger"
)

// Error codes sent through the wrapper for rejected requests.
const (
	codeNoSecurity       = broker.CodeNoSecurity
	codeOrderRejected    = broker.CodeOrderRejected
	codeOrderNotFound    = 135
	codeCannotCancel     = 161
	codeHistoricalFailed = 162
	codeBadHistorical    = 321
)

// Request maps a broker API request onto Kite. Kite-side rejections are
// reported through the wrapper's Error callback; transport and argument
// failures are returned.
func (c *Client) Request(ctx context.Context, method string, args ...any) error {
	kc, ticker, w, err := c.session()
	if err != nil {
		return err
	}

	a := broker.Args(args)
	switch method {
	case "reqCurrentTime":
		w.CurrentTime(ctx, c.p.Now().Unix())
	case "reqIds":
		w.NextValidID(ctx, c.orders.nextID())
	case "reqManagedAccts":
		c.mu.Lock()
		account := c.account
		c.mu.Unlock()
		w.ManagedAccounts(ctx, account)
	case "reqMktData":
		err = c.reqMktData(ctx, ticker, w, a)
	case "cancelMktData":
		err = c.cancelMktData(ticker, a)
	case "placeOrder":
		err = c.placeOrder(ctx, kc, w, a)
	case "cancelOrder":
		err = c.cancelOrder(ctx, kc, w, a)
	case "reqOpenOrders", "reqAllOpenOrders":
		err = c.reqOpenOrders(ctx, kc, w)
	case "reqPositions":
		err = c.reqPositions(ctx, kc, w)
	case "reqHistoricalData":
		err = c.reqHistoricalData(ctx, kc, w, a)
	default:
		return fmt.Errorf("%s: %w", method, broker.ErrUnsupported)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// resolveToken finds the instrument token of a contract: its ConID when
// set, otherwise the configured token of its symbol.
func (c *Client) resolveToken(contract broker.Contract) (uint32, bool) {
	if contract.ConID > 0 {
		return uint32(contract.ConID), true
	}
	return c.mapper.getToken(contract.Symbol)
}

func subscribeFull(t tickerAPI, tokens []uint32) error {
	if err := t.Subscribe(tokens); err != nil {
		return fmt.Errorf("failed to subscribe to instruments: %w", err)
	}
	if err := t.SetMode(kiteticker.ModeFull, tokens); err != nil {
		return fmt.Errorf("failed to set ticker mode: %w", err)
	}
	return nil
}

func (c *Client) reqMktData(ctx context.Context, t tickerAPI, w broker.Wrapper, a broker.Args) error {
	reqID, err := a.Int(0)
	if err != nil {
		return err
	}
	contract, err := a.Contract(1)
	if err != nil {
		return err
	}
	snapshot, err := a.Bool(3)
	if err != nil {
		return err
	}

	token, ok := c.resolveToken(contract)
	if !ok {
		w.Error(ctx, reqID, codeNoSecurity, "No security definition has been found for the request: "+contract.Symbol, "")
		return nil
	}
	first, stale, staleLast := c.mapper.subscribe(reqID, token, snapshot)
	if staleLast {
		if err := t.Unsubscribe([]uint32{stale}); err != nil {
			return fmt.Errorf("failed to unsubscribe from instrument: %w", err)
		}
		logger.Info(ctx, "Unsubscribed from replaced instrument", "req_id", reqID, "token", stale)
	}
	if !first {
		return nil
	}
	if err := subscribeFull(t, []uint32{token}); err != nil {
		c.mapper.unsubscribe(reqID)
		return err
	}
	logger.Info(ctx, "Subscribed to instrument", "req_id", reqID, "symbol", contract.Symbol,
		"token", token, "snapshot", snapshot)
	return nil
}

func (c *Client) cancelMktData(t tickerAPI, a broker.Args) error {
	reqID, err := a.Int(0)
	if err != nil {
		return err
	}
	token, last, ok := c.mapper.unsubscribe(reqID)
	if !ok || !last {
		return nil
	}
	if err := t.Unsubscribe([]uint32{token}); err != nil {
		return fmt.Errorf("failed to unsubscribe from instrument: %w", err)
	}
	return nil
}

func (c *Client) placeOrder(ctx context.Context, kc kiteAPI, w broker.Wrapper, a broker.Args) error {
	id, err := a.Int(0)
	if err != nil {
		return err
	}
	contract, err := a.Contract(1)
	if err != nil {
		return err
	}
	order, err := a.Order(2)
	if err != nil {
		return err
	}

	params, err := c.orderParams(contract, order)
	if err != nil {
		w.Error(ctx, id, codeOrderRejected, "Order rejected - reason: "+err.Error(), "")
		return nil
	}

	kiteID, err := c.orders.place(id, func() (string, error) {
		resp, err := kc.PlaceOrder(kiteconnect.VarietyRegular, params)
		return resp.OrderID, err
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to place order", err, "order_id", id, "symbol", params.Tradingsymbol)
		w.Error(ctx, id, codeOrderRejected, "Order rejected - reason: "+err.Error(), "")
		return nil
	}
	logger.Info(ctx, "Order placed", "order_id", id, "kite_order_id", kiteID,
		"symbol", params.Tradingsymbol, "side", params.TransactionType, "qty", params.Quantity)

	c.mu.Lock()
	clientID := c.clientID
	c.mu.Unlock()
	w.OrderStatus(ctx, id, "PendingSubmit", 0, order.TotalQuantity, 0, 0, 0, 0, clientID, "", 0)
	return nil
}

// orderParams translates an order ticket into Kite order parameters.
func (c *Client) orderParams(contract broker.Contract, order broker.Order) (kiteconnect.OrderParams, error) {
	p := kiteconnect.OrderParams{
		Exchange:      contract.Exchange,
		Tradingsymbol: contract.Symbol,
		Product:       c.p.Product,
		Validity:      kiteconnect.ValidityDay,
		Quantity:      int(order.TotalQuantity),
		Tag:           truncate(order.OrderRef, 20),
	}
	if p.Exchange == "" || strings.EqualFold(p.Exchange, "SMART") {
		p.Exchange = c.p.Exchange
	}
	if contract.LocalSymbol != "" {
		p.Tradingsymbol = contract.LocalSymbol
	}
	if p.Tradingsymbol == "" {
		return p, fmt.Errorf("contract has no symbol")
	}
	if float64(p.Quantity) != order.TotalQuantity || p.Quantity <= 0 {
		return p, fmt.Errorf("quantity %v must be a positive whole number", order.TotalQuantity)
	}
	if strings.EqualFold(order.Tif, "IOC") {
		p.Validity = kiteconnect.ValidityIOC
	}

	switch strings.ToUpper(order.Action) {
	case "BUY":
		p.TransactionType = kiteconnect.TransactionTypeBuy
	case "SELL":
		p.TransactionType = kiteconnect.TransactionTypeSell
	default:
		return p, fmt.Errorf("unsupported action %q", order.Action)
	}

	switch strings.ToUpper(order.OrderType) {
	case "MKT", "":
		p.OrderType = kiteconnect.OrderTypeMarket
	case "LMT":
		p.OrderType = kiteconnect.OrderTypeLimit
		p.Price = order.LmtPrice
	case "STP":
		p.OrderType = kiteconnect.OrderTypeSLM
		p.TriggerPrice = order.AuxPrice
	case "STP LMT":
		p.OrderType = kiteconnect.OrderTypeSL
		p.Price = order.LmtPrice
		p.TriggerPrice = order.AuxPrice
	default:
		return p, fmt.Errorf("unsupported order type %q", order.OrderType)
	}
	return p, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (c *Client) cancelOrder(ctx context.Context, kc kiteAPI, w broker.Wrapper, a broker.Args) error {
	id, err := a.Int(0)
	if err != nil {
		return err
	}
	kiteID, ok := c.orders.kiteID(id)
	if !ok {
		w.Error(ctx, id, codeOrderNotFound, fmt.Sprintf("Can't find order with id =%d", id), "")
		return nil
	}
	if _, err := kc.CancelOrder(kiteconnect.VarietyRegular, kiteID, nil); err != nil {
		logger.ErrorWithErr(ctx, "Failed to cancel order", err, "order_id", id, "kite_order_id", kiteID)
		w.Error(ctx, id, codeCannotCancel, "Cancel attempted when order is not in a cancellable state: "+err.Error(), "")
	}
	return nil
}

func (c *Client) reqOpenOrders(ctx context.Context, kc kiteAPI, w broker.Wrapper) error {
	orders, err := kc.GetOrders()
	if err != nil {
		return fmt.Errorf("failed to fetch orders: %w", err)
	}
	for _, o := range orders {
		if !isOpenStatus(o.Status) {
			continue
		}
		id := c.orders.idFor(o.OrderID)
		contract := broker.Contract{
			ConID:    int(o.InstrumentToken),
			Symbol:   o.TradingSymbol,
			SecType:  "STK",
			Exchange: o.Exchange,
			Currency: "INR",
		}
		ticket := broker.Order{
			OrderID:       id,
			Action:        o.TransactionType,
			TotalQuantity: float64(o.Quantity),
			OrderType:     apiOrderType(o.OrderType),
			LmtPrice:      o.Price,
			AuxPrice:      o.TriggerPrice,
			Tif:           o.Validity,
			OrderRef:      o.Tag,
		}
		w.OpenOrder(ctx, id, contract, ticket, broker.OrderState{Status: orderStatus(o.Status)})
	}
	w.OpenOrderEnd(ctx)
	return nil
}

func apiOrderType(kite string) string {
	switch kite {
	case kiteconnect.OrderTypeLimit:
		return "LMT"
	case kiteconnect.OrderTypeSLM:
		return "STP"
	case kiteconnect.OrderTypeSL:
		return "STP LMT"
	default:
		return "MKT"
	}
}

func (c *Client) reqPositions(ctx context.Context, kc kiteAPI, w broker.Wrapper) error {
	positions, err := kc.GetPositions()
	if err != nil {
		return fmt.Errorf("failed to fetch positions: %w", err)
	}
	c.mu.Lock()
	account := c.account
	c.mu.Unlock()

	for _, p := range positions.Net {
		contract := broker.Contract{
			ConID:    int(p.InstrumentToken),
			Symbol:   p.Tradingsymbol,
			SecType:  "STK",
			Exchange: p.Exchange,
			Currency: "INR",
		}
		w.Position(ctx, account, contract, float64(p.Quantity), p.AveragePrice)
	}
	w.PositionEnd(ctx)
	return nil
}

func (c *Client) reqHistoricalData(ctx context.Context, kc kiteAPI, w broker.Wrapper, a broker.Args) error {
	reqID, err := a.Int(0)
	if err != nil {
		return err
	}
	contract, err := a.Contract(1)
	if err != nil {
		return err
	}
	end, err := a.String(2)
	if err != nil {
		return err
	}
	duration, err := a.String(3)
	if err != nil {
		return err
	}
	barSize, err := a.String(4)
	if err != nil {
		return err
	}

	token, ok := c.resolveToken(contract)
	if !ok {
		w.Error(ctx, reqID, codeNoSecurity, "No security definition has been found for the request: "+contract.Symbol, "")
		return nil
	}
	q, err := parseHistoricalQuery(end, duration, barSize, c.p.Now())
	if err != nil {
		w.Error(ctx, reqID, codeBadHistorical, "Error validating request: "+err.Error(), "")
		return nil
	}

	bars, err := kc.GetHistoricalData(int(token), q.interval, q.from, q.to, false, false)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch historical data", err, "req_id", reqID, "token", token)
		w.Error(ctx, reqID, codeHistoricalFailed, "Historical Market Data Service error message: "+err.Error(), "")
		return nil
	}
	for _, b := range bars {
		w.HistoricalData(ctx, reqID, broker.BarData{
			Date:   q.formatBar(b.Date.Time),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	w.HistoricalDataEnd(ctx, reqID, q.from.Format(barTimeLayout), q.to.Format(barTimeLayout))
	return nil
}
