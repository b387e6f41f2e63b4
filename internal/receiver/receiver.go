// Package receiver turns broker callbacks into dispatched messages.
package receiver

import (
	"context"
	"errors"
	"fmt"

	"ibconn/internal/broker"
	"ibconn/internal/dispatcher"
	"ibconn/internal/logger"
)

var ErrUnknownCallback = errors.New("unknown wrapper callback")

// Receiver implements broker.Wrapper on top of a dispatcher. Every callback
// dispatches one message per type registered for its method.
type Receiver struct {
	dispatcher *dispatcher.Dispatcher
}

var _ broker.Wrapper = (*Receiver)(nil)

func New(d *dispatcher.Dispatcher) *Receiver {
	return &Receiver{dispatcher: d}
}

func (r *Receiver) Dispatcher() *dispatcher.Dispatcher { return r.dispatcher }

// Handles reports whether method is a wrapper callback known to the
// dispatcher's registry.
func (r *Receiver) Handles(method string) bool {
	types := r.dispatcher.Registry().Types(method)
	return len(types) > 0 && !r.dispatcher.Registry().IsRequest(method)
}

// Receive dispatches the callback named method with positional args.
func (r *Receiver) Receive(ctx context.Context, method string, args ...any) error {
	if !r.Handles(method) {
		return fmt.Errorf("receive %s: %w", method, ErrUnknownCallback)
	}
	for _, typ := range r.dispatcher.Registry().Types(method) {
		fields, err := typ.FromArgs(args...)
		if err != nil {
			return fmt.Errorf("receive %s: %w", method, err)
		}
		if err := r.dispatcher.Dispatch(ctx, typ.Name, fields); err != nil {
			return err
		}
	}
	return nil
}

// deliver is used by the typed callbacks, which have no error return.
func (r *Receiver) deliver(ctx context.Context, method string, args ...any) {
	if err := r.Receive(ctx, method, args...); err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver broker callback", err, "method", method)
	}
}

func (r *Receiver) ConnectAck(ctx context.Context) { r.deliver(ctx, "connectAck") }

func (r *Receiver) ConnectionClosed(ctx context.Context) { r.deliver(ctx, "connectionClosed") }

func (r *Receiver) NextValidID(ctx context.Context, orderID int) {
	r.deliver(ctx, "nextValidId", orderID)
}

func (r *Receiver) CurrentTime(ctx context.Context, t int64) {
	r.deliver(ctx, "currentTime", t)
}

func (r *Receiver) ManagedAccounts(ctx context.Context, accountsList string) {
	r.deliver(ctx, "managedAccounts", accountsList)
}

func (r *Receiver) Error(ctx context.Context, reqID int, errorCode int, errorMsg string, advancedOrderRejectJSON string) {
	r.deliver(ctx, "error", reqID, errorCode, errorMsg, advancedOrderRejectJSON)
}

func (r *Receiver) TickPrice(ctx context.Context, reqID int, tickType int, price float64, attrib broker.TickAttrib) {
	r.deliver(ctx, "tickPrice", reqID, tickType, price, attrib)
}

func (r *Receiver) TickSize(ctx context.Context, reqID int, tickType int, size float64) {
	r.deliver(ctx, "tickSize", reqID, tickType, size)
}

func (r *Receiver) TickString(ctx context.Context, reqID int, tickType int, value string) {
	r.deliver(ctx, "tickString", reqID, tickType, value)
}

func (r *Receiver) OrderStatus(ctx context.Context, orderID int, status string, filled, remaining, avgFillPrice float64,
	permID, parentID int, lastFillPrice float64, clientID int, whyHeld string, mktCapPrice float64) {
	r.deliver(ctx, "orderStatus", orderID, status, filled, remaining, avgFillPrice,
		permID, parentID, lastFillPrice, clientID, whyHeld, mktCapPrice)
}

func (r *Receiver) OpenOrder(ctx context.Context, orderID int, contract broker.Contract, order broker.Order, state broker.OrderState) {
	r.deliver(ctx, "openOrder", orderID, contract, order, state)
}

func (r *Receiver) OpenOrderEnd(ctx context.Context) { r.deliver(ctx, "openOrderEnd") }

func (r *Receiver) Position(ctx context.Context, account string, contract broker.Contract, position float64, avgCost float64) {
	r.deliver(ctx, "position", account, contract, position, avgCost)
}

func (r *Receiver) PositionEnd(ctx context.Context) { r.deliver(ctx, "positionEnd") }

func (r *Receiver) AccountSummary(ctx context.Context, reqID int, account, tag, value, currency string) {
	r.deliver(ctx, "accountSummary", reqID, account, tag, value, currency)
}

func (r *Receiver) AccountSummaryEnd(ctx context.Context, reqID int) {
	r.deliver(ctx, "accountSummaryEnd", reqID)
}

func (r *Receiver) HistoricalData(ctx context.Context, reqID int, bar broker.BarData) {
	r.deliver(ctx, "historicalData", reqID, bar)
}

func (r *Receiver) HistoricalDataEnd(ctx context.Context, reqID int, start, end string) {
	r.deliver(ctx, "historicalDataEnd", reqID, start, end)
}

func (r *Receiver) ExecDetails(ctx context.Context, reqID int, contract broker.Contract, execution broker.Execution) {
	r.deliver(ctx, "execDetails", reqID, contract, execution)
}

func (r *Receiver) ExecDetailsEnd(ctx context.Context, reqID int) {
	r.deliver(ctx, "execDetailsEnd", reqID)
}
