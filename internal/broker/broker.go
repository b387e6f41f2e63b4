// Package broker defines the collaborator API the connection layer wraps:
// a Client that issues requests and a Wrapper that receives callbacks.
package broker

import (
	"context"
	"errors"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrUnsupported  = errors.New("request not supported by broker backend")
)

// Client is the outbound side of a broker session.
type Client interface {
	// Connect opens the session and blocks until the handshake completes.
	// Callbacks are delivered to w from then on.
	Connect(ctx context.Context, host string, port int, clientID int, w Wrapper) error

	// Disconnect closes the session.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the session is up.
	IsConnected() bool

	// Request issues a req*/cancel*/place* call with its positional
	// arguments, in the order of the method's signature.
	Request(ctx context.Context, method string, args ...any) error
}

// Wrapper is the inbound side: backends call these as server messages
// arrive. Receive covers every callback without a dedicated method.
type Wrapper interface {
	ConnectAck(ctx context.Context)
	ConnectionClosed(ctx context.Context)
	NextValidID(ctx context.Context, orderID int)
	CurrentTime(ctx context.Context, t int64)
	ManagedAccounts(ctx context.Context, accountsList string)
	Error(ctx context.Context, reqID int, errorCode int, errorMsg string, advancedOrderRejectJSON string)

	TickPrice(ctx context.Context, reqID int, tickType int, price float64, attrib TickAttrib)
	TickSize(ctx context.Context, reqID int, tickType int, size float64)
	TickString(ctx context.Context, reqID int, tickType int, value string)

	OrderStatus(ctx context.Context, orderID int, status string, filled, remaining, avgFillPrice float64,
		permID, parentID int, lastFillPrice float64, clientID int, whyHeld string, mktCapPrice float64)
	OpenOrder(ctx context.Context, orderID int, contract Contract, order Order, state OrderState)
	OpenOrderEnd(ctx context.Context)

	Position(ctx context.Context, account string, contract Contract, position float64, avgCost float64)
	PositionEnd(ctx context.Context)
	AccountSummary(ctx context.Context, reqID int, account, tag, value, currency string)
	AccountSummaryEnd(ctx context.Context, reqID int)

	HistoricalData(ctx context.Context, reqID int, bar BarData)
	HistoricalDataEnd(ctx context.Context, reqID int, start, end string)

	ExecDetails(ctx context.Context, reqID int, contract Contract, execution Execution)
	ExecDetailsEnd(ctx context.Context, reqID int)

	Receive(ctx context.Context, method string, args ...any) error
}
