package paper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibconn/internal/broker"
	"ibconn/internal/dispatcher"
	"ibconn/internal/message"
	"ibconn/internal/receiver"
)

type recorder struct {
	got []*message.Message
}

func (r *recorder) Handle(_ context.Context, msg *message.Message) error {
	r.got = append(r.got, msg)
	return nil
}

func (r *recorder) types() []string {
	out := make([]string, len(r.got))
	for i, m := range r.got {
		out[i] = m.TypeName()
	}
	return out
}

func (r *recorder) reset() { r.got = nil }

var fixedNow = time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)

func connected(t *testing.T, p Params) (*Client, *recorder) {
	t.Helper()
	if p.Now == nil {
		p.Now = func() time.Time { return fixedNow }
	}
	d := dispatcher.New()
	l := &recorder{}
	require.NoError(t, d.Register(l))
	c := New(p)
	require.NoError(t, c.Connect(context.Background(), "localhost", 7496, 0, receiver.New(d)))
	return c, l
}

var infy = broker.Contract{Symbol: "INFY", Exchange: "NSE"}

func TestConnectHandshake(t *testing.T) {
	c, l := connected(t, Params{Account: "DU1"})

	assert.True(t, c.IsConnected())
	assert.Equal(t, []string{"ConnectAck", "NextValidId", "ManagedAccounts"}, l.types())
	assert.Equal(t, int64(1), l.got[1].Int("orderId"))
	assert.Equal(t, "DU1", l.got[2].Text("accountsList"))

	l.reset()
	require.NoError(t, c.Disconnect(context.Background()))
	assert.False(t, c.IsConnected())
	assert.Equal(t, []string{"ConnectionClosed"}, l.types())
}

func TestRequestBeforeConnect(t *testing.T) {
	c := New(Params{})
	assert.ErrorIs(t, c.Request(context.Background(), "reqCurrentTime"), broker.ErrNotConnected)
}

func TestCurrentTimeAndIDs(t *testing.T) {
	c, l := connected(t, Params{})
	l.reset()
	ctx := context.Background()

	require.NoError(t, c.Request(ctx, "reqCurrentTime"))
	require.NoError(t, c.Request(ctx, "reqIds", 1))
	require.NoError(t, c.Request(ctx, "reqMarketDataType", 3))

	assert.Equal(t, []string{"CurrentTime", "NextValidId"}, l.types())
	assert.Equal(t, fixedNow.Unix(), l.got[0].Int("time"))
}

func TestMarketOrderFillsAndUpdatesPosition(t *testing.T) {
	c, l := connected(t, Params{Prices: map[string]float64{"infy": 1500}})
	l.reset()
	ctx := context.Background()

	require.NoError(t, c.Request(ctx, "placeOrder", 1, infy, broker.Order{Action: "BUY", TotalQuantity: 10, OrderType: "MKT"}))
	assert.Equal(t, []string{"OpenOrder", "OrderStatus", "ExecDetails"}, l.types())
	status := l.got[1]
	assert.Equal(t, "Filled", status.Text("status"))
	assert.Equal(t, 10.0, status.Float("filled"))
	assert.Equal(t, 1500.0, status.Float("avgFillPrice"))

	require.NoError(t, c.Request(ctx, "placeOrder", 2, infy, broker.Order{Action: "BUY", TotalQuantity: 10, OrderType: "MKT"}))
	c.SetPrice(ctx, "INFY", 1600)
	require.NoError(t, c.Request(ctx, "placeOrder", 3, infy, broker.Order{Action: "SELL", TotalQuantity: 5, OrderType: "MKT"}))

	l.reset()
	require.NoError(t, c.Request(ctx, "reqPositions"))
	require.Equal(t, []string{"Position", "PositionEnd"}, l.types())
	pos := l.got[0]
	assert.Equal(t, 15.0, pos.Float("position"))
	assert.Equal(t, 1500.0, pos.Float("avgCost"))

	l.reset()
	require.NoError(t, c.Request(ctx, "reqExecutions", 7, broker.ExecutionFilter{}))
	assert.Equal(t, []string{"ExecDetails", "ExecDetails", "ExecDetails", "ExecDetailsEnd"}, l.types())
	assert.Equal(t, int64(7), l.got[0].Int("reqId"))
}

func TestLimitOrderRestsThenFills(t *testing.T) {
	c, l := connected(t, Params{Prices: map[string]float64{"INFY": 1500}})
	ctx := context.Background()
	require.NoError(t, c.Request(ctx, "reqMktData", 9, infy, "", false, false, nil))
	l.reset()

	require.NoError(t, c.Request(ctx, "placeOrder", 4, infy, broker.Order{Action: "BUY", TotalQuantity: 1, OrderType: "LMT", LmtPrice: 1450}))
	assert.Equal(t, []string{"OpenOrder", "OrderStatus"}, l.types())
	assert.Equal(t, "Submitted", l.got[1].Text("status"))

	l.reset()
	require.NoError(t, c.Request(ctx, "reqOpenOrders"))
	assert.Equal(t, []string{"OpenOrder", "OpenOrderEnd"}, l.types())

	l.reset()
	c.SetPrice(ctx, "INFY", 1440)
	assert.Equal(t, []string{"TickPrice", "OpenOrder", "OrderStatus", "ExecDetails"}, l.types())
	assert.Equal(t, 1440.0, l.got[0].Float("price"))
	assert.Equal(t, "Filled", l.got[2].Text("status"))
}

func TestCancelOrder(t *testing.T) {
	c, l := connected(t, Params{Prices: map[string]float64{"INFY": 1500}})
	ctx := context.Background()
	require.NoError(t, c.Request(ctx, "placeOrder", 4, infy, broker.Order{Action: "SELL", TotalQuantity: 1, OrderType: "LMT", LmtPrice: 1600}))
	require.NoError(t, c.Request(ctx, "placeOrder", 5, infy, broker.Order{Action: "SELL", TotalQuantity: 1, OrderType: "MKT"}))
	l.reset()

	require.NoError(t, c.Request(ctx, "cancelOrder", 4, ""))
	require.NoError(t, c.Request(ctx, "cancelOrder", 5, ""))
	require.NoError(t, c.Request(ctx, "cancelOrder", 99, ""))

	require.Equal(t, []string{"OrderStatus", "Error", "Error"}, l.types())
	assert.Equal(t, "Cancelled", l.got[0].Text("status"))
	assert.Equal(t, int64(10148), l.got[1].Int("errorCode"))
	assert.Equal(t, int64(135), l.got[2].Int("errorCode"))
}

func TestGlobalCancel(t *testing.T) {
	c, l := connected(t, Params{Prices: map[string]float64{"INFY": 1500}})
	ctx := context.Background()
	for id := 1; id <= 2; id++ {
		require.NoError(t, c.Request(ctx, "placeOrder", id, infy, broker.Order{Action: "BUY", TotalQuantity: 1, OrderType: "LMT", LmtPrice: 1000}))
	}
	l.reset()

	require.NoError(t, c.Request(ctx, "reqGlobalCancel"))
	assert.Equal(t, []string{"OrderStatus", "OrderStatus"}, l.types())

	l.reset()
	require.NoError(t, c.Request(ctx, "reqAllOpenOrders"))
	assert.Equal(t, []string{"OpenOrderEnd"}, l.types())
}

func TestRejectsAndUnknownPrices(t *testing.T) {
	c, l := connected(t, Params{})
	ctx := context.Background()
	l.reset()

	require.NoError(t, c.Request(ctx, "placeOrder", 1, infy, broker.Order{Action: "HOLD", TotalQuantity: 1}))
	require.NoError(t, c.Request(ctx, "placeOrder", 2, infy, broker.Order{Action: "BUY", TotalQuantity: 1, OrderType: "MKT"}))
	require.NoError(t, c.Request(ctx, "reqMktData", 3, infy, "", true, false, nil))

	require.Equal(t, []string{"Error", "Error", "Error"}, l.types())
	assert.Equal(t, int64(broker.CodeOrderRejected), l.got[0].Int("errorCode"))
	assert.Equal(t, int64(broker.CodeNoSecurity), l.got[1].Int("errorCode"))
	assert.Equal(t, int64(3), l.got[2].Int("id"))

	assert.ErrorIs(t, c.Request(ctx, "placeOrder", "x", infy, broker.Order{}), broker.ErrBadArgument)
}

func TestAccountSummary(t *testing.T) {
	c, l := connected(t, Params{Cash: 5000, Currency: "USD"})
	l.reset()

	require.NoError(t, c.Request(context.Background(), "reqAccountSummary", 2, "All", "TotalCashValue"))
	require.Equal(t, []string{"AccountSummary", "AccountSummaryEnd"}, l.types())
	assert.Equal(t, "5000.00", l.got[0].Text("value"))
	assert.Equal(t, "USD", l.got[0].Text("currency"))
}

func TestNextAvgCost(t *testing.T) {
	tests := []struct {
		name                string
		qty, avg, delta, px float64
		want                float64
	}{
		{"open", 0, 0, 10, 100, 100},
		{"add", 10, 100, 10, 110, 105},
		{"reduce keeps avg", 10, 100, -5, 120, 100},
		{"close", 10, 100, -10, 120, 0},
		{"flip", 10, 100, -15, 120, 120},
		{"add short", -10, 100, -10, 90, 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, nextAvgCost(tt.qty, tt.avg, tt.delta, tt.px), 1e-9)
		})
	}
}
