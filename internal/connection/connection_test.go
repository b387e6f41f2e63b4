package connection

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibconn/internal/broker"
	"ibconn/internal/broker/brokertest"
	"ibconn/internal/broker/paper"
	"ibconn/internal/dispatcher"
	"ibconn/internal/message"
	"ibconn/internal/receiver"
	"ibconn/internal/sender"
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

func TestCreateDefaults(t *testing.T) {
	c := Create()

	assert.Equal(t, "localhost", c.Host())
	assert.Equal(t, 7496, c.Port())
	assert.Equal(t, 0, c.ClientID())
	require.NotNil(t, c.Dispatcher())
	require.NotNil(t, c.Receiver())
	require.NotNil(t, c.Sender())
	assert.Same(t, c.Dispatcher(), c.Receiver().Dispatcher())
	assert.IsType(t, &paper.Client{}, c.Sender().Client())

	_, err := uuid.Parse(c.SessionID())
	assert.NoError(t, err)
	assert.NotEqual(t, c.SessionID(), Create().SessionID())
}

func TestCreateWithParts(t *testing.T) {
	d := dispatcher.New()
	r := receiver.New(d)
	client := &brokertest.Client{}
	s := sender.New(client, d)

	c := Create(WithHost("gw"), WithPort(4002), WithClientID(7), WithDispatcher(d), WithReceiver(r), WithSender(s))
	assert.Same(t, d, c.Dispatcher())
	assert.Same(t, r, c.Receiver())
	assert.Same(t, s, c.Sender())

	ok, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	host, port, id := client.Endpoint()
	assert.Equal(t, "gw", host)
	assert.Equal(t, 4002, port)
	assert.Equal(t, 7, id)
	assert.Same(t, r, client.Wrapper())
}

func TestConnectionExposesSenderAndDispatcher(t *testing.T) {
	client := &brokertest.Client{}
	c := Create(WithClient(client))
	l := &recorder{}
	require.NoError(t, c.Register(l, "ReqMktDataPre", "ReqMktDataPost"))

	ok, err := c.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, c.IsConnected())

	require.NoError(t, c.ReqMktData(context.Background(), 1, broker.Contract{Symbol: "INFY"}, "", false, false, nil))
	assert.Equal(t, []string{"ReqMktDataPre", "ReqMktDataPost"}, l.types())
	require.Len(t, client.Calls(), 1)
	assert.Equal(t, "reqMktData", client.Calls()[0].Method)

	c.Unregister(l)
	require.NoError(t, c.CancelMktData(context.Background(), 1))
	assert.Len(t, l.got, 2)
}

func TestDispatchThroughConnection(t *testing.T) {
	c := Create()
	l := &recorder{}
	errs := &recorder{}
	require.NoError(t, c.Register(l, "TickPrice"))
	c.RegisterError(errs)

	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, "TickPrice", message.Fields{"reqId": 1, "tickType": 4, "price": 101.25}))
	require.NoError(t, c.Dispatch(ctx, "Error", message.Fields{"id": 1, "errorCode": 200}))
	c.UnregisterError(errs)
	require.NoError(t, c.Dispatch(ctx, "Error", message.Fields{"id": 2}))

	assert.Equal(t, []string{"TickPrice"}, l.types())
	assert.Equal(t, []string{"Error"}, errs.types())
}

func TestCallResolvesReceiverThenSender(t *testing.T) {
	client := &brokertest.Client{}
	c := Create(WithClient(client))
	l := &recorder{}
	require.NoError(t, c.Register(l))
	ctx := context.Background()

	require.NoError(t, c.Call(ctx, "tickPrice", 1, 4, 99.5))
	require.NoError(t, c.Call(ctx, "reqPositions"))

	assert.Equal(t, []string{"TickPrice", "ReqPositionsPre", "ReqPositionsPost"}, l.types())
	assert.Equal(t, "reqPositions", client.Calls()[0].Method)
}

func TestCallUnknownNameIsAttributeError(t *testing.T) {
	c := Create()
	err := c.Call(context.Background(), "noSuchThing")

	var attrErr *AttributeError
	require.True(t, errors.As(err, &attrErr))
	assert.Equal(t, "noSuchThing", attrErr.Name)
	assert.Equal(t, "'Connection' object has no attribute 'noSuchThing'", err.Error())

	assert.Error(t, c.Call(context.Background(), "connect"))
}

func TestPaperSessionEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	c := Create(
		WithClient(paper.New(paper.Params{Prices: map[string]float64{"INFY": 1500}})),
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
	)
	l := &recorder{}
	require.NoError(t, c.Register(l, "NextValidId", "OrderStatus", "PlaceOrderPre", "PlaceOrderPost"))

	ctx := context.Background()
	ok, err := c.Connect(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.PlaceOrder(ctx, 1, broker.Contract{Symbol: "INFY"}, broker.Order{Action: "BUY", TotalQuantity: 1, OrderType: "MKT"}))
	assert.Equal(t, []string{"NextValidId", "PlaceOrderPre", "OrderStatus", "PlaceOrderPost"}, l.types())
	assert.Contains(t, buf.String(), c.SessionID())

	require.NoError(t, c.Disconnect(ctx))
	assert.ErrorIs(t, c.ReqPositions(ctx), broker.ErrNotConnected)
}
