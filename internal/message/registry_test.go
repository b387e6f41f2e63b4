package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
wrapper:
  name: TestWrapper
  methods:
    - __init__()
    - error(reqId int, errorCode int, errorString string)
    - errorSomethingElse(text string)
    - tickPrice(reqId int, tickType int, price float64, attrib TickAttrib)
    - connectAck()
    - nextValidId(orderId int)
client:
  name: TestClient
  methods:
    - __init__(wrapper Wrapper)
    - connect(host string, port int, clientId int)
    - isConnected()
    - reqMktData(reqId int, contract Contract, genericTickList string, snapshot bool)
    - cancelMktData(reqId int)
    - placeOrder(orderId int, contract Contract, order Order)
    - requestFA(faData int)
`

func TestBuildFromSchema(t *testing.T) {
	r, err := Load([]byte(testSchema))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"CancelMktDataPost", "CancelMktDataPre",
		"ConnectAck", "Error", "NextValidId",
		"PlaceOrderPost", "PlaceOrderPre",
		"ReqMktDataPost", "ReqMktDataPre",
		"RequestFAPost", "RequestFAPre",
		"TickPrice",
	}, r.TypeNames())

	for _, excluded := range []string{"__init__", "errorSomethingElse", "connect", "isConnected"} {
		assert.Empty(t, r.Types(excluded), excluded)
	}
	assert.Equal(t, []string{"cancelMktData", "placeOrder", "reqMktData", "requestFA"}, r.RequestMethods())
}

func TestCallbackTypeMatchesSignature(t *testing.T) {
	r, err := Load([]byte(testSchema))
	require.NoError(t, err)

	types := r.Types("tickPrice")
	require.Len(t, types, 1)
	tp := types[0]
	assert.Equal(t, "TickPrice", tp.Name)
	assert.Equal(t, "tickPrice", tp.Method)
	assert.Equal(t, []string{"reqId", "tickType", "price", "attrib"}, tp.FieldNames())
	assert.Equal(t, KindInt, tp.Fields[0].Kind)
	assert.Equal(t, KindFloat, tp.Fields[2].Kind)
	assert.Equal(t, KindAny, tp.Fields[3].Kind)
	assert.Equal(t, "TickAttrib", tp.Fields[3].GoType)
	assert.False(t, r.IsRequest("tickPrice"))
}

func TestRequestHasPreAndPost(t *testing.T) {
	r, err := Load([]byte(testSchema))
	require.NoError(t, err)

	types := r.Types("reqMktData")
	require.Len(t, types, 2)
	assert.Equal(t, "ReqMktDataPre", types[0].Name)
	assert.Equal(t, VariantPre, types[0].Variant)
	assert.Equal(t, "ReqMktDataPost", types[1].Name)
	assert.Equal(t, VariantPost, types[1].Variant)
	assert.Equal(t, types[0].FieldNames(), types[1].FieldNames())
	assert.Equal(t, []string{"reqId", "contract", "genericTickList", "snapshot"}, types[0].FieldNames())

	post, ok := r.Variant("reqMktData", VariantPost)
	require.True(t, ok)
	assert.Same(t, types[1], post)
}

func TestErrorTypeIsFixed(t *testing.T) {
	for name, reg := range map[string]func() (*Registry, error){
		"test schema": func() (*Registry, error) { return Load([]byte(testSchema)) },
		"default":     func() (*Registry, error) { return Default(), nil },
	} {
		t.Run(name, func(t *testing.T) {
			r, err := reg()
			require.NoError(t, err)

			typ, ok := r.Lookup("Error")
			require.True(t, ok)
			assert.True(t, typ.IsError)
			assert.Equal(t, "error", typ.Method)
			assert.Equal(t, []string{"id", "errorCode", "errorMsg", "advancedOrderRejectJson"}, typ.FieldNames())
			assert.Equal(t, []*Type{typ}, r.Types("error"))
		})
	}
}

func TestDefaultRegistryCoversSchema(t *testing.T) {
	s, err := ParseSchema(embeddedSchema)
	require.NoError(t, err)
	r := Default()

	for _, sig := range s.Wrapper.Methods {
		types := r.Types(sig.Name)
		if !IsCallback(sig.Name) {
			if sig.Name != "error" {
				assert.Empty(t, types, sig.Name)
			}
			continue
		}
		require.Len(t, types, 1, sig.Name)
		assert.Equal(t, names(sig.Params), types[0].FieldNames(), sig.Name)
	}

	for _, sig := range s.Client.Methods {
		types := r.Types(sig.Name)
		if !IsRequestName(sig.Name) {
			assert.Empty(t, types, sig.Name)
			continue
		}
		require.Len(t, types, 2, sig.Name)
		assert.Equal(t, names(sig.Params), types[0].FieldNames(), sig.Name)
		assert.Equal(t, names(sig.Params), types[1].FieldNames(), sig.Name)
	}

	typ, ok := r.Lookup("TickPrice")
	require.True(t, ok)
	assert.Equal(t, "tickPrice", typ.Method)
	assert.True(t, r.IsRequest("reqMktData"))
	assert.True(t, r.IsRequest("placeOrder"))
	assert.True(t, r.IsRequest("cancelOrder"))
	assert.False(t, r.IsRequest("connect"))
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name     string
		callback bool
		request  bool
	}{
		{"tickPrice", true, false},
		{"error", false, false},
		{"ErrorCallback", false, false},
		{"__init__", false, false},
		{"reqIds", true, true},
		{"ReqIds", true, true},
		{"cancelOrder", true, true},
		{"placeOrder", true, true},
		{"requestFA", true, true},
		{"connect", true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.callback, IsCallback(tt.name), "IsCallback(%s)", tt.name)
		assert.Equal(t, tt.request, IsRequestName(tt.name), "IsRequestName(%s)", tt.name)
	}
}

func TestLoadFailures(t *testing.T) {
	tests := map[string]string{
		"not yaml":       "wrapper: [",
		"empty":          "",
		"no client":      "wrapper:\n  methods:\n    - tickPrice(reqId int)\n",
		"bad signature":  "wrapper:\n  methods:\n    - tickPrice reqId int\nclient:\n  methods:\n    - reqIds(numIds int)\n",
		"unnamed param":  "wrapper:\n  methods:\n    - tickPrice(int)\nclient:\n  methods:\n    - reqIds(numIds int)\n",
		"duplicate":      "wrapper:\n  methods:\n    - tickPrice(reqId int)\n    - tickPrice(reqId int)\nclient:\n  methods:\n    - reqIds(numIds int)\n",
		"parser failure": "wrapper:\n  methods:\n    - tickPrice(reqId int,, x)\nclient:\n  methods:\n    - reqIds(numIds int)\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := Load([]byte(doc))
			assert.Nil(t, r)
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestParseSignature(t *testing.T) {
	sig, err := ParseSignature("  historicalSchedule(reqId int, startDateTime, endDateTime string, sessions []HistoricalSession) ")
	require.NoError(t, err)
	assert.Equal(t, "historicalSchedule", sig.Name)
	assert.Equal(t, []string{"reqId", "startDateTime", "endDateTime", "sessions"}, names(sig.Params))
	assert.Equal(t, "string", sig.Params[1].GoType)
	assert.Equal(t, "[]HistoricalSession", sig.Params[3].GoType)

	sig, err = ParseSignature("connectAck()")
	require.NoError(t, err)
	assert.Empty(t, sig.Params)
}

func names(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}
