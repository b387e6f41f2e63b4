package broker

// Tick types used by TickPrice/TickSize/TickString.
const (
	TickBidSize  = 0
	TickBid      = 1
	TickAsk      = 2
	TickAskSize  = 3
	TickLast     = 4
	TickLastSize = 5
	TickHigh     = 6
	TickLow      = 7
	TickVolume   = 8
	TickClose    = 9
	TickOpen     = 14
	TickLastTime = 45
)

// Error codes sent through Wrapper.Error by the backends.
const (
	CodeConnectivityLost = 1100
	CodeOrderRejected    = 201
	CodeNoSecurity       = 200
)

// Contract identifies an instrument. ConID carries the backend's numeric
// instrument id when it has one.
type Contract struct {
	ConID       int     `json:"conId,omitempty"`
	Symbol      string  `json:"symbol"`
	SecType     string  `json:"secType,omitempty"`
	Exchange    string  `json:"exchange,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	LocalSymbol string  `json:"localSymbol,omitempty"`
	Strike      float64 `json:"strike,omitempty"`
	Right       string  `json:"right,omitempty"`
	Expiry      string  `json:"lastTradeDateOrContractMonth,omitempty"`
}

// Order is the order ticket passed to placeOrder.
type Order struct {
	OrderID       int     `json:"orderId,omitempty"`
	Action        string  `json:"action"`
	TotalQuantity float64 `json:"totalQuantity"`
	OrderType     string  `json:"orderType"`
	LmtPrice      float64 `json:"lmtPrice,omitempty"`
	AuxPrice      float64 `json:"auxPrice,omitempty"`
	Tif           string  `json:"tif,omitempty"`
	OrderRef      string  `json:"orderRef,omitempty"`
	Account       string  `json:"account,omitempty"`
}

// OrderState accompanies openOrder.
type OrderState struct {
	Status        string  `json:"status"`
	Commission    float64 `json:"commission,omitempty"`
	WarningText   string  `json:"warningText,omitempty"`
	CompletedTime string  `json:"completedTime,omitempty"`
}

type TickAttrib struct {
	CanAutoExecute bool `json:"canAutoExecute,omitempty"`
	PastLimit      bool `json:"pastLimit,omitempty"`
	PreOpen        bool `json:"preOpen,omitempty"`
}

// BarData is one historical bar.
type BarData struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
	WAP      float64 `json:"wap,omitempty"`
	BarCount int     `json:"barCount,omitempty"`
}

type Execution struct {
	ExecID   string  `json:"execId"`
	OrderID  int     `json:"orderId"`
	Time     string  `json:"time"`
	Account  string  `json:"acctNumber,omitempty"`
	Exchange string  `json:"exchange,omitempty"`
	Side     string  `json:"side"`
	Shares   float64 `json:"shares"`
	Price    float64 `json:"price"`
}

type ExecutionFilter struct {
	ClientID int    `json:"clientId,omitempty"`
	Account  string `json:"acctCode,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Side     string `json:"side,omitempty"`
}

type TagValue struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}
