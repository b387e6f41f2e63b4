package sender

import (
	"context"

	"ibconn/internal/broker"
)

func (s *Sender) ReqCurrentTime(ctx context.Context) error {
	return s.Call(ctx, "reqCurrentTime")
}

func (s *Sender) ReqIDs(ctx context.Context, numIDs int) error {
	return s.Call(ctx, "reqIds", numIDs)
}

func (s *Sender) ReqMktData(ctx context.Context, reqID int, contract broker.Contract, genericTickList string,
	snapshot, regulatorySnapshot bool, options []broker.TagValue) error {
	return s.Call(ctx, "reqMktData", reqID, contract, genericTickList, snapshot, regulatorySnapshot, options)
}

func (s *Sender) CancelMktData(ctx context.Context, reqID int) error {
	return s.Call(ctx, "cancelMktData", reqID)
}

func (s *Sender) ReqMarketDataType(ctx context.Context, marketDataType int) error {
	return s.Call(ctx, "reqMarketDataType", marketDataType)
}

func (s *Sender) PlaceOrder(ctx context.Context, orderID int, contract broker.Contract, order broker.Order) error {
	return s.Call(ctx, "placeOrder", orderID, contract, order)
}

func (s *Sender) CancelOrder(ctx context.Context, orderID int, manualCancelOrderTime string) error {
	return s.Call(ctx, "cancelOrder", orderID, manualCancelOrderTime)
}

func (s *Sender) ReqOpenOrders(ctx context.Context) error {
	return s.Call(ctx, "reqOpenOrders")
}

func (s *Sender) ReqAllOpenOrders(ctx context.Context) error {
	return s.Call(ctx, "reqAllOpenOrders")
}

func (s *Sender) ReqGlobalCancel(ctx context.Context) error {
	return s.Call(ctx, "reqGlobalCancel")
}

func (s *Sender) ReqPositions(ctx context.Context) error {
	return s.Call(ctx, "reqPositions")
}

func (s *Sender) CancelPositions(ctx context.Context) error {
	return s.Call(ctx, "cancelPositions")
}

func (s *Sender) ReqAccountSummary(ctx context.Context, reqID int, groupName, tags string) error {
	return s.Call(ctx, "reqAccountSummary", reqID, groupName, tags)
}

func (s *Sender) CancelAccountSummary(ctx context.Context, reqID int) error {
	return s.Call(ctx, "cancelAccountSummary", reqID)
}

func (s *Sender) ReqAccountUpdates(ctx context.Context, subscribe bool, acctCode string) error {
	return s.Call(ctx, "reqAccountUpdates", subscribe, acctCode)
}

func (s *Sender) ReqExecutions(ctx context.Context, reqID int, filter broker.ExecutionFilter) error {
	return s.Call(ctx, "reqExecutions", reqID, filter)
}

func (s *Sender) ReqContractDetails(ctx context.Context, reqID int, contract broker.Contract) error {
	return s.Call(ctx, "reqContractDetails", reqID, contract)
}

// ReqHistoricalData asks for bars ending at endDateTime; durationStr and
// barSizeSetting use the broker's "1 D" / "5 mins" notation.
func (s *Sender) ReqHistoricalData(ctx context.Context, reqID int, contract broker.Contract, endDateTime, durationStr,
	barSizeSetting, whatToShow string, useRTH, formatDate int, keepUpToDate bool, chartOptions []broker.TagValue) error {
	return s.Call(ctx, "reqHistoricalData", reqID, contract, endDateTime, durationStr, barSizeSetting,
		whatToShow, useRTH, formatDate, keepUpToDate, chartOptions)
}

func (s *Sender) CancelHistoricalData(ctx context.Context, reqID int) error {
	return s.Call(ctx, "cancelHistoricalData", reqID)
}

func (s *Sender) ReqManagedAccts(ctx context.Context) error {
	return s.Call(ctx, "reqManagedAccts")
}
