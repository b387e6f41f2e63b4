package connection

import (
	"context"

	"ibconn/internal/broker"
)

func (c *Connection) ReqCurrentTime(ctx context.Context) error { return c.sender.ReqCurrentTime(ctx) }

func (c *Connection) ReqIDs(ctx context.Context, numIDs int) error { return c.sender.ReqIDs(ctx, numIDs) }

func (c *Connection) ReqMktData(ctx context.Context, reqID int, contract broker.Contract, genericTickList string,
	snapshot, regulatorySnapshot bool, options []broker.TagValue) error {
	return c.sender.ReqMktData(ctx, reqID, contract, genericTickList, snapshot, regulatorySnapshot, options)
}

func (c *Connection) CancelMktData(ctx context.Context, reqID int) error {
	return c.sender.CancelMktData(ctx, reqID)
}

func (c *Connection) ReqMarketDataType(ctx context.Context, marketDataType int) error {
	return c.sender.ReqMarketDataType(ctx, marketDataType)
}

func (c *Connection) PlaceOrder(ctx context.Context, orderID int, contract broker.Contract, order broker.Order) error {
	return c.sender.PlaceOrder(ctx, orderID, contract, order)
}

func (c *Connection) CancelOrder(ctx context.Context, orderID int, manualCancelOrderTime string) error {
	return c.sender.CancelOrder(ctx, orderID, manualCancelOrderTime)
}

func (c *Connection) ReqOpenOrders(ctx context.Context) error { return c.sender.ReqOpenOrders(ctx) }

func (c *Connection) ReqAllOpenOrders(ctx context.Context) error { return c.sender.ReqAllOpenOrders(ctx) }

func (c *Connection) ReqGlobalCancel(ctx context.Context) error { return c.sender.ReqGlobalCancel(ctx) }

func (c *Connection) ReqPositions(ctx context.Context) error { return c.sender.ReqPositions(ctx) }

func (c *Connection) CancelPositions(ctx context.Context) error { return c.sender.CancelPositions(ctx) }

func (c *Connection) ReqAccountSummary(ctx context.Context, reqID int, groupName, tags string) error {
	return c.sender.ReqAccountSummary(ctx, reqID, groupName, tags)
}

func (c *Connection) CancelAccountSummary(ctx context.Context, reqID int) error {
	return c.sender.CancelAccountSummary(ctx, reqID)
}

func (c *Connection) ReqAccountUpdates(ctx context.Context, subscribe bool, acctCode string) error {
	return c.sender.ReqAccountUpdates(ctx, subscribe, acctCode)
}

func (c *Connection) ReqExecutions(ctx context.Context, reqID int, filter broker.ExecutionFilter) error {
	return c.sender.ReqExecutions(ctx, reqID, filter)
}

func (c *Connection) ReqContractDetails(ctx context.Context, reqID int, contract broker.Contract) error {
	return c.sender.ReqContractDetails(ctx, reqID, contract)
}

func (c *Connection) ReqHistoricalData(ctx context.Context, reqID int, contract broker.Contract, endDateTime, durationStr,
	barSizeSetting, whatToShow string, useRTH, formatDate int, keepUpToDate bool, chartOptions []broker.TagValue) error {
	return c.sender.ReqHistoricalData(ctx, reqID, contract, endDateTime, durationStr, barSizeSetting,
		whatToShow, useRTH, formatDate, keepUpToDate, chartOptions)
}

func (c *Connection) CancelHistoricalData(ctx context.Context, reqID int) error {
	return c.sender.CancelHistoricalData(ctx, reqID)
}

func (c *Connection) ReqManagedAccts(ctx context.Context) error { return c.sender.ReqManagedAccts(ctx) }
