package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ibconn/internal/broker"
	"ibconn/internal/dispatcher"
	"ibconn/internal/logger"
	"ibconn/internal/message"
	"ibconn/internal/trace"
)

var mktDataSymbols []string

// listenCmd connects and logs every subscribed message until interrupted
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Connect and log broker messages",
	Long: "Connects to the configured backend, logs every message type listed under " +
		"'subscribe' (all when empty) and optionally streams market data until SIGINT/SIGTERM.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(ctx, configPath)
		if err != nil {
			return err
		}
		s, err := openSession(ctx, cfg, initializeBroker(ctx, cfg))
		if err != nil {
			return err
		}
		defer s.close(context.Background())

		return runListen(ctx, s, cfg.Subscribe, mktDataSymbols, cfg.Exchange)
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().StringSliceVar(&mktDataSymbols, "mkt-data", nil, "symbols to request market data for")
}

// logListener logs each message inside its own dispatch span.
func logListener() *dispatcher.FuncListener {
	return dispatcher.Func(func(ctx context.Context, msg *message.Message) error {
		ctx, span := trace.StartSpan(ctx, "dispatch."+msg.TypeName())
		defer span.End()
		logger.Message(ctx, msg)
		return nil
	})
}

// runListen blocks until ctx is done or the broker closes the session.
func runListen(ctx context.Context, s *session, types, symbols []string, exchange string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := s.conn
	printer := logListener()
	if err := conn.Register(printer, types...); err != nil {
		return err
	}
	conn.RegisterError(printer)

	closed := dispatcher.Func(func(ctx context.Context, _ *message.Message) error {
		logger.Warn(ctx, "Broker closed the connection")
		cancel()
		return nil
	})
	if err := conn.Register(closed, "ConnectionClosed"); err != nil {
		return err
	}

	if err := s.connect(ctx); err != nil {
		return err
	}

	for i, symbol := range symbols {
		contract := broker.Contract{Symbol: symbol, SecType: "STK", Exchange: exchange}
		if err := conn.ReqMktData(ctx, i+1, contract, "", false, false, nil); err != nil {
			logger.ErrorWithErr(ctx, "Market data request failed", err, "symbol", symbol)
		}
	}

	logger.Info(ctx, "Listening for broker messages", "types", len(types), "symbols", symbols)
	<-ctx.Done()
	logger.Info(context.Background(), "Shutting down...")
	return nil
}
