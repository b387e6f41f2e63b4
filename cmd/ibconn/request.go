package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ibconn/internal/dispatcher"
	"ibconn/internal/message"
)

var responseWait time.Duration

// requestCmd issues one request and prints the messages it produces
var requestCmd = &cobra.Command{
	Use:   "request <method> [json-arg...]",
	Short: "Issue one broker request",
	Long: "Connects, issues a single req*/cancel*/place* request with its positional " +
		"arguments given as JSON values, and prints every message as a JSON line. " +
		`Example: ibconn request reqMktData 1 '{"symbol":"INFY"}' '""' false false`,
	Args: cobra.MinimumNArgs(1),
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

		return runRequest(ctx, s, args[0], args[1:], responseWait, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.Flags().DurationVarP(&responseWait, "wait", "w", 2*time.Second, "how long to wait for responses")
}

// jsonPrinter writes each message to w as one JSON line.
func jsonPrinter(w io.Writer) *dispatcher.FuncListener {
	var mu sync.Mutex
	return dispatcher.Func(func(_ context.Context, msg *message.Message) error {
		b, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		_, err = fmt.Fprintln(w, string(b))
		return err
	})
}

func runRequest(ctx context.Context, s *session, method string, raw []string, wait time.Duration, out io.Writer) error {
	conn := s.conn
	args, err := parseRequestArgs(conn.Dispatcher().Registry(), method, raw)
	if err != nil {
		return err
	}

	printer := jsonPrinter(out)
	if err := conn.Register(printer); err != nil {
		return err
	}
	defer conn.Unregister(printer)

	if err := s.connect(ctx); err != nil {
		return err
	}
	if err := conn.Call(ctx, method, args...); err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}

	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
	return nil
}
