package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"ibconn/internal/broker"
	"ibconn/internal/broker/brokerobs"
	"ibconn/internal/broker/paper"
	"ibconn/internal/broker/zerodha"
	"ibconn/internal/connection"
	"ibconn/internal/journal"
	"ibconn/internal/logger"
	"ibconn/internal/store"
	"ibconn/internal/trace"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig loads the config file, falling back to defaults when the
// file does not exist.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "Config file not found - using defaults", "path", path)
		return store.Default(), nil
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeBroker returns the backend for the configured mode, wrapped
// with observability.
func initializeBroker(ctx context.Context, cfg *store.Config) broker.Client {
	var client broker.Client
	if cfg.Mode == store.ModeLive {
		client = zerodha.New(zerodha.Params{
			APIKey:      os.Getenv("KITE_API_KEY"),
			AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
			Exchange:    cfg.Exchange,
			Product:     cfg.Product,
			Instruments: cfg.Instruments,
		})
		logger.Info(ctx, "Using LIVE Zerodha backend", "exchange", cfg.Exchange)
	} else {
		client = paper.New(paper.Params{
			Account: cfg.Paper.Account,
			Cash:    cfg.Paper.Cash,
			Prices:  cfg.Paper.Prices,
		})
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	return brokerobs.Wrap(client)
}

// session is a connection plus what has to be released with it.
type session struct {
	cfg     *store.Config
	conn    *connection.Connection
	journal *journal.Journal
}

// openSession builds the connection for cfg, attaching the journal when
// it is enabled. It does not connect.
func openSession(ctx context.Context, cfg *store.Config, client broker.Client) (*session, error) {
	conn := connection.Create(
		connection.WithHost(cfg.Connection.Host),
		connection.WithPort(cfg.Connection.Port),
		connection.WithClientID(cfg.Connection.ClientID),
		connection.WithClient(client),
		connection.WithLogger(logger.Logger()),
	)
	s := &session{cfg: cfg, conn: conn}

	if cfg.Journal.Enabled {
		j, err := journal.Open(ctx, cfg.Journal.Path, conn.SessionID())
		if err != nil {
			return nil, err
		}
		if err := conn.Register(j); err != nil {
			j.Close()
			return nil, fmt.Errorf("failed to register journal: %w", err)
		}
		s.journal = j
	}
	return s, nil
}

// connect opens the broker session within the configured timeout.
func (s *session) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout())
	defer cancel()

	if _, err := s.conn.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s:%d: %w", s.conn.Host(), s.conn.Port(), err)
	}
	return nil
}

func (s *session) close(ctx context.Context) {
	if s.conn.IsConnected() {
		if err := s.conn.Disconnect(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Failed to disconnect", err)
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			logger.ErrorWithErr(ctx, "Failed to close journal", err)
		}
	}
}
