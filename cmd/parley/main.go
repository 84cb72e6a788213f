package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"pkg.parley.chat/parley/internal/config"
	"pkg.parley.chat/parley/internal/gateway"
	"pkg.parley.chat/parley/internal/rest"
	"pkg.parley.chat/parley/internal/session"
)

// app wires config, logging and a session for a connectivity smoke check:
// one authenticated call through the rate-limited executor.
type app struct {
	ctx    context.Context
	cancel context.CancelFunc

	logConf zap.Config
	logger  *zap.Logger

	config  *config.Config
	session *session.Session
}

// offlineConn stands in for the wire connection; the smoke check exercises
// the REST side only.
type offlineConn struct{}

func (offlineConn) Send(int, interface{}) error {
	return errors.New("gateway connection not established")
}

func newApp(ctx context.Context, lcf zap.Config, log *zap.Logger) (*app, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &app{ctx: ctx, cancel: cancel, logConf: lcf, logger: log}
	var err error

	log.Debug("Loading configuration.")
	a.config, err = config.Read()
	if err != nil {
		return nil, fmt.Errorf("couldn't load configuration: %w", err)
	}

	log.Debug("Successfully loaded configuration (also switching log level.)")
	lcf.Level.SetLevel(a.config.Logging.Level)

	log.Debug("Initializing session.")
	rest.RegisterMetrics()
	a.session, err = session.New(ctx, log, a.config, offlineConn{}, rest.NewHTTPTransport())
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize session: %w", err)
	}

	return a, nil
}

func (a *app) Run() error {
	a.logger.Debug("Issuing smoke request against the gateway endpoint.")
	req := rest.NewRequest(http.MethodGet, a.config.Platform.APIBase+"/gateway", nil, "gateway").WithContext(a.ctx)
	resp, err := a.session.Rest().Execute(req)
	if err != nil {
		return fmt.Errorf("smoke request failed: %w", err)
	}

	a.logger.Sugar().Infof("Smoke request completed with status %d.", resp.Code)
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	lcf := zap.NewDevelopmentConfig() // to later switch level without reallocation
	lcf.Level.SetLevel(zapcore.DebugLevel)
	lcf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	lcf.DisableCaller = true
	log, _ := lcf.Build()

	log.Info("Initializing application.")
	a, err := newApp(ctx, lcf, log)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Sugar().Fatalf("Couldn't initialize application: %s.", err)
		}

		return
	}

	if err := a.Run(); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Sugar().Fatalf("Smoke check failed: %s.", err)
		}
	}
}

var _ gateway.Conn = offlineConn{}
