package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonnelaakso/emberplus-go/pkg/config"
	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
	"github.com/jonnelaakso/emberplus-go/pkg/inspect"
	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/session"
)

// globals holds the persistent flags.
var globals struct {
	configFile  string
	host        string
	port        int
	logLevel    string
	protocolLog string
	timeout     time.Duration
	output      string
}

// loadConfig layers the config file, the environment and the flags that
// were set explicitly, in that order.
func loadConfig(cmd *cobra.Command, adjust ...func(*config.Config)) (*config.Config, error) {
	cfg := config.Default()
	if globals.configFile != "" {
		loaded, err := config.Load(globals.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(os.LookupEnv)

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = globals.host
	}
	if flags.Changed("port") {
		cfg.Port = globals.port
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = globals.logLevel
	}
	if flags.Changed("protocol-log") {
		cfg.Log.ProtocolFile = globals.protocolLog
	}
	if flags.Changed("timeout") {
		cfg.OperationTimeoutMs = int(globals.timeout / time.Millisecond)
	}
	for _, fn := range adjust {
		fn(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is a configured client plus the resources that go with it.
type app struct {
	cfg       *config.Config
	client    *consumer.Client
	logger    *slog.Logger
	protocol  *log.FileLogger
	formatter *inspect.Formatter
	out       io.Writer
}

// newApp builds the client. adjust runs on the loaded config before
// validation, for command-specific flags.
func newApp(cmd *cobra.Command, adjust ...func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(cmd, adjust...)
	if err != nil {
		return nil, err
	}
	verbosity, _ := cfg.Verbosity()
	logger := log.NewLogger(cmd.ErrOrStderr(), verbosity)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		formatter: inspect.NewFormatter(),
		out:       cmd.OutOrStdout(),
	}

	var protocol log.Logger
	if cfg.Log.ProtocolFile != "" {
		a.protocol, err = log.NewFileLogger(cfg.Log.ProtocolFile)
		if err != nil {
			return nil, fmt.Errorf("open protocol log: %w", err)
		}
		protocol = a.protocol
	}

	sess := session.NewRemote(session.RemoteConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		RequestTimeout: time.Duration(cfg.OperationTimeoutMs) * time.Millisecond,
		Logger:         logger,
		ProtocolLogger: protocol,
	})

	ccfg := cfg.ClientConfig()
	ccfg.Logger = logger
	ccfg.ProtocolLogger = protocol
	a.client = consumer.New(sess, ccfg)
	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.client.Close(ctx); err != nil {
		a.logger.Warn("Disconnect failed", slog.Any("error", err))
	}
	if a.protocol != nil {
		_ = a.protocol.Close()
	}
}

// print writes v as JSON in json mode, or text otherwise.
func (a *app) print(v any, text string) error {
	if globals.output == "json" {
		enc := json.NewEncoder(a.out)
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(a.out, text)
	return err
}

// withClient connects, runs fn and always tears the connection down.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if err := a.client.Connect(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
