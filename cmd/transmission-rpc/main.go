// Command transmission-rpc invokes Transmission RPC methods from the command
// line and prints the daemon's responses as JSON.
//
// Usage:
//
//	transmission-rpc [OPTIONS] METHOD [ARGUMENTS] [METHOD [ARGUMENTS]]...
//
// ARGUMENTS is a JSON object, for example:
//
//	transmission-rpc torrent-get '{"fields":["id","name"]}' session-stats
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dogmatiq/transmission"
	"github.com/dogmatiq/transmission/config"
	"github.com/dogmatiq/transmission/middleware/oteltransmission"
	"github.com/jessevdk/go-flags"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// options are the command line options.
type options struct {
	Config   string `short:"c" long:"config" description:"path to the configuration file"`
	Scheme   string `long:"scheme" description:"URL scheme of the RPC endpoint"`
	Host     string `short:"H" long:"host" description:"daemon host name"`
	Port     int    `short:"p" long:"port" description:"daemon TCP port"`
	Path     string `long:"path" description:"path of the RPC endpoint"`
	Username string `short:"u" long:"username" description:"username for HTTP basic authentication"`
	Password string `long:"password" env:"TRANSMISSION_PASSWORD" description:"password for HTTP basic authentication"`
	Parallel int    `short:"j" long:"parallel" default:"1" description:"maximum number of calls in flight at once"`
	Trace    bool   `long:"trace" description:"write OpenTelemetry spans to stderr"`
	Verbose  bool   `short:"v" long:"verbose" description:"log each call to stderr"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run executes the command with the given arguments.
func run(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
) error {
	var opts options

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS] METHOD [ARGUMENTS] [METHOD [ARGUMENTS]]..."

	rest, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return nil
		}
		return err
	}

	calls, err := parseCalls(rest)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	applyOverrides(&cfg, opts)

	logger := zap.NewNop()
	if opts.Verbose {
		logger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(stderr),
				zapcore.DebugLevel,
			),
		)
	}
	defer logger.Sync() //nolint:errcheck

	client, err := cfg.NewClient(
		transmission.WithLogger(transmission.NewZapCallLogger(logger)),
	)
	if err != nil {
		return err
	}

	var caller transmission.Caller = client

	if opts.Trace {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(stderr),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return err
		}

		provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		defer provider.Shutdown(context.Background()) //nolint:errcheck

		caller = &oteltransmission.Tracing{
			Next:           caller,
			TracerProvider: provider,
			ServiceName:    "transmission-rpc",
		}
	}

	results, err := transmission.CallBatch(ctx, caller, calls, opts.Parallel)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return err
		}
	}

	return nil
}

// applyOverrides replaces the values in cfg with those given on the command
// line.
func applyOverrides(cfg *config.Config, opts options) {
	if opts.Scheme != "" {
		cfg.Scheme = opts.Scheme
	}
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.Path != "" {
		cfg.Path = opts.Path
	}
	if opts.Username != "" {
		cfg.Username = opts.Username
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
}

// parseCalls parses the positional arguments into a list of calls.
//
// Each method name may be followed by a JSON object containing its arguments.
func parseCalls(args []string) ([]transmission.BatchCall, error) {
	var calls []transmission.BatchCall

	for _, arg := range args {
		if strings.HasPrefix(strings.TrimSpace(arg), "{") {
			if len(calls) == 0 {
				return nil, errors.New("arguments must follow a method name")
			}

			last := &calls[len(calls)-1]
			if last.Arguments != nil {
				return nil, fmt.Errorf("method %q already has arguments", last.Method)
			}

			var a transmission.Arguments
			if err := json.Unmarshal([]byte(arg), &a); err != nil {
				return nil, fmt.Errorf("invalid arguments for method %q: %w", last.Method, err)
			}
			if a == nil {
				a = transmission.Arguments{}
			}
			last.Arguments = a
			continue
		}

		calls = append(calls, transmission.BatchCall{Method: arg})
	}

	if len(calls) == 0 {
		return nil, errors.New("at least one method name is required")
	}

	return calls, nil
}
