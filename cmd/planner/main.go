// Package main provides a command that plans one route from a JSON request.
//
// Usage:
//
//	planner -request request.json
//	planner -mode reach < ordered.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/app"
	"github.com/chargeroute/chargeroute/internal/config"
	"github.com/chargeroute/chargeroute/internal/planner"
	"github.com/chargeroute/chargeroute/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "chargeroute-planner"

func main() {
	requestPath := flag.String("request", "-", "path to the JSON request, - for stdin")
	mode := flag.String("mode", "plan", "plan orders the stops first; reach takes an ordered_route as given")
	flag.Parse()

	// Logs go to stderr so stdout carries only the result.
	log := zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	log.Debug().Str("build_time", BuildTime).Str("mode", *mode).Msg("starting planner")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *mode, *requestPath, os.Stdout); err != nil {
		log.Error().Err(err).Msg("planning failed")
		stop()
		os.Exit(1) //nolint:gocritic // deferred stop already ran
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger, mode, requestPath string, out io.Writer) error {
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close resources")
		}
	}()

	body, err := readRequest(requestPath)
	if err != nil {
		return err
	}

	var plan *planner.Plan
	switch mode {
	case "plan":
		var req planner.Request
		if err := json.Unmarshal(body, &req); err != nil {
			return fmt.Errorf("decode request: %w", err)
		}
		plan, err = a.Planner.Plan(ctx, req)
	case "reach":
		var req planner.ReachRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return fmt.Errorf("decode request: %w", err)
		}
		plan, err = a.Planner.Reach(ctx, req)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

func readRequest(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return data, nil
}
