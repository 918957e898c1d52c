// Command demo wires the rate limiter, circuit breaker, retry policy, and
// IPC framing packages together against a simulated backend, in the style
// of autobreaker's examples/production_ready demo.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sentinelcore/resilience/breaker"
	"github.com/sentinelcore/resilience/errs"
	"github.com/sentinelcore/resilience/ipcframe"
	"github.com/sentinelcore/resilience/ratelimit"
	"github.com/sentinelcore/resilience/retry"
	"github.com/sentinelcore/resilience/telemetry"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	sink := telemetry.Noop()

	limiter := ratelimit.New(ratelimit.Settings{
		Name:                "yara-scanner-calls",
		Capacity:            10,
		RefillRatePerSecond: 5,
		Sink:                sink,
	})

	cb := breaker.New(breaker.YARAScannerPreset("yara-scanner"))

	policy := retry.New(retry.Settings{
		Name:         "yara-scanner-retry",
		MaxAttempts:  4,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Predicate:    retry.IPCRetryPredicate(),
		Logger:       logger,
		Sink:         sink,
	})

	ctx := context.Background()
	var g errgroup.Group

	for i := 0; i < 20; i++ {
		i := i
		g.Go(func() error {
			return scanOneFile(ctx, fmt.Sprintf("file-%02d.bin", i), limiter, cb, policy, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("demo run finished with errors", zap.Error(err))
	}

	reportIPCRoundTrip(logger)
}

func scanOneFile(ctx context.Context, name string, limiter *ratelimit.Limiter, cb *breaker.CircuitBreaker, policy *retry.Policy, logger *zap.Logger) error {
	if !limiter.TryConsume(1) {
		logger.Warn("scan request throttled", zap.String("file", name))
		return nil
	}

	_, err := retry.ExecuteContext(ctx, policy, func() (interface{}, error) {
		return cb.ExecuteContext(ctx, func() (interface{}, error) {
			return simulateScan(name)
		})
	})

	switch {
	case err == nil:
		logger.Info("scan completed", zap.String("file", name))
	case errors.Is(err, breaker.ErrOpenState):
		logger.Warn("scan rejected: scanner circuit open", zap.String("file", name))
	default:
		logger.Error("scan failed", zap.String("file", name), zap.Error(err))
	}
	return nil
}

func simulateScan(name string) (interface{}, error) {
	if rand.Float64() < 0.15 {
		return nil, errs.New(errs.ConnectionRefused, "yara-scanner: connection refused")
	}
	return "clean", nil
}

// reportIPCRoundTrip demonstrates ipcframe's writer/reader pair over an
// in-memory net.Pipe connection, the same framing a scanner client would use
// to talk to the scanner daemon over a Unix socket.
func reportIPCRoundTrip(logger *zap.Logger) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	writer := ipcframe.NewWriter(ipcframe.WriterSettings{Name: "scanner-client"})
	reader := ipcframe.NewReader(ipcframe.ReaderSettings{Name: "scanner-daemon"})

	go func() {
		_ = writer.WriteMessage(client, []byte(`{"op":"scan","path":"file-00.bin"}`))
	}()

	msg, err := reader.ReadMessage(server, 2*time.Second)
	if err != nil {
		logger.Error("ipc round trip failed", zap.Error(err))
		return
	}
	logger.Info("ipc round trip succeeded", zap.ByteString("payload", msg))
}
