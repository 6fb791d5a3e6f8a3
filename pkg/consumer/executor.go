package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
)

type result[T any] struct {
	val T
	err error
}

// execute runs fn against the session once the client is connected,
// waiting at most the operation timeout. On timeout the call keeps
// running in the background and its result is dropped.
func execute[T any](ctx context.Context, c *Client, op, path string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if !c.lifecycle.IsConnected() {
		return zero, newError(KindNotConnected, op, path, "not connected to %s", c.target())
	}

	done := make(chan result[T], 1)
	go func() {
		v, err := fn(context.WithoutCancel(ctx))
		done <- result[T]{val: v, err: err}
	}()

	timer := time.NewTimer(c.config.OperationTimeout)
	defer timer.Stop()

	start := time.Now()
	select {
	case r := <-done:
		c.logger.Debug("Operation finished",
			slog.String("op", op),
			slog.String("path", path),
			slog.Duration("elapsed", time.Since(start)),
			slog.Bool("ok", r.err == nil))
		if r.err != nil {
			return zero, wrap(op, path, r.err)
		}
		return r.val, nil

	case <-timer.C:
		c.logger.Warn("Operation timed out",
			slog.String("op", op),
			slog.String("path", path),
			slog.Duration("timeout", c.config.OperationTimeout))
		return zero, newError(KindConnectionTimeout, op, path, "no response within %s", c.config.OperationTimeout)

	case <-ctx.Done():
		return zero, &Error{Kind: KindOperationFailed, Op: op, Path: path, Err: ctx.Err()}
	}
}

// checkPath validates raw and returns its canonical form. Root is
// rejected unless allowRoot is set.
func checkPath(op, raw string, allowRoot bool) (string, error) {
	validate := treepath.ValidateAddressable
	if allowRoot {
		validate = treepath.Validate
	}
	if err := validate(raw); err != nil {
		return "", &Error{Kind: KindInvalidPath, Op: op, Path: raw, Err: err}
	}
	return treepath.Normalize(raw), nil
}

func (c *Client) target() string {
	if c.config.Host == "" {
		return "provider"
	}
	return c.config.ConnID
}
