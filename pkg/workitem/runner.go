package workitem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/subscription"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

// Client is the part of consumer.Client a Runner needs.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	Browse(ctx context.Context, path string) (*consumer.BrowseResult, error)
	Get(ctx context.Context, path string) (*consumer.GetResult, error)
	SetRaw(ctx context.Context, path, raw string, kind value.Kind) (*consumer.SetResult, error)
	Subscribe(ctx context.Context, path string, handler subscription.Handler, opts ...consumer.SubscribeOption) (*consumer.SubscribeResult, error)
}

var _ Client = (*consumer.Client)(nil)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// ContinueOnFailure keeps running after an item-level failure.
	// Connection-level failures always abort.
	ContinueOnFailure bool

	// KeepConnection leaves the client connected after Run.
	KeepConnection bool

	Logger *slog.Logger
}

// Runner executes work items in order on one client.
type Runner struct {
	client Client
	config RunnerConfig
	logger *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(client Client, config RunnerConfig) *Runner {
	return &Runner{
		client: client,
		config: config,
		logger: log.OrDiscard(config.Logger),
	}
}

// Result is the outcome of one item.
type Result struct {
	Index    int
	Item     Item
	Output   any
	Err      error
	Skipped  bool
	Duration time.Duration
}

// OK reports whether the item succeeded.
func (r *Result) OK() bool {
	return !r.Skipped && r.Err == nil
}

// Kind classifies the failure, or KindUnknown on success.
func (r *Result) Kind() consumer.Kind {
	return consumer.KindOf(r.Err)
}

// BatchResult is the outcome of Run.
type BatchResult struct {
	Results   []*Result
	PassCount int
	FailCount int
	SkipCount int

	// Aborted is set when a failure stopped the batch early.
	Aborted bool

	// DisconnectErr is a teardown failure. It never marks items failed.
	DisconnectErr error

	Duration time.Duration
}

// Run connects, executes items in order and disconnects. A connection
// failure aborts the batch and every remaining item is skipped.
func (r *Runner) Run(ctx context.Context, items []Item) *BatchResult {
	start := time.Now()
	br := &BatchResult{}

	abort := func(from int) {
		br.Aborted = true
		for i := from; i < len(items); i++ {
			br.Results = append(br.Results, &Result{Index: i, Item: items[i], Skipped: true})
			br.SkipCount++
		}
	}

	if err := r.client.Connect(ctx); err != nil {
		r.logger.Error("Connect failed, batch aborted", slog.Any("error", err))
		if len(items) > 0 {
			br.Results = append(br.Results, &Result{Index: 0, Item: items[0], Err: err})
			br.FailCount++
			abort(1)
		}
		br.Duration = time.Since(start)
		return br
	}

	for i := range items {
		res := r.RunItem(ctx, items[i])
		res.Index = i
		br.Results = append(br.Results, res)

		if res.OK() {
			br.PassCount++
			continue
		}
		br.FailCount++

		kind := res.Kind()
		r.logger.Warn("Work item failed",
			slog.Int("index", i),
			slog.String("item", items[i].String()),
			slog.String("kind", kind.String()),
			slog.Any("error", res.Err))

		if kind.IsConnectionLevel() || !r.config.ContinueOnFailure {
			abort(i + 1)
			break
		}
	}

	if !r.config.KeepConnection {
		if err := r.client.Disconnect(ctx); err != nil {
			r.logger.Warn("Disconnect failed", slog.Any("error", err))
			br.DisconnectErr = err
		}
	}

	br.Duration = time.Since(start)
	return br
}

// RunItem executes a single item on an already connected client.
func (r *Runner) RunItem(ctx context.Context, item Item) *Result {
	start := time.Now()
	res := &Result{Item: item}

	res.Output, res.Err = r.dispatch(ctx, item)
	res.Duration = time.Since(start)

	r.logger.Debug("Work item done",
		slog.String("item", item.String()),
		slog.Bool("ok", res.Err == nil),
		slog.Duration("duration", res.Duration))
	return res
}

func (r *Runner) dispatch(ctx context.Context, item Item) (any, error) {
	switch item.Operation {
	case OpBrowse:
		return r.client.Browse(ctx, item.Path)
	case OpGet:
		return r.client.Get(ctx, item.Path)
	case OpSet:
		kind, err := value.ParseKind(item.ValueType)
		if err != nil {
			return nil, &consumer.Error{Kind: consumer.KindInvalidValue, Op: "set", Path: item.Path, Err: err}
		}
		return r.client.SetRaw(ctx, item.Path, item.Value, kind)
	case OpSubscribe:
		return r.client.Subscribe(ctx, item.Path, func(c subscription.Change) {
			r.logger.Debug("Subscription update",
				slog.String("path", c.Path),
				slog.Any("value", c.Value))
		})
	default:
		return nil, &consumer.Error{
			Kind:    consumer.KindOperationFailed,
			Op:      string(item.Operation),
			Path:    item.Path,
			Message: fmt.Sprintf("unknown operation %q", item.Operation),
		}
	}
}
