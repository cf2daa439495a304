package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	coreconfig "github.com/m3rciful/unilinkup/core/config"
	"github.com/m3rciful/unilinkup/core/logger"
	"github.com/m3rciful/unilinkup/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue once Close has been called.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the queue has no room; the job is dropped.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options tunes a Dispatcher. Zero values select the defaults noted below.
type Options struct {
	QueueSize    int           // default 256
	Workers      int           // default 4
	MaxRetries   int           // extra attempts for transient errors
	RetryBackoff time.Duration // grows linearly per attempt; default 2s
	MaxDuration  time.Duration // budget for one job across retries; default 12s
}

// OptionsFromConfig maps the sender config section onto Options.
func OptionsFromConfig(cfg coreconfig.SenderConfig) Options {
	return Options{
		QueueSize:    cfg.QueueSize,
		Workers:      cfg.Workers,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
		MaxDuration:  time.Duration(cfg.MaxDurationMS) * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

// MessageSender is the part of *tele.Bot needed to message a chat directly.
type MessageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Stats counts finished jobs.
type Stats struct {
	Sent   uint64
	Failed uint64
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher runs outbound Bot API calls on a fixed worker pool, retrying
// transient failures. Jobs still queued at Close are drained first.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	sent atomic.Uint64
	errs atomic.Uint64
}

// NewDispatcher starts the worker pool.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	for range opts.Workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.handleJob(j)
			}
		}()
	}
	return d
}

// Enqueue queues run without blocking. run may be called more than once when
// it fails with a transient error.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// SendTo queues a message to a chat outside of any update, for example a
// notice fired by a timer.
func (d *Dispatcher) SendTo(ctx context.Context, api MessageSender, to tele.Recipient, what interface{}, opts ...interface{}) error {
	if api == nil || to == nil {
		return errors.New("telegram sender: nil api or recipient")
	}
	return d.Enqueue(ctx, "send.direct", "sendMessage", func() error {
		_, err := api.Send(to, what, opts...)
		return err
	})
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{Sent: d.sent.Load(), Failed: d.errs.Load()}
}

// Close stops accepting jobs and waits for the queue to drain. It is safe to
// call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) handleJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, "tg.sender", "send.start", j.attrs()...)

	attempts, err := d.attempt(runCtx, j)
	attrs := append(j.attrs(),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", logger.Took(start)),
	)
	if err != nil {
		d.errs.Add(1)
		logger.Error(ctx, "tg.sender", "send.fail", append(attrs,
			slog.String("err", netutil.Redact(err)),
			slog.String("err_code", netutil.Kind(err)),
		)...)
		return
	}
	d.sent.Add(1)
	if attempts > 1 {
		logger.Info(ctx, "tg.sender", "send.retry.success", attrs...)
		return
	}
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

// attempt runs j until it succeeds, fails permanently, exhausts its retries
// or ctx expires. It returns the number of calls made.
func (d *Dispatcher) attempt(ctx context.Context, j job) (int, error) {
	limit := d.opts.MaxRetries + 1
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return n - 1, err
		}
		err := j.run()
		if err == nil || n == limit || !netutil.ShouldRetry(err) {
			return n, err
		}

		delay, ok := netutil.RetryAfter(err)
		if !ok {
			delay = d.opts.RetryBackoff * time.Duration(n)
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			append(j.attrs(), slog.Int("attempt", n), slog.Duration("backoff", delay))...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return n, ctx.Err()
		case <-timer.C:
		}
	}
}

func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}
