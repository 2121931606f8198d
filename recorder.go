// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016 Datadog, Inc.

package lightstep

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lightstep-go/tracer/internal/log"
)

// Recorder is the concurrent, bounded span buffer with a background
// periodic flusher, an RPC client with restore-on-failure, and
// deterministic idempotent shutdown with drain. It is the core of the
// package; everything else exists to feed it spans or carry its context
// across process boundaries.
type Recorder struct {
	cfg       *config
	converter Converter
	identity  ReporterIdentity
	auth      interface{}
	runtime   interface{}
	cap       int

	mu     sync.Mutex
	buffer []interface{}

	connOnce sync.Once
	conn     Connection

	flusherOnce   sync.Once
	noFlusherOnce sync.Once
	group         *errgroup.Group
	cancel        context.CancelFunc

	shutMu   sync.Mutex
	shutdown bool

	shutdownOnce   sync.Once
	shutdownResult bool

	drops dropCounter
}

// New constructs a Recorder from the supplied options. Construction is
// pure: no thread and no socket are created, so a fork between
// construction and the first Record call does not inherit live I/O
// handles. Returns a *ConfigError if the configuration cannot produce a
// usable recorder.
func New(opts ...Option) (*Recorder, error) {
	c := &config{}
	defaults(c)
	for _, opt := range opts {
		opt(c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	switch c.verbosity {
	case 0:
		log.SetLevel(log.LevelWarn)
	case 1:
		log.SetLevel(log.LevelInfo)
	default:
		log.SetLevel(log.LevelDebug)
	}

	var conv Converter
	if c.transport == UseThrift {
		conv = newThriftConverter()
	} else {
		conv = newProtobufConverter()
	}

	identity := newReporterIdentity(c.componentName, c.tags)
	r := &Recorder{
		cfg:       c,
		converter: conv,
		identity:  identity,
		auth:      conv.CreateAuth(c.accessToken),
		runtime:   conv.CreateRuntime(identity),
		cap:       c.maxSpanRecords,
	}
	return r, nil
}

// Identity returns the recorder's reporter identity.
func (r *Recorder) Identity() ReporterIdentity { return r.identity }

// Dropped returns the number of spans silently dropped because the buffer
// was at capacity (the BufferFull error kind — not an error, observable
// only through this counter).
func (r *Recorder) Dropped() uint64 { return r.drops.value() }

// Disabled reports whether the recorder has shut itself down, either via
// an explicit Shutdown call or a remote disable command.
func (r *Recorder) Disabled() bool {
	r.shutMu.Lock()
	defer r.shutMu.Unlock()
	return r.shutdown
}

func (r *Recorder) connection() Connection {
	r.connOnce.Do(func() {
		r.conn = newConnection(r.cfg)
	})
	return r.conn
}

// Record admits a span. Fails silently after shutdown. The buffer size is
// checked twice — before conversion and after — so that a full buffer
// never pays the conversion cost, yet no span is admitted beyond the cap.
func (r *Recorder) Record(span Span) {
	if r.Disabled() {
		return
	}

	r.mu.Lock()
	full := len(r.buffer) >= r.cap
	r.mu.Unlock()
	if full {
		r.drops.inc()
		return
	}

	rec := recordFromSpan(r.converter, span)

	r.mu.Lock()
	if len(r.buffer) >= r.cap {
		r.mu.Unlock()
		r.drops.inc()
		return
	}
	r.buffer = append(r.buffer, rec)
	r.mu.Unlock()

	r.ensureFlusherStarted()
}

// ensureFlusherStarted lazily creates the background connection and flush
// loop on first use, per the fork-safety design: nothing long-lived exists
// until the first span is recorded.
func (r *Recorder) ensureFlusherStarted() {
	if r.cfg.periodicFlush <= 0 {
		r.noFlusherOnce.Do(func() {
			log.Warn("periodic flush disabled; spans will only be sent via explicit Flush calls")
		})
		return
	}
	r.flusherOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		g, gctx := errgroup.WithContext(ctx)
		r.group = g
		g.Go(func() error {
			r.flushLoop(gctx)
			return nil
		})
	})
}

func (r *Recorder) flushLoop(ctx context.Context) {
	conn := r.connection()
	ticker := time.NewTicker(r.cfg.periodicFlush)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !conn.Ready() {
			if err := conn.Open(); err != nil {
				log.Warn("opening collector connection: %v", err)
				continue
			}
		}
		_, disable := r.flushWorker(ctx, conn)
		if disable {
			// A remote disable observed from inside the flush loop's own
			// goroutine must not call Shutdown: Shutdown waits on r.group,
			// and this goroutine IS a member of that group — waiting on
			// itself would deadlock. Mark disabled and let the loop exit;
			// the group completes normally once this goroutine returns.
			r.disableLocally()
			return
		}
	}
}

// flushWorker performs one flush cycle against conn: reopen if needed,
// atomically swap out the buffer, transmit, and report whether anything was
// sent and whether the collector asked the client to disable itself. The
// caller decides how to act on disable, since the correct action differs
// depending on whether the caller is the background flush loop or an
// external Flush.
func (r *Recorder) flushWorker(ctx context.Context, conn Connection) (sent bool, disable bool) {
	if !conn.Ready() {
		if err := conn.Open(); err != nil {
			log.Warn("opening collector connection: %v", err)
			return false, false
		}
	}

	r.mu.Lock()
	batch := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return false, false
	}

	report := r.converter.CreateReport(r.runtime, batch)
	reqCtx, cancel := context.WithTimeout(ctx, connectionTimeout(r.cfg))
	defer cancel()

	resp, err := conn.Report(reqCtx, r.auth, report)
	if err != nil {
		log.Error("reporting spans to collector: %v", err)
		r.restore(batch)
		return false, false
	}
	return true, resp.Disable
}

// disableLocally marks the recorder disabled and releases its background
// resources without waiting on r.group — used when a remote disable is
// observed from within the flush loop's own goroutine.
func (r *Recorder) disableLocally() {
	r.shutMu.Lock()
	if r.shutdown {
		r.shutMu.Unlock()
		return
	}
	r.shutdown = true
	r.shutMu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

// restore preserves the cap: combined = failed_batch + current_buffer;
// current_buffer keeps the last cap entries of combined (restore keeps the
// newest). Never restores once disabled.
func (r *Recorder) restore(batch []interface{}) {
	if r.Disabled() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	combined := make([]interface{}, 0, len(batch)+len(r.buffer))
	combined = append(combined, batch...)
	combined = append(combined, r.buffer...)
	if len(combined) > r.cap {
		combined = combined[len(combined)-r.cap:]
	}
	r.buffer = combined
}

// Flush synchronously drains the current buffer through conn, or the
// recorder's own background connection if conn is nil. Returns true iff at
// least one record was transmitted in a successful report.
func (r *Recorder) Flush(conn Connection) bool {
	if r.Disabled() {
		return false
	}
	if conn == nil {
		conn = r.connection()
	}
	sent, disable := r.flushWorker(context.Background(), conn)
	if disable {
		r.Shutdown(false)
	}
	return sent
}

// Shutdown is idempotent. The first call optionally flushes, closes the
// background connection, and marks the recorder disabled; every
// subsequent call is a no-op returning false. Returns whether the flush
// (if requested) transmitted at least one record.
//
// The idempotency gate (shutdownOnce) is deliberately separate from the
// disabled flag (shutdown): flipping shutdown before the flush would make
// the flush observe its own disabled state and refuse to run, so the
// flush here calls flushWorker directly rather than going through Flush,
// and shutdown is only set once that flush has had its chance to run. A
// prior disableLocally call (remote disable seen from the flush loop's
// own goroutine) may already have set shutdown and torn down cancel/conn;
// this still runs its cleanup a second time, which is harmless since
// cancel and Close both tolerate repeat calls.
func (r *Recorder) Shutdown(flush bool) bool {
	first := false
	r.shutdownOnce.Do(func() {
		first = true

		r.shutMu.Lock()
		alreadyDisabled := r.shutdown
		r.shutMu.Unlock()

		if flush && !alreadyDisabled {
			r.shutdownResult, _ = r.flushWorker(context.Background(), r.connection())
		}

		r.shutMu.Lock()
		r.shutdown = true
		r.shutMu.Unlock()

		if r.cancel != nil {
			r.cancel()
		}
		if r.group != nil {
			r.group.Wait() //nolint:errcheck // flushLoop never returns a non-nil error
		}
		if r.conn != nil {
			r.conn.Close()
		}
	})
	if !first {
		return false
	}
	return r.shutdownResult
}
