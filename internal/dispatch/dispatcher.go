// Package dispatch serializes the messages of each user while letting
// different users proceed in parallel.  Every active user gets a mailbox
// served by its own goroutine; mailboxes retire after a quiet period.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theater-ticket-bot/internal/bot"
)

var (
	// ErrStopped is returned once the dispatcher has been stopped.
	ErrStopped = errors.New("dispatcher stopped")
	// ErrPending is returned by Do when the caller gave up after the
	// input was queued.  The input is still processed.
	ErrPending = errors.New("input queued, reply pending")
)

// Handler processes one message of one user.
type Handler interface {
	Handle(ctx context.Context, in bot.Input) ([]bot.Message, error)
}

// ReplyFunc receives the outcome of a submitted message.
type ReplyFunc func(out []bot.Message, err error)

type job struct {
	in    bot.Input
	reply ReplyFunc
}

type mailbox struct {
	jobs    chan job
	pending int
}

// Dispatcher routes inputs to per-user mailboxes.
type Dispatcher struct {
	handler     Handler
	log         logrus.FieldLogger
	idleTimeout time.Duration
	queueSize   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	mailboxes map[string]*mailbox
	stopped   bool
}

// Options tunes a Dispatcher.  Zero values pick defaults.
type Options struct {
	IdleTimeout time.Duration
	QueueSize   int
}

// New returns a running dispatcher.
func New(h Handler, log logrus.FieldLogger, opts Options) *Dispatcher {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Minute
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handler:     h,
		log:         log,
		idleTimeout: opts.IdleTimeout,
		queueSize:   opts.QueueSize,
		ctx:         ctx,
		cancel:      cancel,
		mailboxes:   make(map[string]*mailbox),
	}
}

// Submit enqueues in for its user and returns without waiting for the
// result; reply is called from the user's worker.  Submit blocks only
// while the user's mailbox is full.
func (d *Dispatcher) Submit(ctx context.Context, in bot.Input, reply ReplyFunc) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	mb, ok := d.mailboxes[in.UserID]
	if !ok {
		mb = &mailbox{jobs: make(chan job, d.queueSize)}
		d.mailboxes[in.UserID] = mb
		d.wg.Add(1)
		go d.run(in.UserID, mb)
	}
	mb.pending++
	d.mu.Unlock()

	select {
	case mb.jobs <- job{in: in, reply: reply}:
		return nil
	case <-ctx.Done():
		d.release(mb)
		return ctx.Err()
	case <-d.ctx.Done():
		d.release(mb)
		return ErrStopped
	}
}

// Do submits in and waits for the replies.  If ctx ends before the input
// was queued the context error is returned; if it ends afterwards the
// error wraps both ErrPending and the context error.
func (d *Dispatcher) Do(ctx context.Context, in bot.Input) ([]bot.Message, error) {
	type result struct {
		out []bot.Message
		err error
	}
	done := make(chan result, 1)
	if err := d.Submit(ctx, in, func(out []bot.Message, err error) {
		done <- result{out: out, err: err}
	}); err != nil {
		return nil, err
	}
	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrPending, ctx.Err())
	case <-d.ctx.Done():
		return nil, ErrStopped
	}
}

// Stop cancels in-flight work and waits for every worker to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
}

// Active returns the number of live mailboxes.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mailboxes)
}

func (d *Dispatcher) release(mb *mailbox) {
	d.mu.Lock()
	mb.pending--
	d.mu.Unlock()
}

func (d *Dispatcher) run(userID string, mb *mailbox) {
	defer d.wg.Done()
	timer := time.NewTimer(d.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case j := <-mb.jobs:
			d.release(mb)
			d.process(j)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.idleTimeout)
		case <-timer.C:
			// A sender that already counted itself in pending will
			// deliver to this mailbox, so it must stay alive.
			d.mu.Lock()
			if mb.pending == 0 && len(mb.jobs) == 0 {
				delete(d.mailboxes, userID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(d.idleTimeout)
		}
	}
}

func (d *Dispatcher) process(j job) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{"user_id": j.in.UserID, "panic": r}).Error("handler panicked")
			if j.reply != nil {
				j.reply(nil, errors.New("internal error"))
			}
		}
	}()
	out, err := d.handler.Handle(d.ctx, j.in)
	if j.reply != nil {
		j.reply(out, err)
	}
}
