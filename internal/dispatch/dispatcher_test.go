package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theater-ticket-bot/internal/bot"
)

type recorder struct {
	mu    sync.Mutex
	seen  map[string][]string
	block map[string]chan struct{}
}

func newRecorder() *recorder {
	return &recorder{seen: map[string][]string{}, block: map[string]chan struct{}{}}
}

func (r *recorder) Handle(ctx context.Context, in bot.Input) ([]bot.Message, error) {
	r.mu.Lock()
	gate := r.block[in.UserID]
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if in.Text == "panic" {
		panic("boom")
	}
	r.mu.Lock()
	r.seen[in.UserID] = append(r.seen[in.UserID], in.Text)
	r.mu.Unlock()
	return []bot.Message{{Kind: bot.KindText, Body: "echo " + in.Text}}, nil
}

func (r *recorder) texts(user string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen[user]...)
}

func TestDispatcher_PerUserOrder(t *testing.T) {
	rec := newRecorder()
	log, _ := test.NewNullLogger()
	d := New(rec, log, Options{QueueSize: 4})
	defer d.Stop()

	ctx := context.Background()
	var wg sync.WaitGroup
	for _, user := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, d.Submit(ctx, bot.Input{UserID: user, Text: fmt.Sprint(i)}, nil))
			}
		}(user)
	}
	wg.Wait()

	want := make([]string, 50)
	for i := range want {
		want[i] = fmt.Sprint(i)
	}
	for _, user := range []string{"a", "b", "c"} {
		assert.Eventually(t, func() bool { return len(rec.texts(user)) == 50 }, time.Second, time.Millisecond)
		assert.Equal(t, want, rec.texts(user))
	}
}

func TestDispatcher_UsersRunInParallel(t *testing.T) {
	rec := newRecorder()
	gate := make(chan struct{})
	rec.block["slow"] = gate
	d := New(rec, nil, Options{})
	defer d.Stop()

	ctx := context.Background()
	require.NoError(t, d.Submit(ctx, bot.Input{UserID: "slow", Text: "first"}, nil))

	out, err := d.Do(ctx, bot.Input{UserID: "fast", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo hi", out[0].Body)
	assert.Empty(t, rec.texts("slow"))

	close(gate)
	assert.Eventually(t, func() bool { return len(rec.texts("slow")) == 1 }, time.Second, time.Millisecond)
}

func TestDispatcher_IdleMailboxesRetire(t *testing.T) {
	d := New(newRecorder(), nil, Options{IdleTimeout: 20 * time.Millisecond})
	defer d.Stop()

	_, err := d.Do(context.Background(), bot.Input{UserID: "u1", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Active())
	assert.Eventually(t, func() bool { return d.Active() == 0 }, time.Second, 5*time.Millisecond)

	out, err := d.Do(context.Background(), bot.Input{UserID: "u1", Text: "again"})
	require.NoError(t, err)
	assert.Equal(t, "echo again", out[0].Body)
}

func TestDispatcher_PanicIsContained(t *testing.T) {
	log, hook := test.NewNullLogger()
	d := New(newRecorder(), log, Options{})
	defer d.Stop()

	_, err := d.Do(context.Background(), bot.Input{UserID: "u1", Text: "panic"})
	assert.Error(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "handler panicked", hook.LastEntry().Message)

	out, err := d.Do(context.Background(), bot.Input{UserID: "u1", Text: "still alive"})
	require.NoError(t, err)
	assert.Equal(t, "echo still alive", out[0].Body)
}

func TestDispatcher_DoHonoursContext(t *testing.T) {
	rec := newRecorder()
	rec.block["u1"] = make(chan struct{})
	d := New(rec, nil, Options{})
	defer d.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Do(ctx, bot.Input{UserID: "u1", Text: "hi"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrPending)

	close(rec.block["u1"])
	assert.Eventually(t, func() bool {
		return len(rec.texts("u1")) == 1
	}, time.Second, 5*time.Millisecond, "a queued input still runs after the caller left")
}

func TestDispatcher_Stop(t *testing.T) {
	rec := newRecorder()
	rec.block["u1"] = make(chan struct{})
	d := New(rec, nil, Options{})

	require.NoError(t, d.Submit(context.Background(), bot.Input{UserID: "u1", Text: "hi"}, nil))
	d.Stop()

	assert.Equal(t, ErrStopped, d.Submit(context.Background(), bot.Input{UserID: "u1"}, nil))
	_, err := d.Do(context.Background(), bot.Input{UserID: "u2"})
	assert.ErrorIs(t, err, ErrStopped)
}
