package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theater-ticket-bot/internal/session"
)

func newConversation(t *testing.T) (*Conversation, *session.MemoryStore, machineFixture) {
	t.Helper()
	f := newMachine(t)
	store := session.NewMemoryStore(0)
	log, _ := test.NewNullLogger()
	return NewConversation(f.m, session.NewRegistry(store), log), store, f
}

func say(t *testing.T, c *Conversation, user, txt string) []Message {
	t.Helper()
	out, err := c.Handle(context.Background(), Input{UserID: user, Name: user, Text: txt})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	return out
}

func TestConversation_FullPurchase(t *testing.T) {
	c, store, f := newConversation(t)

	out := say(t, c, "u1", "/start")
	assert.Equal(t, "Hello, u1!\nWelcome to the theatre ticket bot!", out[0].Body)
	assert.Equal(t, 0, store.Len())

	say(t, c, "u1", ButtonListVenues)
	assert.Equal(t, 1, store.Len())

	say(t, c, "u1", "Bolshoi")
	s, ok, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, session.StatePurchasing, s.State)
	assert.False(t, s.UpdatedAt.IsZero())

	out = say(t, c, "u1", "11")
	assert.Contains(t, last(out).Body, "Ticket purchased")
	assert.Equal(t, 0, store.Len(), "completed flows are evicted")
	assert.Equal(t, 0, f.cat.events[1][1].Remaining)
}

func TestConversation_LastTicketRace(t *testing.T) {
	c, _, _ := newConversation(t)

	for _, u := range []string{"alice", "bob"} {
		say(t, c, u, "list venues")
		say(t, c, u, "Bolshoi")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		replies = map[string]string{}
	)
	for _, u := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			out, err := c.Handle(context.Background(), Input{UserID: u, Text: "11"})
			assert.NoError(t, err)
			mu.Lock()
			replies[u] = last(out).Body
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	sold, soldOut := 0, 0
	for _, body := range replies {
		switch body {
		case msgSoldOut:
			soldOut++
		default:
			sold++
		}
	}
	assert.Equal(t, 1, sold)
	assert.Equal(t, 1, soldOut)
}

func TestConversation_SessionIsolation(t *testing.T) {
	c, store, _ := newConversation(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			venue := "Bolshoi"
			if i%2 == 1 {
				venue = "Satire"
			}
			for _, txt := range []string{"/start", "list venues", venue} {
				_, err := c.Handle(ctx, Input{UserID: user, Text: txt})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		s, ok, err := store.Load(ctx, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, session.StatePurchasing, s.State)
		if i%2 == 1 {
			assert.Equal(t, []string{"30"}, keys(s))
		} else {
			assert.ElementsMatch(t, []string{"10", "11"}, keys(s))
		}
	}
}

func keys(s session.Session) []string {
	out := make([]string, 0, len(s.Events))
	for k := range s.Events {
		out = append(out, k)
	}
	return out
}

func TestConversation_LostSessionRecovers(t *testing.T) {
	c, store, _ := newConversation(t)
	ctx := context.Background()

	say(t, c, "u1", "list venues")
	require.NoError(t, store.Delete(ctx, "u1"))

	out := say(t, c, "u1", "Bolshoi")
	assert.Equal(t, msgUseButtons, last(out).Body)
}

type brokenStore struct {
	loadErr, saveErr error
	loaded           *session.Session
}

func (b brokenStore) Load(context.Context, string) (session.Session, bool, error) {
	if b.loadErr != nil {
		return session.Session{}, false, b.loadErr
	}
	if b.loaded != nil {
		return b.loaded.Clone(), true, nil
	}
	return session.Session{State: session.StateChoosingVenue, Venues: map[string]uint64{"Bolshoi": 1}}, true, nil
}

func (b brokenStore) Save(context.Context, string, session.Session) error { return b.saveErr }
func (b brokenStore) Delete(context.Context, string) error                { return b.saveErr }

func TestConversation_StoreFailures(t *testing.T) {
	f := newMachine(t)
	log, _ := test.NewNullLogger()
	down := errors.New("redis: connection refused")

	for name, store := range map[string]brokenStore{
		"load": {loadErr: down},
		"save": {saveErr: down},
	} {
		t.Run(name, func(t *testing.T) {
			c := NewConversation(f.m, session.NewRegistry(store), log)
			out, err := c.Handle(context.Background(), Input{UserID: "u1", Text: "Bolshoi"})
			require.Error(t, err)
			assert.True(t, IsStorageUnavailable(err))
			assert.ErrorIs(t, err, down)
			require.Len(t, out, 1)
			assert.Equal(t, msgTryLater, out[0].Body)
		})
	}
}

func TestConversation_PurchaseSurvivesSessionDeleteFailure(t *testing.T) {
	f := newMachine(t)
	log, hook := test.NewNullLogger()
	s := purchasing()
	store := brokenStore{saveErr: errors.New("redis: i/o timeout"), loaded: &s}
	c := NewConversation(f.m, session.NewRegistry(store), log)

	out, err := c.Handle(context.Background(), Input{UserID: "u1", Text: "11"})
	require.NoError(t, err)
	assert.Contains(t, last(out).Body, "Ticket purchased")
	assert.Equal(t, 0, f.cat.events[1][1].Remaining)
	assert.Equal(t, 1, f.reserver.calls)

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "store session failed" {
			logged = true
		}
	}
	assert.True(t, logged)
}
