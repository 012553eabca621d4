package selection

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx)
	assert.ErrorIs(t, err, ErrNotSet)

	require.NoError(t, s.Set(ctx, "gc_pause"))
	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gc_pause", got)

	require.NoError(t, s.Set(ctx, "pmtud_blackhole"))
	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pmtud_blackhole", got)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.NoError(t, s.Close())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.Set(ctx, "firewall_session")
				return
			}
			_, _ = s.Get(ctx)
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "firewall_session", got)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// The selection survives reopening the database.
	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pmtud_blackhole", got)
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	assert.Error(t, err)
}

func TestRedisStore_Channel(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	assert.Equal(t, "incident-dashboard:scenario:events", newRedisStore(client, "").Channel())
	assert.Equal(t, "custom:events", newRedisStore(client, "custom").Channel())
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, "127.0.0.1:1", "", 0, "")
	assert.Error(t, err)
}

func newMiniredisStore(t *testing.T, addr string) *RedisStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := NewRedisStore(ctx, addr, "", 0, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	exerciseStore(t, newMiniredisStore(t, mr.Addr()))
}

func TestRedisStore_WatchReceivesOtherReplicaSet(t *testing.T) {
	mr := miniredis.RunT(t)
	watcher := newMiniredisStore(t, mr.Addr())
	other := newMiniredisStore(t, mr.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := watcher.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, other.Set(context.Background(), "firewall_session"))

	select {
	case name := <-events:
		assert.Equal(t, "firewall_session", name)
	case <-time.After(2 * time.Second):
		t.Fatal("selection change was not delivered")
	}

	got, err := watcher.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "firewall_session", got)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
