package bot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePersistsEveryMutation(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	require.NoError(t, store.Load())

	require.NoError(t, store.AddQueue("alice", "May 30 00:53:54 2017 UTC"))
	require.NoError(t, store.SetUser("bob", "127.0.0.5"))
	_, taken, err := store.TakeQueue("alice")
	require.NoError(t, err)
	require.True(t, taken)
	assert.Equal(t, 3, repo.saveCount())

	persisted, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted.Queue)
	assert.Equal(t, map[string]string{"bob": "127.0.0.5"}, persisted.Users)
}

func TestStoreRemovalOfAbsentEntriesIsNoop(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	require.NoError(t, store.Load())

	_, taken, err := store.TakeQueue("ghost")
	require.NoError(t, err)
	assert.False(t, taken)
	require.NoError(t, store.RemoveUser("ghost"))
	assert.Zero(t, repo.saveCount())
}

func TestStoreReturnsCopies(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	require.NoError(t, store.Load())
	require.NoError(t, store.SetUser("alice", "127.0.0.5"))
	require.NoError(t, store.AddQueue("bob", "May 30 00:53:54 2017 UTC"))

	users := store.Users()
	users["alice"] = "tampered"
	assert.Equal(t, "127.0.0.5", store.Users()["alice"])

	queue := store.Queue()
	delete(queue, "bob")
	assert.Contains(t, store.Queue(), "bob")
}

// Concurrent approvals of one request race on TakeQueue; exactly one may win.
func TestStoreTakeQueueSingleWinner(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	require.NoError(t, store.Load())
	require.NoError(t, store.AddQueue("alice", "May 30 00:53:54 2017 UTC"))

	const contenders = 16
	wins := make(chan string, contenders)
	var wg sync.WaitGroup
	for range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, ok, err := store.TakeQueue("alice")
			assert.NoError(t, err)
			if ok {
				wins <- entry
			}
		}()
	}
	wg.Wait()
	close(wins)

	var entries []string
	for entry := range wins {
		entries = append(entries, entry)
	}
	require.Len(t, entries, 1)
	assert.Equal(t, "May 30 00:53:54 2017 UTC", entries[0])
	assert.Empty(t, store.Queue())
}

func TestStoreBindHostInUse(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	require.NoError(t, store.Load())
	require.NoError(t, store.SetUser("alice", "127.0.0.5"))
	require.NoError(t, store.StageUser("bob"))

	assert.True(t, store.BindHostInUse("127.0.0.5"))
	assert.False(t, store.BindHostInUse("127.0.0.6"))
}

func TestStoreResetUsersKeepsQueue(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	require.NoError(t, store.Load())
	require.NoError(t, store.AddQueue("alice", "May 30 00:53:54 2017 UTC"))
	require.NoError(t, store.SetUser("bob", "127.0.0.5"))

	require.NoError(t, store.ResetUsers())
	assert.Empty(t, store.Users())
	assert.Contains(t, store.Queue(), "alice")
}
