package document

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/store"
	"github.com/peternagy/fireview/internal/store/memory"
	"github.com/peternagy/fireview/internal/types"
)

type notifications struct {
	mu   sync.Mutex
	list []types.Notification
}

func (n *notifications) Emit(eventName string, data interface{}) {
	if v, ok := data.(types.Notification); ok {
		n.mu.Lock()
		n.list = append(n.list, v)
		n.mu.Unlock()
	}
}

func (n *notifications) last() types.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return types.Notification{}
	}
	return n.list[len(n.list)-1]
}

func setup(t *testing.T) (*Service, *memory.Store, *core.Session, *notifications) {
	t.Helper()
	mem := memory.New()
	state := core.NewSession()
	notes := &notifications{}
	state.Emitter = notes

	client, err := mem.Connector(nil).Connect(context.Background(), types.ConnectionConfig{ProjectID: "p"})
	require.NoError(t, err)
	state.SetConnected(types.ConnectionConfig{ProjectID: "p"}, client)
	return NewService(state), mem, state, notes
}

func fields(kv ...interface{}) map[string]fieldvalue.Value {
	out := make(map[string]fieldvalue.Value)
	for i := 0; i < len(kv); i += 2 {
		out[kv[i].(string)] = fieldvalue.FromInterface(kv[i+1])
	}
	return out
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	svc, mem, state, _ := setup(t)
	mem.Seed("users", "u1", fields("name", "A"))
	mem.Seed("users", "u2", fields("name", "B"))

	require.NoError(t, svc.Fetch(ctx, "users"))
	assert.Len(t, svc.Documents(), 2)
	assert.Equal(t, "users", state.CachedCollection())

	assert.Len(t, svc.Filtered(types.FilterOptions{Search: "b"}), 1)
}

func TestFetch_NotConnectedIsNoop(t *testing.T) {
	state := core.NewSession()
	svc := NewService(state)
	assert.NoError(t, svc.Fetch(context.Background(), "users"))
	assert.Empty(t, svc.Documents())
}

func TestFetch_FailureLeavesCacheEmpty(t *testing.T) {
	ctx := context.Background()
	svc, mem, state, notes := setup(t)
	mem.Seed("users", "u1", fields("name", "A"))
	require.NoError(t, svc.Fetch(ctx, "users"))
	state.SetSummary("old summary")

	denied := &store.PermissionError{Message: "Permission denied. Check your Firestore rules for collection 'users'."}
	mem.FailFunc = func(op memory.Op, path, id string) error {
		if op == memory.OpList {
			return denied
		}
		return nil
	}

	err := svc.Fetch(ctx, "users")
	assert.ErrorIs(t, err, denied)
	assert.Empty(t, svc.Documents())
	assert.Empty(t, state.Summary(), "fetch clears the summary")
	assert.Equal(t, denied.Error(), svc.FetchError())
	assert.Equal(t, "Fetch Error", notes.last().Title)
	assert.Equal(t, types.VariantDestructive, notes.last().Variant)
}

func TestFetch_StaleResultDiscarded(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _ := setup(t)
	mem.Seed("a", "a1", fields("n", 1))
	mem.Seed("b", "b1", fields("n", 2))

	entered := make(chan struct{})
	unblock := make(chan struct{})
	mem.FailFunc = func(op memory.Op, path, id string) error {
		if op == memory.OpList && path == "a" {
			close(entered)
			<-unblock
		}
		return nil
	}

	done := make(chan error)
	go func() { done <- svc.Fetch(ctx, "a") }()
	<-entered

	// Switching collections while the first fetch is in flight.
	require.NoError(t, svc.Fetch(ctx, "b"))
	close(unblock)
	require.NoError(t, <-done)

	docs := svc.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "b1", docs[0].ID, "the older fetch must not overwrite the newer result")
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, notes := setup(t)

	t.Run("auto id", func(t *testing.T) {
		mem.ResetCalls()
		id, err := svc.Add(ctx, "users", fields("name", "A"), "")
		require.NoError(t, err)
		assert.Len(t, id, 20)
		assert.Equal(t, 1, mem.Calls(memory.OpList), "exactly one refetch")
		assert.Len(t, svc.Documents(), 1)
		assert.Equal(t, "Document Added", notes.last().Title)
	})

	t.Run("explicit id overwrites", func(t *testing.T) {
		mem.Seed("users", "fixed", fields("old", true))
		mem.ResetCalls()
		id, err := svc.Add(ctx, "users", fields("new", true), "fixed")
		require.NoError(t, err)
		assert.Equal(t, "fixed", id)
		assert.Equal(t, 1, mem.Calls(memory.OpList))

		doc, err := svc.Get(ctx, "users", "fixed")
		require.NoError(t, err)
		_, hasOld := doc.Data["old"]
		assert.False(t, hasOld, "upsert replaces the whole document")
	})

	t.Run("failure notifies with adapter message", func(t *testing.T) {
		mem.ResetCalls()
		mem.FailFunc = func(op memory.Op, path, id string) error {
			if op == memory.OpCreate {
				return &store.PermissionError{Message: "Permission denied. Cannot add document to 'users'."}
			}
			return nil
		}
		defer func() { mem.FailFunc = nil }()

		_, err := svc.Add(ctx, "users", fields("a", 1), "")
		require.Error(t, err)
		assert.Equal(t, 0, mem.Calls(memory.OpList), "no refetch on failure")
		assert.Equal(t, "Add Document Error", notes.last().Title)
		assert.Equal(t, "Permission denied. Cannot add document to 'users'.", notes.last().Description)
		assert.Equal(t, 0, svc.state.Flights.Len(), "flight released on failure")
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, notes := setup(t)
	mem.Seed("users", "u1", fields("a", 1, "b", 2))

	mem.ResetCalls()
	require.NoError(t, svc.Update(ctx, "users", "u1", fields("a", 5)))
	assert.Equal(t, 1, mem.Calls(memory.OpList))

	doc, err := svc.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), doc.Data["a"].Int64())
	assert.Equal(t, int64(2), doc.Data["b"].Int64(), "merge leaves other fields")
	assert.Equal(t, "Document Updated", notes.last().Title)

	err = svc.Update(ctx, "users", "missing", fields("a", 1))
	var nf *store.NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "Update Document Error", notes.last().Title)

	t.Run("empty fields on a missing document", func(t *testing.T) {
		mem.ResetCalls()
		err := svc.Update(ctx, "users", "missing", map[string]fieldvalue.Value{})
		var nf *store.NotFoundError
		assert.True(t, errors.As(err, &nf), "got %v", err)
		assert.Equal(t, "Update Document Error", notes.last().Title)
		assert.Equal(t, 0, mem.Calls(memory.OpList), "no refetch after a failed update")
	})

	t.Run("empty fields on an existing document", func(t *testing.T) {
		require.NoError(t, svc.Update(ctx, "users", "u1", map[string]fieldvalue.Value{}))
		assert.Equal(t, "Document Updated", notes.last().Title)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _ := setup(t)
	mem.Seed("users", "u1", fields("a", 1))

	mem.ResetCalls()
	require.NoError(t, svc.Delete(ctx, "users", "u1"))
	assert.Equal(t, 1, mem.Calls(memory.OpList))
	assert.Empty(t, svc.Documents())

	require.NoError(t, svc.Delete(ctx, "users", "never-existed"), "delete is unconditional")

	_, err := svc.Get(ctx, "users", "u1")
	var nf *store.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestMutations_NotConnected(t *testing.T) {
	ctx := context.Background()
	state := core.NewSession()
	notes := &notifications{}
	state.Emitter = notes
	svc := NewService(state)

	var nc *core.NotConnectedError
	_, err := svc.Add(ctx, "users", nil, "")
	assert.True(t, errors.As(err, &nc))
	assert.True(t, errors.As(svc.Update(ctx, "users", "x", nil), &nc))
	assert.True(t, errors.As(svc.Delete(ctx, "users", "x"), &nc))
	assert.Equal(t, "Not Connected", notes.last().Title)
}

func TestMutations_EmptyCollection(t *testing.T) {
	svc, mem, _, _ := setup(t)
	_, err := svc.Add(context.Background(), " ", fields("a", 1), "")
	var ve *core.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, 0, mem.Calls(memory.OpCreate))
}

func TestUpdate_SameDocumentInFlight(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _ := setup(t)
	mem.Seed("users", "u1", fields("a", 1))
	mem.Seed("users", "u2", fields("a", 1))

	entered := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	mem.FailFunc = func(op memory.Op, path, id string) error {
		if op == memory.OpUpdate && id == "u1" {
			once.Do(func() { close(entered) })
			<-unblock
		}
		return nil
	}

	done := make(chan error)
	go func() { done <- svc.Update(ctx, "users", "u1", fields("a", 2)) }()
	<-entered

	err := svc.Update(ctx, "users", "u1", fields("a", 3))
	var busy *core.OperationInProgressError
	assert.True(t, errors.As(err, &busy), "second update of the same document is rejected, got %v", err)

	assert.NoError(t, svc.Update(ctx, "users", "u2", fields("a", 3)), "other documents are not serialized")

	close(unblock)
	require.NoError(t, <-done)
	assert.False(t, svc.state.Flights.Active(core.OpUpdate, "u1"))
}

func TestParseFields(t *testing.T) {
	f, err := ParseFields(`{"name":"A","n":1}`)
	require.NoError(t, err)
	assert.Equal(t, "A", f["name"].Str())

	_, err = ParseFields(`[1]`)
	var ve *core.ValidationError
	assert.True(t, errors.As(err, &ve))
}
