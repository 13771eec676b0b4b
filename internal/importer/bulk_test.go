package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peternagy/fireview/internal/core"
	"github.com/peternagy/fireview/internal/document"
	"github.com/peternagy/fireview/internal/fieldvalue"
	"github.com/peternagy/fireview/internal/store/memory"
	"github.com/peternagy/fireview/internal/types"
)

type eventLog struct {
	names         []string
	notifications []types.Notification
	progress      []types.ImportProgress
}

func (e *eventLog) Emit(eventName string, data interface{}) {
	e.names = append(e.names, eventName)
	switch v := data.(type) {
	case types.Notification:
		e.notifications = append(e.notifications, v)
	case types.ImportProgress:
		e.progress = append(e.progress, v)
	}
}

func setup(t *testing.T, connected bool) (*Service, *memory.Store, *core.Session, *eventLog) {
	t.Helper()
	mem := memory.New()
	state := core.NewSession()
	events := &eventLog{}
	state.Emitter = events
	if connected {
		client, err := mem.Connector(nil).Connect(context.Background(), types.ConnectionConfig{ProjectID: "p"})
		require.NoError(t, err)
		state.SetConnected(types.ConnectionConfig{ProjectID: "p"}, client)
	}
	return NewService(state, document.NewService(state)), mem, state, events
}

func TestParsePayload(t *testing.T) {
	t.Run("empty array", func(t *testing.T) {
		items, err := ParsePayload(`[]`)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("ids are extracted", func(t *testing.T) {
		items, err := ParsePayload(`[{"a":1},{"id":"x","b":2},{"id":123,"c":3}]`)
		require.NoError(t, err)
		require.Len(t, items, 3)

		assert.Equal(t, "", items[0].ID)
		assert.Equal(t, "x", items[1].ID)
		_, hasID := items[1].Data["id"]
		assert.False(t, hasID, "string id is stripped from data")

		assert.Equal(t, "", items[2].ID, "non-string id is treated as absent")
		_, hasID = items[2].Data["id"]
		assert.False(t, hasID, "non-string id is dropped from data")
		assert.Equal(t, int64(3), items[2].Data["c"].Int64())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		for _, payload := range []string{`[{"a":`, `[{"a":1}]]`, `[{"a":1}]}`, `[{"a":1}] x`} {
			items, err := ParsePayload(payload)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "%s: got %v", payload, err)
			assert.Nil(t, items)
		}
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := ParsePayload(`{"a":1}`)
		var pe *ParseError
		require.True(t, errors.As(err, &pe), "got %v", err)
		assert.Contains(t, pe.Error(), "must be a JSON array")
	})

	t.Run("non-object element rejects the whole payload", func(t *testing.T) {
		for _, payload := range []string{`[{"a":1}, 5]`, `[{"a":1}, null]`, `[[1]]`, `["x"]`} {
			items, err := ParsePayload(payload)
			var se *ShapeError
			assert.True(t, errors.As(err, &se), "%s: got %v", payload, err)
			assert.Nil(t, items)
		}
		_, err := ParsePayload(`[{"a":1}, null]`)
		var se *ShapeError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 1, se.Index)
	})
}

func TestImport_EmptyArray(t *testing.T) {
	svc, mem, _, _ := setup(t, true)

	result, err := svc.ImportJSON(context.Background(), "users", `[]`)

	require.NoError(t, err)
	assert.Equal(t, types.ImportResult{SuccessCount: 0, ErrorCount: 0, Errors: []string{}}, result)
	assert.Equal(t, 0, mem.Calls(memory.OpCreate), "no writes")
	assert.Equal(t, 0, mem.Calls(memory.OpList), "no refetch")
}

func TestImport_AllSucceed(t *testing.T) {
	ctx := context.Background()
	svc, mem, state, events := setup(t, true)

	result, err := svc.ImportJSON(ctx, "users", `[{"a":1},{"id":"x","b":2},{"id":123,"c":3}]`)

	require.NoError(t, err)
	assert.Equal(t, types.ImportResult{SuccessCount: 3, ErrorCount: 0, Errors: []string{}}, result)
	assert.Equal(t, 3, mem.Calls(memory.OpCreate))
	assert.Equal(t, 1, mem.Calls(memory.OpList), "exactly one refetch")

	docs := state.Documents()
	require.Len(t, docs, 3)
	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Contains(t, ids, "x")
	assert.NotContains(t, ids, "123", "numeric id must not be used as document ID")

	require.Len(t, events.progress, 3)
	assert.Equal(t, 3, events.progress[2].Current)
	assert.Equal(t, core.EventImportComplete, events.names[len(events.names)-1])
	assert.Equal(t, "Bulk Import Success", events.notifications[0].Title)
	assert.Equal(t, 0, state.Flights.Len())
}

func TestImport_PartialFailureContinues(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, events := setup(t, true)

	var attempted []string
	mem.FailFunc = func(op memory.Op, path, id string) error {
		if op != memory.OpCreate {
			return nil
		}
		attempted = append(attempted, id)
		if id == "two" {
			return errors.New("Permission denied. Cannot add document to 'users'.")
		}
		return nil
	}

	result, err := svc.ImportJSON(ctx, "users", `[{"id":"one"},{"id":"two"},{"id":"three"}]`)

	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "document two: Permission denied. Cannot add document to 'users'.", result.Errors[0])
	assert.Equal(t, []string{"one", "two", "three"}, attempted, "items after a failure are still attempted")
	assert.Equal(t, 1, mem.Calls(memory.OpList))

	last := events.notifications[len(events.notifications)-1]
	assert.Equal(t, "Bulk Import Partially Failed", last.Title)
	assert.True(t, strings.Contains(last.Description, "First error: document two"))
}

func TestImport_AllFailNoRefetch(t *testing.T) {
	svc, mem, _, _ := setup(t, true)
	mem.FailFunc = func(op memory.Op, path, id string) error {
		if op == memory.OpCreate {
			return errors.New("denied")
		}
		return nil
	}

	result, err := svc.Import(context.Background(), "users", []types.ImportItem{
		{Data: map[string]fieldvalue.Value{"a": fieldvalue.Int(1)}},
		{ID: "b", Data: map[string]fieldvalue.Value{}},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, []string{"document auto: denied", "document b: denied"}, result.Errors)
	assert.Equal(t, 0, mem.Calls(memory.OpList), "no refetch without a success")
}

func TestImport_NotConnected(t *testing.T) {
	svc, mem, _, _ := setup(t, false)

	items := []types.ImportItem{{ID: "a"}, {ID: "b"}}
	result, err := svc.Import(context.Background(), "users", items)

	var nc *core.NotConnectedError
	require.True(t, errors.As(err, &nc))
	assert.Equal(t, types.ImportResult{
		SuccessCount: 0,
		ErrorCount:   2,
		Errors:       []string{"Not connected to the document store."},
	}, result)
	assert.Equal(t, 0, mem.Calls(memory.OpCreate))
}

func TestImport_AlreadyRunning(t *testing.T) {
	svc, mem, state, events := setup(t, true)
	release, err := state.Flights.Begin(core.OpImport, "")
	require.NoError(t, err)
	defer release()

	items := []types.ImportItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	result, err := svc.Import(context.Background(), "users", items)

	var ip *core.OperationInProgressError
	require.True(t, errors.As(err, &ip), "got %v", err)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 3, result.ErrorCount)
	assert.Equal(t, []string{err.Error()}, result.Errors)
	assert.Equal(t, 0, mem.Calls(memory.OpCreate))
	require.Len(t, events.notifications, 1)
	assert.Equal(t, "Bulk Import", events.notifications[0].Title)
}

func TestImportJSON_ShapeErrorWritesNothing(t *testing.T) {
	svc, mem, _, events := setup(t, true)

	_, err := svc.ImportJSON(context.Background(), "users", `[{"a":1}, 2]`)

	var se *ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, mem.Calls(memory.OpCreate))
	assert.Equal(t, "Invalid JSON for Import", events.notifications[0].Title)
}
