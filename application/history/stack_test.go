package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relmap-backend/application/commands"
	"relmap-backend/domain/core/aggregates"
	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	pkgerrors "relmap-backend/pkg/errors"
)

// fakeApplier records calls and returns a fresh payload per apply
type fakeApplier struct {
	applied   []string
	reverted  []string
	payloads  []commands.Payload
	failApply map[string]bool
	calls     int
}

func (f *fakeApplier) Apply(e commands.Entry) (commands.Payload, error) {
	id := e.Meta.IDs[0]
	if f.failApply[id] {
		return nil, errors.New("boom")
	}
	f.calls++
	f.applied = append(f.applied, id)
	return fmt.Sprintf("%s#%d", id, f.calls), nil
}

func (f *fakeApplier) Revert(e commands.Entry, payload commands.Payload) error {
	f.reverted = append(f.reverted, e.Meta.IDs[0])
	f.payloads = append(f.payloads, payload)
	return nil
}

func globalEntry(id string) commands.Entry {
	return commands.Entry{
		Meta: commands.Meta{Kind: commands.KindCharacter, Scope: commands.ScopeGlobal, IDs: []string{id}},
		Op:   commands.RemoveCharacterOp{ID: id},
	}
}

func sheetEntry(id, sheetID string) commands.Entry {
	return commands.Entry{
		Meta: commands.Meta{Kind: commands.KindMove, Scope: commands.ScopeSheet, SheetID: sheetID, IDs: []string{id}},
		Op:   commands.MoveNodeOp{SheetID: sheetID, ID: id},
	}
}

func assertInvariant(t *testing.T, s *Stack) {
	t.Helper()
	assert.GreaterOrEqual(t, s.Index(), -1)
	assert.LessOrEqual(t, s.Index(), s.Len()-1)
	assert.LessOrEqual(t, s.Len(), s.Limit())
}

func TestNewStack(t *testing.T) {
	s := NewStack(&fakeApplier{})
	assert.Equal(t, -1, s.Index())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, DefaultLimit, s.Limit())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	undone, err := s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)
	assert.False(t, undone)
	redone, err := s.Redo(ModeGlobal, Context{})
	require.NoError(t, err)
	assert.False(t, redone)
}

func TestExecuteTruncatesFuture(t *testing.T) {
	f := &fakeApplier{}
	s := NewStack(f)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Execute(globalEntry(id)))
	}
	_, err := s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)
	_, err = s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Index())
	assert.True(t, s.CanRedo())

	require.NoError(t, s.Execute(globalEntry("d")))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.Index())
	assert.False(t, s.CanRedo())

	meta := s.HistoryMeta()
	require.Len(t, meta.Items, 2)
	assert.Equal(t, []string{"a"}, meta.Items[0].Meta.IDs)
	assert.Equal(t, []string{"d"}, meta.Items[1].Meta.IDs)
	assertInvariant(t, s)
}

func TestExecuteFailureLeavesHistoryUntouched(t *testing.T) {
	f := &fakeApplier{failApply: map[string]bool{"bad": true}}
	s := NewStack(f)
	require.NoError(t, s.Execute(globalEntry("a")))
	require.NoError(t, s.Execute(globalEntry("b")))
	_, err := s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)

	err = s.Execute(globalEntry("bad"))
	require.Error(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 0, s.Index())
	assert.True(t, s.CanRedo())
}

func TestExecuteRejectsIncompleteMeta(t *testing.T) {
	tests := []struct {
		name string
		meta commands.Meta
	}{
		{"missing kind", commands.Meta{Scope: commands.ScopeGlobal, IDs: []string{"x"}}},
		{"missing scope", commands.Meta{Kind: commands.KindMove, IDs: []string{"x"}}},
		{"sheet without id", commands.Meta{Kind: commands.KindMove, Scope: commands.ScopeSheet, IDs: []string{"x"}}},
		{"unknown scope", commands.Meta{Kind: commands.KindMove, Scope: "local", IDs: []string{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeApplier{}
			s := NewStack(f)
			err := s.Execute(commands.Entry{Meta: tt.meta})
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Empty(t, f.applied)
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestSheetScopedUndoSkipsOtherSheets(t *testing.T) {
	f := &fakeApplier{}
	s := NewStack(f)
	require.NoError(t, s.Execute(sheetEntry("m1", "s1")))
	require.NoError(t, s.Execute(sheetEntry("m2", "s2")))
	require.Equal(t, 1, s.Index())

	undone, err := s.Undo(ModeSheet, Context{ActiveSheetID: "s1"})
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Equal(t, []string{"m1"}, f.reverted)
	assert.Equal(t, -1, s.Index())
	assert.Equal(t, 2, s.Len())

	// the skipped s2 entry is still there for its own sheet
	meta := s.HistoryMeta()
	assert.Equal(t, "s2", meta.Items[1].Meta.SheetID)
	assertInvariant(t, s)
}

func TestSheetScopedUndoMatchesGlobalEntries(t *testing.T) {
	f := &fakeApplier{}
	s := NewStack(f)
	require.NoError(t, s.Execute(globalEntry("g")))
	require.NoError(t, s.Execute(sheetEntry("m2", "s2")))

	undone, err := s.Undo(ModeSheet, Context{ActiveSheetID: "s1"})
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Equal(t, []string{"g"}, f.reverted)
	assert.Equal(t, -1, s.Index())
}

func TestSheetScopedNoMatchIsIdempotent(t *testing.T) {
	f := &fakeApplier{}
	s := NewStack(f)
	require.NoError(t, s.Execute(sheetEntry("m1", "s1")))
	require.NoError(t, s.Execute(sheetEntry("m2", "s2")))
	before := s.HistoryMeta()

	for i := 0; i < 3; i++ {
		undone, err := s.Undo(ModeSheet, Context{ActiveSheetID: "X"})
		require.NoError(t, err)
		assert.False(t, undone)
	}
	assert.Equal(t, before, s.HistoryMeta())
	assert.Empty(t, f.reverted)

	_, err := s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)
	_, err = s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)
	redone, err := s.Redo(ModeSheet, Context{ActiveSheetID: "X"})
	require.NoError(t, err)
	assert.False(t, redone)
	assert.Equal(t, -1, s.Index())
}

func TestSheetScopedRedo(t *testing.T) {
	f := &fakeApplier{}
	s := NewStack(f)
	require.NoError(t, s.Execute(sheetEntry("m1", "s1")))
	require.NoError(t, s.Execute(sheetEntry("m2", "s2")))
	_, err := s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)
	_, err = s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)

	redone, err := s.Redo(ModeSheet, Context{ActiveSheetID: "s2"})
	require.NoError(t, err)
	assert.True(t, redone)
	assert.Equal(t, 1, s.Index())
	assert.Equal(t, []string{"m1", "m2", "m2"}, f.applied)
}

func TestRedoRecomputesPayload(t *testing.T) {
	f := &fakeApplier{}
	s := NewStack(f)
	require.NoError(t, s.Execute(globalEntry("a")))

	_, err := s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)
	_, err = s.Redo(ModeGlobal, Context{})
	require.NoError(t, err)
	_, err = s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)

	assert.Equal(t, []commands.Payload{"a#1", "a#2"}, f.payloads)
}

func TestCapacityEviction(t *testing.T) {
	f := &fakeApplier{}
	s := NewStack(f)
	for i := 0; i < DefaultLimit+1; i++ {
		require.NoError(t, s.Execute(globalEntry(fmt.Sprintf("e%d", i))))
		assertInvariant(t, s)
	}

	assert.Equal(t, DefaultLimit, s.Len())
	assert.Equal(t, DefaultLimit-1, s.Index())
	meta := s.HistoryMeta()
	assert.Equal(t, []string{"e1"}, meta.Items[0].Meta.IDs)
	assert.Equal(t, []string{fmt.Sprintf("e%d", DefaultLimit)}, meta.Items[s.Index()].Meta.IDs)
}

func TestWithLimit(t *testing.T) {
	s := NewStack(&fakeApplier{}, WithLimit(3))
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Execute(globalEntry(fmt.Sprintf("e%d", i))))
		assertInvariant(t, s)
	}
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.Index())
}

func TestClearResetDispose(t *testing.T) {
	s := NewStack(&fakeApplier{})
	require.NoError(t, s.Execute(globalEntry("a")))
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, -1, s.Index())

	s.Dispose()
	err := s.Execute(globalEntry("b"))
	assert.True(t, pkgerrors.IsValidation(err))
	_, err = s.Undo(ModeGlobal, Context{})
	assert.True(t, pkgerrors.IsValidation(err))

	s.Reset()
	require.NoError(t, s.Execute(globalEntry("c")))
	assert.Equal(t, 1, s.HistoryMeta().Ver)
}

func TestChainOrder(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Applier) Applier {
			return ApplierFuncs{
				ApplyFunc: func(e commands.Entry) (commands.Payload, error) {
					trace = append(trace, name)
					return next.Apply(e)
				},
				RevertFunc: next.Revert,
			}
		}
	}
	a := Chain(&fakeApplier{}, mw("outer"), mw("inner"))
	_, err := a.Apply(globalEntry("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, trace)
}

// Stack driven by the real dispatcher and store

func newEngine(t *testing.T) (*aggregates.Store, *Stack) {
	t.Helper()
	store := aggregates.NewStore()
	return store, NewStack(commands.NewDispatcher(store, nil, nil))
}

func execute(t *testing.T, s *Stack, e commands.Entry, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, s.Execute(e))
}

func TestAddAddRelateUndoRedo(t *testing.T) {
	store, s := newEngine(t)
	e, err := commands.AddCharacter(entities.Character{ID: "alice", Name: "alice"}, "", nil)
	execute(t, s, e, err)
	e, err = commands.AddCharacter(entities.Character{ID: "bob", Name: "bob"}, "", nil)
	execute(t, s, e, err)
	e, err = commands.AddRelation(entities.RelationInput{From: "alice", To: "bob"})
	execute(t, s, e, err)
	relID := e.Meta.IDs[0]

	assert.Equal(t, 2, s.Index())
	assert.Equal(t, 3, s.Len())
	assert.True(t, store.ExistsRelation(relID))

	_, err = s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Index())
	assert.False(t, store.ExistsRelation(relID))

	_, err = s.Redo(ModeGlobal, Context{})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Index())
	assert.True(t, store.ExistsRelation(relID))
}

func TestRemoveCharacterUndoRestoresEverything(t *testing.T) {
	store, s := newEngine(t)
	s1, err := store.CreateSheet("s1")
	require.NoError(t, err)
	pos := valueobjects.Position{X: 120, Y: 80}

	e, err := commands.AddCharacter(entities.Character{ID: "alice", Name: "Alice"}, s1, &pos)
	execute(t, s, e, err)
	e, err = commands.AddCharacter(entities.Character{ID: "bob", Name: "Bob"}, "", nil)
	execute(t, s, e, err)
	e, err = commands.AddRelation(entities.RelationInput{ID: "r1", From: "alice", To: "bob", Label: "rivals"})
	execute(t, s, e, err)
	before := store.State()

	e, err = commands.RemoveCharacter("alice")
	execute(t, s, e, err)
	assert.False(t, store.ExistsCharacter("alice"))
	assert.False(t, store.ExistsRelation("r1"))

	_, err = s.Undo(ModeGlobal, Context{})
	require.NoError(t, err)

	after := store.State()
	assert.Equal(t, before.Characters, after.Characters)
	assert.Equal(t, before.Relations, after.Relations)
	assert.Equal(t, before.Sheets, after.Sheets)
	got, ok := store.NodePosition(s1, "alice")
	require.True(t, ok)
	assert.Equal(t, pos, got)
}

func TestRoundTripLeavesSameState(t *testing.T) {
	build := func(t *testing.T, store *aggregates.Store) []commands.Entry {
		s1, err := store.CreateSheet("s1")
		require.NoError(t, err)
		_, err = store.AddCharacter(entities.Character{ID: "a", Name: "A"})
		require.NoError(t, err)
		_, err = store.AddCharacter(entities.Character{ID: "b", Name: "B"})
		require.NoError(t, err)
		_, err = store.AddRelation(entities.RelationInput{ID: "ab", From: "a", To: "b"})
		require.NoError(t, err)
		require.NoError(t, store.SetNodePos(s1, "a", valueobjects.Position{X: 1, Y: 1}))
		_, err = store.AddGroup(entities.Group{ID: "g", Name: "G", Members: []string{"a"}})
		require.NoError(t, err)

		name := "Renamed"
		strength := 5
		color := "#123456"
		var out []commands.Entry
		add := func(e commands.Entry, err error) {
			require.NoError(t, err)
			out = append(out, e)
		}
		add(commands.MoveNode(s1, "a", valueobjects.Position{X: 1, Y: 1}, valueobjects.Position{X: 40.4, Y: 50.6}))
		add(commands.ApplyLayout(s1, []commands.LayoutMove{
			{ID: "a", From: valueobjects.Position{X: 1, Y: 1}, To: valueobjects.Position{X: 7, Y: 7}},
			{ID: "b", From: valueobjects.Position{}, To: valueobjects.Position{X: 9, Y: 9}},
		}))
		add(commands.AddCharacter(entities.Character{Name: "C"}, s1, &valueobjects.Position{X: 3, Y: 3}))
		add(commands.UpdateCharacter("a", entities.CharacterPatch{Name: &name, Attrs: map[string]string{"k": "v"}}))
		add(commands.RemoveCharacter("a"))
		add(commands.AddRelation(entities.RelationInput{From: "b", To: "a"}))
		add(commands.UpdateRelation("ab", entities.RelationPatch{Strength: &strength}))
		add(commands.RemoveRelation("ab"))
		add(commands.SetEdgeWaypoints(s1, "ab", []valueobjects.Position{{X: 2, Y: 2}}))
		add(commands.SetCharacterTags([]string{"age", "role"}))
		add(commands.AddGroup(entities.Group{Name: "H", Members: []string{"b"}}))
		add(commands.UpdateGroup("g", entities.GroupPatch{Color: &color}))
		add(commands.RemoveGroup("g"))
		return out
	}

	sample := aggregates.NewStore()
	entries := build(t, sample)
	for i := range entries {
		t.Run(fmt.Sprintf("%d_%T", i, entries[i].Op), func(t *testing.T) {
			store := aggregates.NewStore()
			entry := build(t, store)[i]
			s := NewStack(commands.NewDispatcher(store, nil, nil))

			require.NoError(t, s.Execute(entry))
			afterExecute := store.State()

			_, err := s.Undo(ModeGlobal, Context{})
			require.NoError(t, err)
			_, err = s.Redo(ModeGlobal, Context{})
			require.NoError(t, err)
			afterRedo := store.State()

			assert.Equal(t, afterExecute.CharacterTags, afterRedo.CharacterTags)
			assert.Equal(t, afterExecute.Characters, afterRedo.Characters)
			assert.Equal(t, afterExecute.Relations, afterRedo.Relations)
			assert.Equal(t, afterExecute.Sheets, afterRedo.Sheets)
			assert.Equal(t, afterExecute.Groups, afterRedo.Groups)
		})
	}
}
