package aggregates

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	"relmap-backend/domain/events"
	pkgerrors "relmap-backend/pkg/errors"
)

func newPopulatedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	_, err := s.AddCharacter(entities.Character{ID: "alice", Name: "Alice"})
	require.NoError(t, err)
	_, err = s.AddCharacter(entities.Character{ID: "bob", Name: "Bob"})
	require.NoError(t, err)
	_, err = s.AddCharacter(entities.Character{ID: "carol", Name: "Carol"})
	require.NoError(t, err)
	return s
}

func TestNewStore(t *testing.T) {
	s := NewStore()

	sheets := s.ListSheets()
	require.Len(t, sheets, 1)
	assert.Equal(t, valueobjects.DefaultSheetID, sheets[0].ID)
	assert.Equal(t, DefaultSheetName, sheets[0].Name)
	assert.Empty(t, s.ListCharacters())
	assert.Equal(t, 0, s.Revision())
}

func TestAddCharacter(t *testing.T) {
	tests := []struct {
		name    string
		input   entities.Character
		wantErr error
	}{
		{name: "generated id", input: entities.Character{Name: "Alice"}},
		{name: "explicit id", input: entities.Character{ID: "hero", Name: "Hero"}},
		{name: "blank name", input: entities.Character{Name: "  "}, wantErr: pkgerrors.ErrValidation},
		{name: "duplicate id", input: entities.Character{ID: "dup", Name: "Again"}, wantErr: pkgerrors.ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.SetCharacterTags([]string{"age"})
			_, err := s.AddCharacter(entities.Character{ID: "dup", Name: "Original"})
			require.NoError(t, err)
			before := s.Revision()

			id, err := s.AddCharacter(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, s.Revision())
				assert.Len(t, s.ListCharacters(), 1)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, id)
			if tt.input.ID != "" {
				assert.Equal(t, tt.input.ID, id)
			}
			c, err := s.GetCharacter(id)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"age": ""}, c.Attrs)
			assert.Equal(t, before+1, s.Revision())
		})
	}
}

func TestUpdateCharacter(t *testing.T) {
	s := NewStore()
	s.SetCharacterTags([]string{"age", "role"})
	_, err := s.AddCharacter(entities.Character{ID: "alice", Name: "Alice", Attrs: map[string]string{"age": "30", "role": "lead"}})
	require.NoError(t, err)

	name := "Alicia"
	err = s.UpdateCharacter("alice", entities.CharacterPatch{Name: &name, Attrs: map[string]string{"role": "villain"}})
	require.NoError(t, err)

	c, err := s.GetCharacter("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", c.ID)
	assert.Equal(t, "Alicia", c.Name)
	assert.Equal(t, "30", c.Attrs["age"])
	assert.Equal(t, "villain", c.Attrs["role"])

	err = s.UpdateCharacter("nobody", entities.CharacterPatch{Name: &name})
	assert.ErrorIs(t, err, pkgerrors.ErrCharacterNotFound)

	blank := ""
	err = s.UpdateCharacter("alice", entities.CharacterPatch{Name: &blank})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGetCharacterReturnsCopy(t *testing.T) {
	s := NewStore()
	_, err := s.AddCharacter(entities.Character{ID: "alice", Name: "Alice", Attrs: map[string]string{"k": "v"}})
	require.NoError(t, err)

	c, err := s.GetCharacter("alice")
	require.NoError(t, err)
	c.Attrs["k"] = "changed"

	again, err := s.GetCharacter("alice")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Attrs["k"])
}

func TestAddRelation(t *testing.T) {
	five := 5
	tests := []struct {
		name    string
		input   entities.RelationInput
		wantErr error
	}{
		{name: "defaults applied", input: entities.RelationInput{From: "alice", To: "bob"}},
		{name: "explicit strength", input: entities.RelationInput{From: "alice", To: "bob", Strength: &five}},
		{name: "self relation", input: entities.RelationInput{From: "alice", To: "alice"}, wantErr: pkgerrors.ErrSelfRelation},
		{name: "missing endpoint", input: entities.RelationInput{From: "alice", To: "zed"}, wantErr: pkgerrors.ErrInvalidReference},
		{name: "blank endpoint", input: entities.RelationInput{From: "alice"}, wantErr: pkgerrors.ErrValidation},
		{name: "bad status", input: entities.RelationInput{From: "alice", To: "bob", Status: "paused"}, wantErr: pkgerrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newPopulatedStore(t)
			id, err := s.AddRelation(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, s.ListRelations())
				return
			}
			require.NoError(t, err)

			r, err := s.GetRelation(id)
			require.NoError(t, err)
			assert.Equal(t, entities.DefaultRelationType, r.Type)
			assert.Equal(t, entities.StatusActive, r.Status)
			assert.Equal(t, "", r.Label)
			assert.False(t, r.Mutual)
			if tt.input.Strength != nil {
				assert.Equal(t, *tt.input.Strength, r.Strength)
			} else {
				assert.Equal(t, entities.DefaultStrength, r.Strength)
			}
		})
	}
}

func TestUpdateRelation(t *testing.T) {
	s := newPopulatedStore(t)
	id, err := s.AddRelation(entities.RelationInput{From: "alice", To: "bob", Label: "friends"})
	require.NoError(t, err)

	carol := "carol"
	require.NoError(t, s.UpdateRelation(id, entities.RelationPatch{To: &carol}))
	r, err := s.GetRelation(id)
	require.NoError(t, err)
	assert.Equal(t, "carol", r.To)
	assert.Equal(t, "friends", r.Label)

	alice := "alice"
	err = s.UpdateRelation(id, entities.RelationPatch{To: &alice})
	assert.ErrorIs(t, err, pkgerrors.ErrSelfRelation)

	ghost := "ghost"
	err = s.UpdateRelation(id, entities.RelationPatch{From: &ghost})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidReference)

	err = s.UpdateRelation("missing", entities.RelationPatch{To: &carol})
	assert.ErrorIs(t, err, pkgerrors.ErrRelationNotFound)

	r, err = s.GetRelation(id)
	require.NoError(t, err)
	assert.Equal(t, "alice", r.From)
	assert.Equal(t, "carol", r.To)
}

func TestRemoveCharacterCascades(t *testing.T) {
	s := newPopulatedStore(t)
	ab, err := s.AddRelation(entities.RelationInput{From: "alice", To: "bob"})
	require.NoError(t, err)
	bc, err := s.AddRelation(entities.RelationInput{From: "bob", To: "carol"})
	require.NoError(t, err)
	ca, err := s.AddRelation(entities.RelationInput{From: "carol", To: "alice"})
	require.NoError(t, err)

	s1, err := s.CreateSheet("Plot")
	require.NoError(t, err)
	require.NoError(t, s.SetNodePos(s1, "alice", valueobjects.Position{X: 10, Y: 20}))
	require.NoError(t, s.SetNodePos(valueobjects.DefaultSheetID, "alice", valueobjects.Position{X: 1, Y: 2}))
	require.NoError(t, s.SetEdgeWaypoints(s1, ab, []valueobjects.Position{{X: 5, Y: 5}}))
	require.NoError(t, s.SetSheetVisibility(s1, entities.Visibility{
		Characters: []string{"bob", "alice"},
		Relations:  []string{ab, bc},
	}))
	gid, err := s.AddGroup(entities.Group{Name: "Leads", Members: []string{"alice", "bob"}})
	require.NoError(t, err)
	s.PullEvents()

	removal := s.RemoveCharacterByID("alice")
	require.NotNil(t, removal)
	assert.Len(t, removal.Relations, 2)

	assert.False(t, s.ExistsCharacter("alice"))
	assert.False(t, s.ExistsRelation(ab))
	assert.False(t, s.ExistsRelation(ca))
	assert.True(t, s.ExistsRelation(bc))
	for _, r := range s.ListRelations() {
		assert.False(t, r.Touches("alice"))
	}

	sheet, err := s.GetSheet(s1)
	require.NoError(t, err)
	assert.NotContains(t, sheet.Positions, "alice")
	assert.NotContains(t, sheet.Waypoints, ab)
	assert.Equal(t, []string{"bob"}, sheet.Visible.Characters)
	assert.Equal(t, []string{bc}, sheet.Visible.Relations)

	g, err := s.GetGroup(gid)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, g.Members)

	evts := s.PullEvents()
	require.Len(t, evts, 1)
	deleted, ok := evts[0].(events.CharacterDeleted)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{ab, ca}, deleted.CascadedRelations)

	assert.Nil(t, s.RemoveCharacterByID("alice"))
}

func TestRestoreCharacterIsExact(t *testing.T) {
	s := newPopulatedStore(t)
	s.SetCharacterTags([]string{"age"})
	_, err := s.AddRelation(entities.RelationInput{ID: "r1", From: "alice", To: "bob"})
	require.NoError(t, err)
	_, err = s.AddRelation(entities.RelationInput{ID: "r2", From: "bob", To: "carol"})
	require.NoError(t, err)
	_, err = s.AddRelation(entities.RelationInput{ID: "r3", From: "carol", To: "alice"})
	require.NoError(t, err)
	require.NoError(t, s.SetNodePos(valueobjects.DefaultSheetID, "alice", valueobjects.Position{X: 3, Y: 4}))
	require.NoError(t, s.SetEdgeWaypoints(valueobjects.DefaultSheetID, "r3", []valueobjects.Position{{X: 1, Y: 1}}))
	require.NoError(t, s.SetSheetVisibility(valueobjects.DefaultSheetID, entities.Visibility{
		Characters: []string{"alice", "bob"},
	}))
	_, err = s.AddGroup(entities.Group{ID: "g", Name: "G", Members: []string{"bob", "alice", "carol"}})
	require.NoError(t, err)

	before := s.State()
	removal := s.RemoveCharacterByID("alice")
	require.NotNil(t, removal)
	require.NoError(t, s.RestoreCharacter(*removal))

	after := s.State()
	assert.Equal(t, before.Characters, after.Characters)
	assert.Equal(t, before.Relations, after.Relations)
	assert.Equal(t, before.Sheets, after.Sheets)
	assert.Equal(t, before.Groups, after.Groups)

	err = s.RestoreCharacter(*removal)
	assert.ErrorIs(t, err, pkgerrors.ErrDuplicateID)
}

func TestRemoveRelationCascadesAndRestores(t *testing.T) {
	s := newPopulatedStore(t)
	id, err := s.AddRelation(entities.RelationInput{From: "alice", To: "bob"})
	require.NoError(t, err)
	require.NoError(t, s.SetEdgeWaypoints(valueobjects.DefaultSheetID, id, []valueobjects.Position{{X: 1, Y: 2}, {X: 3, Y: 4}}))
	require.NoError(t, s.SetSheetVisibility(valueobjects.DefaultSheetID, entities.Visibility{Relations: []string{id}}))
	before := s.State()

	removal := s.RemoveRelationByID(id)
	require.NotNil(t, removal)
	sheet, err := s.GetSheet(valueobjects.DefaultSheetID)
	require.NoError(t, err)
	assert.Empty(t, sheet.Waypoints)
	assert.Equal(t, []string{}, sheet.Visible.Relations)

	require.NoError(t, s.RestoreRelation(*removal))
	assert.Equal(t, before.Sheets, s.State().Sheets)
	assert.Equal(t, before.Relations, s.State().Relations)

	assert.Nil(t, s.RemoveRelationByID("missing"))
}

func TestSetCharacterTags(t *testing.T) {
	s := newPopulatedStore(t)
	require.NoError(t, s.UpdateCharacter("alice", entities.CharacterPatch{Attrs: map[string]string{"age": "30"}}))

	s.SetCharacterTags([]string{"age", "role", "age", " ", "role"})
	assert.Equal(t, []string{"age", "role"}, s.TagKeys())
	for _, c := range s.ListCharacters() {
		assert.Contains(t, c.Attrs, "age")
		assert.Contains(t, c.Attrs, "role")
	}

	// values for dropped keys survive
	s.SetCharacterTags([]string{"role"})
	alice, err := s.GetCharacter("alice")
	require.NoError(t, err)
	assert.Equal(t, "30", alice.Attrs["age"])
}

func TestTagKeyOperations(t *testing.T) {
	s := newPopulatedStore(t)
	require.NoError(t, s.AddTagKey("age"))
	require.NoError(t, s.AddTagKey("role"))
	assert.ErrorIs(t, s.AddTagKey("age"), pkgerrors.ErrDuplicateID)
	assert.True(t, pkgerrors.IsValidation(s.AddTagKey(" ")))

	require.NoError(t, s.UpdateCharacter("bob", entities.CharacterPatch{Attrs: map[string]string{"age": "41"}}))
	require.NoError(t, s.RenameTagKey("age", "years"))
	bob, err := s.GetCharacter("bob")
	require.NoError(t, err)
	assert.Equal(t, "41", bob.Attrs["years"])
	assert.NotContains(t, bob.Attrs, "age")
	assert.Equal(t, []string{"years", "role"}, s.TagKeys())
	assert.True(t, pkgerrors.IsNotFound(s.RenameTagKey("age", "x")))

	require.NoError(t, s.ReorderTagKeys([]string{"role", "years"}))
	assert.Equal(t, []string{"role", "years"}, s.TagKeys())
	assert.True(t, pkgerrors.IsValidation(s.ReorderTagKeys([]string{"role"})))
	assert.True(t, pkgerrors.IsValidation(s.ReorderTagKeys([]string{"role", "role"})))

	require.NoError(t, s.RemoveTagKey("years"))
	bob, err = s.GetCharacter("bob")
	require.NoError(t, err)
	assert.NotContains(t, bob.Attrs, "years")
	assert.True(t, pkgerrors.IsNotFound(s.RemoveTagKey("years")))
}

func TestSetNodePos(t *testing.T) {
	tests := []struct {
		name    string
		sheetID string
		charID  string
		pos     valueobjects.Position
		wantErr error
	}{
		{"valid", valueobjects.DefaultSheetID, "alice", valueobjects.Position{X: 1, Y: 2}, nil},
		{"missing sheet", "nope", "alice", valueobjects.Position{}, pkgerrors.ErrSheetNotFound},
		{"missing character", valueobjects.DefaultSheetID, "nope", valueobjects.Position{}, pkgerrors.ErrCharacterNotFound},
		{"nan", valueobjects.DefaultSheetID, "alice", valueobjects.Position{X: math.NaN()}, pkgerrors.ErrInvalidPosition},
		{"inf", valueobjects.DefaultSheetID, "alice", valueobjects.Position{Y: math.Inf(-1)}, pkgerrors.ErrInvalidPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newPopulatedStore(t)
			err := s.SetNodePos(tt.sheetID, tt.charID, tt.pos)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, ok := s.NodePosition(valueobjects.DefaultSheetID, "alice")
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			pos, ok := s.NodePosition(tt.sheetID, tt.charID)
			require.True(t, ok)
			assert.Equal(t, tt.pos, pos)

			require.NoError(t, s.ClearNodePos(tt.sheetID, tt.charID))
			_, ok = s.NodePosition(tt.sheetID, tt.charID)
			assert.False(t, ok)
		})
	}
}

func TestSheetLifecycle(t *testing.T) {
	s := NewStore()
	id, err := s.CreateSheet("Act II")
	require.NoError(t, err)

	sheet, err := s.GetSheet(id)
	require.NoError(t, err)
	assert.Empty(t, sheet.Positions)
	assert.Empty(t, sheet.Waypoints)
	assert.Nil(t, sheet.Visible.Characters)
	assert.Nil(t, sheet.Visible.Relations)

	require.NoError(t, s.RenameSheet(id, "Act III"))
	sheet, err = s.GetSheet(id)
	require.NoError(t, err)
	assert.Equal(t, "Act III", sheet.Name)

	_, err = s.CreateSheet("")
	assert.True(t, pkgerrors.IsValidation(err))

	require.NoError(t, s.DeleteSheet(valueobjects.DefaultSheetID))
	assert.True(t, pkgerrors.IsValidation(s.DeleteSheet(id)))
	assert.Len(t, s.ListSheets(), 1)
}

func TestSetSheetVisibility(t *testing.T) {
	s := newPopulatedStore(t)
	err := s.SetSheetVisibility(valueobjects.DefaultSheetID, entities.Visibility{Characters: []string{"alice", "ghost"}})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidReference)

	require.NoError(t, s.SetSheetVisibility(valueobjects.DefaultSheetID, entities.Visibility{Characters: []string{}}))
	sheet, err := s.GetSheet(valueobjects.DefaultSheetID)
	require.NoError(t, err)
	assert.NotNil(t, sheet.Visible.Characters)
	assert.Empty(t, sheet.Visible.Characters)
	assert.Nil(t, sheet.Visible.Relations)
}

func TestGroups(t *testing.T) {
	s := newPopulatedStore(t)
	_, err := s.AddGroup(entities.Group{Name: "Bad", Members: []string{"ghost"}})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidReference)

	id, err := s.AddGroup(entities.Group{Name: "Family", Members: []string{"alice", "alice"}})
	require.NoError(t, err)
	require.NoError(t, s.AddMembers(id, []string{"bob", "alice"}))
	g, err := s.GetGroup(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, g.Members)

	require.NoError(t, s.RemoveMembers(id, []string{"alice", "nobody"}))
	color := "#ff0000"
	require.NoError(t, s.UpdateGroup(id, entities.GroupPatch{Color: &color}))
	g, err = s.GetGroup(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, g.Members)
	assert.Equal(t, "#ff0000", g.Color)

	removal := s.RemoveGroupByID(id)
	require.NotNil(t, removal)
	assert.Empty(t, s.ListGroups())
	require.NoError(t, s.RestoreGroup(*removal))
	assert.Equal(t, []entities.Group{g}, s.ListGroups())
}

func TestReplace(t *testing.T) {
	s := newPopulatedStore(t)
	revision := s.Revision()

	err := s.Replace(State{Characters: []entities.Character{{ID: "x", Name: "X"}, {ID: "x", Name: "Y"}}})
	assert.ErrorIs(t, err, pkgerrors.ErrDuplicateID)
	assert.Equal(t, revision, s.Revision())
	assert.Len(t, s.ListCharacters(), 3)

	sheet := entities.NewSheet("s1", "One")
	sheet.Positions["x"] = valueobjects.Position{X: 1, Y: 1}
	sheet.Positions["ghost"] = valueobjects.Position{X: 2, Y: 2}
	sheet.Visible.Characters = []string{"ghost", "x"}
	err = s.Replace(State{
		CharacterTags: []string{"age"},
		Characters:    []entities.Character{{ID: "x", Name: "X"}},
		Sheets:        []entities.Sheet{sheet},
		Groups:        []entities.Group{{ID: "g", Name: "G", Members: []string{"x", "ghost"}}},
	})
	require.NoError(t, err)

	got, err := s.GetSheet("s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]valueobjects.Position{"x": {X: 1, Y: 1}}, got.Positions)
	assert.Equal(t, []string{"x"}, got.Visible.Characters)
	g, err := s.GetGroup("g")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, g.Members)
	x, err := s.GetCharacter("x")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"age": ""}, x.Attrs)
	assert.Equal(t, revision+1, s.Revision())
}

func TestClear(t *testing.T) {
	s := newPopulatedStore(t)
	_, err := s.CreateSheet("Extra")
	require.NoError(t, err)

	s.Clear()
	assert.Empty(t, s.ListCharacters())
	require.Len(t, s.ListSheets(), 1)
	assert.Equal(t, valueobjects.DefaultSheetID, s.ListSheets()[0].ID)
}
