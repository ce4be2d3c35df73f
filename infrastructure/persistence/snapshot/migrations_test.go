package snapshot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "relmap-backend/pkg/errors"
)

func TestRegistryMissingStep(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Step{From: 1, Up: migrateV1toV2}))

	_, from, err := r.Migrate(RawDocument{"version": float64(1)}, 3)
	assert.Equal(t, 1, from)
	assert.ErrorIs(t, err, pkgerrors.ErrMissingMigration)
	assert.Contains(t, err.Error(), "no migration found from version 2 to 3")
}

func TestRegistryNewerVersion(t *testing.T) {
	tests := []struct {
		name    string
		version float64
		from    int
	}{
		{name: "next version", version: 4, from: 4},
		{name: "beyond int range", version: 1e20, from: math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, from, err := DefaultRegistry().Migrate(RawDocument{"version": tt.version}, CurrentVersion)
			assert.ErrorIs(t, err, pkgerrors.ErrNewerSnapshot)
			assert.Equal(t, tt.from, from)
		})
	}
}

func TestRegistryRejectsDuplicateStep(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Step{From: 1, Up: migrateV1toV2}))
	assert.Error(t, r.Register(Step{From: 1, Up: migrateV1toV2}))
	assert.Error(t, r.Register(Step{From: 2}))
}

func TestRegistryStepMustBumpVersion(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Step{From: 1, Up: func(doc RawDocument) (RawDocument, error) {
		return doc, nil
	}}))

	_, _, err := r.Migrate(RawDocument{}, 2)
	assert.True(t, pkgerrors.IsMigration(err))
}

func TestRegistryCurrentVersionIsNoop(t *testing.T) {
	doc := RawDocument{"version": float64(CurrentVersion), "characters": []interface{}{}}
	out, from, err := DefaultRegistry().Migrate(doc, CurrentVersion)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, from)
	assert.Equal(t, doc, out)
}

func TestMigrateV1ToV3(t *testing.T) {
	doc := RawDocument{
		"characters": []interface{}{
			map[string]interface{}{"id": "a", "name": "A", "x": 5.0, "y": 6.0},
		},
		"relations": []interface{}{
			map[string]interface{}{"id": "rel_v1_1", "from": "a", "to": "b"},
			map[string]interface{}{"from": "b", "to": "a"},
		},
	}
	out, from, err := DefaultRegistry().Migrate(doc, CurrentVersion)
	require.NoError(t, err)
	assert.Equal(t, 1, from)
	assert.Equal(t, float64(3), out["version"])

	c := out["characters"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, c, "x")
	assert.NotContains(t, c, "pos")

	rels := out["relations"].([]interface{})
	assert.Equal(t, "rel_v1_1", rels[0].(map[string]interface{})["id"])
	assert.Equal(t, "rel_v1_2", rels[1].(map[string]interface{})["id"])

	sheets := out["sheets"].([]interface{})
	require.Len(t, sheets, 1)
	positions := sheets[0].(map[string]interface{})["positions"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"x": 5.0, "y": 6.0}, positions["a"])
	assert.Equal(t, []interface{}{}, out["groups"])
}
