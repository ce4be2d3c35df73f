package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relmap-backend/domain/core/entities"
	pkgerrors "relmap-backend/pkg/errors"
)

func TestValidateStruct(t *testing.T) {
	blank := "   "
	ended := entities.StatusEnded
	bogus := entities.RelationStatus("paused")

	tests := []struct {
		name    string
		input   interface{}
		wantErr bool
		field   string
	}{
		{"valid character", entities.Character{Name: "Alice"}, false, ""},
		{"blank character name", entities.Character{Name: "  "}, true, "name"},
		{"patch without name", entities.CharacterPatch{}, false, ""},
		{"patch with blank name", entities.CharacterPatch{Name: &blank}, true, "name"},
		{"relation missing endpoint", entities.RelationInput{From: "a"}, true, "to"},
		{"relation bad status", entities.RelationInput{From: "a", To: "b", Status: "paused"}, true, "status"},
		{"relation patch good status", entities.RelationPatch{Status: &ended}, false, ""},
		{"relation patch bad status", entities.RelationPatch{Status: &bogus}, true, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))

			var verrs *pkgerrors.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.ToMap(), tt.field)
		})
	}
}
