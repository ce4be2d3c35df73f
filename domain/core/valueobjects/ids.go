package valueobjects

import (
	"strings"

	"github.com/google/uuid"
)

// Id prefixes per entity kind
const (
	CharacterPrefix = "char"
	RelationPrefix  = "rel"
	SheetPrefix     = "sheet"
	GroupPrefix     = "grp"
)

// DefaultSheetID is the id of the sheet every store starts with
const DefaultSheetID = "default"

// NewID creates a short random id such as "rel_1f0c9a3b7d2e"
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "_" + raw[:12]
}

// NewCharacterID creates a new random character id
func NewCharacterID() string { return NewID(CharacterPrefix) }

// NewRelationID creates a new random relation id
func NewRelationID() string { return NewID(RelationPrefix) }

// NewSheetID creates a new random sheet id
func NewSheetID() string { return NewID(SheetPrefix) }

// NewGroupID creates a new random group id
func NewGroupID() string { return NewID(GroupPrefix) }
