package snapshot

import (
	"fmt"
	"time"

	"relmap-backend/domain/core/entities"
)

const (
	// CurrentVersion is the schema version written by Export
	CurrentVersion = 3
	// DefaultAppTag identifies documents written by this application
	DefaultAppTag = "char-relmap"
)

// Document is the durable, serializable projection of a store
type Document struct {
	App           string               `json:"app"`
	Version       int                  `json:"version"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
	CharacterTags []string             `json:"characterTags"`
	Characters    []entities.Character `json:"characters"`
	Relations     []entities.Relation  `json:"relations"`
	Sheets        []entities.Sheet     `json:"sheets"`
	Groups        []entities.Group     `json:"groups"`
}

// RawDocument is a decoded but not yet migrated document
type RawDocument = map[string]interface{}

// FileName returns the default download name for a schema version
func FileName(version int) string {
	return fmt.Sprintf("%s.v%d.json", DefaultAppTag, version)
}
