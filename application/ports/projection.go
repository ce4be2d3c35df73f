package ports

import (
	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/core/valueobjects"
	"relmap-backend/domain/events"
)

// VisualProjection is the on-screen view of the map. Calls are
// fire-and-forget: a projection that fails to render must not fail the
// mutation that triggered it.
type VisualProjection interface {
	AddNode(c entities.Character)
	UpdateNode(c entities.Character)
	RemoveNode(id string)
	MoveNode(sheetID, id string, pos valueobjects.Position)
	UnplaceNode(sheetID, id string)
	AddEdge(r entities.Relation)
	UpdateEdge(r entities.Relation)
	RemoveEdge(id string)
	SetEdgeWaypoints(sheetID, id string, points []valueobjects.Position)
}

// NopProjection ignores every call
type NopProjection struct{}

func (NopProjection) AddNode(entities.Character)                               {}
func (NopProjection) UpdateNode(entities.Character)                            {}
func (NopProjection) RemoveNode(string)                                        {}
func (NopProjection) MoveNode(string, string, valueobjects.Position)           {}
func (NopProjection) UnplaceNode(string, string)                               {}
func (NopProjection) AddEdge(entities.Relation)                                {}
func (NopProjection) UpdateEdge(entities.Relation)                             {}
func (NopProjection) RemoveEdge(string)                                        {}
func (NopProjection) SetEdgeWaypoints(string, string, []valueobjects.Position) {}

// ChangeListener receives the domain events produced by one session call.
// Autosave collaborators subscribe with one of these.
type ChangeListener func(sessionID string, changes []events.DomainEvent)
