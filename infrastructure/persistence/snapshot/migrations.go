package snapshot

import (
	"fmt"
	"math"

	"relmap-backend/domain/core/valueobjects"
	pkgerrors "relmap-backend/pkg/errors"
)

// StepFunc upgrades a document by exactly one version. It receives its own
// copy of the document and must set the new version.
type StepFunc func(doc RawDocument) (RawDocument, error)

// Step is a registered migration from one version to the next
type Step struct {
	From        int
	Description string
	Up          StepFunc
}

// Registry holds the ordered chain of migration steps
type Registry struct {
	steps map[int]Step
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{steps: make(map[int]Step)}
}

// DefaultRegistry returns the registry with every known step
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(Step{From: 1, Description: "flat x/y to pos, normalize relations", Up: migrateV1toV2})
	_ = r.Register(Step{From: 2, Description: "positions into sheets, add groups", Up: migrateV2toV3})
	return r
}

// Register adds a step. Only one step per source version is allowed.
func (r *Registry) Register(step Step) error {
	if step.Up == nil {
		return fmt.Errorf("migration from version %d has no function", step.From)
	}
	if _, exists := r.steps[step.From]; exists {
		return fmt.Errorf("migration from %d to %d already exists", step.From, step.From+1)
	}
	r.steps[step.From] = step
	return nil
}

// Migrate upgrades doc to target and returns the upgraded copy together
// with the version it started at. doc itself is never modified.
func (r *Registry) Migrate(doc RawDocument, target int) (RawDocument, int, error) {
	v, err := readVersion(doc)
	if err != nil {
		return nil, 0, err
	}
	// compare before converting; huge versions would overflow int
	if v > float64(target) {
		from := math.MaxInt32
		if v < math.MaxInt32 {
			from = int(v)
		}
		return nil, from, pkgerrors.NewMigrationError(pkgerrors.ErrNewerSnapshot.Code,
			fmt.Sprintf("snapshot version %.0f is newer than supported version %d", v, target)).
			WithDetail("version", from)
	}
	from := int(v)

	current := copyValue(doc).(RawDocument)
	for version := from; version < target; version++ {
		step, ok := r.steps[version]
		if !ok {
			return nil, from, pkgerrors.NewMigrationError(pkgerrors.ErrMissingMigration.Code,
				fmt.Sprintf("no migration found from version %d to %d", version, version+1))
		}
		next, err := step.Up(copyValue(current).(RawDocument))
		if err != nil {
			return nil, from, pkgerrors.NewMigrationError("STEP_FAILED",
				fmt.Sprintf("migration %d->%d failed", version, version+1)).WithCause(err)
		}
		got, err := readVersion(next)
		if err != nil || got != float64(version+1) {
			return nil, from, pkgerrors.NewMigrationError("STEP_VERSION",
				fmt.Sprintf("migration %d->%d did not set version %d", version, version+1, version+1))
		}
		current = next
	}
	return current, from, nil
}

// readVersion reads the version field; a missing version means 1
func readVersion(doc RawDocument) (float64, error) {
	raw, ok := doc["version"]
	if !ok || raw == nil {
		return 1, nil
	}
	f, ok := raw.(float64)
	if !ok {
		if i, isInt := raw.(int); isInt {
			f = float64(i)
		} else {
			return 0, pkgerrors.NewValidationError("INVALID_VERSION", "version must be a number")
		}
	}
	if f != math.Trunc(f) || f < 1 {
		return 0, pkgerrors.NewValidationError("INVALID_VERSION", "version must be a positive integer")
	}
	return f, nil
}

// migrateV1toV2 folds flat x/y into pos, fills character ids and attrs, and
// gives every relation an id and the default fields
func migrateV1toV2(doc RawDocument) (RawDocument, error) {
	chars := listOf(doc["characters"])
	for _, item := range chars {
		c, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id := stringify(c["id"])
		if id == "" {
			id = stringify(c["name"])
		}
		if id != "" {
			c["id"] = id
		}
		if _, has := c["pos"]; !has {
			x, xok := c["x"].(float64)
			y, yok := c["y"].(float64)
			if xok && yok {
				c["pos"] = map[string]interface{}{"x": x, "y": y}
			}
		}
		delete(c, "x")
		delete(c, "y")
		if _, ok := c["attrs"].(map[string]interface{}); !ok {
			c["attrs"] = map[string]interface{}{}
		}
	}
	doc["characters"] = chars

	rels := listOf(doc["relations"])
	taken := make(map[string]bool, len(rels))
	for _, item := range rels {
		if r, ok := item.(map[string]interface{}); ok {
			if id := stringify(r["id"]); id != "" {
				taken[id] = true
			}
		}
	}
	seq := 0
	for _, item := range rels {
		r, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id := stringify(r["id"])
		if id == "" {
			for id == "" || taken[id] {
				seq++
				id = fmt.Sprintf("%s_v1_%d", valueobjects.RelationPrefix, seq)
			}
		}
		taken[id] = true
		r["id"] = id
		r["from"] = stringify(r["from"])
		r["to"] = stringify(r["to"])
		setDefault(r, "label", "")
		setDefault(r, "strength", float64(3))
		setDefault(r, "type", "unspecified")
		setDefault(r, "status", "active")
		mutual, _ := r["mutual"].(bool)
		r["mutual"] = mutual
	}
	doc["relations"] = rels

	if _, ok := doc["characterTags"].([]interface{}); !ok {
		doc["characterTags"] = []interface{}{}
	}
	doc["version"] = float64(2)
	return doc, nil
}

// migrateV2toV3 moves character positions into the default sheet and adds
// the groups list
func migrateV2toV3(doc RawDocument) (RawDocument, error) {
	positions := map[string]interface{}{}
	for _, item := range listOf(doc["characters"]) {
		c, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if pos, ok := c["pos"].(map[string]interface{}); ok {
			if id := stringify(c["id"]); id != "" {
				positions[id] = pos
			}
		}
		delete(c, "pos")
	}

	if _, ok := doc["sheets"].([]interface{}); !ok {
		doc["sheets"] = []interface{}{
			map[string]interface{}{
				"id":        valueobjects.DefaultSheetID,
				"name":      "Default",
				"positions": positions,
				"waypoints": map[string]interface{}{},
				"visible":   map[string]interface{}{},
			},
		}
	}
	if _, ok := doc["groups"].([]interface{}); !ok {
		doc["groups"] = []interface{}{}
	}
	doc["version"] = float64(3)
	return doc, nil
}

func listOf(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{}
}

func setDefault(m map[string]interface{}, key string, value interface{}) {
	if cur, ok := m[key]; !ok || cur == nil || cur == "" {
		m[key] = value
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}

// copyValue deep-copies decoded JSON values
func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = copyValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = copyValue(val)
		}
		return out
	default:
		return t
	}
}
