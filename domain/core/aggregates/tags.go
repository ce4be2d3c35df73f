package aggregates

import (
	"strings"

	"relmap-backend/domain/core/entities"
	"relmap-backend/domain/events"
	pkgerrors "relmap-backend/pkg/errors"
)

// TagKeys returns the ordered tag key set
func (s *Store) TagKeys() []string {
	out := make([]string, len(s.tagKeys))
	copy(out, s.tagKeys)
	return out
}

func (s *Store) hasTagKey(key string) bool {
	return indexOf(s.tagKeys, key) >= 0
}

// SetCharacterTags replaces the tag key set. Keys are trimmed and
// de-duplicated; new keys are back-filled with "" on every character.
// Values of keys that disappear are kept on the characters.
func (s *Store) SetCharacterTags(keys []string) {
	normalized := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			normalized = append(normalized, k)
		}
	}
	s.tagKeys = dedupe(normalized)
	s.backfillAttrs()
	s.changed(events.TagsChanged, "")
}

// AddTagKey appends a tag key
func (s *Store) AddTagKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return pkgerrors.NewValidationError("BLANK_TAG", "tag key is required")
	}
	if s.hasTagKey(key) {
		return pkgerrors.NewDuplicateIDError("tag", key)
	}
	s.tagKeys = append(s.tagKeys, key)
	s.backfillAttrs()
	s.changed(events.TagsChanged, key)
	return nil
}

// RenameTagKey renames a tag key and moves every character's value
func (s *Store) RenameTagKey(oldKey, newKey string) error {
	newKey = strings.TrimSpace(newKey)
	i := indexOf(s.tagKeys, oldKey)
	if i < 0 {
		return pkgerrors.NewNotFoundError("tag", oldKey)
	}
	if newKey == "" {
		return pkgerrors.NewValidationError("BLANK_TAG", "tag key is required")
	}
	if newKey == oldKey {
		return nil
	}
	if s.hasTagKey(newKey) {
		return pkgerrors.NewDuplicateIDError("tag", newKey)
	}
	keys := s.TagKeys()
	keys[i] = newKey
	s.tagKeys = keys
	for _, c := range s.characters {
		if c.Attrs == nil {
			c.Attrs = make(map[string]string)
		}
		c.Attrs[newKey] = c.Attrs[oldKey]
		delete(c.Attrs, oldKey)
	}
	s.changed(events.TagsChanged, newKey)
	return nil
}

// RemoveTagKey drops a tag key and purges it from every character
func (s *Store) RemoveTagKey(key string) error {
	if !s.hasTagKey(key) {
		return pkgerrors.NewNotFoundError("tag", key)
	}
	s.tagKeys = removeValue(s.tagKeys, key)
	for _, c := range s.characters {
		delete(c.Attrs, key)
	}
	s.changed(events.TagsChanged, key)
	return nil
}

// ReorderTagKeys sets a new order; it must be a permutation of the current keys
func (s *Store) ReorderTagKeys(order []string) error {
	if len(order) != len(s.tagKeys) || len(dedupe(order)) != len(order) {
		return pkgerrors.NewValidationError("INVALID_ORDER", "order must list every tag key exactly once")
	}
	for _, k := range order {
		if !s.hasTagKey(k) {
			return pkgerrors.NewValidationError("INVALID_ORDER", "order must list every tag key exactly once").
				WithDetail("key", k)
		}
	}
	s.tagKeys = append([]string(nil), order...)
	s.changed(events.TagsChanged, "")
	return nil
}

// TagSnapshot is the tag key set together with every character's attrs
type TagSnapshot struct {
	Keys  []string
	Attrs map[string]map[string]string
}

// CaptureTags records the tag keys and the attrs of every character
func (s *Store) CaptureTags() TagSnapshot {
	snap := TagSnapshot{
		Keys:  s.TagKeys(),
		Attrs: make(map[string]map[string]string, len(s.characters)),
	}
	for id, c := range s.characters {
		snap.Attrs[id] = c.Clone().Attrs
	}
	return snap
}

// RestoreTags puts back a captured tag state exactly. Characters missing
// from the snapshot keep their attrs.
func (s *Store) RestoreTags(snap TagSnapshot) {
	s.tagKeys = append([]string{}, snap.Keys...)
	for id, attrs := range snap.Attrs {
		c, ok := s.characters[id]
		if !ok {
			continue
		}
		c.Attrs = entities.Character{Attrs: attrs}.Clone().Attrs
	}
	s.changed(events.TagsChanged, "")
}

func (s *Store) backfillAttrs() {
	for _, c := range s.characters {
		c.FillAttrs(s.tagKeys)
	}
}
