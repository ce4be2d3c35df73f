package autosave

import (
	"context"
	"errors"
	"io/fs"
	"regexp"
	"sort"

	"github.com/peterbourgon/diskv/v3"

	pkgerrors "relmap-backend/pkg/errors"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Store keeps one encoded snapshot per key as a file under a base
// directory, with a small read cache in front
type Store struct {
	d *diskv.Diskv
}

// NewStore opens (or creates on first write) the store rooted at basePath
func NewStore(basePath string) *Store {
	return &Store{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 4 << 20,
	})}
}

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return pkgerrors.NewValidationError("INVALID_KEY", "autosave key may only contain letters, digits, '-' and '_'").
			WithDetail("key", key)
	}
	return nil
}

// Save writes data under key, replacing any previous value
func (s *Store) Save(_ context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.d.Write(key, data)
}

// Load returns the data saved under key
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, pkgerrors.NewNotFoundError("autosave", key)
	}
	return data, err
}

// Delete removes key. Deleting a missing key is a NotFound error.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if !s.d.Has(key) {
		return pkgerrors.NewNotFoundError("autosave", key)
	}
	return s.d.Erase(key)
}

// Keys lists the saved keys in sorted order
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0)
	for key := range s.d.Keys(ctx.Done()) {
		keys = append(keys, key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
