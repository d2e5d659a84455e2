package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/arkadia-labs/approvia/service/dao"
)

// FsStore is a generic filesystem-backed implementation of dao.Service built
// on viant/afs, so the base location may be a local path, mem:// in tests, or
// any other registered scheme.  Entities are stored one JSON document per
// key, which lets approval continuations survive a process restart between
// suspension and resumption.
type FsStore[T any] struct {
	baseURL     string
	fs          afs.Service
	mu          sync.RWMutex
	keySelector func(*T) string
}

// NewFsStore creates a filesystem store rooted at baseURL.  keySelector
// extracts the entity key (usually the ID field) from a value.
func NewFsStore[T any](baseURL string, keySelector func(*T) string) *FsStore[T] {
	return &FsStore[T]{
		baseURL:     baseURL,
		fs:          afs.New(),
		keySelector: keySelector,
	}
}

// Save persists a record as a JSON document.
func (s *FsStore[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	if key == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.entityURL(key)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", location, err)
	}
	return nil
}

// Load returns a record by key, or nil when it does not exist.
func (s *FsStore[T]) Load(ctx context.Context, key string) (*T, error) {
	if key == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	location := s.entityURL(key)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", location, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	var value T
	if err = json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", location, err)
	}
	return &value, nil
}

// Delete removes a record.  Deleting a missing record is not an error.
func (s *FsStore[T]) Delete(ctx context.Context, key string) error {
	if key == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.entityURL(key)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil || !exists {
		return err
	}
	return s.fs.Delete(ctx, location)
}

// List returns all stored records.
func (s *FsStore[T]) List(ctx context.Context, _ ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exists, err := s.fs.Exists(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", s.baseURL, err)
	}
	if !exists {
		// Nothing was ever saved under baseURL.
		return nil, nil
	}
	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.baseURL, err)
	}
	var out []*T
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", object.URL(), err)
		}
		var value T
		if err = json.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", object.URL(), err)
		}
		out = append(out, &value)
	}
	return out, nil
}

func (s *FsStore[T]) entityURL(key string) string {
	name := strings.ReplaceAll(key, "/", "_")
	return url.Join(s.baseURL, name+".json")
}

var _ dao.Service[string, struct{}] = (*FsStore[struct{}])(nil)
