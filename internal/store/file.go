package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

// fileDocument is the on-disk YAML layout
type fileDocument struct {
	Providers []*models.ManagedResource `yaml:"providers"`
}

// FileStore keeps all resources in one YAML file. Each write rewrites the file
// through a temp file and rename, so a failed write leaves the previous file intact.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore returns a FileStore backed by path. The file is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	return &FileStore{
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *FileStore) load() (map[string]*models.ManagedResource, error) {
	resources := map[string]*models.ManagedResource{}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return resources, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	for _, r := range doc.Providers {
		if r != nil {
			resources[r.ID] = r
		}
	}
	return resources, nil
}

func (s *FileStore) save(resources map[string]*models.ManagedResource) error {
	doc := fileDocument{Providers: make([]*models.ManagedResource, 0, len(resources))}
	for _, r := range resources {
		doc.Providers = append(doc.Providers, r)
	}
	sortByName(doc.Providers)

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set state file permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) Create(_ context.Context, resource *models.ManagedResource) (*models.ManagedResource, error) {
	if err := validateForWrite("create", resource); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resources, err := s.load()
	if err != nil {
		return nil, &client.PersistenceError{Operation: "create", Cause: err}
	}

	stored := resource.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := resources[stored.ID]; exists {
		return nil, &client.PersistenceError{Operation: "create", Cause: fmt.Errorf("resource %s already exists", stored.ID)}
	}
	now := s.now()
	stored.CreatedAt, stored.UpdatedAt = now, now
	resources[stored.ID] = stored

	if err := s.save(resources); err != nil {
		return nil, &client.PersistenceError{Operation: "create", Cause: err}
	}
	return stored.Clone(), nil
}

func (s *FileStore) Find(_ context.Context, id string) (*models.ManagedResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resources, err := s.load()
	if err != nil {
		return nil, err
	}
	stored, ok := resources[id]
	if !ok {
		return nil, notFound(id)
	}
	return stored, nil
}

func (s *FileStore) Update(_ context.Context, resource *models.ManagedResource) (*models.ManagedResource, error) {
	if err := validateForWrite("update", resource); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resources, err := s.load()
	if err != nil {
		return nil, &client.PersistenceError{Operation: "update", Cause: err}
	}
	existing, ok := resources[resource.ID]
	if !ok {
		return nil, &client.PersistenceError{Operation: "update", Cause: notFound(resource.ID)}
	}

	stored := resource.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = s.now()
	resources[stored.ID] = stored

	if err := s.save(resources); err != nil {
		return nil, &client.PersistenceError{Operation: "update", Cause: err}
	}
	return stored.Clone(), nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resources, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := resources[id]; !ok {
		return notFound(id)
	}
	delete(resources, id)

	if err := s.save(resources); err != nil {
		return &client.PersistenceError{Operation: "delete", Cause: err}
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]*models.ManagedResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resources, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*models.ManagedResource, 0, len(resources))
	for _, r := range resources {
		out = append(out, r)
	}
	sortByName(out)
	return out, nil
}
