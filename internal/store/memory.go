package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

// MemoryStore keeps resources in process memory. Callers always receive copies.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[string]*models.ManagedResource
	now       func() time.Time
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resources: map[string]*models.ManagedResource{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, resource *models.ManagedResource) (*models.ManagedResource, error) {
	if err := validateForWrite("create", resource); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := resource.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := s.resources[stored.ID]; exists {
		return nil, &client.PersistenceError{Operation: "create", Cause: fmt.Errorf("resource %s already exists", stored.ID)}
	}
	now := s.now()
	stored.CreatedAt, stored.UpdatedAt = now, now
	s.resources[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*models.ManagedResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.resources[id]
	if !ok {
		return nil, notFound(id)
	}
	return stored.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, resource *models.ManagedResource) (*models.ManagedResource, error) {
	if err := validateForWrite("update", resource); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.resources[resource.ID]
	if !ok {
		return nil, &client.PersistenceError{Operation: "update", Cause: notFound(resource.ID)}
	}
	stored := resource.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = s.now()
	s.resources[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[id]; !ok {
		return notFound(id)
	}
	delete(s.resources, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.ManagedResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ManagedResource, 0, len(s.resources))
	for _, r := range s.resources {
		out = append(out, r.Clone())
	}
	sortByName(out)
	return out, nil
}

func sortByName(resources []*models.ManagedResource) {
	slices.SortFunc(resources, func(a, b *models.ManagedResource) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
