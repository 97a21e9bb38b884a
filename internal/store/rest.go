package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

// RESTStore persists resources through the management API. The aggregate travels in
// a single request so the server applies endpoints and authentications together.
//
// The API treats passwords as write-only. Passwords written through this store are
// remembered per resource and role and filled back into what the API returns, so a
// secret stored earlier in the same process can still be resolved by resource ID.
type RESTStore struct {
	client *client.ManagedResourceClient

	mu        sync.Mutex
	passwords map[string]map[string]string // id -> role -> password
}

// NewRESTStore returns a store for the management API at baseURL
func NewRESTStore(baseURL, accessToken string, retry *client.RetryConfig) (*RESTStore, error) {
	rest, err := client.NewRestClient(baseURL, accessToken, retry)
	if err != nil {
		return nil, fmt.Errorf("failed to build management API client: %w", err)
	}
	return &RESTStore{
		client:    client.NewManagedResourceClient(rest),
		passwords: map[string]map[string]string{},
	}, nil
}

// remember records the non-empty passwords of r under id
func (s *RESTStore) remember(id string, r *models.ManagedResource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, auth := range r.Authentications {
		if auth.Password == "" {
			continue
		}
		if s.passwords[id] == nil {
			s.passwords[id] = map[string]string{}
		}
		s.passwords[id][auth.Role] = auth.Password
	}
}

func (s *RESTStore) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.passwords, id)
}

// withPasswords converts api and fills passwords the API left out
func (s *RESTStore) withPasswords(api *models.ManagedResourceAPI) *models.ManagedResource {
	r := models.FromAPI(api)

	s.mu.Lock()
	defer s.mu.Unlock()
	known := s.passwords[r.ID]
	for i := range r.Authentications {
		if r.Authentications[i].Password == "" {
			r.Authentications[i].Password = known[r.Authentications[i].Role]
		}
	}
	return r
}

func (s *RESTStore) Create(ctx context.Context, resource *models.ManagedResource) (*models.ManagedResource, error) {
	if err := validateForWrite("create", resource); err != nil {
		return nil, err
	}
	created, err := s.client.CreateManagedResource(ctx, resource.ToAPI())
	if err != nil {
		return nil, &client.PersistenceError{Operation: "create", Cause: err}
	}
	s.remember(models.StringValue(created.ID), resource)
	return s.withPasswords(created), nil
}

func (s *RESTStore) Find(ctx context.Context, id string) (*models.ManagedResource, error) {
	found, err := s.client.GetManagedResource(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withPasswords(found), nil
}

func (s *RESTStore) Update(ctx context.Context, resource *models.ManagedResource) (*models.ManagedResource, error) {
	if err := validateForWrite("update", resource); err != nil {
		return nil, err
	}
	updated, err := s.client.UpdateManagedResource(ctx, resource.ID, resource.ToAPI())
	if err != nil {
		return nil, &client.PersistenceError{Operation: "update", Cause: err}
	}
	s.remember(resource.ID, resource)
	return s.withPasswords(updated), nil
}

func (s *RESTStore) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteManagedResource(ctx, id); err != nil {
		return err
	}
	s.forget(id)
	return nil
}

func (s *RESTStore) List(ctx context.Context) ([]*models.ManagedResource, error) {
	found, err := s.client.ListManagedResources(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.ManagedResource, 0, len(found))
	for _, api := range found {
		out = append(out, s.withPasswords(api))
	}
	return out, nil
}
