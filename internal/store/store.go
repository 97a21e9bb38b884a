// Package store persists managed resources. Every write validates the whole
// aggregate (resource, endpoints, authentications) and is applied all-or-nothing.
package store

import (
	"context"
	"fmt"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

// Store is the persistence collaborator of the manager
type Store interface {
	// Create persists a new resource and returns the stored copy with ID and timestamps set
	Create(ctx context.Context, resource *models.ManagedResource) (*models.ManagedResource, error)
	// Find returns client.ErrResourceNotFound (wrapped) when id does not exist
	Find(ctx context.Context, id string) (*models.ManagedResource, error)
	// Update replaces the stored aggregate with resource
	Update(ctx context.Context, resource *models.ManagedResource) (*models.ManagedResource, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.ManagedResource, error)
}

func validateForWrite(op string, resource *models.ManagedResource) error {
	if resource == nil {
		return &client.PersistenceError{Operation: op, Cause: fmt.Errorf("resource is nil")}
	}
	if err := resource.Validate(); err != nil {
		return &client.PersistenceError{Operation: op, Cause: err}
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", client.ErrResourceNotFound, id)
}
