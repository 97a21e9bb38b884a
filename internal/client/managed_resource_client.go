package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

const managedResourcesPath = "/api/providers"

// ManagedResourceClient wraps RestClient for managed provider operations
type ManagedResourceClient struct {
	RestClient *RestClient
}

// NewManagedResourceClient creates a new managed resource client using the generic RestClient
func NewManagedResourceClient(restClient *RestClient) *ManagedResourceClient {
	return &ManagedResourceClient{RestClient: restClient}
}

func managedResourcePath(id string) string {
	return fmt.Sprintf("%s/%s", managedResourcesPath, url.PathEscape(id))
}

// CreateManagedResource creates a managed resource with its endpoints and authentications
func (c *ManagedResourceClient) CreateManagedResource(ctx context.Context, resource *models.ManagedResourceAPI) (*models.ManagedResourceAPI, error) {
	var response models.ManagedResourceAPI
	err := c.RestClient.DoRequest(ctx, "POST", managedResourcesPath, resource, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to create managed resource: %w", err)
	}
	return &response, nil
}

// GetManagedResource retrieves a managed resource by ID
func (c *ManagedResourceClient) GetManagedResource(ctx context.Context, id string) (*models.ManagedResourceAPI, error) {
	var response models.ManagedResourceAPI
	err := c.RestClient.DoRequest(ctx, "GET", managedResourcePath(id), nil, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to get managed resource: %w", err)
	}
	return &response, nil
}

// UpdateManagedResource replaces an existing managed resource
func (c *ManagedResourceClient) UpdateManagedResource(ctx context.Context, id string, resource *models.ManagedResourceAPI) (*models.ManagedResourceAPI, error) {
	var response models.ManagedResourceAPI
	err := c.RestClient.DoRequest(ctx, "PUT", managedResourcePath(id), resource, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to update managed resource: %w", err)
	}
	return &response, nil
}

// DeleteManagedResource deletes a managed resource
func (c *ManagedResourceClient) DeleteManagedResource(ctx context.Context, id string) error {
	err := c.RestClient.DoRequest(ctx, "DELETE", managedResourcePath(id), nil, nil)
	if err != nil {
		return fmt.Errorf("failed to delete managed resource: %w", err)
	}
	return nil
}

// ListManagedResources lists all managed resources
func (c *ManagedResourceClient) ListManagedResources(ctx context.Context) ([]*models.ManagedResourceAPI, error) {
	var response []*models.ManagedResourceAPI
	err := c.RestClient.DoRequest(ctx, "GET", managedResourcesPath, nil, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to list managed resources: %w", err)
	}
	return response, nil
}
