package manager

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/credentials"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

var _ ProviderConnectable = (*Resource)(nil)

// Resource is a stored managed resource bound to the Manager that loaded it
type Resource struct {
	*models.ManagedResource
	manager *Manager
}

// Connect resolves credentials (options first, then the resource's own record),
// and connects using the stored tenant, subscription, region and default endpoint.
// It fails with *client.HostCredentialsError when the resource has no credentials
// for the requested auth type.
func (r *Resource) Connect(ctx context.Context, opts ConnectOptions) (models.ConnectionResult, error) {
	authType := models.NormalizeRole(opts.AuthType)
	if !r.HasCredentials(authType) {
		return models.ConnectionResult{}, &client.HostCredentialsError{AuthType: authType}
	}

	creds, err := credentials.Resolve(ctx, credentials.Input{
		AuthType:       authType,
		ExplicitUser:   opts.User,
		ExplicitSecret: opts.Password,
		Stored:         r.Authentication(authType),
		Decrypter:      r.manager.decrypter,
	})
	if err != nil {
		return models.ConnectionResult{Reason: err.Error()}, err
	}

	return r.manager.validator.Connect(ctx, models.ConnectionRequest{
		ClientID:       creds.ClientID,
		ClientSecret:   creds.ClientSecret,
		TenantID:       r.UID,
		SubscriptionID: r.SubscriptionID,
		Region:         r.Region,
		EndpointURL:    r.DefaultEndpointURL(),
		ProxyURI:       r.manager.proxyFor(opts.ProxyURI),
	})
}

// VerifyCredentials is Connect reported as a boolean; the error is returned as well
func (r *Resource) VerifyCredentials(ctx context.Context, opts ConnectOptions) (bool, error) {
	_, err := r.Connect(ctx, opts)
	return err == nil, err
}

// EditWithParams merges the "default" endpoint and authentication entries of params
// into the resource's default records, applies the top-level fields, and persists.
// Other roles are never touched. The resource is replaced only after the store
// accepted the write.
func (r *Resource) EditWithParams(ctx context.Context, params models.ResourceParams) error {
	edit := r.ManagedResource.Clone()

	if ep, ok := params.Endpoints[models.DefaultRole]; ok {
		edit.DefaultEndpoint().AssignAttributes(ep)
	}
	if auth, ok := params.Authentications[models.DefaultRole]; ok {
		prepared, err := r.manager.prepareAuthentication(auth)
		if err != nil {
			return &client.PersistenceError{Operation: "update", Cause: err}
		}
		edit.DefaultAuthentication().AssignAttributes(prepared)
	}
	edit.AssignAttributes(params)

	updated, err := r.manager.store.Update(ctx, edit)
	if err != nil {
		return asPersistenceError("update", err)
	}
	r.ManagedResource = updated

	tflog.Info(ctx, "Updated managed provider", map[string]interface{}{
		"id":   updated.ID,
		"name": updated.Name,
	})
	return nil
}
