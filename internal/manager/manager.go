// Package manager composes credential resolution, region resolution, connection
// validation and persistence into the managed provider operations.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"golang.org/x/exp/slices"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/connection"
	"github.com/aaearon/terraform-provider-azure-ems/internal/credentials"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
	"github.com/aaearon/terraform-provider-azure-ems/internal/secrets"
	"github.com/aaearon/terraform-provider-azure-ems/internal/store"
)

var _ connection.Transport = (*client.AzureTransport)(nil)

// ConnectOptions overrides stored values for a single connect call
type ConnectOptions struct {
	AuthType string
	User     string
	Password string
	ProxyURI string
}

// ProviderConnectable is implemented by a managed resource bound to a Manager
type ProviderConnectable interface {
	Connect(ctx context.Context, opts ConnectOptions) (models.ConnectionResult, error)
	VerifyCredentials(ctx context.Context, opts ConnectOptions) (bool, error)
	EditWithParams(ctx context.Context, params models.ResourceParams) error
}

// Option configures a Manager
type Option func(*Manager)

// WithDecrypter sets the secrets collaborator. When d also implements
// secrets.Encrypter, passwords are encrypted before they are persisted.
func WithDecrypter(d secrets.Decrypter) Option {
	return func(m *Manager) {
		m.decrypter = d
	}
}

// WithTransport replaces the Azure handshake transport
func WithTransport(t connection.Transport) Option {
	return func(m *Manager) {
		m.validator = connection.NewValidator(t)
	}
}

// WithProxyURI sets the proxy used when a call does not name one
func WithProxyURI(proxyURI string) Option {
	return func(m *Manager) {
		m.proxyURI = proxyURI
	}
}

// Manager is the entry point for managed provider operations
type Manager struct {
	store     store.Store
	decrypter secrets.Decrypter
	validator *connection.Validator
	proxyURI  string
}

// New returns a Manager persisting through st
func New(st store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		decrypter: secrets.Plaintext{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.validator == nil {
		m.validator = connection.NewValidator(client.NewAzureTransport())
	}
	return m
}

func (m *Manager) bind(r *models.ManagedResource) *Resource {
	return &Resource{ManagedResource: r, manager: m}
}

// storedPassword returns the form of password that is persisted
func (m *Manager) storedPassword(password string) (string, error) {
	enc, ok := m.decrypter.(secrets.Encrypter)
	if !ok || password == "" || secrets.IsEncrypted(password) {
		return password, nil
	}
	return enc.Encrypt(password)
}

func (m *Manager) prepareAuthentication(params models.AuthenticationParams) (models.AuthenticationParams, error) {
	if params.Password == nil {
		return params, nil
	}
	stored, err := m.storedPassword(*params.Password)
	if err != nil {
		return params, fmt.Errorf("failed to encrypt password: %w", err)
	}
	params.Password = &stored
	return params, nil
}

func (m *Manager) proxyFor(proxyURI string) string {
	if proxyURI != "" {
		return proxyURI
	}
	return m.proxyURI
}

func asPersistenceError(op string, err error) error {
	var persistErr *client.PersistenceError
	if errors.As(err, &persistErr) {
		return err
	}
	return &client.PersistenceError{Operation: op, Cause: err}
}

func sortedRoles[T any](m map[string]T) []string {
	roles := make([]string, 0, len(m))
	for role := range m {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles
}

// CreateFromParams builds a resource from params and persists the whole aggregate.
// A nil Endpoints map yields a single empty "default" endpoint. Each endpoint and
// authentication is tagged with its map key as role. Missing required fields are
// reported by the store as *client.PersistenceError.
func (m *Manager) CreateFromParams(ctx context.Context, params models.ResourceParams) (*Resource, error) {
	r := &models.ManagedResource{}
	r.AssignAttributes(params)

	endpoints := params.Endpoints
	if endpoints == nil {
		endpoints = map[string]models.EndpointParams{models.DefaultRole: {}}
	}
	for _, role := range sortedRoles(endpoints) {
		ep := models.Endpoint{Role: models.NormalizeRole(role)}
		ep.AssignAttributes(endpoints[role])
		r.Endpoints = append(r.Endpoints, ep)
	}

	for _, role := range sortedRoles(params.Authentications) {
		authParams, err := m.prepareAuthentication(params.Authentications[role])
		if err != nil {
			return nil, &client.PersistenceError{Operation: "create", Cause: err}
		}
		role = models.NormalizeRole(role)
		auth := models.Authentication{Role: role, AuthType: role}
		auth.AssignAttributes(authParams)
		r.Authentications = append(r.Authentications, auth)
	}

	created, err := m.store.Create(ctx, r)
	if err != nil {
		return nil, asPersistenceError("create", err)
	}

	tflog.Info(ctx, "Created managed provider", map[string]interface{}{
		"id":              created.ID,
		"name":            created.Name,
		"endpoints":       len(created.Endpoints),
		"authentications": len(created.Authentications),
	})
	return m.bind(created), nil
}

// Find loads a resource by id and binds it to the manager
func (m *Manager) Find(ctx context.Context, id string) (*Resource, error) {
	r, err := m.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.bind(r), nil
}

// List returns every stored resource, sorted by name, bound to the manager
func (m *Manager) List(ctx context.Context) ([]*Resource, error) {
	found, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Resource, 0, len(found))
	for _, r := range found {
		out = append(out, m.bind(r))
	}
	slices.SortFunc(out, func(a, b *Resource) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Delete removes a resource by id
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	tflog.Info(ctx, "Deleted managed provider", map[string]interface{}{"id": id})
	return nil
}

// VerifyCredentials checks a request that may not correspond to a stored resource.
// When the request carries no usable secret and names an existing resource by ID,
// that resource's stored default secret is used. Errors are returned alongside false.
func (m *Manager) VerifyCredentials(ctx context.Context, req models.VerifyRequest) (bool, error) {
	input := credentials.Input{
		AuthType:  models.DefaultRole,
		Raw:       req.DefaultAuthentication(),
		Decrypter: m.decrypter,
	}
	if id := strings.TrimSpace(models.StringValue(req.ID)); id != "" {
		input.Lookup = func(ctx context.Context) (*models.Authentication, error) {
			r, err := m.store.Find(ctx, id)
			if err != nil {
				return nil, err
			}
			return r.Authentication(models.DefaultRole), nil
		}
	}

	creds, err := credentials.Resolve(ctx, input)
	if err != nil {
		return false, err
	}

	return m.validator.VerifyCredentials(ctx, models.ConnectionRequest{
		ClientID:       creds.ClientID,
		ClientSecret:   creds.ClientSecret,
		TenantID:       models.StringValue(req.UID),
		SubscriptionID: models.StringValue(req.SubscriptionID),
		Region:         models.StringValue(req.Region),
		EndpointURL:    req.DefaultEndpointURL(),
		ProxyURI:       m.proxyFor(models.StringValue(req.ProxyURI)),
	})
}
