// Package models provides data structures for Terraform resources
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultRole is the role used when an endpoint or authentication is not given one explicitly
const DefaultRole = "default"

// Endpoint is a connection URL attached to a managed resource under a role.
// Endpoints are replaced wholesale on create and merged attribute-by-attribute on edit.
type Endpoint struct {
	Role string `json:"role" yaml:"role"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Authentication is a credential pair attached to a managed resource under a role.
// Password holds the stored value, which is encrypted when the manager has a cipher configured.
type Authentication struct {
	Role     string `json:"role" yaml:"role"`
	AuthType string `json:"authtype" yaml:"authtype"`
	UserID   string `json:"userid,omitempty" yaml:"userid,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// HasCredentials reports whether the record carries a usable user id or secret
func (a Authentication) HasCredentials() bool {
	return strings.TrimSpace(a.UserID) != "" || a.Password != ""
}

// ManagedResource is one configured Azure provider connection.
// Invariant: at most one endpoint and one authentication per role.
type ManagedResource struct {
	ID              string           `json:"id,omitempty" yaml:"id"`
	Name            string           `json:"name" yaml:"name"`
	UID             string           `json:"uid_ems" yaml:"uid_ems"`
	SubscriptionID  string           `json:"subscription" yaml:"subscription"`
	Region          string           `json:"provider_region" yaml:"provider_region"`
	Endpoints       []Endpoint       `json:"endpoints" yaml:"endpoints"`
	Authentications []Authentication `json:"authentications" yaml:"authentications"`
	CreatedAt       time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" yaml:"updated_at"`
}

// NormalizeRole maps an empty role to DefaultRole
func NormalizeRole(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return DefaultRole
	}
	return role
}

// Endpoint returns the endpoint stored under role, or nil
func (r *ManagedResource) Endpoint(role string) *Endpoint {
	role = NormalizeRole(role)
	for i := range r.Endpoints {
		if r.Endpoints[i].Role == role {
			return &r.Endpoints[i]
		}
	}
	return nil
}

// Authentication returns the authentication stored under role, or nil
func (r *ManagedResource) Authentication(role string) *Authentication {
	role = NormalizeRole(role)
	for i := range r.Authentications {
		if r.Authentications[i].Role == role {
			return &r.Authentications[i]
		}
	}
	return nil
}

// DefaultEndpoint returns the default endpoint, creating an empty one when missing
func (r *ManagedResource) DefaultEndpoint() *Endpoint {
	if ep := r.Endpoint(DefaultRole); ep != nil {
		return ep
	}
	r.Endpoints = append(r.Endpoints, Endpoint{Role: DefaultRole})
	return &r.Endpoints[len(r.Endpoints)-1]
}

// DefaultAuthentication returns the default authentication, creating an empty one when missing
func (r *ManagedResource) DefaultAuthentication() *Authentication {
	if auth := r.Authentication(DefaultRole); auth != nil {
		return auth
	}
	r.Authentications = append(r.Authentications, Authentication{Role: DefaultRole, AuthType: DefaultRole})
	return &r.Authentications[len(r.Authentications)-1]
}

// DefaultEndpointURL returns the URL of the default endpoint without creating it
func (r *ManagedResource) DefaultEndpointURL() string {
	if ep := r.Endpoint(DefaultRole); ep != nil {
		return ep.URL
	}
	return ""
}

// HasAuthentication reports whether an authentication record exists for role
func (r *ManagedResource) HasAuthentication(role string) bool {
	return r.Authentication(role) != nil
}

// HasCredentials reports whether the authentication for authType carries credentials
func (r *ManagedResource) HasCredentials(authType string) bool {
	auth := r.Authentication(authType)
	return auth != nil && auth.HasCredentials()
}

// AuthenticationUserID returns the stored user id for role
func (r *ManagedResource) AuthenticationUserID(role string) string {
	if auth := r.Authentication(role); auth != nil {
		return auth.UserID
	}
	return ""
}

// AuthenticationPassword returns the stored (possibly encrypted) secret for role
func (r *ManagedResource) AuthenticationPassword(role string) string {
	if auth := r.Authentication(role); auth != nil {
		return auth.Password
	}
	return ""
}

// AssignAttributes applies the top-level fields that are set in params.
// Endpoints and authentications are handled by the caller.
func (r *ManagedResource) AssignAttributes(params ResourceParams) {
	if params.Name != nil {
		r.Name = *params.Name
	}
	if params.UID != nil {
		r.UID = *params.UID
	}
	if params.SubscriptionID != nil {
		r.SubscriptionID = *params.SubscriptionID
	}
	if params.Region != nil {
		r.Region = *params.Region
	}
}

// AssignAttributes merges the set fields of params into the endpoint
func (e *Endpoint) AssignAttributes(params EndpointParams) {
	if params.URL != nil {
		e.URL = *params.URL
	}
}

// AssignAttributes merges the set fields of params into the authentication
func (a *Authentication) AssignAttributes(params AuthenticationParams) {
	if params.UserID != nil {
		a.UserID = *params.UserID
	}
	if params.Password != nil {
		a.Password = *params.Password
	}
}

// Clone returns a deep copy of the resource
func (r *ManagedResource) Clone() *ManagedResource {
	if r == nil {
		return nil
	}
	out := *r
	out.Endpoints = append([]Endpoint(nil), r.Endpoints...)
	out.Authentications = append([]Authentication(nil), r.Authentications...)
	return &out
}

// Validate checks the aggregate before it is persisted.
// All problems are reported together.
func (r *ManagedResource) Validate() error {
	var errs []error

	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(r.UID) == "" {
		errs = append(errs, errors.New("uid_ems (tenant id) is required"))
	}
	if strings.TrimSpace(r.SubscriptionID) == "" {
		errs = append(errs, errors.New("subscription is required"))
	}
	if strings.TrimSpace(r.Region) == "" {
		errs = append(errs, errors.New("provider_region is required"))
	}

	seen := map[string]bool{}
	for _, ep := range r.Endpoints {
		if seen[ep.Role] {
			errs = append(errs, fmt.Errorf("duplicate endpoint role %q", ep.Role))
		}
		seen[ep.Role] = true
	}

	if len(r.Authentications) == 0 {
		errs = append(errs, errors.New("at least one authentication is required"))
	}
	seen = map[string]bool{}
	for _, auth := range r.Authentications {
		if seen[auth.Role] {
			errs = append(errs, fmt.Errorf("duplicate authentication role %q", auth.Role))
		}
		seen[auth.Role] = true
		if strings.TrimSpace(auth.UserID) == "" {
			errs = append(errs, fmt.Errorf("authentications.%s.userid is required", auth.Role))
		}
	}

	return errors.Join(errs...)
}
