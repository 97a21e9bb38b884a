package models

import "time"

// ManagedResourceAPI is the wire shape of a managed resource on the management API.
// The whole aggregate travels in one request so the server can apply it atomically.
//
// Pointers mark optional fields (distinguish "not set" vs "set to zero value"),
// omitempty keeps payloads small.
type ManagedResourceAPI struct {
	// Computed fields (read-only from API)
	ID           *string `json:"id,omitempty"`
	CreatedTime  *string `json:"created_time,omitempty"`
	ModifiedTime *string `json:"modified_time,omitempty"`

	// Required fields (no pointers - must be set for Create)
	Name           string `json:"name"`
	UIDEms         string `json:"uid_ems"`
	Subscription   string `json:"subscription"`
	ProviderRegion string `json:"provider_region"`

	Endpoints       []EndpointAPI       `json:"endpoints"`
	Authentications []AuthenticationAPI `json:"authentications"`
}

// EndpointAPI is the wire shape of an endpoint
type EndpointAPI struct {
	Role string  `json:"role"`
	URL  *string `json:"url,omitempty"`
}

// AuthenticationAPI is the wire shape of an authentication.
// Password is write-only on most deployments and may come back empty.
type AuthenticationAPI struct {
	Role     string  `json:"role"`
	AuthType string  `json:"authtype"`
	UserID   string  `json:"userid"`
	Password *string `json:"password,omitempty"`
}

// ToAPI converts a resource into its wire shape
func (r *ManagedResource) ToAPI() *ManagedResourceAPI {
	api := &ManagedResourceAPI{
		Name:           r.Name,
		UIDEms:         r.UID,
		Subscription:   r.SubscriptionID,
		ProviderRegion: r.Region,
	}
	if r.ID != "" {
		api.ID = StringPtr(r.ID)
	}
	for _, ep := range r.Endpoints {
		out := EndpointAPI{Role: ep.Role}
		if ep.URL != "" {
			out.URL = StringPtr(ep.URL)
		}
		api.Endpoints = append(api.Endpoints, out)
	}
	for _, auth := range r.Authentications {
		out := AuthenticationAPI{Role: auth.Role, AuthType: auth.AuthType, UserID: auth.UserID}
		if auth.Password != "" {
			out.Password = StringPtr(auth.Password)
		}
		api.Authentications = append(api.Authentications, out)
	}
	return api
}

// FromAPI converts a wire payload back into a resource
func FromAPI(api *ManagedResourceAPI) *ManagedResource {
	r := &ManagedResource{
		ID:             StringValue(api.ID),
		Name:           api.Name,
		UID:            api.UIDEms,
		SubscriptionID: api.Subscription,
		Region:         api.ProviderRegion,
		CreatedAt:      parseAPITime(api.CreatedTime),
		UpdatedAt:      parseAPITime(api.ModifiedTime),
	}
	for _, ep := range api.Endpoints {
		r.Endpoints = append(r.Endpoints, Endpoint{Role: NormalizeRole(ep.Role), URL: StringValue(ep.URL)})
	}
	for _, auth := range api.Authentications {
		r.Authentications = append(r.Authentications, Authentication{
			Role:     NormalizeRole(auth.Role),
			AuthType: auth.AuthType,
			UserID:   auth.UserID,
			Password: StringValue(auth.Password),
		})
	}
	return r
}

func parseAPITime(s *string) time.Time {
	if s == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return time.Time{}
	}
	return t
}
