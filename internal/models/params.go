package models

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// EndpointParams is the request shape of endpoints.{role}
type EndpointParams struct {
	URL *string `mapstructure:"url"`
}

// AuthenticationParams is the request shape of authentications.{role}
type AuthenticationParams struct {
	UserID   *string `mapstructure:"userid"`
	Password *string `mapstructure:"password"`
}

// ResourceParams is the typed create/edit payload for a managed resource.
// Pointer fields distinguish "not supplied" from "set to empty".
type ResourceParams struct {
	Name           *string `mapstructure:"name"`
	UID            *string `mapstructure:"uid_ems"`
	SubscriptionID *string `mapstructure:"subscription"`
	Region         *string `mapstructure:"provider_region"`

	Endpoints       map[string]EndpointParams       `mapstructure:"endpoints"`
	Authentications map[string]AuthenticationParams `mapstructure:"authentications"`
}

// VerifyRequest is the typed payload of a credential verification that does not
// start from a stored resource. ID, when set, names an existing resource whose
// stored secret is used if the request carries none.
type VerifyRequest struct {
	ID             *string `mapstructure:"id"`
	UID            *string `mapstructure:"uid_ems"`
	SubscriptionID *string `mapstructure:"subscription"`
	Region         *string `mapstructure:"provider_region"`
	ProxyURI       *string `mapstructure:"proxy_uri"`

	Endpoints       map[string]EndpointParams       `mapstructure:"endpoints"`
	Authentications map[string]AuthenticationParams `mapstructure:"authentications"`
}

// DefaultAuthentication returns the default authentication entry of the request, or nil
func (v VerifyRequest) DefaultAuthentication() *AuthenticationParams {
	if auth, ok := v.Authentications[DefaultRole]; ok {
		return &auth
	}
	return nil
}

// DefaultEndpointURL returns endpoints.default.url, or ""
func (v VerifyRequest) DefaultEndpointURL() string {
	if ep, ok := v.Endpoints[DefaultRole]; ok && ep.URL != nil {
		return *ep.URL
	}
	return ""
}

// paramAliases maps accepted spellings onto the canonical request keys
var paramAliases = map[string]string{
	"region":          "provider_region",
	"subscriptionId":  "subscription",
	"subscription_id": "subscription",
}

// normalizeAliases rewrites alias keys to their canonical spelling.
// Supplying an alias and its canonical key with different values is an error.
func normalizeAliases(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for alias, canonical := range paramAliases {
		v, ok := out[alias]
		if !ok {
			continue
		}
		delete(out, alias)
		if existing, found := out[canonical]; found && fmt.Sprint(existing) != fmt.Sprint(v) {
			return nil, fmt.Errorf("conflicting values for %q and %q", alias, canonical)
		}
		out[canonical] = v
	}
	return out, nil
}

func decodeParams(raw map[string]any, result any) error {
	normalized, err := normalizeAliases(raw)
	if err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return fmt.Errorf("failed to build params decoder: %w", err)
	}

	if err := decoder.Decode(normalized); err != nil {
		return fmt.Errorf("invalid request parameters: %w", err)
	}
	return nil
}

// DecodeResourceParams converts a raw request map into ResourceParams
func DecodeResourceParams(raw map[string]any) (ResourceParams, error) {
	var params ResourceParams
	if err := decodeParams(raw, &params); err != nil {
		return ResourceParams{}, err
	}
	return params, nil
}

// DecodeVerifyRequest converts a raw request map into a VerifyRequest
func DecodeVerifyRequest(raw map[string]any) (VerifyRequest, error) {
	var req VerifyRequest
	if err := decodeParams(raw, &req); err != nil {
		return VerifyRequest{}, err
	}
	return req, nil
}

// nestedParamKeys are the request keys whose values are keyed by role
var nestedParamKeys = map[string]bool{
	"endpoints":       true,
	"authentications": true,
}

// ExpandFlatParams turns a flat request map such as
// {"subscriptionId": "...", "endpoints.default.url": "..."} into the nested shape
// DecodeVerifyRequest and DecodeResourceParams accept. Only endpoints.{role}.{field}
// and authentications.{role}.{field} may be dotted.
func ExpandFlatParams(flat map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(flat))
	for key, value := range flat {
		parts := strings.Split(key, ".")
		if len(parts) == 1 {
			if nestedParamKeys[key] {
				return nil, fmt.Errorf("%q must be given as %s.{role}.{field}", key, key)
			}
			out[key] = value
			continue
		}
		if len(parts) != 3 || !nestedParamKeys[parts[0]] || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("unsupported request key %q", key)
		}

		roles, _ := out[parts[0]].(map[string]any)
		if roles == nil {
			roles = map[string]any{}
			out[parts[0]] = roles
		}
		fields, _ := roles[parts[1]].(map[string]any)
		if fields == nil {
			fields = map[string]any{}
			roles[parts[1]] = fields
		}
		fields[parts[2]] = value
	}
	return out, nil
}
