package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"golang.org/x/exp/slices"

	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
	"github.com/aaearon/terraform-provider-azure-ems/internal/provider/helpers"
)

func endpointModels(ctx context.Context, m types.Map) (map[string]models.EndpointModel, diag.Diagnostics) {
	if m.IsNull() || m.IsUnknown() {
		return nil, nil
	}
	out := map[string]models.EndpointModel{}
	diags := m.ElementsAs(ctx, &out, false)
	return out, diags
}

func authenticationModels(ctx context.Context, m types.Map) (map[string]models.AuthenticationModel, diag.Diagnostics) {
	if m.IsNull() || m.IsUnknown() {
		return nil, nil
	}
	out := map[string]models.AuthenticationModel{}
	diags := m.ElementsAs(ctx, &out, false)
	return out, diags
}

type roleValue[T any] interface {
	equal(T) bool
}

// changedRoles returns the sorted non-default roles that were added, removed or changed
func changedRoles[T roleValue[T]](plan, state map[string]T) []string {
	var roles []string
	for role, p := range plan {
		if role == models.DefaultRole {
			continue
		}
		if s, ok := state[role]; !ok || !p.equal(s) {
			roles = append(roles, role)
		}
	}
	for role := range state {
		if role == models.DefaultRole {
			continue
		}
		if _, ok := plan[role]; !ok {
			roles = append(roles, role)
		}
	}
	slices.Sort(roles)
	return roles
}

type endpointValue models.EndpointModel

func (e endpointValue) equal(o endpointValue) bool { return e.URL.Equal(o.URL) }

type authenticationValue models.AuthenticationModel

// equal compares a planned value with state; a null state password (after import) matches any
func (a authenticationValue) equal(o authenticationValue) bool {
	return a.UserID.Equal(o.UserID) && (o.Password.IsNull() || a.Password.Equal(o.Password))
}

func asEndpointValues(in map[string]models.EndpointModel) map[string]endpointValue {
	out := make(map[string]endpointValue, len(in))
	for k, v := range in {
		out[k] = endpointValue(v)
	}
	return out
}

func asAuthenticationValues(in map[string]models.AuthenticationModel) map[string]authenticationValue {
	out := make(map[string]authenticationValue, len(in))
	for k, v := range in {
		out[k] = authenticationValue(v)
	}
	return out
}

// putString sets raw[key] when v is known and not null
func putString(raw map[string]any, key string, v types.String) {
	if v.IsNull() || v.IsUnknown() {
		return
	}
	raw[key] = v.ValueString()
}

// resourceRequest builds the create/edit request map for a plan. Null endpoints are
// left out so the default endpoint is created; a null url is sent as "" so an edit
// clears it instead of keeping the stored one.
func resourceRequest(ctx context.Context, m models.ManagedProviderModel) (map[string]any, diag.Diagnostics) {
	var diags diag.Diagnostics

	raw := map[string]any{}
	putString(raw, "name", m.Name)
	putString(raw, "uid_ems", m.TenantID)
	putString(raw, "subscription", m.SubscriptionID)
	putString(raw, "provider_region", m.Region)

	endpoints, d := endpointModels(ctx, m.Endpoints)
	diags.Append(d...)
	if endpoints != nil {
		roles := make(map[string]any, len(endpoints))
		for role, ep := range endpoints {
			roles[role] = map[string]any{"url": ep.URL.ValueString()}
		}
		raw["endpoints"] = roles
	}

	auths, d := authenticationModels(ctx, m.Authentications)
	diags.Append(d...)
	if auths != nil {
		roles := make(map[string]any, len(auths))
		for role, auth := range auths {
			fields := map[string]any{}
			putString(fields, "userid", auth.UserID)
			putString(fields, "password", auth.Password)
			roles[role] = fields
		}
		raw["authentications"] = roles
	}

	return raw, diags
}

// resourceParamsFromModel converts a plan into create/edit params
func resourceParamsFromModel(ctx context.Context, m models.ManagedProviderModel) (models.ResourceParams, diag.Diagnostics) {
	raw, diags := resourceRequest(ctx, m)
	if diags.HasError() {
		return models.ResourceParams{}, diags
	}

	params, err := models.DecodeResourceParams(raw)
	if err != nil {
		diags.AddError(
			"Invalid Managed Provider Parameters",
			fmt.Sprintf("Unable to build the managed provider request: %s", err),
		)
		return models.ResourceParams{}, diags
	}
	return params, diags
}

// verifyRequestFromParams verifies the default credentials a create would store
func verifyRequestFromParams(params models.ResourceParams) models.VerifyRequest {
	return models.VerifyRequest{
		UID:             params.UID,
		SubscriptionID:  params.SubscriptionID,
		Region:          params.Region,
		Endpoints:       params.Endpoints,
		Authentications: params.Authentications,
	}
}

// setModelFromResource copies a stored resource into m. Passwords come from
// priorAuths for roles that still exist, since the store never returns them in clear.
func setModelFromResource(ctx context.Context, m *models.ManagedProviderModel, r *models.ManagedResource, priorAuths types.Map) diag.Diagnostics {
	var diags diag.Diagnostics

	prior, d := authenticationModels(ctx, priorAuths)
	diags.Append(d...)

	m.ID = types.StringValue(r.ID)
	m.Name = types.StringValue(r.Name)
	m.TenantID = types.StringValue(r.UID)
	m.SubscriptionID = types.StringValue(r.SubscriptionID)
	m.Region = types.StringValue(r.Region)
	m.CreatedAt = helpers.TimeString(r.CreatedAt)
	m.LastModified = helpers.TimeString(r.UpdatedAt)

	endpoints := make(map[string]models.EndpointModel, len(r.Endpoints))
	for _, ep := range r.Endpoints {
		endpoints[ep.Role] = models.EndpointModel{URL: helpers.StringOrNull(ep.URL)}
	}
	m.Endpoints, d = types.MapValueFrom(ctx, types.ObjectType{AttrTypes: models.EndpointAttrTypes()}, endpoints)
	diags.Append(d...)

	auths := make(map[string]models.AuthenticationModel, len(r.Authentications))
	for _, auth := range r.Authentications {
		password := types.StringNull()
		if p, ok := prior[auth.Role]; ok {
			password = p.Password
		}
		auths[auth.Role] = models.AuthenticationModel{
			UserID:   types.StringValue(auth.UserID),
			Password: password,
		}
	}
	m.Authentications, d = types.MapValueFrom(ctx, types.ObjectType{AttrTypes: models.AuthenticationAttrTypes()}, auths)
	diags.Append(d...)

	if m.VerifyBeforeCreate.IsUnknown() {
		m.VerifyBeforeCreate = types.BoolNull()
	}

	return diags
}
