package models

import (
	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

// ManagedProviderModel represents an Azure managed provider in Terraform state.
// This model maps to the azureems_managed_provider resource schema.
type ManagedProviderModel struct {
	// Core identifiers
	ID   types.String `tfsdk:"id"`
	Name types.String `tfsdk:"name"`

	// Azure scope
	TenantID       types.String `tfsdk:"tenant_id"`       // uid_ems
	SubscriptionID types.String `tfsdk:"subscription_id"` // subscription
	Region         types.String `tfsdk:"region"`          // provider_region

	// Keyed by role; "default" is created when endpoints are omitted
	Endpoints       types.Map `tfsdk:"endpoints"`       // map of EndpointModel
	Authentications types.Map `tfsdk:"authentications"` // map of AuthenticationModel

	VerifyBeforeCreate types.Bool `tfsdk:"verify_before_create"`

	// Computed attributes
	CreatedAt    types.String `tfsdk:"created_at"`
	LastModified types.String `tfsdk:"last_modified"`
}

// EndpointModel is one element of ManagedProviderModel.Endpoints
type EndpointModel struct {
	URL types.String `tfsdk:"url"`
}

// AuthenticationModel is one element of ManagedProviderModel.Authentications
type AuthenticationModel struct {
	UserID   types.String `tfsdk:"userid"`
	Password types.String `tfsdk:"password"` // Sensitive, never read back from the store
}

// EndpointAttrTypes describes EndpointModel for map element types
func EndpointAttrTypes() map[string]attr.Type {
	return map[string]attr.Type{
		"url": types.StringType,
	}
}

// AuthenticationAttrTypes describes AuthenticationModel for map element types
func AuthenticationAttrTypes() map[string]attr.Type {
	return map[string]attr.Type{
		"userid":   types.StringType,
		"password": types.StringType,
	}
}

// CredentialVerificationModel backs the azureems_credential_verification data source
type CredentialVerificationModel struct {
	// Input attributes
	Params         types.Map    `tfsdk:"params"`
	ProviderID     types.String `tfsdk:"provider_id"`
	TenantID       types.String `tfsdk:"tenant_id"`
	SubscriptionID types.String `tfsdk:"subscription_id"`
	Region         types.String `tfsdk:"region"`
	EndpointURL    types.String `tfsdk:"endpoint_url"`
	ClientID       types.String `tfsdk:"client_id"`
	ClientSecret   types.String `tfsdk:"client_secret"`
	ProxyURI       types.String `tfsdk:"proxy_uri"`
	ErrorOnFailure types.Bool   `tfsdk:"error_on_failure"`

	// Computed attributes
	ID          types.String `tfsdk:"id"`
	Valid       types.Bool   `tfsdk:"valid"`
	Environment types.String `tfsdk:"environment"`
	Reason      types.String `tfsdk:"reason"`
}

// EnvironmentModel backs the azureems_environment data source
type EnvironmentModel struct {
	Region types.String `tfsdk:"region"`

	ID                      types.String `tfsdk:"id"`
	Name                    types.String `tfsdk:"name"`
	RegionDescription       types.String `tfsdk:"region_description"`
	AuthorityHost           types.String `tfsdk:"authority_host"`
	ResourceManagerEndpoint types.String `tfsdk:"resource_manager_endpoint"`
	ResourceManagerAudience types.String `tfsdk:"resource_manager_audience"`
}

// ManagedProvidersModel backs the azureems_managed_providers data source
type ManagedProvidersModel struct {
	Region    types.String             `tfsdk:"region"`
	ID        types.String             `tfsdk:"id"`
	Providers []ManagedProviderSummary `tfsdk:"providers"`
}

// ManagedProviderSummary is one stored managed provider, without secrets
type ManagedProviderSummary struct {
	ID                  types.String `tfsdk:"id"`
	Name                types.String `tfsdk:"name"`
	TenantID            types.String `tfsdk:"tenant_id"`
	SubscriptionID      types.String `tfsdk:"subscription_id"`
	Region              types.String `tfsdk:"region"`
	Environment         types.String `tfsdk:"environment"`
	EndpointURL         types.String `tfsdk:"endpoint_url"`
	ClientID            types.String `tfsdk:"client_id"`
	HasDefaultAuth      types.Bool   `tfsdk:"has_default_authentication"`
	AuthenticationRoles types.List   `tfsdk:"authentication_roles"`
}
