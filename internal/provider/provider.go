// Package provider implements the Azure managed provider Terraform provider
package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/manager"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
	"github.com/aaearon/terraform-provider-azure-ems/internal/secrets"
	"github.com/aaearon/terraform-provider-azure-ems/internal/store"
	"github.com/aaearon/terraform-provider-azure-ems/internal/validators"
)

// Ensure the implementation satisfies the expected interfaces
var (
	_ provider.Provider                   = &AzureEMSProvider{}
	_ provider.ProviderWithValidateConfig = &AzureEMSProvider{}
)

// AzureEMSProvider defines the provider implementation
type AzureEMSProvider struct {
	// version is set to the provider version on release
	version string

	// managerOptions are appended after the configured ones; tests use them to
	// replace the Azure transport
	managerOptions []manager.Option
}

// AzureEMSProviderModel describes the provider configuration block
type AzureEMSProviderModel struct {
	TenantID          types.String `tfsdk:"tenant_id"`
	SubscriptionID    types.String `tfsdk:"subscription_id"`
	Region            types.String `tfsdk:"region"`
	ClientID          types.String `tfsdk:"client_id"`
	ClientSecret      types.String `tfsdk:"client_secret"`
	EndpointURL       types.String `tfsdk:"endpoint_url"`
	ProxyURI          types.String `tfsdk:"proxy_uri"`
	EncryptionKey     types.String `tfsdk:"encryption_key"`
	StateFile         types.String `tfsdk:"state_file"`
	ManagementURL     types.String `tfsdk:"management_url"`
	ManagementToken   types.String `tfsdk:"management_token"`
	VerifyCredentials types.Bool   `tfsdk:"verify_credentials"`
}

// ProviderData is handed to resources and data sources by Configure
type ProviderData struct {
	Manager *manager.Manager

	// Defaults are the provider-level Azure settings, used by the credential
	// verification data source for attributes it does not set itself
	Defaults providerConfig
}

// New is a helper function to simplify provider server and testing implementation
func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &AzureEMSProvider{
			version: version,
		}
	}
}

// Metadata returns the provider type name
func (p *AzureEMSProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "azureems"
	resp.Version = p.version
}

// Schema defines the provider-level schema for configuration data
func (p *AzureEMSProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "Registers Azure subscriptions as managed providers and verifies their service principal credentials.",
		MarkdownDescription: "Registers Azure subscriptions as managed providers and verifies their service principal credentials.\n\n" +
			"Managed providers are stored in memory, in a local `state_file`, or through a management API at `management_url`.",
		Attributes: map[string]schema.Attribute{
			"tenant_id": schema.StringAttribute{
				MarkdownDescription: "Default Azure AD tenant ID. May also be set with `ARM_TENANT_ID` or `AZURE_TENANT_ID`.",
				Optional:            true,
				Validators:          []validator.String{validators.UUID()},
			},
			"subscription_id": schema.StringAttribute{
				MarkdownDescription: "Default Azure subscription ID. May also be set with `ARM_SUBSCRIPTION_ID` or `AZURE_SUBSCRIPTION_ID`.",
				Optional:            true,
				Validators:          []validator.String{validators.UUID()},
			},
			"region": schema.StringAttribute{
				MarkdownDescription: "Default Azure region; selects the cloud environment. May also be set with `AZUREEMS_REGION`.",
				Optional:            true,
				Validators:          []validator.String{validators.Region()},
			},
			"client_id": schema.StringAttribute{
				MarkdownDescription: "Default service principal application ID. May also be set with `ARM_CLIENT_ID` or `AZURE_CLIENT_ID`.",
				Optional:            true,
			},
			"client_secret": schema.StringAttribute{
				MarkdownDescription: "Default service principal secret. May also be set with `ARM_CLIENT_SECRET` or `AZURE_CLIENT_SECRET`.",
				Optional:            true,
				Sensitive:           true,
			},
			"endpoint_url": schema.StringAttribute{
				MarkdownDescription: "Default Resource Manager endpoint override. May also be set with `AZUREEMS_ENDPOINT_URL`.",
				Optional:            true,
				Validators:          []validator.String{validators.EndpointURL()},
			},
			"proxy_uri": schema.StringAttribute{
				MarkdownDescription: "Proxy used for Azure calls that do not name their own. Falls back to `AZUREEMS_PROXY_URI`, then `HTTPS_PROXY`.",
				Optional:            true,
				Validators:          []validator.String{validators.ProxyURL()},
			},
			"encryption_key": schema.StringAttribute{
				MarkdownDescription: "Base64 encoded 32-byte key. When set, stored passwords are encrypted. May also be set with `AZUREEMS_ENCRYPTION_KEY`.",
				Optional:            true,
				Sensitive:           true,
			},
			"state_file": schema.StringAttribute{
				MarkdownDescription: "Path of a YAML file holding managed providers. May also be set with `AZUREEMS_STATE_FILE`.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
					stringvalidator.ConflictsWith(path.MatchRoot("management_url")),
				},
			},
			"management_url": schema.StringAttribute{
				MarkdownDescription: "Base URL of a management API storing managed providers. May also be set with `AZUREEMS_MANAGEMENT_URL`.",
				Optional:            true,
				Validators:          []validator.String{validators.EndpointURL()},
			},
			"management_token": schema.StringAttribute{
				MarkdownDescription: "Bearer token for `management_url`. May also be set with `AZUREEMS_MANAGEMENT_TOKEN`.",
				Optional:            true,
				Sensitive:           true,
			},
			"verify_credentials": schema.BoolAttribute{
				MarkdownDescription: "Verify the provider-level credentials against Azure during configuration. Defaults to `false`.",
				Optional:            true,
			},
		},
	}
}

// ValidateConfig performs cross-field validation of the provider block
func (p *AzureEMSProvider) ValidateConfig(ctx context.Context, req provider.ValidateConfigRequest, resp *provider.ValidateConfigResponse) {
	var data AzureEMSProviderModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if isSet(data.EncryptionKey) {
		if _, err := secrets.NewCipherFromBase64(data.EncryptionKey.ValueString()); err != nil {
			resp.Diagnostics.AddAttributeError(
				path.Root("encryption_key"),
				"Invalid Encryption Key",
				fmt.Sprintf("encryption_key must be a base64 encoded 32-byte key: %s", err),
			)
		}
	}

	if isSet(data.ManagementToken) && data.ManagementURL.IsNull() {
		resp.Diagnostics.AddAttributeWarning(
			path.Root("management_token"),
			"Unused Configuration",
			"management_token is set but management_url is not. The token is only sent to a management API.",
		)
	}

	if isSet(data.ClientSecret) && data.ClientID.IsNull() {
		resp.Diagnostics.AddAttributeWarning(
			path.Root("client_secret"),
			"Incomplete Credentials",
			"client_secret is set without client_id. Set client_id or ARM_CLIENT_ID to use it.",
		)
	}
}

// Configure builds the store and manager shared by resources and data sources
func (p *AzureEMSProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	ctx = MaskSensitiveFields(ctx)

	var data AzureEMSProviderModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	cfg := resolveProviderConfig(data)
	LogProviderConfig(ctx, cfg)

	st, err := newStore(cfg)
	if err != nil {
		resp.Diagnostics.AddError("Failed to Configure Managed Provider Store", err.Error())
		return
	}
	LogStoreSelected(ctx, st)

	opts := []manager.Option{manager.WithProxyURI(cfg.ProxyURI)}
	if cfg.EncryptionKey != "" {
		cipher, err := secrets.NewCipherFromBase64(cfg.EncryptionKey)
		if err != nil {
			resp.Diagnostics.AddAttributeError(path.Root("encryption_key"), "Invalid Encryption Key", err.Error())
			return
		}
		opts = append(opts, manager.WithDecrypter(cipher))
	}
	opts = append(opts, p.managerOptions...)

	providerData := &ProviderData{
		Manager:  manager.New(st, opts...),
		Defaults: cfg,
	}

	if cfg.VerifyCredentials {
		LogConnectionAttempt(ctx, cfg.Region, cfg.SubscriptionID)
		if _, err := providerData.Manager.VerifyCredentials(ctx, cfg.verifyRequest()); err != nil {
			resp.Diagnostics.Append(client.MapError(err, "verify provider credentials"))
			return
		}
		LogAuthSuccess(ctx)
	}

	resp.ResourceData = providerData
	resp.DataSourceData = providerData
}

// newStore selects the persistence backend: management API, then state file, then memory
func newStore(cfg providerConfig) (store.Store, error) {
	switch {
	case cfg.ManagementURL != "":
		return store.NewRESTStore(cfg.ManagementURL, cfg.ManagementToken, nil)
	case cfg.StateFile != "":
		return store.NewFileStore(cfg.StateFile)
	default:
		return store.NewMemoryStore(), nil
	}
}

// verifyRequest builds a verification request from the provider-level settings
func (c providerConfig) verifyRequest() models.VerifyRequest {
	req := models.VerifyRequest{
		UID:            models.StringPtr(c.TenantID),
		SubscriptionID: models.StringPtr(c.SubscriptionID),
		Region:         models.StringPtr(c.Region),
		Authentications: map[string]models.AuthenticationParams{
			models.DefaultRole: {
				UserID:   models.StringPtr(c.ClientID),
				Password: models.StringPtr(c.ClientSecret),
			},
		},
	}
	if c.EndpointURL != "" {
		req.Endpoints = map[string]models.EndpointParams{
			models.DefaultRole: {URL: models.StringPtr(c.EndpointURL)},
		}
	}
	return req
}

func isSet(v types.String) bool {
	return !v.IsNull() && !v.IsUnknown()
}

// Resources defines the resources implemented in the provider
func (p *AzureEMSProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewManagedProviderResource,
	}
}

// DataSources defines the data sources implemented in the provider
func (p *AzureEMSProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewCredentialVerificationDataSource,
		NewEnvironmentDataSource,
		NewManagedProvidersDataSource,
	}
}
