package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/connection"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
	"github.com/aaearon/terraform-provider-azure-ems/internal/provider/helpers"
	"github.com/aaearon/terraform-provider-azure-ems/internal/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSourceWithConfigure = &CredentialVerificationDataSource{}

func NewCredentialVerificationDataSource() datasource.DataSource {
	return &CredentialVerificationDataSource{}
}

// CredentialVerificationDataSource checks service principal credentials against Azure
// without storing anything.
type CredentialVerificationDataSource struct {
	providerData *ProviderData
}

func (d *CredentialVerificationDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_credential_verification"
}

func (d *CredentialVerificationDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Verifies Azure service principal credentials by acquiring a token and reading the subscription. " +
			"Unset attributes fall back to the stored managed provider named by `provider_id`, then to the provider configuration. " +
			"When `provider_id` is set and no `client_secret` is given, the stored secret is used.",

		Attributes: map[string]schema.Attribute{
			"params": schema.MapAttribute{
				MarkdownDescription: "Raw request parameters, for callers that already hold a request map. " +
					"Accepts `uid_ems`, `subscription` (or `subscriptionId` / `subscription_id`), `provider_region` (or `region`), " +
					"`proxy_uri`, `id`, `endpoints.{role}.url` and `authentications.{role}.{userid,password}`. " +
					"Explicit attributes take precedence; unknown keys are rejected.",
				ElementType: types.StringType,
				Optional:    true,
				Sensitive:   true,
			},
			"provider_id": schema.StringAttribute{
				MarkdownDescription: "ID of a stored managed provider whose settings and secret fill in unset attributes.",
				Optional:            true,
			},
			"tenant_id": schema.StringAttribute{
				MarkdownDescription: "Azure AD tenant ID.",
				Optional:            true,
				Validators:          []validator.String{validators.UUID()},
			},
			"subscription_id": schema.StringAttribute{
				MarkdownDescription: "Azure subscription ID.",
				Optional:            true,
				Validators:          []validator.String{validators.UUID()},
			},
			"region": schema.StringAttribute{
				MarkdownDescription: "Azure region; selects the cloud environment.",
				Optional:            true,
				Validators:          []validator.String{validators.Region()},
			},
			"endpoint_url": schema.StringAttribute{
				MarkdownDescription: "Resource Manager endpoint override.",
				Optional:            true,
				Validators:          []validator.String{validators.EndpointURL()},
			},
			"client_id": schema.StringAttribute{
				MarkdownDescription: "Service principal application ID.",
				Optional:            true,
			},
			"client_secret": schema.StringAttribute{
				MarkdownDescription: "Service principal secret.",
				Optional:            true,
				Sensitive:           true,
			},
			"proxy_uri": schema.StringAttribute{
				MarkdownDescription: "Proxy for this verification only.",
				Optional:            true,
				Validators:          []validator.String{validators.ProxyURL()},
			},
			"error_on_failure": schema.BoolAttribute{
				MarkdownDescription: "Fail the read when verification fails. Set to `false` to get `valid = false` and a `reason` instead. Defaults to `true`.",
				Optional:            true,
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "`tenant_id/subscription_id` of the verified scope.",
				Computed:            true,
			},
			"valid": schema.BoolAttribute{
				MarkdownDescription: "Whether the credentials were accepted and the subscription is usable.",
				Computed:            true,
			},
			"environment": schema.StringAttribute{
				MarkdownDescription: "Azure environment the region resolved to (e.g., `AzureCloud`).",
				Computed:            true,
			},
			"reason": schema.StringAttribute{
				MarkdownDescription: "Why verification failed; empty when `valid` is true.",
				Computed:            true,
			},
		},
	}
}

func (d *CredentialVerificationDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	if req.ProviderData == nil {
		return
	}

	providerData, ok := req.ProviderData.(*ProviderData)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected *ProviderData, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}

	d.providerData = providerData
}

func (d *CredentialVerificationDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	if d.providerData == nil {
		resp.Diagnostics.AddError(
			"Unconfigured Managed Provider Store",
			"Expected configured ProviderData. Please report this issue to the provider developers.",
		)
		return
	}

	var data models.CredentialVerificationModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	verifyReq, err := d.buildRequest(ctx, data)
	if err != nil {
		resp.Diagnostics.Append(client.MapError(err, "verify credentials"))
		return
	}

	conn := models.ConnectionRequest{
		Region:      models.StringValue(verifyReq.Region),
		EndpointURL: verifyReq.DefaultEndpointURL(),
	}
	data.Environment = types.StringValue(connection.EnvironmentFor(conn).Name)
	data.ID = types.StringValue(fmt.Sprintf("%s/%s", models.StringValue(verifyReq.UID), models.StringValue(verifyReq.SubscriptionID)))

	LogConnectionAttempt(ctx, conn.Region, models.StringValue(verifyReq.SubscriptionID))
	valid, err := d.providerData.Manager.VerifyCredentials(ctx, verifyReq)
	data.Valid = types.BoolValue(valid)
	data.Reason = types.StringValue("")
	if err != nil {
		if data.ErrorOnFailure.IsNull() || data.ErrorOnFailure.ValueBool() {
			resp.Diagnostics.Append(client.MapError(err, "verify credentials"))
			return
		}
		tflog.Warn(ctx, "Credential verification failed", map[string]interface{}{
			"error": err.Error(),
		})
		data.Reason = types.StringValue(err.Error())
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// requestParams decodes the raw params attribute. Keys may use the request aliases
// (region, subscriptionId, ...) and dotted role keys such as endpoints.default.url.
func requestParams(ctx context.Context, params types.Map) (models.VerifyRequest, error) {
	if params.IsNull() || params.IsUnknown() {
		return models.VerifyRequest{}, nil
	}

	flat := map[string]string{}
	if diags := params.ElementsAs(ctx, &flat, false); diags.HasError() {
		return models.VerifyRequest{}, fmt.Errorf("invalid params: %v", diags)
	}
	raw, err := models.ExpandFlatParams(flat)
	if err != nil {
		return models.VerifyRequest{}, fmt.Errorf("invalid params: %w", err)
	}
	return models.DecodeVerifyRequest(raw)
}

// buildRequest assembles the verification request. Each field comes from the explicit
// attribute, then params, then the stored resource (when an id is given) or the
// provider defaults.
func (d *CredentialVerificationDataSource) buildRequest(ctx context.Context, data models.CredentialVerificationModel) (models.VerifyRequest, error) {
	fromParams, err := requestParams(ctx, data.Params)
	if err != nil {
		return models.VerifyRequest{}, err
	}

	providerID := helpers.StringPointer(data.ProviderID)
	if providerID == nil {
		providerID = fromParams.ID
	}

	base := d.providerData.Defaults
	baseEndpoint := base.EndpointURL
	if providerID != nil {
		found, err := d.providerData.Manager.Find(ctx, *providerID)
		if err != nil {
			return models.VerifyRequest{}, err
		}
		base = providerConfig{
			TenantID:       found.UID,
			SubscriptionID: found.SubscriptionID,
			Region:         found.Region,
			ProxyURI:       base.ProxyURI,
		}
		baseEndpoint = found.DefaultEndpointURL()
	}

	put := func(into map[string]any, key string, explicit types.String, param *string, fallback *string) {
		switch {
		case isSet(explicit):
			into[key] = explicit.ValueString()
		case param != nil:
			into[key] = *param
		case fallback != nil:
			into[key] = *fallback
		}
	}

	raw := map[string]any{}
	if providerID != nil {
		raw["id"] = *providerID
	}
	put(raw, "uid_ems", data.TenantID, fromParams.UID, &base.TenantID)
	put(raw, "subscription", data.SubscriptionID, fromParams.SubscriptionID, &base.SubscriptionID)
	put(raw, "provider_region", data.Region, fromParams.Region, &base.Region)
	put(raw, "proxy_uri", data.ProxyURI, fromParams.ProxyURI, &base.ProxyURI)

	endpoint := map[string]any{}
	put(endpoint, "url", data.EndpointURL, fromParams.Endpoints[models.DefaultRole].URL, &baseEndpoint)
	raw["endpoints"] = map[string]any{models.DefaultRole: endpoint}

	// With a stored resource and no other value, leave the credentials unset so the stored ones are used
	var paramAuth models.AuthenticationParams
	if auth := fromParams.DefaultAuthentication(); auth != nil {
		paramAuth = *auth
	}
	userFallback, secretFallback := &base.ClientID, &base.ClientSecret
	if providerID != nil {
		userFallback, secretFallback = nil, nil
	}
	auth := map[string]any{}
	put(auth, "userid", data.ClientID, paramAuth.UserID, userFallback)
	put(auth, "password", data.ClientSecret, paramAuth.Password, secretFallback)
	raw["authentications"] = map[string]any{models.DefaultRole: auth}

	return models.DecodeVerifyRequest(raw)
}
