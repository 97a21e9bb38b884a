package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"golang.org/x/exp/slices"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/environment"
	"github.com/aaearon/terraform-provider-azure-ems/internal/manager"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
	"github.com/aaearon/terraform-provider-azure-ems/internal/provider/helpers"
	"github.com/aaearon/terraform-provider-azure-ems/internal/validators"
)

var _ datasource.DataSourceWithConfigure = &ManagedProvidersDataSource{}

func NewManagedProvidersDataSource() datasource.DataSource {
	return &ManagedProvidersDataSource{}
}

// ManagedProvidersDataSource lists the managed providers in the configured store
type ManagedProvidersDataSource struct {
	providerData *ProviderData
}

func (d *ManagedProvidersDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_managed_providers"
}

func (d *ManagedProvidersDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Lists the managed providers in the configured store, sorted by name. Secrets are never returned.",

		Attributes: map[string]schema.Attribute{
			"region": schema.StringAttribute{
				MarkdownDescription: "Only list managed providers in this region.",
				Optional:            true,
				Validators:          []validator.String{validators.Region()},
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "Placeholder identifier, the region filter or `all`.",
				Computed:            true,
			},
			"providers": schema.ListNestedAttribute{
				MarkdownDescription: "Stored managed providers.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"id":              schema.StringAttribute{Computed: true},
						"name":            schema.StringAttribute{Computed: true},
						"tenant_id":       schema.StringAttribute{Computed: true},
						"subscription_id": schema.StringAttribute{Computed: true},
						"region":          schema.StringAttribute{Computed: true},
						"environment": schema.StringAttribute{
							MarkdownDescription: "Azure environment the region and default endpoint resolve to.",
							Computed:            true,
						},
						"endpoint_url": schema.StringAttribute{
							MarkdownDescription: "URL of the default endpoint, null when unset.",
							Computed:            true,
						},
						"client_id": schema.StringAttribute{
							MarkdownDescription: "User id of the default authentication, null when there is none.",
							Computed:            true,
						},
						"has_default_authentication": schema.BoolAttribute{
							MarkdownDescription: "Whether a default authentication is stored, which connections require.",
							Computed:            true,
						},
						"authentication_roles": schema.ListAttribute{
							MarkdownDescription: "Roles with a stored authentication, sorted.",
							ElementType:         types.StringType,
							Computed:            true,
						},
					},
				},
			},
		},
	}
}

func (d *ManagedProvidersDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
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

func (d *ManagedProvidersDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	if d.providerData == nil {
		resp.Diagnostics.AddError(
			"Unconfigured Managed Provider Store",
			"Expected configured ProviderData. Please report this issue to the provider developers.",
		)
		return
	}

	var data models.ManagedProvidersModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	found, err := d.providerData.Manager.List(ctx)
	if err != nil {
		resp.Diagnostics.Append(client.MapError(err, "list managed providers"))
		return
	}

	region := data.Region.ValueString()
	data.Providers = []models.ManagedProviderSummary{}
	for _, r := range found {
		if region != "" && !strings.EqualFold(r.Region, region) {
			continue
		}
		summary, diags := managedProviderSummary(ctx, r)
		resp.Diagnostics.Append(diags...)
		data.Providers = append(data.Providers, summary)
	}
	if resp.Diagnostics.HasError() {
		return
	}

	data.ID = types.StringValue("all")
	if region != "" {
		data.ID = types.StringValue(region)
	}

	tflog.Debug(ctx, "Listed managed providers", map[string]interface{}{
		"region": region,
		"count":  len(data.Providers),
	})

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func managedProviderSummary(ctx context.Context, r *manager.Resource) (models.ManagedProviderSummary, diag.Diagnostics) {
	roles := make([]string, 0, len(r.Authentications))
	for _, auth := range r.Authentications {
		roles = append(roles, auth.Role)
	}
	slices.Sort(roles)
	roleList, diags := types.ListValueFrom(ctx, types.StringType, roles)

	clientID := types.StringNull()
	if r.HasAuthentication(models.DefaultRole) {
		clientID = helpers.StringOrNull(r.AuthenticationUserID(models.DefaultRole))
	}

	return models.ManagedProviderSummary{
		ID:                  types.StringValue(r.ID),
		Name:                types.StringValue(r.Name),
		TenantID:            types.StringValue(r.UID),
		SubscriptionID:      types.StringValue(r.SubscriptionID),
		Region:              types.StringValue(r.Region),
		Environment:         types.StringValue(environment.For(r.Region).Name),
		EndpointURL:         helpers.StringOrNull(r.DefaultEndpointURL()),
		ClientID:            clientID,
		HasDefaultAuth:      types.BoolValue(r.HasAuthentication(models.DefaultRole)),
		AuthenticationRoles: roleList,
	}, diags
}
