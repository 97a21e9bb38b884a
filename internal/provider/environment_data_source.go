package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/aaearon/terraform-provider-azure-ems/internal/environment"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

var _ datasource.DataSource = &EnvironmentDataSource{}

func NewEnvironmentDataSource() datasource.DataSource {
	return &EnvironmentDataSource{}
}

// EnvironmentDataSource resolves a region to the Azure environment that serves it.
// It needs no provider configuration.
type EnvironmentDataSource struct{}

func (d *EnvironmentDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_environment"
}

func (d *EnvironmentDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Resolves an Azure region to its cloud environment and endpoints. " +
			"Regions containing `usgov` map to Azure Government, regions containing `germany` to Azure Germany, " +
			"and everything else to the public cloud.",

		Attributes: map[string]schema.Attribute{
			"region": schema.StringAttribute{
				MarkdownDescription: "Azure region name. An empty or unknown region resolves to the public cloud.",
				Required:            true,
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "Same as `name`.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "Environment name (`AzureCloud`, `AzureUSGovernmentCloud` or `AzureGermanCloud`).",
				Computed:            true,
			},
			"region_description": schema.StringAttribute{
				MarkdownDescription: "Display name of the region, empty when the region is not in the catalog.",
				Computed:            true,
			},
			"authority_host": schema.StringAttribute{
				MarkdownDescription: "Azure AD authority host of the environment.",
				Computed:            true,
			},
			"resource_manager_endpoint": schema.StringAttribute{
				MarkdownDescription: "Resource Manager endpoint of the environment.",
				Computed:            true,
			},
			"resource_manager_audience": schema.StringAttribute{
				MarkdownDescription: "Token audience for Resource Manager.",
				Computed:            true,
			},
		},
	}
}

func (d *EnvironmentDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data models.EnvironmentModel
	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	setEnvironmentModel(&data)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func setEnvironmentModel(data *models.EnvironmentModel) {
	region := data.Region.ValueString()
	env := environment.For(region)

	description := ""
	if r, ok := environment.Lookup(region); ok {
		description = r.Description
	}

	data.ID = types.StringValue(env.Name)
	data.Name = types.StringValue(env.Name)
	data.RegionDescription = types.StringValue(description)
	data.AuthorityHost = types.StringValue(env.Cloud.ActiveDirectoryAuthorityHost)
	data.ResourceManagerEndpoint = types.StringValue(env.ResourceManagerEndpoint())
	data.ResourceManagerAudience = types.StringValue(env.ResourceManagerAudience())
}
