package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/mapvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/mapplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
	"github.com/aaearon/terraform-provider-azure-ems/internal/provider/helpers"
	"github.com/aaearon/terraform-provider-azure-ems/internal/validators"
)

const managedProviderResourceType = "managed_provider"

// Ensure provider defined types fully satisfy framework interfaces
var (
	_ resource.Resource                = &managedProviderResource{}
	_ resource.ResourceWithConfigure   = &managedProviderResource{}
	_ resource.ResourceWithImportState = &managedProviderResource{}
	_ resource.ResourceWithModifyPlan  = &managedProviderResource{}
)

// NewManagedProviderResource is a helper function to simplify the provider implementation
func NewManagedProviderResource() resource.Resource {
	return &managedProviderResource{}
}

// managedProviderResource is the resource implementation
type managedProviderResource struct {
	providerData *ProviderData
}

// Metadata returns the resource type name
func (r *managedProviderResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_" + managedProviderResourceType
}

// Schema defines the schema for the resource
func (r *managedProviderResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "Manages an Azure managed provider: a subscription in a tenant, reached with " +
			"service principal credentials through role-keyed endpoints and authentications.",
		MarkdownDescription: "Manages an Azure managed provider: a subscription in a tenant, reached with " +
			"service principal credentials through role-keyed endpoints and authentications.\n\n" +
			"**Roles**: only the `default` endpoint and authentication can change after creation. " +
			"Adding, removing or changing any other role requires replacing the resource.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Description: "Unique identifier assigned by the store",
				Computed:    true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"name": schema.StringAttribute{
				Description: "Display name of the managed provider (1-255 characters)",
				Required:    true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(1, 255),
				},
			},
			"tenant_id": schema.StringAttribute{
				Description: "Azure AD tenant ID (GUID) the service principal belongs to",
				Required:    true,
				Validators:  []validator.String{validators.UUID()},
			},
			"subscription_id": schema.StringAttribute{
				Description: "Azure subscription ID (GUID) that must be reachable with the credentials",
				Required:    true,
				Validators:  []validator.String{validators.UUID()},
			},
			"region": schema.StringAttribute{
				Description: "Azure region name. Selects the cloud environment (public, US Government, Germany).",
				Required:    true,
				Validators:  []validator.String{validators.Region()},
			},
			"endpoints": schema.MapNestedAttribute{
				Description: "Endpoints keyed by role. When omitted, a single empty `default` endpoint is created.",
				Optional:    true,
				Computed:    true,
				PlanModifiers: []planmodifier.Map{
					mapplanmodifier.UseStateForUnknown(),
				},
				Validators: []validator.Map{validators.RoleKeys()},
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"url": schema.StringAttribute{
							Description: "Resource Manager endpoint override for this role",
							Optional:    true,
							Validators:  []validator.String{validators.EndpointURL()},
						},
					},
				},
			},
			"authentications": schema.MapNestedAttribute{
				Description: "Service principal credentials keyed by role. `default` is used for connections.",
				Required:    true,
				Validators: []validator.Map{
					validators.RoleKeys(),
					mapvalidator.SizeAtLeast(1),
				},
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"userid": schema.StringAttribute{
							Description: "Service principal application (client) ID",
							Required:    true,
							Validators: []validator.String{
								stringvalidator.LengthAtLeast(1),
							},
						},
						"password": schema.StringAttribute{
							Description: "Service principal client secret. Write-only: never read back from the store.",
							Optional:    true,
							Sensitive:   true,
						},
					},
				},
			},
			"verify_before_create": schema.BoolAttribute{
				Description: "Verify the default credentials against Azure before the managed provider is stored",
				Optional:    true,
			},
			"created_at": schema.StringAttribute{
				Description: "Timestamp of creation (RFC 3339)",
				Computed:    true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"last_modified": schema.StringAttribute{
				Description: "Timestamp of last modification (RFC 3339)",
				Computed:    true,
			},
		},
	}
}

// Configure adds the provider configured manager to the resource
func (r *managedProviderResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured
	if req.ProviderData == nil {
		return
	}

	providerData, ok := req.ProviderData.(*ProviderData)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Resource Configure Type",
			fmt.Sprintf("Expected *ProviderData, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}

	r.providerData = providerData
}

func (r *managedProviderResource) configured(diags *diag.Diagnostics) bool {
	if r.providerData == nil {
		diags.AddError(
			"Unconfigured Managed Provider Store",
			"Expected configured ProviderData. Please report this issue to the provider developers.",
		)
		return false
	}
	return true
}

// ModifyPlan rejects changes to non-default endpoint and authentication roles,
// which an in-place edit does not apply
func (r *managedProviderResource) ModifyPlan(ctx context.Context, req resource.ModifyPlanRequest, resp *resource.ModifyPlanResponse) {
	if req.State.Raw.IsNull() || req.Plan.Raw.IsNull() {
		return
	}

	var plan, state models.ManagedProviderModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &plan)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if !plan.Endpoints.IsUnknown() {
		planEndpoints, diags := endpointModels(ctx, plan.Endpoints)
		resp.Diagnostics.Append(diags...)
		stateEndpoints, diags := endpointModels(ctx, state.Endpoints)
		resp.Diagnostics.Append(diags...)
		for _, role := range changedRoles(asEndpointValues(planEndpoints), asEndpointValues(stateEndpoints)) {
			resp.Diagnostics.AddAttributeError(
				path.Root("endpoints").AtMapKey(role),
				"Unsupported Endpoint Change",
				fmt.Sprintf("Endpoint role %q cannot be added, removed or changed in place; only the %q role can. "+
					"Recreate the managed provider to change it.", role, models.DefaultRole),
			)
		}
	}

	if !plan.Authentications.IsUnknown() {
		planAuths, diags := authenticationModels(ctx, plan.Authentications)
		resp.Diagnostics.Append(diags...)
		stateAuths, diags := authenticationModels(ctx, state.Authentications)
		resp.Diagnostics.Append(diags...)
		for _, role := range changedRoles(asAuthenticationValues(planAuths), asAuthenticationValues(stateAuths)) {
			resp.Diagnostics.AddAttributeError(
				path.Root("authentications").AtMapKey(role),
				"Unsupported Authentication Change",
				fmt.Sprintf("Authentication role %q cannot be added, removed or changed in place; only the %q role can. "+
					"Recreate the managed provider to change it.", role, models.DefaultRole),
			)
		}
	}
}

// Create creates the resource and sets the initial Terraform state
func (r *managedProviderResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	if !r.configured(&resp.Diagnostics) {
		return
	}

	var plan models.ManagedProviderModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &plan)...)
	if resp.Diagnostics.HasError() {
		return
	}

	LogOperationStart(ctx, "create", managedProviderResourceType)

	params, diags := resourceParamsFromModel(ctx, plan)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	if plan.VerifyBeforeCreate.ValueBool() {
		LogConnectionAttempt(ctx, plan.Region.ValueString(), plan.SubscriptionID.ValueString())
		if _, err := r.providerData.Manager.VerifyCredentials(ctx, verifyRequestFromParams(params)); err != nil {
			LogOperationError(ctx, "verify", managedProviderResourceType, err)
			resp.Diagnostics.Append(client.MapError(err, "verify managed provider credentials"))
			return
		}
	}

	created, err := r.providerData.Manager.CreateFromParams(ctx, params)
	if err != nil {
		LogOperationError(ctx, "create", managedProviderResourceType, err)
		resp.Diagnostics.Append(client.MapError(err, "create managed provider"))
		return
	}

	resp.Diagnostics.Append(setModelFromResource(ctx, &plan, created.ManagedResource, plan.Authentications)...)
	if resp.Diagnostics.HasError() {
		return
	}

	LogOperationSuccess(ctx, "create", managedProviderResourceType, plan.ID.ValueString())
	resp.Diagnostics.Append(resp.State.Set(ctx, &plan)...)
}

// Read refreshes the Terraform state with the latest data
func (r *managedProviderResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	if !r.configured(&resp.Diagnostics) {
		return
	}

	var state models.ManagedProviderModel
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Reading managed provider", map[string]interface{}{
		"id": state.ID.ValueString(),
	})

	found, err := r.providerData.Manager.Find(ctx, state.ID.ValueString())
	if err != nil {
		// Deleted outside Terraform
		if client.IsNotFoundError(err) {
			LogDriftDetected(ctx, managedProviderResourceType, state.ID.ValueString())
			resp.State.RemoveResource(ctx)
			return
		}
		LogOperationError(ctx, "read", managedProviderResourceType, err)
		resp.Diagnostics.Append(client.MapError(err, "read managed provider"))
		return
	}

	// Passwords are never read back; keep the ones already in state
	resp.Diagnostics.Append(setModelFromResource(ctx, &state, found.ManagedResource, state.Authentications)...)
	if resp.Diagnostics.HasError() {
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &state)...)
}

// Update edits the default endpoint and authentication and the top-level fields
func (r *managedProviderResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	if !r.configured(&resp.Diagnostics) {
		return
	}

	var plan, state models.ManagedProviderModel
	resp.Diagnostics.Append(req.Plan.Get(ctx, &plan)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	LogOperationStart(ctx, "update", managedProviderResourceType)

	params, diags := resourceParamsFromModel(ctx, plan)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	found, err := r.providerData.Manager.Find(ctx, state.ID.ValueString())
	if err != nil {
		LogOperationError(ctx, "update", managedProviderResourceType, err)
		resp.Diagnostics.Append(client.MapError(err, "update managed provider"))
		return
	}

	if err := found.EditWithParams(ctx, params); err != nil {
		LogOperationError(ctx, "update", managedProviderResourceType, err)
		resp.Diagnostics.Append(client.MapError(err, "update managed provider"))
		return
	}

	plan.ID = state.ID
	resp.Diagnostics.Append(setModelFromResource(ctx, &plan, found.ManagedResource, plan.Authentications)...)
	if resp.Diagnostics.HasError() {
		return
	}

	LogOperationSuccess(ctx, "update", managedProviderResourceType, plan.ID.ValueString())
	resp.Diagnostics.Append(resp.State.Set(ctx, &plan)...)
}

// Delete deletes the resource and removes the Terraform state on success
func (r *managedProviderResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	if !r.configured(&resp.Diagnostics) {
		return
	}

	var state models.ManagedProviderModel
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	LogOperationStart(ctx, "delete", managedProviderResourceType)

	if err := r.providerData.Manager.Delete(ctx, state.ID.ValueString()); err != nil {
		// Gracefully handle already-deleted resource
		if client.IsNotFoundError(err) {
			tflog.Warn(ctx, "Managed provider already deleted", map[string]interface{}{
				"id": state.ID.ValueString(),
			})
			return
		}
		LogOperationError(ctx, "delete", managedProviderResourceType, err)
		resp.Diagnostics.Append(client.MapError(err, "delete managed provider"))
		return
	}

	LogOperationSuccess(ctx, "delete", managedProviderResourceType, state.ID.ValueString())
}

// ImportState imports an existing managed provider by ID. Passwords are not
// importable and must be set in configuration afterwards.
func (r *managedProviderResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	if !helpers.RequireKnownID(req.ID, &resp.Diagnostics, path.Root("id")) {
		return
	}
	resource.ImportStatePassthroughID(ctx, path.Root("id"), req, resp)

	tflog.Info(ctx, "Imported managed provider", map[string]interface{}{
		"id": req.ID,
	})
}
