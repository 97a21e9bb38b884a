package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaearon/terraform-provider-azure-ems/internal/manager"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
	"github.com/aaearon/terraform-provider-azure-ems/internal/store"
)

const (
	testTenantID       = "72f988bf-86f1-41af-91ab-2d7cd011db47"
	testSubscriptionID = "0b1f6471-1bf0-4dda-aec3-111122223333"
)

// TestAccManagedProvider_lifecycle runs create, update, import and delete with a fake Azure transport
func TestAccManagedProvider_lifecycle(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "providers.yaml")
	transport := &fakeTransport{}

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testOfflinePreCheck(t) },
		ProtoV6ProviderFactories: testOfflineProviderFactories(transport),
		Steps: []resource.TestStep{
			// Create with no endpoints: a single empty default endpoint is stored
			{
				Config: testAccManagedProviderConfig(stateFile, "azure-prod", ""),
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("azureems_managed_provider.test", "name", "azure-prod"),
					resource.TestCheckResourceAttr("azureems_managed_provider.test", "endpoints.%", "1"),
					resource.TestCheckNoResourceAttr("azureems_managed_provider.test", "endpoints.default.url"),
					resource.TestCheckResourceAttr("azureems_managed_provider.test", "authentications.default.userid", "client-1"),
					resource.TestCheckResourceAttrSet("azureems_managed_provider.test", "id"),
					resource.TestCheckResourceAttrSet("azureems_managed_provider.test", "created_at"),
				),
			},
			// Edit the default endpoint in place
			{
				Config: testAccManagedProviderConfig(stateFile, "azure-renamed", "https://management.azure.com"),
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("azureems_managed_provider.test", "name", "azure-renamed"),
					resource.TestCheckResourceAttr("azureems_managed_provider.test", "endpoints.default.url", "https://management.azure.com"),
				),
			},
			// Drop the default url: the stored url is cleared, not kept
			{
				Config: testAccManagedProviderConfigEmptyDefault(stateFile, "azure-renamed"),
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("azureems_managed_provider.test", "endpoints.%", "1"),
					resource.TestCheckNoResourceAttr("azureems_managed_provider.test", "endpoints.default.url"),
				),
			},
			// ImportState testing
			{
				ResourceName:      "azureems_managed_provider.test",
				ImportState:       true,
				ImportStateVerify: true,
				// Passwords are write-only
				ImportStateVerifyIgnore: []string{"authentications.default.password", "verify_before_create"},
			},
		},
	})

	assert.Empty(t, transport.calls(), "no verification was requested")
}

// TestAccManagedProvider_nonDefaultRoleChange checks that other roles cannot change in place
func TestAccManagedProvider_nonDefaultRoleChange(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "providers.yaml")

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testOfflinePreCheck(t) },
		ProtoV6ProviderFactories: testOfflineProviderFactories(&fakeTransport{}),
		Steps: []resource.TestStep{
			{
				Config: testAccManagedProviderConfigWithEast(stateFile, "https://east-1.example.test"),
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("azureems_managed_provider.test", "endpoints.%", "2"),
					resource.TestCheckResourceAttr("azureems_managed_provider.test", "endpoints.east.url", "https://east-1.example.test"),
				),
			},
			{
				Config:      testAccManagedProviderConfigWithEast(stateFile, "https://east-2.example.test"),
				ExpectError: regexp.MustCompile(`Unsupported Endpoint Change`),
			},
		},
	})
}

// TestAccManagedProvider_verifyBeforeCreate checks that rejected credentials stop the create
func TestAccManagedProvider_verifyBeforeCreate(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "providers.yaml")
	transport := &fakeTransport{err: errors.New("AADSTS7000215: Invalid client secret provided")}

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testOfflinePreCheck(t) },
		ProtoV6ProviderFactories: testOfflineProviderFactories(transport),
		Steps: []resource.TestStep{
			{
				Config: fmt.Sprintf(`
provider "azureems" {
  state_file = %q
}

resource "azureems_managed_provider" "test" {
  name                 = "azure-prod"
  tenant_id            = %q
  subscription_id      = %q
  region               = "eastus"
  verify_before_create = true

  authentications = {
    default = {
      userid   = "client-1"
      password = "wrong"
    }
  }
}
`, stateFile, testTenantID, testSubscriptionID),
				ExpectError: regexp.MustCompile(`Authentication Failed`),
			},
		},
	})

	calls := transport.calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "wrong", calls[0].ClientSecret)
	_, err := os.Stat(stateFile)
	assert.True(t, os.IsNotExist(err), "nothing is stored when verification fails")
}

// TestAccManagedProvider_azure verifies real credentials from the environment
func TestAccManagedProvider_azure(t *testing.T) {
	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: fmt.Sprintf(`
provider "azureems" {
  state_file = %q
}

resource "azureems_managed_provider" "test" {
  name                 = "acc-azure"
  tenant_id            = %q
  subscription_id      = %q
  region               = %q
  verify_before_create = true

  authentications = {
    default = {
      userid   = %q
      password = %q
    }
  }
}
`, filepath.Join(t.TempDir(), "providers.yaml"), os.Getenv(EnvTenantID), os.Getenv(EnvSubscriptionID),
					os.Getenv(EnvRegion), os.Getenv(EnvClientID), os.Getenv(EnvClientSecret)),
				Check: resource.TestCheckResourceAttrSet("azureems_managed_provider.test", "id"),
			},
		},
	})
}

func testAccManagedProviderConfig(stateFile, name, defaultURL string) string {
	endpoints := ""
	if defaultURL != "" {
		endpoints = fmt.Sprintf(`
  endpoints = {
    default = {
      url = %q
    }
  }
`, defaultURL)
	}
	return fmt.Sprintf(`
provider "azureems" {
  state_file = %q
}

resource "azureems_managed_provider" "test" {
  name            = %q
  tenant_id       = %q
  subscription_id = %q
  region          = "eastus"
%s
  authentications = {
    default = {
      userid   = "client-1"
      password = "secret-1"
    }
  }
}
`, stateFile, name, testTenantID, testSubscriptionID, endpoints)
}

// testAccManagedProviderConfigEmptyDefault declares the default endpoint without a url
func testAccManagedProviderConfigEmptyDefault(stateFile, name string) string {
	return fmt.Sprintf(`
provider "azureems" {
  state_file = %q
}

resource "azureems_managed_provider" "test" {
  name            = %q
  tenant_id       = %q
  subscription_id = %q
  region          = "eastus"

  endpoints = {
    default = {}
  }

  authentications = {
    default = {
      userid   = "client-1"
      password = "secret-1"
    }
  }
}
`, stateFile, name, testTenantID, testSubscriptionID)
}

func testAccManagedProviderConfigWithEast(stateFile, eastURL string) string {
	return fmt.Sprintf(`
provider "azureems" {
  state_file = %q
}

resource "azureems_managed_provider" "test" {
  name            = "azure-prod"
  tenant_id       = %q
  subscription_id = %q
  region          = "eastus"

  endpoints = {
    default = {
      url = "https://management.azure.com"
    }
    east = {
      url = %q
    }
  }

  authentications = {
    default = {
      userid   = "client-1"
      password = "secret-1"
    }
  }
}
`, stateFile, testTenantID, testSubscriptionID, eastURL)
}

func TestChangedRoles(t *testing.T) {
	url := func(s string) endpointValue { return endpointValue{URL: types.StringValue(s)} }

	tests := []struct {
		name  string
		plan  map[string]endpointValue
		state map[string]endpointValue
		want  []string
	}{
		{
			name:  "default change is allowed",
			plan:  map[string]endpointValue{"default": url("https://x")},
			state: map[string]endpointValue{"default": url("https://y")},
			want:  nil,
		},
		{
			name:  "added, removed and changed roles",
			plan:  map[string]endpointValue{"east": url("https://e2"), "north": url("https://n")},
			state: map[string]endpointValue{"east": url("https://e1"), "west": url("https://w")},
			want:  []string{"east", "north", "west"},
		},
		{
			name:  "unchanged",
			plan:  map[string]endpointValue{"east": url("https://e")},
			state: map[string]endpointValue{"east": url("https://e")},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, changedRoles(tt.plan, tt.state))
		})
	}
}

func TestAuthenticationValueEqual_ImportedPassword(t *testing.T) {
	plan := authenticationValue{UserID: types.StringValue("u"), Password: types.StringValue("p")}

	assert.True(t, plan.equal(authenticationValue{UserID: types.StringValue("u"), Password: types.StringNull()}))
	assert.False(t, plan.equal(authenticationValue{UserID: types.StringValue("u"), Password: types.StringValue("other")}))
	assert.False(t, plan.equal(authenticationValue{UserID: types.StringValue("v"), Password: types.StringNull()}))
}

func TestResourceParamsFromModel(t *testing.T) {
	ctx := context.Background()

	authMap, diags := types.MapValueFrom(ctx, types.ObjectType{AttrTypes: models.AuthenticationAttrTypes()},
		map[string]models.AuthenticationModel{
			"default": {UserID: types.StringValue("client"), Password: types.StringNull()},
		})
	require.False(t, diags.HasError())

	params, diags := resourceParamsFromModel(ctx, models.ManagedProviderModel{
		Name:            types.StringValue("azure"),
		TenantID:        types.StringValue("tenant"),
		SubscriptionID:  types.StringValue("sub"),
		Region:          types.StringValue("eastus"),
		Endpoints:       types.MapUnknown(types.ObjectType{AttrTypes: models.EndpointAttrTypes()}),
		Authentications: authMap,
	})
	require.False(t, diags.HasError())

	assert.Nil(t, params.Endpoints, "unknown endpoints must produce the default endpoint")
	assert.Equal(t, "sub", models.StringValue(params.SubscriptionID))
	auth := params.Authentications["default"]
	assert.Equal(t, "client", models.StringValue(auth.UserID))
	assert.Nil(t, auth.Password, "null password leaves the stored one alone")
}

func TestResourceParamsFromModel_NullURLClearsOnEdit(t *testing.T) {
	ctx := context.Background()
	m := manager.New(store.NewMemoryStore(), manager.WithTransport(&fakeTransport{}))

	endpointMap := func(url types.String) types.Map {
		v, diags := types.MapValueFrom(ctx, types.ObjectType{AttrTypes: models.EndpointAttrTypes()},
			map[string]models.EndpointModel{"default": {URL: url}})
		require.False(t, diags.HasError())
		return v
	}
	authMap, diags := types.MapValueFrom(ctx, types.ObjectType{AttrTypes: models.AuthenticationAttrTypes()},
		map[string]models.AuthenticationModel{
			"default": {UserID: types.StringValue("client"), Password: types.StringValue("secret")},
		})
	require.False(t, diags.HasError())

	plan := models.ManagedProviderModel{
		Name:            types.StringValue("azure"),
		TenantID:        types.StringValue("tenant"),
		SubscriptionID:  types.StringValue("sub"),
		Region:          types.StringValue("eastus"),
		Endpoints:       endpointMap(types.StringValue("https://x.example")),
		Authentications: authMap,
	}
	params, diags := resourceParamsFromModel(ctx, plan)
	require.False(t, diags.HasError())
	created, err := m.CreateFromParams(ctx, params)
	require.NoError(t, err)

	plan.Endpoints = endpointMap(types.StringNull())
	params, diags = resourceParamsFromModel(ctx, plan)
	require.False(t, diags.HasError())
	require.NotNil(t, params.Endpoints["default"].URL)
	assert.Equal(t, "", *params.Endpoints["default"].URL)

	found, err := m.Find(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, found.EditWithParams(ctx, params))

	diags = setModelFromResource(ctx, &plan, found.ManagedResource, plan.Authentications)
	require.False(t, diags.HasError())
	assert.True(t, plan.Endpoints.Equal(endpointMap(types.StringNull())), "applied state matches the plan")
}

func TestSetModelFromResource(t *testing.T) {
	ctx := context.Background()

	prior, diags := types.MapValueFrom(ctx, types.ObjectType{AttrTypes: models.AuthenticationAttrTypes()},
		map[string]models.AuthenticationModel{
			"default": {UserID: types.StringValue("client"), Password: types.StringValue("secret")},
		})
	require.False(t, diags.HasError())

	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	var m models.ManagedProviderModel
	diags = setModelFromResource(ctx, &m, &models.ManagedResource{
		ID:             "res-1",
		Name:           "azure",
		UID:            "tenant",
		SubscriptionID: "sub",
		Region:         "eastus",
		Endpoints:      []models.Endpoint{{Role: "default"}, {Role: "east", URL: "https://e"}},
		Authentications: []models.Authentication{
			{Role: "default", AuthType: "default", UserID: "client", Password: "v2:{stored}"},
			{Role: "metrics", AuthType: "metrics", UserID: "reader"},
		},
		CreatedAt: created,
	}, prior)
	require.False(t, diags.HasError(), "diagnostics: %v", diags)

	assert.Equal(t, "res-1", m.ID.ValueString())
	assert.Equal(t, "2025-03-04T05:06:07Z", m.CreatedAt.ValueString())
	assert.True(t, m.LastModified.IsNull())
	assert.True(t, m.VerifyBeforeCreate.IsNull())

	endpoints, diags := endpointModels(ctx, m.Endpoints)
	require.False(t, diags.HasError())
	assert.True(t, endpoints["default"].URL.IsNull())
	assert.Equal(t, "https://e", endpoints["east"].URL.ValueString())

	auths, diags := authenticationModels(ctx, m.Authentications)
	require.False(t, diags.HasError())
	assert.Equal(t, "secret", auths["default"].Password.ValueString(), "password comes from prior state, never the store")
	assert.True(t, auths["metrics"].Password.IsNull())
	assert.Equal(t, "reader", auths["metrics"].UserID.ValueString())
}
