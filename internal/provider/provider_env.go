package provider

import (
	"os"
	"strconv"

	"github.com/hashicorp/terraform-plugin-framework/types"
)

// Environment variables read when the matching provider attribute is not set.
// The first name of each list is canonical; the rest are aliases checked in order.
var (
	envTenantID        = []string{"ARM_TENANT_ID", "AZURE_TENANT_ID"}
	envSubscriptionID  = []string{"ARM_SUBSCRIPTION_ID", "AZURE_SUBSCRIPTION_ID"}
	envClientID        = []string{"ARM_CLIENT_ID", "AZURE_CLIENT_ID"}
	envClientSecret    = []string{"ARM_CLIENT_SECRET", "AZURE_CLIENT_SECRET"}
	envRegion          = []string{"AZUREEMS_REGION"}
	envEndpointURL     = []string{"AZUREEMS_ENDPOINT_URL"}
	envProxyURI        = []string{"AZUREEMS_PROXY_URI", "HTTPS_PROXY", "https_proxy"}
	envEncryptionKey   = []string{"AZUREEMS_ENCRYPTION_KEY"}
	envStateFile       = []string{"AZUREEMS_STATE_FILE"}
	envManagementURL   = []string{"AZUREEMS_MANAGEMENT_URL"}
	envManagementToken = []string{"AZUREEMS_MANAGEMENT_TOKEN"}
	envVerify          = []string{"AZUREEMS_VERIFY_CREDENTIALS"}
)

// readStringWithAliases prefers the HCL value, then each env var in order
func readStringWithAliases(s types.String, envs ...string) string {
	if !s.IsNull() && !s.IsUnknown() {
		return s.ValueString()
	}
	for _, e := range envs {
		if v := os.Getenv(e); v != "" {
			return v
		}
	}
	return ""
}

// readBoolWithEnv prefers the HCL value, then a parseable env var, then def
func readBoolWithEnv(v types.Bool, def bool, envs ...string) bool {
	if !v.IsNull() && !v.IsUnknown() {
		return v.ValueBool()
	}
	for _, e := range envs {
		if b, err := strconv.ParseBool(os.Getenv(e)); err == nil {
			return b
		}
	}
	return def
}

// providerConfig is the provider configuration after environment fallbacks
type providerConfig struct {
	TenantID          string
	SubscriptionID    string
	Region            string
	ClientID          string
	ClientSecret      string
	EndpointURL       string
	ProxyURI          string
	EncryptionKey     string
	StateFile         string
	ManagementURL     string
	ManagementToken   string
	VerifyCredentials bool
}

func resolveProviderConfig(data AzureEMSProviderModel) providerConfig {
	return providerConfig{
		TenantID:          readStringWithAliases(data.TenantID, envTenantID...),
		SubscriptionID:    readStringWithAliases(data.SubscriptionID, envSubscriptionID...),
		Region:            readStringWithAliases(data.Region, envRegion...),
		ClientID:          readStringWithAliases(data.ClientID, envClientID...),
		ClientSecret:      readStringWithAliases(data.ClientSecret, envClientSecret...),
		EndpointURL:       readStringWithAliases(data.EndpointURL, envEndpointURL...),
		ProxyURI:          readStringWithAliases(data.ProxyURI, envProxyURI...),
		EncryptionKey:     readStringWithAliases(data.EncryptionKey, envEncryptionKey...),
		StateFile:         readStringWithAliases(data.StateFile, envStateFile...),
		ManagementURL:     readStringWithAliases(data.ManagementURL, envManagementURL...),
		ManagementToken:   readStringWithAliases(data.ManagementToken, envManagementToken...),
		VerifyCredentials: readBoolWithEnv(data.VerifyCredentials, false, envVerify...),
	}
}
