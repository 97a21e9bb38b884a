package provider

// TestEnvVars documents the environment variables required for acceptance tests
// These variables must be set when running acceptance tests against Azure (TF_ACC=1)
const (
	// TF_ACC must be set to "1" to enable acceptance tests
	EnvTFAcc = "TF_ACC"

	// ARM_TENANT_ID is the Azure AD tenant of the test service principal
	EnvTenantID = "ARM_TENANT_ID"

	// ARM_SUBSCRIPTION_ID is a subscription the service principal can read
	EnvSubscriptionID = "ARM_SUBSCRIPTION_ID"

	// ARM_CLIENT_ID is the service principal application ID
	EnvClientID = "ARM_CLIENT_ID"

	// ARM_CLIENT_SECRET is the service principal secret
	EnvClientSecret = "ARM_CLIENT_SECRET"

	// AZUREEMS_REGION is the region of the test subscription
	// Example: eastus
	EnvRegion = "AZUREEMS_REGION"
)

// TestAccPreCheckVars lists the required environment variables for acceptance tests
var TestAccPreCheckVars = []string{
	EnvTenantID,
	EnvSubscriptionID,
	EnvClientID,
	EnvClientSecret,
	EnvRegion,
}
