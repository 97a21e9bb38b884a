package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/aaearon/terraform-provider-azure-ems/internal/store"
)

// SensitiveFields are fields that should NEVER be logged
var SensitiveFields = []string{
	"client_secret",
	"password",
	"encryption_key",
	"management_token",
	"token",
	"bearer",
	"secret",
}

// MaskSensitiveFields returns a tflog context that masks SensitiveFields in every entry
func MaskSensitiveFields(ctx context.Context) context.Context {
	return tflog.MaskFieldValuesWithFieldKeys(ctx, SensitiveFields...)
}

// LogProviderConfig logs provider configuration (masking sensitive data)
func LogProviderConfig(ctx context.Context, cfg providerConfig) {
	tflog.Debug(ctx, "Provider configuration loaded", map[string]interface{}{
		"tenant_id":          cfg.TenantID,
		"subscription_id":    cfg.SubscriptionID,
		"region":             cfg.Region,
		"client_id":          cfg.ClientID,
		"endpoint_url":       cfg.EndpointURL,
		"proxy_configured":   cfg.ProxyURI != "",
		"encryption_enabled": cfg.EncryptionKey != "",
		"verify_credentials": cfg.VerifyCredentials,
		// NEVER log: client_secret, encryption_key, management_token
	})
}

// LogStoreSelected logs which persistence backend was configured
func LogStoreSelected(ctx context.Context, st store.Store) {
	tflog.Debug(ctx, "Managed provider store selected", map[string]interface{}{
		"store": fmt.Sprintf("%T", st),
	})
}

// LogConnectionAttempt logs a credential verification attempt
func LogConnectionAttempt(ctx context.Context, region, subscriptionID string) {
	tflog.Debug(ctx, "Verifying Azure credentials", map[string]interface{}{
		"region":          region,
		"subscription_id": subscriptionID,
	})
}

// LogAuthSuccess logs successful authentication
func LogAuthSuccess(ctx context.Context) {
	tflog.Info(ctx, "Successfully verified Azure credentials")
}

// LogOperationStart logs the start of an API operation
func LogOperationStart(ctx context.Context, operation string, resourceType string) {
	tflog.Debug(ctx, "Starting operation", map[string]interface{}{
		"operation":     operation,
		"resource_type": resourceType,
	})
}

// LogOperationSuccess logs successful completion of an API operation
func LogOperationSuccess(ctx context.Context, operation string, resourceType string, resourceID string) {
	tflog.Info(ctx, "Operation completed successfully", map[string]interface{}{
		"operation":     operation,
		"resource_type": resourceType,
		"resource_id":   resourceID,
	})
}

// LogOperationError logs operation failure
func LogOperationError(ctx context.Context, operation string, resourceType string, err error) {
	tflog.Error(ctx, "Operation failed", map[string]interface{}{
		"operation":     operation,
		"resource_type": resourceType,
		"error":         err.Error(),
	})
}

// LogDriftDetected logs when state drift is detected
func LogDriftDetected(ctx context.Context, resourceType string, resourceID string) {
	tflog.Warn(ctx, "State drift detected - resource modified outside Terraform", map[string]interface{}{
		"resource_type": resourceType,
		"resource_id":   resourceID,
	})
}
