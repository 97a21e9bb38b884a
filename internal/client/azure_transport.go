package client

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/aaearon/terraform-provider-azure-ems/internal/environment"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

// AzureTransport performs the live handshake against Azure: acquire a token for the
// environment's Resource Manager scope, then read the subscription.
//
// A connection attempt is made exactly once unless Retry is set.
type AzureTransport struct {
	NewCredential CredentialFactory
	NewHTTPClient HTTPClientFactory
	Retry         *RetryConfig
}

// NewAzureTransport returns a transport backed by azidentity and the public HTTP stack
func NewAzureTransport() *AzureTransport {
	return &AzureTransport{
		NewCredential: NewClientSecretCredential,
		NewHTTPClient: defaultHTTPClientFactory,
	}
}

// noRetry disables the azcore retry policy; a zero MaxRetries means "SDK default" there
var noRetry = policy.RetryOptions{MaxRetries: -1}

func (t *AzureTransport) retryOptions() policy.RetryOptions {
	if t.Retry == nil || t.Retry.MaxRetries <= 0 {
		return noRetry
	}
	return policy.RetryOptions{
		MaxRetries:    int32(t.Retry.MaxRetries),
		RetryDelay:    t.Retry.BaseDelay,
		MaxRetryDelay: t.Retry.MaxDelay,
	}
}

func (t *AzureTransport) clientOptions(env environment.Environment, transporter policy.Transporter) azcore.ClientOptions {
	return azcore.ClientOptions{
		Cloud:     env.Cloud,
		Transport: transporter,
		Retry:     t.retryOptions(),
	}
}

// Connect authenticates with the request's service principal and confirms the
// subscription is reachable and enabled. Failures keep their Azure SDK error types
// in the chain; the caller decides how to classify them.
func (t *AzureTransport) Connect(ctx context.Context, req models.ConnectionRequest, env environment.Environment) error {
	newHTTPClient := t.NewHTTPClient
	if newHTTPClient == nil {
		newHTTPClient = defaultHTTPClientFactory
	}
	newCredential := t.NewCredential
	if newCredential == nil {
		newCredential = NewClientSecretCredential
	}

	transporter, err := newHTTPClient(req.ProxyURI)
	if err != nil {
		return err
	}
	opts := t.clientOptions(env, transporter)

	cred, err := newCredential(req.TenantID, req.ClientID, req.ClientSecret, &azidentity.ClientSecretCredentialOptions{
		ClientOptions: opts,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{env.ResourceManagerScope()},
	})
	if err != nil {
		return fmt.Errorf("failed to acquire token: %w", err)
	}
	if err := checkTokenTenant(token.Token, req.TenantID); err != nil {
		return err
	}

	tflog.Debug(ctx, "Acquired Azure access token", map[string]interface{}{
		"environment": env.Name,
		"expires_on":  token.ExpiresOn.UTC().Format(time.RFC3339),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	subscriptions, err := armsubscriptions.NewClient(cred, &arm.ClientOptions{ClientOptions: opts})
	if err != nil {
		return fmt.Errorf("failed to build subscriptions client: %w", err)
	}

	resp, err := subscriptions.Get(ctx, req.SubscriptionID, nil)
	if err != nil {
		return fmt.Errorf("failed to read subscription %s: %w", req.SubscriptionID, err)
	}

	state := "Unknown"
	if resp.State != nil {
		state = string(*resp.State)
	}
	if state != string(armsubscriptions.SubscriptionStateEnabled) {
		return fmt.Errorf("subscription %s is not usable: state %s", req.SubscriptionID, state)
	}

	tflog.Debug(ctx, "Azure subscription reachable", map[string]interface{}{
		"environment":     env.Name,
		"subscription_id": req.SubscriptionID,
		"state":           state,
	})
	return nil
}
