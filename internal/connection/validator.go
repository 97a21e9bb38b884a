// Package connection validates connection parameters and performs the Azure handshake
package connection

import (
	"context"
	"errors"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/environment"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

// Transport performs the network handshake for a fully resolved request
type Transport interface {
	Connect(ctx context.Context, req models.ConnectionRequest, env environment.Environment) error
}

// Validator checks preconditions and delegates to a Transport
type Validator struct {
	transport Transport
}

// NewValidator returns a Validator using transport for the handshake
func NewValidator(transport Transport) *Validator {
	return &Validator{transport: transport}
}

// EnvironmentFor resolves the environment for req, honouring the endpoint override
func EnvironmentFor(req models.ConnectionRequest) environment.Environment {
	return environment.For(req.Region).WithEndpoint(req.EndpointURL)
}

// Connect validates req and attempts a connection.
// A blank subscription fails with *client.InvalidCredentialsError before any network
// use. Transport failures are returned as *client.ConnectionError with the cause attached.
func (v *Validator) Connect(ctx context.Context, req models.ConnectionRequest) (models.ConnectionResult, error) {
	if strings.TrimSpace(req.SubscriptionID) == "" {
		err := &client.InvalidCredentialsError{Reason: "check your Azure Subscription ID"}
		return models.ConnectionResult{Reason: err.Error()}, err
	}

	env := EnvironmentFor(req)
	fields := req.LogFields()
	fields["environment"] = env.Name
	tflog.Debug(ctx, "Attempting Azure connection", fields)

	if err := v.transport.Connect(ctx, req, env); err != nil {
		err = wrapTransportError(err, env.Name)
		tflog.Debug(ctx, "Azure connection failed", map[string]interface{}{
			"environment": env.Name,
			"error":       err.Error(),
		})
		return models.ConnectionResult{Environment: env.Name, Reason: err.Error()}, err
	}

	tflog.Info(ctx, "Azure connection succeeded", map[string]interface{}{
		"environment":     env.Name,
		"subscription_id": req.SubscriptionID,
	})
	return models.ConnectionResult{Success: true, Environment: env.Name}, nil
}

// VerifyCredentials is Connect reduced to a boolean. The error is always returned
// alongside false so callers can report why verification failed.
func (v *Validator) VerifyCredentials(ctx context.Context, req models.ConnectionRequest) (bool, error) {
	_, err := v.Connect(ctx, req)
	return err == nil, err
}

// wrapTransportError passes taxonomy errors through and wraps everything else
func wrapTransportError(err error, envName string) error {
	var (
		connErr    *client.ConnectionError
		invalidErr *client.InvalidCredentialsError
		missingErr *client.MissingCredentialsError
	)
	if errors.As(err, &connErr) || errors.As(err, &invalidErr) || errors.As(err, &missingErr) {
		return err
	}
	return &client.ConnectionError{Environment: envName, Cause: err}
}
