// Package client provides Azure connection and management API client wrappers
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/hashicorp/terraform-plugin-framework/diag"
)

// ErrResourceNotFound is returned by stores when a managed resource does not exist
var ErrResourceNotFound = errors.New("managed resource not found")

// MissingCredentialsError means no usable authentication source exists for AuthType
type MissingCredentialsError struct {
	AuthType string
	Detail   string
}

func (e *MissingCredentialsError) Error() string {
	msg := fmt.Sprintf("no credentials defined for authentication %q", e.AuthType)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// HostCredentialsError means the resource has no authentication method for AuthType
type HostCredentialsError struct {
	AuthType string
}

func (e *HostCredentialsError) Error() string {
	return fmt.Sprintf("no credentials defined: authentication %q is not configured on the provider", e.AuthType)
}

// InvalidCredentialsError means a required identifier is blank.
// It is raised before any network attempt.
type InvalidCredentialsError struct {
	Reason string
}

func (e *InvalidCredentialsError) Error() string {
	return "Incorrect credentials - " + e.Reason
}

// ConnectionError wraps a transport or authentication rejection
type ConnectionError struct {
	Environment string
	Cause       error
}

func (e *ConnectionError) Error() string {
	if e.Environment == "" {
		return fmt.Sprintf("connection failed: %v", e.Cause)
	}
	return fmt.Sprintf("connection to %s failed: %v", e.Environment, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// PersistenceError means a create or edit could not be saved; nothing was written
type PersistenceError struct {
	Operation string
	Cause     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s managed resource: %v", e.Operation, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// ErrorCategory represents the classification of an error
type ErrorCategory int

const (
	ErrorCategoryAuth ErrorCategory = iota
	ErrorCategoryPermission
	ErrorCategoryNotFound
	ErrorCategoryConflict
	ErrorCategoryValidation
	ErrorCategoryNetwork
	ErrorCategoryTimeout
	ErrorCategoryRateLimit
	ErrorCategoryServer
	ErrorCategoryUnknown
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryAuth:
		return "authentication"
	case ErrorCategoryPermission:
		return "permission"
	case ErrorCategoryNotFound:
		return "not_found"
	case ErrorCategoryConflict:
		return "conflict"
	case ErrorCategoryValidation:
		return "validation"
	case ErrorCategoryNetwork:
		return "network"
	case ErrorCategoryTimeout:
		return "timeout"
	case ErrorCategoryRateLimit:
		return "rate_limit"
	case ErrorCategoryServer:
		return "server"
	default:
		return "unknown"
	}
}

// categoryForStatus maps an HTTP status code onto a category
func categoryForStatus(status int) (ErrorCategory, bool) {
	switch {
	case status == http.StatusUnauthorized:
		return ErrorCategoryAuth, true
	case status == http.StatusForbidden:
		return ErrorCategoryPermission, true
	case status == http.StatusNotFound:
		return ErrorCategoryNotFound, true
	case status == http.StatusConflict:
		return ErrorCategoryConflict, true
	case status == http.StatusTooManyRequests:
		return ErrorCategoryRateLimit, true
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrorCategoryValidation, true
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorCategoryTimeout, true
	case status >= 500:
		return ErrorCategoryServer, true
	}
	return ErrorCategoryUnknown, false
}

// classifyError determines the error category using multiple detection strategies:
// typed errors first, then Azure SDK error types, then message patterns
func classifyError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	// 1. Errors raised by this provider
	var missing *MissingCredentialsError
	var host *HostCredentialsError
	var invalid *InvalidCredentialsError
	var persistence *PersistenceError
	switch {
	case errors.As(err, &missing), errors.As(err, &host):
		return ErrorCategoryAuth
	case errors.As(err, &invalid):
		return ErrorCategoryValidation
	case errors.Is(err, ErrResourceNotFound):
		return ErrorCategoryNotFound
	case errors.As(err, &persistence):
		if cat := classifyError(persistence.Cause); cat != ErrorCategoryUnknown {
			return cat
		}
		return ErrorCategoryValidation
	}

	// 2. Standard Go error types
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorCategoryNetwork // Treat as network since operation was interrupted
	}

	// 3. Azure SDK error types
	var authFailed *azidentity.AuthenticationFailedError
	if errors.As(err, &authFailed) {
		return ErrorCategoryAuth
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if cat, ok := categoryForStatus(respErr.StatusCode); ok {
			return cat
		}
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if cat, ok := categoryForStatus(httpErr.StatusCode); ok {
			return cat
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorCategoryTimeout
		}
		return ErrorCategoryNetwork
	}

	// 4. Pattern matching (ordered by specificity - most specific first)
	errorMsg := strings.ToLower(err.Error())

	if strings.Contains(errorMsg, "authentication failed") ||
		strings.Contains(errorMsg, "invalid credentials") ||
		strings.Contains(errorMsg, "unauthorized") ||
		strings.Contains(errorMsg, "401") ||
		strings.Contains(errorMsg, "invalid_client") ||
		strings.Contains(errorMsg, "aadsts") ||
		strings.Contains(errorMsg, "tenant mismatch") {
		return ErrorCategoryAuth
	}

	if strings.Contains(errorMsg, "insufficient permissions") ||
		strings.Contains(errorMsg, "forbidden") ||
		strings.Contains(errorMsg, "403") ||
		strings.Contains(errorMsg, "authorizationfailed") ||
		strings.Contains(errorMsg, "not authorized") {
		return ErrorCategoryPermission
	}

	if strings.Contains(errorMsg, "rate limit") ||
		strings.Contains(errorMsg, "too many requests") ||
		strings.Contains(errorMsg, "429") ||
		strings.Contains(errorMsg, "throttled") {
		return ErrorCategoryRateLimit
	}

	if strings.Contains(errorMsg, "not found") ||
		strings.Contains(errorMsg, "404") ||
		strings.Contains(errorMsg, "subscriptionnotfound") ||
		strings.Contains(errorMsg, "does not exist") {
		return ErrorCategoryNotFound
	}

	if strings.Contains(errorMsg, "already exists") ||
		strings.Contains(errorMsg, "duplicate") ||
		strings.Contains(errorMsg, "409") ||
		strings.Contains(errorMsg, "conflict") {
		return ErrorCategoryConflict
	}

	if strings.Contains(errorMsg, "validation") ||
		strings.Contains(errorMsg, "invalid") ||
		strings.Contains(errorMsg, "400") ||
		strings.Contains(errorMsg, "422") ||
		strings.Contains(errorMsg, "bad request") ||
		strings.Contains(errorMsg, "malformed") {
		return ErrorCategoryValidation
	}

	if strings.Contains(errorMsg, "server error") ||
		strings.Contains(errorMsg, "service unavailable") ||
		strings.Contains(errorMsg, "internal error") ||
		strings.Contains(errorMsg, "500") ||
		strings.Contains(errorMsg, "502") ||
		strings.Contains(errorMsg, "503") ||
		strings.Contains(errorMsg, "504") {
		return ErrorCategoryServer
	}

	if strings.Contains(errorMsg, "connection refused") ||
		strings.Contains(errorMsg, "timeout") ||
		strings.Contains(errorMsg, "timed out") ||
		strings.Contains(errorMsg, "network") ||
		strings.Contains(errorMsg, "dial") ||
		strings.Contains(errorMsg, "no such host") ||
		strings.Contains(errorMsg, "proxyconnect") ||
		strings.Contains(errorMsg, "connection reset") {
		return ErrorCategoryNetwork
	}

	return ErrorCategoryUnknown
}

// IsNotFoundError returns true if the error represents a missing resource.
// Used for drift detection in Read() methods.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return classifyError(err) == ErrorCategoryNotFound
}

// MapError converts provider errors to Terraform diagnostics with actionable guidance
// Returns an empty diagnostic if err is nil (caller should check before appending)
func MapError(err error, operation string) diag.Diagnostic {
	if err == nil {
		return diag.NewErrorDiagnostic("", "")
	}

	errorMsg := err.Error()

	var missing *MissingCredentialsError
	if errors.As(err, &missing) {
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Missing Credentials - %s", operation),
			fmt.Sprintf("No client ID or client secret could be resolved.\n\n"+
				"Error: %s\n\n"+
				"Recommended actions:\n"+
				"1. Set authentications.%s.userid and authentications.%s.password\n"+
				"2. Or configure client_id / client_secret on the provider", errorMsg, missing.AuthType, missing.AuthType),
		)
	}

	var host *HostCredentialsError
	if errors.As(err, &host) {
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("No Credentials Defined - %s", operation),
			fmt.Sprintf("The managed provider has no %q authentication.\n\n"+
				"Error: %s", host.AuthType, errorMsg),
		)
	}

	var invalid *InvalidCredentialsError
	if errors.As(err, &invalid) {
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Invalid Credentials - %s", operation),
			fmt.Sprintf("%s\n\n"+
				"The subscription ID must be set before a connection is attempted.", errorMsg),
		)
	}

	switch classifyError(err) {
	case ErrorCategoryAuth:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Authentication Failed - %s", operation),
			fmt.Sprintf("Invalid client_id, client_secret or tenant_id.\n\n"+
				"Error: %s\n\n"+
				"Recommended actions:\n"+
				"1. Verify the service principal credentials\n"+
				"2. Check the tenant ID matches the app registration's directory\n"+
				"3. Check the region selects the right cloud (public, US Gov, Germany)", errorMsg),
		)

	case ErrorCategoryPermission:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Insufficient Permissions - %s", operation),
			fmt.Sprintf("The service principal lacks access to the subscription.\n\n"+
				"Error: %s\n\n"+
				"Recommended action:\n"+
				"Grant the service principal at least Reader on the subscription", errorMsg),
		)

	case ErrorCategoryNotFound:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Resource Not Found - %s", operation),
			fmt.Sprintf("The requested resource was not found.\n\n"+
				"Error: %s\n\n"+
				"This may occur if:\n"+
				"- Resource was deleted outside Terraform\n"+
				"- Subscription ID is incorrect\n\n"+
				"Run 'terraform refresh' to sync state", errorMsg),
		)

	case ErrorCategoryConflict:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Resource Conflict - %s", operation),
			fmt.Sprintf("A resource with this identifier already exists.\n\n"+
				"Error: %s\n\n"+
				"Use 'terraform import' to manage the existing resource", errorMsg),
		)

	case ErrorCategoryValidation:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Validation Failed - %s", operation),
			fmt.Sprintf("The managed provider failed validation.\n\n"+
				"Error: %s\n\n"+
				"Check name, tenant_id, subscription_id, region and authentications are set", errorMsg),
		)

	case ErrorCategoryNetwork:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Network Error - %s", operation),
			fmt.Sprintf("Unable to reach Azure.\n\n"+
				"Error: %s\n\n"+
				"Recommended actions:\n"+
				"1. Check network connectivity\n"+
				"2. Verify endpoint_url and proxy_uri\n"+
				"3. Check firewall rules", errorMsg),
		)

	case ErrorCategoryTimeout:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Request Timeout - %s", operation),
			fmt.Sprintf("Request to Azure exceeded timeout limit.\n\n"+
				"Error: %s\n\n"+
				"Recommended actions:\n"+
				"1. Check network latency to Azure\n"+
				"2. Verify the proxy is responsive", errorMsg),
		)

	case ErrorCategoryRateLimit:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Rate Limit Exceeded - %s", operation),
			fmt.Sprintf("Too many requests.\n\n"+
				"Error: %s\n\n"+
				"Recommended actions:\n"+
				"1. Reduce parallelism in Terraform configuration\n"+
				"2. Wait before retrying", errorMsg),
		)

	case ErrorCategoryServer:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Server Error - %s", operation),
			fmt.Sprintf("The remote service encountered an internal error.\n\n"+
				"Error: %s\n\n"+
				"This is typically a transient issue. Retry the operation.", errorMsg),
		)

	default:
		return diag.NewErrorDiagnostic(
			fmt.Sprintf("Azure Provider Error - %s", operation),
			fmt.Sprintf("An unexpected error occurred.\n\n"+
				"Error: %s\n\n"+
				"If this error persists, please report it with the full error message above.", errorMsg),
		)
	}
}
