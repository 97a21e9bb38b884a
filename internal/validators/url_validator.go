package validators

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"golang.org/x/exp/slices"
)

// urlValidator validates that a string is an absolute URL with an allowed scheme and a host
type urlValidator struct {
	schemes []string
}

// Description returns a plain text description of the validator's behavior
func (v urlValidator) Description(ctx context.Context) string {
	return fmt.Sprintf("Value must be an absolute URL with scheme %s (e.g., '%s://management.azure.com')",
		strings.Join(v.schemes, " or "), v.schemes[0])
}

// MarkdownDescription returns a markdown formatted description of the validator's behavior
func (v urlValidator) MarkdownDescription(ctx context.Context) string {
	return fmt.Sprintf("Value must be an absolute URL with scheme %s (e.g., `%s://management.azure.com`)",
		strings.Join(v.schemes, " or "), v.schemes[0])
}

// ValidateString validates the URL
func (v urlValidator) ValidateString(ctx context.Context, req validator.StringRequest, resp *validator.StringResponse) {
	// Skip validation if value is unknown or null (during plan phase)
	if req.ConfigValue.IsUnknown() || req.ConfigValue.IsNull() {
		return
	}

	value := req.ConfigValue.ValueString()

	u, err := url.Parse(value)
	if err != nil {
		resp.Diagnostics.AddAttributeError(
			req.Path,
			"Invalid URL",
			fmt.Sprintf("Value %q is not a valid URL: %s.", value, err),
		)
		return
	}

	if !slices.Contains(v.schemes, strings.ToLower(u.Scheme)) || u.Host == "" {
		resp.Diagnostics.AddAttributeError(
			req.Path,
			"Invalid URL",
			fmt.Sprintf("Value %q must be an absolute URL using %s with a host (e.g., '%s://management.azure.com').",
				value, strings.Join(v.schemes, " or "), v.schemes[0]),
		)
	}
}

// EndpointURL returns a validator for Resource Manager endpoint overrides
func EndpointURL() validator.String {
	return urlValidator{schemes: []string{"https", "http"}}
}

// ProxyURL returns a validator for proxy URIs
func ProxyURL() validator.String {
	return urlValidator{schemes: []string{"http", "https", "socks5"}}
}
