package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/aaearon/terraform-provider-azure-ems/internal/environment"
)

// regionValidator validates that a string names a region in the provider's catalog
type regionValidator struct{}

// Description returns a plain text description of the validator's behavior
func (v regionValidator) Description(ctx context.Context) string {
	return "Value must be a known Azure region name (e.g., 'eastus', 'usgovvirginia')"
}

// MarkdownDescription returns a markdown formatted description of the validator's behavior
func (v regionValidator) MarkdownDescription(ctx context.Context) string {
	return "Value must be a known Azure region name (e.g., `eastus`, `usgovvirginia`)"
}

// ValidateString validates the region against the catalog
func (v regionValidator) ValidateString(ctx context.Context, req validator.StringRequest, resp *validator.StringResponse) {
	if req.ConfigValue.IsUnknown() || req.ConfigValue.IsNull() {
		return
	}

	value := req.ConfigValue.ValueString()

	if _, ok := environment.Lookup(value); ok {
		return
	}

	detail := fmt.Sprintf("Region %q is not a known Azure region.", value)
	if _, ok := environment.Lookup(strings.ToLower(strings.TrimSpace(value))); ok {
		detail += fmt.Sprintf(" Region names are lowercase without spaces, use %q.", strings.ToLower(strings.TrimSpace(value)))
	} else {
		detail += fmt.Sprintf(" Valid values: %s", strings.Join(environment.RegionNames(), ", "))
	}
	resp.Diagnostics.AddAttributeError(req.Path, "Invalid Azure Region", detail)
}

// Region returns a validator that ensures the string is a known Azure region
func Region() validator.String {
	return regionValidator{}
}
