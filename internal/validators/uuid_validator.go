package validators

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
)

// uuidValidator validates that a string is a GUID in canonical 8-4-4-4-12 form,
// which is how Azure tenant, subscription and application IDs are written
type uuidValidator struct{}

// canonicalUUIDLength excludes the braced, URN and hyphen-less forms uuid.Parse also accepts
const canonicalUUIDLength = 36

// Description returns a plain text description of the validator's behavior
func (v uuidValidator) Description(ctx context.Context) string {
	return "Value must be a GUID (e.g., '72f988bf-86f1-41af-91ab-2d7cd011db47')"
}

// MarkdownDescription returns a markdown formatted description of the validator's behavior
func (v uuidValidator) MarkdownDescription(ctx context.Context) string {
	return "Value must be a GUID (e.g., `72f988bf-86f1-41af-91ab-2d7cd011db47`)"
}

// ValidateString validates the GUID format
func (v uuidValidator) ValidateString(ctx context.Context, req validator.StringRequest, resp *validator.StringResponse) {
	// Skip validation if value is unknown or null (during plan phase)
	if req.ConfigValue.IsUnknown() || req.ConfigValue.IsNull() {
		return
	}

	value := req.ConfigValue.ValueString()

	if len(value) != canonicalUUIDLength {
		resp.Diagnostics.AddAttributeError(
			req.Path,
			"Invalid GUID Format",
			fmt.Sprintf("Value %q is not a valid GUID. Expected format: 8-4-4-4-12 hexadecimal digits (e.g., '72f988bf-86f1-41af-91ab-2d7cd011db47').", value),
		)
		return
	}
	if _, err := uuid.Parse(value); err != nil {
		resp.Diagnostics.AddAttributeError(
			req.Path,
			"Invalid GUID Format",
			fmt.Sprintf("Value %q is not a valid GUID: %s.", value, err),
		)
	}
}

// UUID returns a validator that ensures the string is a canonical GUID
func UUID() validator.String {
	return uuidValidator{}
}
