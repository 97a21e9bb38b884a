// Package helpers provides shared utility functions for provider resources
package helpers

import (
	"fmt"
	"time"

	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

// StringOrNull maps "" to a null string so optional attributes stay unset in state
func StringOrNull(s string) types.String {
	if s == "" {
		return types.StringNull()
	}
	return types.StringValue(s)
}

// StringPointer returns nil for null or unknown values
func StringPointer(v types.String) *string {
	if v.IsNull() || v.IsUnknown() {
		return nil
	}
	s := v.ValueString()
	return &s
}

// TimeString formats t as RFC 3339, or null when t is zero
func TimeString(t time.Time) types.String {
	if t.IsZero() {
		return types.StringNull()
	}
	return types.StringValue(t.UTC().Format(time.RFC3339))
}

// RequireKnownID reports an attribute error when an ID is empty, as happens with a blank import ID
func RequireKnownID(id string, diagnostics *diag.Diagnostics, attrPath path.Path) bool {
	if id == "" {
		diagnostics.AddAttributeError(
			attrPath,
			"Invalid Managed Provider ID",
			fmt.Sprintf("A managed provider ID is required, got %q", id),
		)
		return false
	}
	return true
}
