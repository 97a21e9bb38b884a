// Package validators provides custom validators for Terraform resources
package validators

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

var _ validator.Map = roleKeysValidator{}

var roleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// roleKeysValidator validates that every key of an endpoints or authentications map
// is a usable role name.
type roleKeysValidator struct{}

// Description returns a plain text description of the validator's behavior.
func (v roleKeysValidator) Description(ctx context.Context) string {
	return "map keys must be role names: lowercase letters, digits and underscores, starting with a letter"
}

// MarkdownDescription returns a markdown formatted description of the validator's behavior.
func (v roleKeysValidator) MarkdownDescription(ctx context.Context) string {
	return "map keys must be role names such as `default` (lowercase letters, digits and underscores, starting with a letter)"
}

// ValidateMap performs the validation.
func (v roleKeysValidator) ValidateMap(ctx context.Context, req validator.MapRequest, resp *validator.MapResponse) {
	if req.ConfigValue.IsUnknown() || req.ConfigValue.IsNull() {
		return
	}

	for role := range req.ConfigValue.Elements() {
		if roleNamePattern.MatchString(role) {
			continue
		}

		tflog.Warn(ctx, "Role name validation failed", map[string]interface{}{
			"role": role,
		})
		resp.Diagnostics.AddAttributeError(
			req.Path.AtMapKey(role),
			"Invalid Role Name",
			fmt.Sprintf("Role %q must start with a lowercase letter and contain only lowercase letters, digits and underscores (e.g., default, readonly).", role),
		)
	}
}

// RoleKeys returns a validator for maps keyed by role name.
func RoleKeys() validator.Map {
	return roleKeysValidator{}
}
