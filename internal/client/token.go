package client

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TenantFromToken extracts the tenant ("tid" claim) from an Entra ID access token.
// The token is not verified; it was just issued to us over TLS by the authority.
func TenantFromToken(accessToken string) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("access token cannot be empty")
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("failed to parse JWT token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("failed to extract JWT claims")
	}

	tid, ok := claims["tid"].(string)
	if !ok || tid == "" {
		return "", fmt.Errorf("JWT token missing 'tid' claim")
	}
	return tid, nil
}

// checkTokenTenant rejects tokens issued for a different tenant than requested
func checkTokenTenant(accessToken, tenantID string) error {
	tid, err := TenantFromToken(accessToken)
	if err != nil {
		return err
	}
	if !strings.EqualFold(tid, tenantID) {
		return fmt.Errorf("tenant mismatch: token issued for %q, requested %q", tid, tenantID)
	}
	return nil
}
