// Package credentials resolves the client id and secret used for an Azure connection
package credentials

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
	"github.com/aaearon/terraform-provider-azure-ems/internal/secrets"
)

const (
	sourceExplicit = "explicit"
	sourceRequest  = "request"
	sourceStored   = "stored"
	sourceLookup   = "lookup"
)

// LookupFunc loads the stored authentication of an existing resource
type LookupFunc func(ctx context.Context) (*models.Authentication, error)

// Input gathers every source a credential may come from.
// Precedence per field: explicit > raw request > stored record.
type Input struct {
	AuthType string

	ExplicitUser   string
	ExplicitSecret string

	// Raw is the authentications.{AuthType} entry of a request, if any
	Raw *models.AuthenticationParams

	// Stored is the instance's own authentication record, if any
	Stored *models.Authentication

	// Lookup is consulted when Stored is nil and the earlier sources left a gap
	Lookup LookupFunc

	Decrypter secrets.Decrypter
}

// Credentials is a resolved client id and plaintext secret
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Resolve walks the fallback chain. Decryption failures and lookup errors are not
// returned; they fall through to the next source. When either value is still empty
// at the end, a *client.MissingCredentialsError is returned.
func Resolve(ctx context.Context, in Input) (Credentials, error) {
	authType := models.NormalizeRole(in.AuthType)
	decrypter := in.Decrypter
	if decrypter == nil {
		decrypter = secrets.Plaintext{}
	}

	var creds Credentials
	userSource, secretSource := "", ""

	if user := strings.TrimSpace(in.ExplicitUser); user != "" {
		creds.ClientID, userSource = user, sourceExplicit
	}
	if in.ExplicitSecret != "" {
		creds.ClientSecret, secretSource = in.ExplicitSecret, sourceExplicit
	}

	if in.Raw != nil {
		if creds.ClientID == "" && in.Raw.UserID != nil && strings.TrimSpace(*in.Raw.UserID) != "" {
			creds.ClientID, userSource = strings.TrimSpace(*in.Raw.UserID), sourceRequest
		}
		if creds.ClientSecret == "" && in.Raw.Password != nil {
			if secret, ok := decrypter.DecryptIfEncrypted(*in.Raw.Password); ok {
				creds.ClientSecret, secretSource = secret, sourceRequest
			}
		}
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		stored, source := in.Stored, sourceStored
		if stored == nil && in.Lookup != nil {
			found, err := in.Lookup(ctx)
			if err != nil {
				tflog.Debug(ctx, "Stored credential lookup failed, continuing without it", map[string]interface{}{
					"auth_type": authType,
					"error":     err.Error(),
				})
			}
			stored, source = found, sourceLookup
		}

		if stored != nil {
			if creds.ClientID == "" && strings.TrimSpace(stored.UserID) != "" {
				creds.ClientID, userSource = strings.TrimSpace(stored.UserID), source
			}
			if creds.ClientSecret == "" {
				if secret, ok := decrypter.DecryptIfEncrypted(stored.Password); ok {
					creds.ClientSecret, secretSource = secret, source
				}
			}
		}
	}

	switch {
	case creds.ClientID == "" && creds.ClientSecret == "":
		return Credentials{}, &client.MissingCredentialsError{AuthType: authType}
	case creds.ClientID == "":
		return Credentials{}, &client.MissingCredentialsError{AuthType: authType, Detail: "client id"}
	case creds.ClientSecret == "":
		return Credentials{}, &client.MissingCredentialsError{AuthType: authType, Detail: "client secret"}
	}

	tflog.Debug(ctx, "Resolved credentials", map[string]interface{}{
		"auth_type":     authType,
		"client_id":     creds.ClientID,
		"user_source":   userSource,
		"secret_source": secretSource,
	})
	return creds, nil
}
