package manager

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/environment"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
	"github.com/aaearon/terraform-provider-azure-ems/internal/secrets"
	"github.com/aaearon/terraform-provider-azure-ems/internal/store"
)

type fakeTransport struct {
	err      error
	requests []models.ConnectionRequest
	envs     []environment.Environment
}

func (f *fakeTransport) Connect(_ context.Context, req models.ConnectionRequest, env environment.Environment) error {
	f.requests = append(f.requests, req)
	f.envs = append(f.envs, env)
	return f.err
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeTransport, *store.MemoryStore) {
	t.Helper()
	transport := &fakeTransport{}
	st := store.NewMemoryStore()
	m := New(st, append([]Option{WithTransport(transport)}, opts...)...)
	return m, transport, st
}

func decode(t *testing.T, raw map[string]any) models.ResourceParams {
	t.Helper()
	params, err := models.DecodeResourceParams(raw)
	require.NoError(t, err)
	return params
}

func baseParams() map[string]any {
	return map[string]any{
		"name":           "azure-prod",
		"uid_ems":        "tenant-1",
		"subscriptionId": "sub-1",
		"region":         "eastus",
		"authentications": map[string]any{
			"default": map[string]any{"userid": "client-1", "password": "secret-1"},
		},
	}
}

func TestCreateFromParams_DefaultEndpoint(t *testing.T) {
	m, _, _ := newTestManager(t)

	r, err := m.CreateFromParams(context.Background(), decode(t, baseParams()))
	require.NoError(t, err)

	require.Len(t, r.Endpoints, 1)
	assert.Equal(t, models.Endpoint{Role: "default"}, r.Endpoints[0])
	assert.Equal(t, "sub-1", r.SubscriptionID)
	assert.Equal(t, "eastus", r.Region)
	assert.NotEmpty(t, r.ID)
}

func TestCreateFromParams_MultipleEndpointsRoundTrip(t *testing.T) {
	m, _, _ := newTestManager(t)
	raw := baseParams()
	raw["endpoints"] = map[string]any{
		"default": map[string]any{"url": "https://management.azure.com"},
		"east":    map[string]any{"url": "https://east.example.test"},
	}
	raw["authentications"] = map[string]any{
		"default": map[string]any{"userid": "client-1", "password": "secret-1"},
		"metrics": map[string]any{"userid": "client-2", "password": "secret-2"},
	}

	created, err := m.CreateFromParams(context.Background(), decode(t, raw))
	require.NoError(t, err)

	r, err := m.Find(context.Background(), created.ID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []models.Endpoint{
		{Role: "default", URL: "https://management.azure.com"},
		{Role: "east", URL: "https://east.example.test"},
	}, r.Endpoints)
	assert.ElementsMatch(t, []models.Authentication{
		{Role: "default", AuthType: "default", UserID: "client-1", Password: "secret-1"},
		{Role: "metrics", AuthType: "metrics", UserID: "client-2", Password: "secret-2"},
	}, r.Authentications)
}

func TestCreateFromParams_MissingAuthentications(t *testing.T) {
	m, _, st := newTestManager(t)
	raw := baseParams()
	delete(raw, "authentications")

	_, err := m.CreateFromParams(context.Background(), decode(t, raw))

	var persistErr *client.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "create", persistErr.Operation)

	all, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateFromParams_EncryptsPasswords(t *testing.T) {
	cipher, err := secrets.NewCipher(bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)
	m, transport, _ := newTestManager(t, WithDecrypter(cipher))

	r, err := m.CreateFromParams(context.Background(), decode(t, baseParams()))
	require.NoError(t, err)

	stored := r.AuthenticationPassword("default")
	assert.True(t, secrets.IsEncrypted(stored))

	_, err = r.Connect(context.Background(), ConnectOptions{})
	require.NoError(t, err)
	require.Len(t, transport.requests, 1)
	assert.Equal(t, "secret-1", transport.requests[0].ClientSecret)
}

func TestEditWithParams_DefaultOnly(t *testing.T) {
	m, _, _ := newTestManager(t)
	raw := baseParams()
	raw["endpoints"] = map[string]any{
		"default": map[string]any{"url": "https://old.example.test"},
		"east":    map[string]any{"url": "https://east.example.test"},
	}
	r, err := m.CreateFromParams(context.Background(), decode(t, raw))
	require.NoError(t, err)

	err = r.EditWithParams(context.Background(), decode(t, map[string]any{
		"name": "azure-renamed",
		"endpoints": map[string]any{
			"default": map[string]any{"url": "https://x"},
			"east":    map[string]any{"url": "https://ignored.example.test"},
		},
	}))
	require.NoError(t, err)

	assert.Equal(t, "azure-renamed", r.Name)
	assert.Equal(t, "https://x", r.DefaultEndpointURL())
	assert.Equal(t, "https://east.example.test", r.Endpoint("east").URL)
	assert.Equal(t, "client-1", r.AuthenticationUserID("default"), "absent authentications leave the record alone")

	reloaded, err := m.Find(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://x", reloaded.DefaultEndpointURL())
	assert.Equal(t, "https://east.example.test", reloaded.Endpoint("east").URL)
}

func TestEditWithParams_MergesAuthentication(t *testing.T) {
	m, _, _ := newTestManager(t)
	r, err := m.CreateFromParams(context.Background(), decode(t, baseParams()))
	require.NoError(t, err)

	err = r.EditWithParams(context.Background(), decode(t, map[string]any{
		"authentications": map[string]any{"default": map[string]any{"password": "rotated"}},
	}))
	require.NoError(t, err)

	assert.Equal(t, "client-1", r.AuthenticationUserID("default"))
	assert.Equal(t, "rotated", r.AuthenticationPassword("default"))
}

func TestEditWithParams_FailedSaveLeavesResource(t *testing.T) {
	m, _, _ := newTestManager(t)
	r, err := m.CreateFromParams(context.Background(), decode(t, baseParams()))
	require.NoError(t, err)

	err = r.EditWithParams(context.Background(), decode(t, map[string]any{
		"name":            "renamed",
		"authentications": map[string]any{"default": map[string]any{"userid": ""}},
	}))
	var persistErr *client.PersistenceError
	require.ErrorAs(t, err, &persistErr)

	assert.Equal(t, "azure-prod", r.Name)
	assert.Equal(t, "client-1", r.AuthenticationUserID("default"))

	reloaded, err := m.Find(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "azure-prod", reloaded.Name)
}

func TestResourceConnect(t *testing.T) {
	m, transport, _ := newTestManager(t, WithProxyURI("http://default-proxy:3128"))
	raw := baseParams()
	raw["region"] = "usgovvirginia"
	raw["endpoints"] = map[string]any{"default": map[string]any{"url": "https://arm.example.test"}}
	r, err := m.CreateFromParams(context.Background(), decode(t, raw))
	require.NoError(t, err)

	result, err := r.Connect(context.Background(), ConnectOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "AzureUSGovernmentCloud", result.Environment)

	require.Len(t, transport.requests, 1)
	assert.Equal(t, models.ConnectionRequest{
		ClientID:       "client-1",
		ClientSecret:   "secret-1",
		TenantID:       "tenant-1",
		SubscriptionID: "sub-1",
		Region:         "usgovvirginia",
		EndpointURL:    "https://arm.example.test",
		ProxyURI:       "http://default-proxy:3128",
	}, transport.requests[0])
	assert.Equal(t, "https://arm.example.test", transport.envs[0].ResourceManagerEndpoint())

	_, err = r.Connect(context.Background(), ConnectOptions{User: "override", Password: "override-secret", ProxyURI: "http://other:8080"})
	require.NoError(t, err)
	assert.Equal(t, "override", transport.requests[1].ClientID)
	assert.Equal(t, "override-secret", transport.requests[1].ClientSecret)
	assert.Equal(t, "http://other:8080", transport.requests[1].ProxyURI)
}

func TestResourceConnect_HostCredentials(t *testing.T) {
	m, transport, _ := newTestManager(t)
	r, err := m.CreateFromParams(context.Background(), decode(t, baseParams()))
	require.NoError(t, err)

	ok, err := r.VerifyCredentials(context.Background(), ConnectOptions{AuthType: "metrics", User: "x", Password: "y"})
	assert.False(t, ok)
	var hostErr *client.HostCredentialsError
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, "metrics", hostErr.AuthType)
	assert.Empty(t, transport.requests)
}

func TestResourceConnect_BlankSubscriptionMakesNoCall(t *testing.T) {
	m, transport, _ := newTestManager(t)
	r := m.bind(&models.ManagedResource{
		Name: "unsaved",
		UID:  "tenant-1",
		Authentications: []models.Authentication{
			{Role: "default", AuthType: "default", UserID: "client-1", Password: "secret-1"},
		},
	})

	_, err := r.Connect(context.Background(), ConnectOptions{})
	var invalid *client.InvalidCredentialsError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, transport.requests)
}

func TestResourceVerifyCredentials_PropagatesErrors(t *testing.T) {
	m, transport, _ := newTestManager(t)
	r, err := m.CreateFromParams(context.Background(), decode(t, baseParams()))
	require.NoError(t, err)

	transport.err = errors.New("AADSTS7000215: Invalid client secret provided")
	ok, err := r.VerifyCredentials(context.Background(), ConnectOptions{})
	assert.False(t, ok)
	var connErr *client.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "Authentication Failed - verify", client.MapError(err, "verify").Summary())
}

func TestManagerVerifyCredentials_FromRequest(t *testing.T) {
	m, transport, _ := newTestManager(t)

	req, err := models.DecodeVerifyRequest(map[string]any{
		"region":       "germanycentral",
		"subscription": "sub-9",
		"uid_ems":      "tenant-9",
		"proxy_uri":    "http://proxy:3128",
		"endpoints":    map[string]any{"default": map[string]any{"url": "https://de.example.test"}},
		"authentications": map[string]any{
			"default": map[string]any{"userid": "client-9", "password": "secret-9"},
		},
	})
	require.NoError(t, err)

	ok, err := m.VerifyCredentials(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, transport.requests, 1)
	got := transport.requests[0]
	assert.Equal(t, "client-9", got.ClientID)
	assert.Equal(t, "secret-9", got.ClientSecret)
	assert.Equal(t, "tenant-9", got.TenantID)
	assert.Equal(t, "sub-9", got.SubscriptionID)
	assert.Equal(t, "http://proxy:3128", got.ProxyURI)
	assert.Equal(t, "AzureGermanCloud", transport.envs[0].Name)
}

func TestManagerVerifyCredentials_StoredSecretFallback(t *testing.T) {
	m, transport, _ := newTestManager(t)
	r, err := m.CreateFromParams(context.Background(), decode(t, baseParams()))
	require.NoError(t, err)

	req, err := models.DecodeVerifyRequest(map[string]any{
		"id":              r.ID,
		"subscriptionId":  "sub-1",
		"uid_ems":         "tenant-1",
		"authentications": map[string]any{"default": map[string]any{"userid": "client-1"}},
	})
	require.NoError(t, err)

	ok, err := m.VerifyCredentials(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret-1", transport.requests[0].ClientSecret)
}

func TestManagerVerifyCredentials_Errors(t *testing.T) {
	m, transport, _ := newTestManager(t)

	req, err := models.DecodeVerifyRequest(map[string]any{
		"subscription": "sub-1",
		"uid_ems":      "tenant-1",
	})
	require.NoError(t, err)

	ok, err := m.VerifyCredentials(context.Background(), req)
	assert.False(t, ok)
	var missing *client.MissingCredentialsError
	require.ErrorAs(t, err, &missing)
	assert.Empty(t, transport.requests)

	req, err = models.DecodeVerifyRequest(map[string]any{
		"uid_ems":         "tenant-1",
		"authentications": map[string]any{"default": map[string]any{"userid": "c", "password": "s"}},
	})
	require.NoError(t, err)

	ok, err = m.VerifyCredentials(context.Background(), req)
	assert.False(t, ok)
	var invalid *client.InvalidCredentialsError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, transport.requests)

	transport.err = errors.New("dial tcp: connection refused")
	req.SubscriptionID = models.StringPtr("sub-1")
	ok, err = m.VerifyCredentials(context.Background(), req)
	assert.False(t, ok)
	var connErr *client.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestDelete(t *testing.T) {
	m, _, _ := newTestManager(t)
	r, err := m.CreateFromParams(context.Background(), decode(t, baseParams()))
	require.NoError(t, err)

	require.NoError(t, m.Delete(context.Background(), r.ID))
	_, err = m.Find(context.Background(), r.ID)
	assert.True(t, client.IsNotFoundError(err))
	assert.True(t, errors.Is(m.Delete(context.Background(), r.ID), client.ErrResourceNotFound))
}

func TestList(t *testing.T) {
	m, transport, _ := newTestManager(t)
	ctx := context.Background()

	for _, name := range []string{"zulu", "alpha"} {
		raw := baseParams()
		raw["name"] = name
		_, err := m.CreateFromParams(ctx, decode(t, raw))
		require.NoError(t, err)
	}

	listed, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "alpha", listed[0].Name)
	assert.Equal(t, "zulu", listed[1].Name)

	// Listed resources are bound and can connect
	ok, err := listed[0].VerifyCredentials(ctx, ConnectOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, transport.requests, 1)
}
