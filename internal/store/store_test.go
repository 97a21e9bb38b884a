package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaearon/terraform-provider-azure-ems/internal/client"
	"github.com/aaearon/terraform-provider-azure-ems/internal/models"
)

func sampleResource(name string) *models.ManagedResource {
	return &models.ManagedResource{
		Name:           name,
		UID:            "11111111-2222-3333-4444-555555555555",
		SubscriptionID: "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
		Region:         "eastus",
		Endpoints: []models.Endpoint{
			{Role: "default", URL: "https://management.azure.com"},
			{Role: "east", URL: "https://east.example.test"},
		},
		Authentications: []models.Authentication{
			{Role: "default", AuthType: "default", UserID: "client-id", Password: "secret"},
		},
	}
}

func assertSameAggregate(t *testing.T, want, got *models.ManagedResource) {
	t.Helper()
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.UID, got.UID)
	assert.Equal(t, want.SubscriptionID, got.SubscriptionID)
	assert.Equal(t, want.Region, got.Region)
	assert.ElementsMatch(t, want.Endpoints, got.Endpoints)
	assert.ElementsMatch(t, want.Authentications, got.Authentications)
}

// runStoreContract exercises the behaviour every Store must share
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		s := newStore(t)
		in := sampleResource("alpha")

		created, err := s.Create(ctx, in)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assertSameAggregate(t, in, created)
		assert.Empty(t, in.ID, "input must not be mutated")

		found, err := s.Find(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assertSameAggregate(t, in, found)
	})

	t.Run("invalid create persists nothing", func(t *testing.T) {
		s := newStore(t)
		in := sampleResource("broken")
		in.Authentications = nil

		_, err := s.Create(ctx, in)
		var persistErr *client.PersistenceError
		require.ErrorAs(t, err, &persistErr)
		assert.Equal(t, "create", persistErr.Operation)

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("update replaces aggregate", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, sampleResource("alpha"))
		require.NoError(t, err)

		edit := created.Clone()
		edit.Name = "renamed"
		edit.DefaultEndpoint().URL = "https://x.example.test"

		updated, err := s.Update(ctx, edit)
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Name)

		found, err := s.Find(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", found.Name)
		assert.Equal(t, "https://x.example.test", found.DefaultEndpointURL())
		assert.Equal(t, "https://east.example.test", found.Endpoint("east").URL)
	})

	t.Run("invalid update leaves previous aggregate", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, sampleResource("alpha"))
		require.NoError(t, err)

		edit := created.Clone()
		edit.SubscriptionID = ""
		edit.Name = "should-not-stick"

		_, err = s.Update(ctx, edit)
		var persistErr *client.PersistenceError
		require.ErrorAs(t, err, &persistErr)

		found, err := s.Find(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "alpha", found.Name)
		assert.Equal(t, created.SubscriptionID, found.SubscriptionID)
	})

	t.Run("missing resources", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Find(ctx, "does-not-exist")
		assert.True(t, errors.Is(err, client.ErrResourceNotFound), "find: %v", err)

		missing := sampleResource("ghost")
		missing.ID = "does-not-exist"
		_, err = s.Update(ctx, missing)
		assert.True(t, errors.Is(err, client.ErrResourceNotFound), "update: %v", err)

		err = s.Delete(ctx, "does-not-exist")
		assert.True(t, errors.Is(err, client.ErrResourceNotFound), "delete: %v", err)
	})

	t.Run("delete and list", func(t *testing.T) {
		s := newStore(t)
		b, err := s.Create(ctx, sampleResource("bravo"))
		require.NoError(t, err)
		_, err = s.Create(ctx, sampleResource("alpha"))
		require.NoError(t, err)

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "alpha", all[0].Name)
		assert.Equal(t, "bravo", all[1].Name)

		require.NoError(t, s.Delete(ctx, b.ID))
		_, err = s.Find(ctx, b.ID)
		assert.True(t, errors.Is(err, client.ErrResourceNotFound))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	created, err := s.Create(context.Background(), sampleResource("alpha"))
	require.NoError(t, err)

	created.Endpoints[0].URL = "https://mutated.example.test"

	found, err := s.Find(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://management.azure.com", found.DefaultEndpointURL())
}

func TestFileStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "state", "providers.yaml"))
		require.NoError(t, err)
		return s
	})
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	first, err := NewFileStore(path)
	require.NoError(t, err)

	created, err := first.Create(context.Background(), sampleResource("alpha"))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := NewFileStore(path)
	require.NoError(t, err)
	found, err := second.Find(context.Background(), created.ID)
	require.NoError(t, err)
	assertSameAggregate(t, sampleResource("alpha"), found)
	assert.Equal(t, created.CreatedAt.Unix(), found.CreatedAt.Unix())
}

func TestFileStore_FailedUpdateLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	created, err := s.Create(context.Background(), sampleResource("alpha"))
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	edit := created.Clone()
	edit.Authentications[0].UserID = ""
	_, err = s.Update(context.Background(), edit)
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	matches, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files must not be left behind")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers: [this is: not: valid"), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = s.List(context.Background())
	assert.ErrorContains(t, err, "failed to parse state file")

	_, err = NewFileStore("")
	assert.Error(t, err)
}

// newManagementAPI serves /api/providers from a MemoryStore
func newManagementAPI(t *testing.T, token string) *httptest.Server {
	return serveManagementAPI(t, token, false)
}

// serveManagementAPI optionally leaves passwords out of every response, as the real API does
func serveManagementAPI(t *testing.T, token string, writeOnlyPasswords bool) *httptest.Server {
	backing := NewMemoryStore()
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	toAPI := func(r *models.ManagedResource) *models.ManagedResourceAPI {
		api := r.ToAPI()
		created, modified := r.CreatedAt.Format(time.RFC3339), r.UpdatedAt.Format(time.RFC3339)
		api.CreatedTime, api.ModifiedTime = &created, &modified
		if writeOnlyPasswords {
			for i := range api.Authentications {
				api.Authentications[i].Password = nil
			}
		}
		return api
	}
	writeErr := func(w http.ResponseWriter, err error) {
		switch {
		case errors.Is(err, client.ErrResourceNotFound):
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
		_, _ = w.Write([]byte(err.Error()))
	}

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("POST /api/providers", auth(func(w http.ResponseWriter, r *http.Request) {
		var api models.ManagedResourceAPI
		if err := json.NewDecoder(r.Body).Decode(&api); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		created, err := backing.Create(r.Context(), models.FromAPI(&api))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAPI(created))
	}))
	mux.HandleFunc("GET /api/providers", auth(func(w http.ResponseWriter, r *http.Request) {
		all, _ := backing.List(r.Context())
		out := make([]*models.ManagedResourceAPI, 0, len(all))
		for _, res := range all {
			out = append(out, toAPI(res))
		}
		writeJSON(w, http.StatusOK, out)
	}))
	mux.HandleFunc("GET /api/providers/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		found, err := backing.Find(r.Context(), r.PathValue("id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAPI(found))
	}))
	mux.HandleFunc("PUT /api/providers/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		var api models.ManagedResourceAPI
		if err := json.NewDecoder(r.Body).Decode(&api); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		res := models.FromAPI(&api)
		res.ID = r.PathValue("id")
		updated, err := backing.Update(r.Context(), res)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAPI(updated))
	}))
	mux.HandleFunc("DELETE /api/providers/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		if err := backing.Delete(r.Context(), r.PathValue("id")); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRESTStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		server := newManagementAPI(t, "token")
		s, err := NewRESTStore(server.URL, "token", &client.RetryConfig{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
		require.NoError(t, err)
		return s
	})
}

func TestRESTStore_Unauthorized(t *testing.T) {
	server := newManagementAPI(t, "token")
	s, err := NewRESTStore(server.URL, "wrong", nil)
	require.NoError(t, err)

	_, err = s.Create(context.Background(), sampleResource("alpha"))
	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, "Authentication Failed - create", client.MapError(err, "create").Summary())
}

func TestRESTStore_WriteOnlyPasswords(t *testing.T) {
	ctx := context.Background()
	server := serveManagementAPI(t, "token", true)
	newStore := func() *RESTStore {
		s, err := NewRESTStore(server.URL, "token", nil)
		require.NoError(t, err)
		return s
	}

	s := newStore()
	created, err := s.Create(ctx, sampleResource("alpha"))
	require.NoError(t, err)
	assert.Equal(t, "secret", created.AuthenticationPassword("default"))

	found, err := s.Find(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", found.AuthenticationPassword("default"), "password written by this store is filled back in")

	edit := found.Clone()
	edit.Authentications[0].Password = "rotated"
	_, err = s.Update(ctx, edit)
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "rotated", all[0].AuthenticationPassword("default"))

	// Another process never saw the password
	fresh, err := newStore().Find(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.AuthenticationPassword("default"))

	require.NoError(t, s.Delete(ctx, created.ID))
	assert.Empty(t, s.passwords)
}
