package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/perchlabs/perch/internal/store"
	"github.com/perchlabs/perch/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

type mockKeyStore struct {
	keys map[uuid.UUID]*models.APIKey
}

func newMockKeyStore() *mockKeyStore {
	return &mockKeyStore{keys: make(map[uuid.UUID]*models.APIKey)}
}

func (m *mockKeyStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	m.keys[key.ID] = key
	return nil
}

func (m *mockKeyStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) {
	out := make([]*models.APIKey, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, k)
	}
	return out, nil
}

func (m *mockKeyStore) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	if _, ok := m.keys[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.keys, id)
	return nil
}

func TestCreateKey_RawKeyShownOnce(t *testing.T) {
	ms := newMockKeyStore()
	h := NewCreateKeyHandler(ms)

	rec := httptest.NewRecorder()
	h(rec, jsonReq(t, http.MethodPost, "/x", map[string]any{
		"name":   "extension",
		"scopes": []string{"read", "write"},
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)

	rawKey, _ := data["key"].(string)
	if !strings.HasPrefix(rawKey, "pk_") {
		t.Fatalf("raw key = %q", rawKey)
	}
	if data["key_prefix"] != rawKey[:8] {
		t.Errorf("key_prefix = %v, want %s", data["key_prefix"], rawKey[:8])
	}

	// Stored hash must verify against the raw key but never equal it.
	if len(ms.keys) != 1 {
		t.Fatalf("expected 1 stored key")
	}
	for _, k := range ms.keys {
		if k.KeyHash == rawKey {
			t.Error("raw key stored verbatim")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(rawKey)); err != nil {
			t.Errorf("stored hash does not match raw key: %v", err)
		}
	}
}

func TestCreateKey_DefaultScopes(t *testing.T) {
	ms := newMockKeyStore()
	h := NewCreateKeyHandler(ms)

	rec := httptest.NewRecorder()
	h(rec, jsonReq(t, http.MethodPost, "/x", map[string]any{"name": "web"}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	for _, k := range ms.keys {
		if len(k.Scopes) != 2 || k.Scopes[0] != "read" || k.Scopes[1] != "write" {
			t.Errorf("scopes = %v", k.Scopes)
		}
	}
}

func TestCreateKey_MissingName(t *testing.T) {
	h := NewCreateKeyHandler(newMockKeyStore())

	rec := httptest.NewRecorder()
	h(rec, jsonReq(t, http.MethodPost, "/x", map[string]any{"scopes": []string{"read"}}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateKey_UnknownScope(t *testing.T) {
	h := NewCreateKeyHandler(newMockKeyStore())

	rec := httptest.NewRecorder()
	h(rec, jsonReq(t, http.MethodPost, "/x", map[string]any{
		"name":   "bad",
		"scopes": []string{"superuser"},
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListKeys(t *testing.T) {
	ms := newMockKeyStore()
	id := uuid.New()
	ms.keys[id] = &models.APIKey{ID: id, Name: "extension", KeyPrefix: "pk_abc12"}
	h := NewListKeysHandler(ms)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "key_hash") {
		t.Error("response leaks key_hash")
	}
}

func TestRevokeKey(t *testing.T) {
	ms := newMockKeyStore()
	id := uuid.New()
	ms.keys[id] = &models.APIKey{ID: id}
	h := NewRevokeKeyHandler(ms)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/x", nil), "keyID", id.String())
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRevokeKey_NotFound(t *testing.T) {
	h := NewRevokeKeyHandler(newMockKeyStore())

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/x", nil), "keyID", uuid.NewString())
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
