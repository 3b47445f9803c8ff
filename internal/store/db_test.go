package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), true)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPromptTemplateVersions(t *testing.T) {
	db := openTestDB(t)

	first, err := db.SavePromptTemplate("gs_likelihood", "v2 body", "ops")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected first stored version 2, got %d", first.Version)
	}
	second, err := db.SavePromptTemplate("gs_likelihood", "v3 body", "ops")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if second.Version != 3 {
		t.Fatalf("expected version 3, got %d", second.Version)
	}
	if _, err := db.SavePromptTemplate("case_prediction", "case body", ""); err != nil {
		t.Fatalf("save: %v", err)
	}

	latest, err := db.LatestPromptTemplates()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 latest templates, got %d", len(latest))
	}
	if latest[0].Name != "case_prediction" || latest[1].Name != "gs_likelihood" {
		t.Fatalf("unexpected order: %s, %s", latest[0].Name, latest[1].Name)
	}
	if latest[1].Body != "v3 body" {
		t.Fatalf("expected newest body, got %q", latest[1].Body)
	}

	history, err := db.PromptHistory("gs_likelihood")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Version != 3 {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestSavePromptTemplateValidation(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.SavePromptTemplate(" ", "body", ""); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := db.SavePromptTemplate("gs_likelihood", "  ", ""); err == nil {
		t.Fatalf("expected error for empty body")
	}
}

func TestAPIClientLifecycle(t *testing.T) {
	db := openTestDB(t)

	key, client, err := db.CreateAPIClient("acme-legal")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(key, keyPrefix) {
		t.Fatalf("expected key prefix, got %q", key)
	}
	if client.KeyHash == key || client.KeyHash != HashKey(key) {
		t.Fatalf("expected only the hash to be stored")
	}

	authed, err := db.Authenticate(key)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.Name != "acme-legal" || authed.LastUsedAt == nil {
		t.Fatalf("unexpected client: %+v", authed)
	}

	if _, err := db.Authenticate("tmk_wrong"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}

	count, err := db.CountActiveClients()
	if err != nil || count != 1 {
		t.Fatalf("expected 1 active client, got %d (%v)", count, err)
	}

	if err := db.RevokeAPIClient("acme-legal"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := db.Authenticate(key); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected revoked key to fail, got %v", err)
	}
	if err := db.RevokeAPIClient("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	clients, err := db.ListAPIClients()
	if err != nil || len(clients) != 1 || !clients[0].Revoked {
		t.Fatalf("unexpected clients: %+v (%v)", clients, err)
	}
}

func TestCreateAPIClientDuplicateName(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.CreateAPIClient("dup"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := db.CreateAPIClient("dup"); err == nil {
		t.Fatalf("expected unique constraint error")
	}
}
