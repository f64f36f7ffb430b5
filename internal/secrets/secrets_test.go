package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// ==================== EnvProvider Tests ====================

func TestEnvProvider_Name(t *testing.T) {
	p := NewEnvProvider("")
	if p.Name() != "env" {
		t.Fatalf("expected 'env', got %s", p.Name())
	}
}

func TestEnvProvider_Get_WithPrefix(t *testing.T) {
	os.Setenv("MIXDOWN_TEST_SECRET", "secret_value")
	defer os.Unsetenv("MIXDOWN_TEST_SECRET")

	p := NewEnvProvider("MIXDOWN_")
	val, err := p.Get(context.Background(), "test_secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "secret_value" {
		t.Fatalf("expected 'secret_value', got %s", val)
	}
}

func TestEnvProvider_Get_WithoutPrefix(t *testing.T) {
	os.Setenv("TEST_SECRET_NO_PREFIX", "direct_value")
	defer os.Unsetenv("TEST_SECRET_NO_PREFIX")

	p := NewEnvProvider("MIXDOWN_")
	val, err := p.Get(context.Background(), "test_secret_no_prefix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "direct_value" {
		t.Fatalf("expected 'direct_value', got %s", val)
	}
}

func TestEnvProvider_Get_NotFound(t *testing.T) {
	p := NewEnvProvider("MIXDOWN_")
	_, err := p.Get(context.Background(), "nonexistent_secret_xyz")
	if err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestEnvProvider_Set(t *testing.T) {
	p := NewEnvProvider("MIXDOWN_")
	err := p.Set(context.Background(), "set_test", "new_value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Unsetenv("MIXDOWN_SET_TEST")

	if os.Getenv("MIXDOWN_SET_TEST") != "new_value" {
		t.Fatal("expected env var to be set")
	}
}

func TestEnvProvider_Delete(t *testing.T) {
	os.Setenv("MIXDOWN_DELETE_TEST", "to_delete")

	p := NewEnvProvider("MIXDOWN_")
	err := p.Delete(context.Background(), "delete_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if os.Getenv("MIXDOWN_DELETE_TEST") != "" {
		t.Fatal("expected env var to be deleted")
	}
}

func TestEnvProvider_DefaultPrefix(t *testing.T) {
	p := NewEnvProvider("")
	if p.prefix != "MIXDOWN_" {
		t.Fatalf("expected default prefix 'MIXDOWN_', got %s", p.prefix)
	}
}

// ==================== FileProvider Tests ====================

func TestFileProvider_Name(t *testing.T) {
	tmpDir := t.TempDir()
	p, err := NewFileProvider(&FileConfig{
		Path:            filepath.Join(tmpDir, "secrets.json"),
		CreateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "file" {
		t.Fatalf("expected 'file', got %s", p.Name())
	}
}

func TestFileProvider_CreateIfMissing(t *testing.T) {
	tmpDir := t.TempDir()
	secretsPath := filepath.Join(tmpDir, "secrets.json")

	_, err := NewFileProvider(&FileConfig{
		Path:            secretsPath,
		CreateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(secretsPath); os.IsNotExist(err) {
		t.Fatal("expected file to be created")
	}
}

func TestFileProvider_GetSet(t *testing.T) {
	tmpDir := t.TempDir()
	p, err := NewFileProvider(&FileConfig{
		Path:            filepath.Join(tmpDir, "secrets.json"),
		CreateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()

	// Set a secret
	err = p.Set(ctx, "graph_password", "neo4j_pass")
	if err != nil {
		t.Fatalf("unexpected error setting secret: %v", err)
	}

	// Get the secret
	val, err := p.Get(ctx, "graph_password")
	if err != nil {
		t.Fatalf("unexpected error getting secret: %v", err)
	}
	if val != "neo4j_pass" {
		t.Fatalf("expected 'neo4j_pass', got %s", val)
	}
}

func TestFileProvider_Get_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	p, err := NewFileProvider(&FileConfig{
		Path:            filepath.Join(tmpDir, "secrets.json"),
		CreateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = p.Get(context.Background(), "nonexistent")
	if err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestFileProvider_Delete(t *testing.T) {
	tmpDir := t.TempDir()
	p, err := NewFileProvider(&FileConfig{
		Path:            filepath.Join(tmpDir, "secrets.json"),
		CreateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()

	// Set then delete
	p.Set(ctx, "to_delete", "value")
	err = p.Delete(ctx, "to_delete")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify deleted
	_, err = p.Get(ctx, "to_delete")
	if err == nil {
		t.Fatal("expected error for deleted secret")
	}
}

func TestFileProvider_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	secretsPath := filepath.Join(tmpDir, "secrets.json")

	p, err := NewFileProvider(&FileConfig{
		Path:            secretsPath,
		CreateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	p.Set(ctx, "key1", "value1")

	// Manually modify file
	os.WriteFile(secretsPath, []byte(`{"key1":"modified","key2":"new"}`), 0o600)

	// Reload
	err = p.Reload()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Check values
	val, _ := p.Get(ctx, "key1")
	if val != "modified" {
		t.Fatalf("expected 'modified', got %s", val)
	}

	val, _ = p.Get(ctx, "key2")
	if val != "new" {
		t.Fatalf("expected 'new', got %s", val)
	}
}

func TestFileProvider_MissingPath(t *testing.T) {
	_, err := NewFileProvider(&FileConfig{Path: ""})
	if err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestFileProvider_NilConfig(t *testing.T) {
	_, err := NewFileProvider(nil)
	if err == nil {
		t.Fatal("expected error for nil config")
	}
}

// ==================== VaultProvider Tests ====================

// fakeVault mimics the KV v2 data endpoint: 404 before the first write,
// read-modify-write via POST afterwards.
type fakeVault struct {
	mu      sync.Mutex
	data    map[string]interface{}
	written bool
}

func newFakeVaultServer(t *testing.T) (*httptest.Server, *fakeVault) {
	t.Helper()
	fv := &fakeVault{data: map[string]interface{}{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/secret/data/mixdown", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		fv.mu.Lock()
		defer fv.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			if !fv.written {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{"data": fv.data},
			})
		case http.MethodPost:
			var payload struct {
				Data map[string]interface{} `json:"data"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fv.data = payload.Data
			fv.written = true
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, fv
}

func TestVaultProvider_RequiresAddressAndToken(t *testing.T) {
	if _, err := NewVaultProvider(&VaultConfig{Token: "t"}); err == nil {
		t.Fatal("expected error for missing address")
	}
	if _, err := NewVaultProvider(&VaultConfig{Address: "http://localhost:8200"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestVaultProvider_Defaults(t *testing.T) {
	p, err := NewVaultProvider(&VaultConfig{
		Address: "http://localhost:8200",
		Token:   "t",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.config.MountPath != "secret" {
		t.Fatalf("expected mount path 'secret', got %s", p.config.MountPath)
	}
	if p.config.SecretPath != "mixdown" {
		t.Fatalf("expected secret path 'mixdown', got %s", p.config.SecretPath)
	}
}

func TestVaultProvider_GetSetDelete(t *testing.T) {
	srv, _ := newFakeVaultServer(t)

	p, err := NewVaultProvider(&VaultConfig{
		Address: srv.URL,
		Token:   "test-token",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()

	// Path does not exist yet
	if _, err := p.Get(ctx, "cache_password"); err == nil {
		t.Fatal("expected error before first write")
	}

	// Set creates the path
	if err := p.Set(ctx, "cache_password", "hunter2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err := p.Get(ctx, "cache_password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "hunter2" {
		t.Fatalf("expected 'hunter2', got %s", val)
	}

	// A second key must not clobber the first (read-modify-write)
	if err := p.Set(ctx, "graph_password", "n4j"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, err = p.Get(ctx, "cache_password")
	if err != nil || val != "hunter2" {
		t.Fatalf("expected 'hunter2' to survive second write, got %q (%v)", val, err)
	}

	// Delete removes only the named key
	if err := p.Delete(ctx, "cache_password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Get(ctx, "cache_password"); err == nil {
		t.Fatal("expected error for deleted key")
	}
	if _, err := p.Get(ctx, "graph_password"); err != nil {
		t.Fatalf("expected graph_password to survive delete: %v", err)
	}
}

// ==================== Manager Tests ====================

func TestManager_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "env" {
		t.Fatalf("expected 'env' provider, got %s", cfg.Provider)
	}
	if cfg.EnvPrefix != "MIXDOWN_" {
		t.Fatalf("expected 'MIXDOWN_' prefix, got %s", cfg.EnvPrefix)
	}
}

func TestManager_EnvProvider(t *testing.T) {
	os.Setenv("MIXDOWN_MANAGER_TEST", "manager_value")
	defer os.Unsetenv("MIXDOWN_MANAGER_TEST")

	m, err := NewManager(&Config{Provider: "env", EnvPrefix: "MIXDOWN_"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err := m.Get(context.Background(), "manager_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "manager_value" {
		t.Fatalf("expected 'manager_value', got %s", val)
	}
}

func TestManager_FileProvider(t *testing.T) {
	tmpDir := t.TempDir()
	secretsPath := filepath.Join(tmpDir, "secrets.json")

	m, err := NewManager(&Config{
		Provider: "file",
		FileConfig: &FileConfig{
			Path:            secretsPath,
			CreateIfMissing: true,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	m.Set(ctx, "file_key", "file_value")

	val, err := m.Get(ctx, "file_key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "file_value" {
		t.Fatalf("expected 'file_value', got %s", val)
	}
}

func TestManager_VaultProvider(t *testing.T) {
	srv, _ := newFakeVaultServer(t)

	m, err := NewManager(&Config{
		Provider: "vault",
		VaultConfig: &VaultConfig{
			Address: srv.URL,
			Token:   "test-token",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := m.Set(ctx, "temporal_token", "tok123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err := m.Get(ctx, "temporal_token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "tok123" {
		t.Fatalf("expected 'tok123', got %s", val)
	}
}

func TestManager_Fallback(t *testing.T) {
	// Set up env var as fallback
	os.Setenv("MIXDOWN_FALLBACK_TEST", "fallback_value")
	defer os.Unsetenv("MIXDOWN_FALLBACK_TEST")

	tmpDir := t.TempDir()
	m, err := NewManager(&Config{
		Provider: "file",
		FileConfig: &FileConfig{
			Path:            filepath.Join(tmpDir, "secrets.json"),
			CreateIfMissing: true,
		},
		EnvPrefix: "MIXDOWN_",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Key not in file, should fall back to env
	val, err := m.Get(context.Background(), "fallback_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "fallback_value" {
		t.Fatalf("expected 'fallback_value', got %s", val)
	}
}

func TestManager_EnvPrimaryHasNoFallback(t *testing.T) {
	m, err := NewManager(&Config{Provider: "env", EnvPrefix: "MIXDOWN_"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.fallback != nil {
		t.Fatal("expected no fallback when primary is env")
	}
}

func TestManager_GetOrDefault(t *testing.T) {
	m, _ := NewManager(&Config{Provider: "env", EnvPrefix: "MIXDOWN_"})

	val := m.GetOrDefault(context.Background(), "nonexistent_key_xyz", "default_val")
	if val != "default_val" {
		t.Fatalf("expected 'default_val', got %s", val)
	}
}

func TestManager_MustGet_Panic(t *testing.T) {
	m, _ := NewManager(&Config{Provider: "env", EnvPrefix: "MIXDOWN_"})

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for missing required secret")
		}
	}()

	m.MustGet(context.Background(), "definitely_missing_secret_xyz")
}

func TestManager_Cache(t *testing.T) {
	os.Setenv("MIXDOWN_CACHE_TEST", "cached_value")
	defer os.Unsetenv("MIXDOWN_CACHE_TEST")

	m, _ := NewManager(&Config{Provider: "env", EnvPrefix: "MIXDOWN_"})
	ctx := context.Background()

	// First get populates cache
	m.Get(ctx, "cache_test")

	// Change env var
	os.Setenv("MIXDOWN_CACHE_TEST", "new_value")

	// Should still get cached value
	val, _ := m.Get(ctx, "cache_test")
	if val != "cached_value" {
		t.Fatalf("expected cached 'cached_value', got %s", val)
	}

	// Clear cache
	m.ClearCache()

	// Now should get new value
	val, _ = m.Get(ctx, "cache_test")
	if val != "new_value" {
		t.Fatalf("expected 'new_value' after cache clear, got %s", val)
	}
}

func TestManager_DisableCache(t *testing.T) {
	os.Setenv("MIXDOWN_NOCACHE_TEST", "initial")
	defer os.Unsetenv("MIXDOWN_NOCACHE_TEST")

	m, _ := NewManager(&Config{Provider: "env", EnvPrefix: "MIXDOWN_"})
	m.DisableCache()

	ctx := context.Background()
	m.Get(ctx, "nocache_test")

	os.Setenv("MIXDOWN_NOCACHE_TEST", "changed")

	val, _ := m.Get(ctx, "nocache_test")
	if val != "changed" {
		t.Fatalf("expected 'changed' with cache disabled, got %s", val)
	}
}

func TestManager_Delete(t *testing.T) {
	tmpDir := t.TempDir()
	m, _ := NewManager(&Config{
		Provider: "file",
		FileConfig: &FileConfig{
			Path:            filepath.Join(tmpDir, "secrets.json"),
			CreateIfMissing: true,
		},
	})

	ctx := context.Background()
	m.Set(ctx, "delete_me", "value")

	err := m.Delete(ctx, "delete_me")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = m.Get(ctx, "delete_me")
	if err == nil {
		t.Fatal("expected error for deleted secret")
	}
}

func TestManager_UnknownProvider(t *testing.T) {
	_, err := NewManager(&Config{Provider: "unknown_provider"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestManager_VaultWithoutConfig(t *testing.T) {
	_, err := NewManager(&Config{Provider: "vault"})
	if err == nil {
		t.Fatal("expected error for vault without config")
	}
}

func TestManager_FileWithoutConfig(t *testing.T) {
	_, err := NewManager(&Config{Provider: "file"})
	if err == nil {
		t.Fatal("expected error for file without config")
	}
}

// ==================== SecretKey Constants Tests ====================

func TestSecretKeyConstants(t *testing.T) {
	keys := []SecretKey{
		SecretCachePassword,
		SecretGraphPassword,
		SecretTemporalToken,
		SecretOTLPToken,
	}

	for _, k := range keys {
		if k == "" {
			t.Fatal("secret key constant should not be empty")
		}
	}
}
