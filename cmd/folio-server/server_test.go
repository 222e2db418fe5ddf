package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/server"
)

// testServer creates an httptest.Server with the full folio-server handler for testing.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	configPath := writeTestConfig(t)
	a, err := app.NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	srv, err := server.NewServer(a)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// TestHealthEndpoint verifies GET /api/health returns 200 with {"status":"ok"}.
func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("Expected status=ok, got %q", body["status"])
	}
}

// TestVersionEndpoint verifies GET /api/version returns version info.
func TestVersionEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatalf("GET /api/version failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body["version"] == "" {
		t.Error("Expected non-empty version field")
	}
}

// TestPortfolioEndpoint_NoSnapshots verifies a fresh install reports every
// configured account as needing a sync.
func TestPortfolioEndpoint_NoSnapshots(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/portfolio")
	if err != nil {
		t.Fatalf("GET /api/portfolio failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var view models.PortfolioView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(view.Accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(view.Accounts))
	}
	for _, acct := range view.Accounts {
		if !acct.NeedsSync {
			t.Errorf("Expected %s to need a sync", acct.AccountID)
		}
	}
	if len(view.Combined.Holdings) != 0 {
		t.Errorf("Expected no combined holdings, got %d", len(view.Combined.Holdings))
	}
}

// TestKiteSync_NoToken verifies a manual sync without a stored token asks for re-auth.
func TestKiteSync_NoToken(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/kite/sync?account=self", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/kite/sync failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["reauthRequired"] != true {
		t.Errorf("Expected reauthRequired=true, got %v", body["reauthRequired"])
	}
}

// TestSyncStatusEndpoint verifies the failed sync above is recorded per account.
func TestSyncStatusEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/kite/sync?account=mom", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/kite/sync failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/sync/status")
	if err != nil {
		t.Fatalf("GET /api/sync/status failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Accounts []models.SyncStatus `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Accounts) != 2 {
		t.Fatalf("Expected 2 statuses, got %d", len(body.Accounts))
	}
	if body.Accounts[0].LastError != nil {
		t.Errorf("Expected no error for self, got %q", *body.Accounts[0].LastError)
	}
	if body.Accounts[1].LastError == nil {
		t.Error("Expected an error recorded for mom")
	}
}

// TestHealthEndpoint_MethodNotAllowed verifies POST to health returns 405.
func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/health", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST /api/health, got %d", resp.StatusCode)
	}
}

// --- test helpers ---

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	os.MkdirAll(filepath.Join(dir, "data"), 0755)

	config := `
app_url = "http://localhost:8080"

[storage]
backend = "sqlite"

[storage.sqlite]
path = "` + filepath.Join(dir, "data", "folio.db") + `"

[auth]
token_encryption_key = "0123456789abcdef0123456789abcdef"

[[kite.accounts]]
id = "self"
label = "Self"
api_key = "key-self"
api_secret = "secret-self"

[[kite.accounts]]
id = "mom"
label = "Mom"
api_key = "key-mom"
api_secret = "secret-mom"

[logging]
level = "error"
outputs = ["console"]
`
	configPath := filepath.Join(dir, "folio.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
