package edgeconfig

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListItems_BareArray(t *testing.T) {
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		io.WriteString(w, `[{"key":"kite_tokens","value":{"self":{"token":"x","updatedAt":"2025-01-01T00:00:00Z"}}},{"key":"flag","value":true}]`)
	}))
	defer srv.Close()

	client := NewClient("ecfg_1", "tok", WithBaseURL(srv.URL))
	items, err := client.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}

	if auth != "Bearer tok" {
		t.Errorf("Authorization = %q", auth)
	}
	if path != "/ecfg_1/items" {
		t.Errorf("path = %q", path)
	}
	if len(items) != 2 || items[0].Key != "kite_tokens" || string(items[1].Value) != "true" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestListItems_WrappedObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items":[{"key":"a","value":"1"}]}`)
	}))
	defer srv.Close()

	items, err := NewClient("id", "tok", WithBaseURL(srv.URL)).ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].Key != "a" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestListItems_NoItemsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	items, err := NewClient("id", "tok", WithBaseURL(srv.URL)).ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %+v", items)
	}
}

func TestUpsert_SendsPatch(t *testing.T) {
	var method, contentType string
	var body struct {
		Items []struct {
			Operation string          `json:"operation"`
			Key       string          `json:"key"`
			Value     json.RawMessage `json:"value"`
		} `json:"items"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&body)
		io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	client := NewClient("id", "tok", WithBaseURL(srv.URL))
	if err := client.Upsert(context.Background(), "kite_tokens", json.RawMessage(`{"self":{"token":"abc"}}`)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if method != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", method)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %q", contentType)
	}
	if len(body.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(body.Items))
	}
	item := body.Items[0]
	if item.Operation != "upsert" || item.Key != "kite_tokens" || string(item.Value) != `{"self":{"token":"abc"}}` {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestUpsert_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"message":"forbidden"}}`)
	}))
	defer srv.Close()

	err := NewClient("id", "tok", WithBaseURL(srv.URL)).Upsert(context.Background(), "k", json.RawMessage(`1`))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}
