package server

import (
	"strings"
	"testing"
	"time"
)

const testStateKey = "0123456789abcdef0123456789abcdef"

func TestStateSigner_RoundTrip(t *testing.T) {
	signer, err := newStateSigner(testStateKey, 5*time.Minute)
	if err != nil {
		t.Fatalf("newStateSigner: %v", err)
	}

	state, err := signer.Issue("self")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	accountID, err := signer.Verify(state)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if accountID != "self" {
		t.Errorf("expected account self, got %q", accountID)
	}
}

func TestStateSigner_UniquePerIssue(t *testing.T) {
	signer, _ := newStateSigner(testStateKey, 5*time.Minute)
	a, _ := signer.Issue("self")
	b, _ := signer.Issue("self")
	if a == b {
		t.Error("expected distinct states for repeated logins")
	}
}

func TestStateSigner_Expired(t *testing.T) {
	signer, _ := newStateSigner(testStateKey, 5*time.Minute)
	issued := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }

	state, err := signer.Issue("self")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	signer.now = func() time.Time { return issued.Add(6 * time.Minute) }
	if _, err := signer.Verify(state); err == nil {
		t.Fatal("expected expired state to be rejected")
	}
}

func TestStateSigner_RejectsTampering(t *testing.T) {
	signer, _ := newStateSigner(testStateKey, 5*time.Minute)
	state, _ := signer.Issue("self")

	parts := strings.Split(state, ".")
	if len(parts) != 3 {
		t.Fatalf("expected a three part token, got %d parts", len(parts))
	}
	forged := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := signer.Verify(forged); err == nil {
		t.Error("expected forged signature to be rejected")
	}

	other, _ := newStateSigner(strings.Repeat("z", 32), 5*time.Minute)
	if _, err := other.Verify(state); err == nil {
		t.Error("expected state signed with another key to be rejected")
	}

	if _, err := signer.Verify("not-a-token"); err == nil {
		t.Error("expected garbage to be rejected")
	}
}

func TestNewStateSigner_EmptyKey(t *testing.T) {
	if _, err := newStateSigner("", time.Minute); err == nil {
		t.Fatal("expected error for empty key")
	}
}
