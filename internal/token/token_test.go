package token

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	raw, err := Issue(42, "alice", "access-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if raw == "" {
		t.Fatal("Issue() returned empty token")
	}

	claims := Verify(raw, "access-secret")
	if claims == nil {
		t.Fatal("Verify() returned nil for valid token")
	}
	if claims.UserID != 42 {
		t.Errorf("Verify() UserID = %d, want 42", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("Verify() Username = %q, want alice", claims.Username)
	}
}

func TestVerify_Failures(t *testing.T) {
	valid, err := Issue(1, "bob", "access-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	expired, err := Issue(1, "bob", "access-secret", -time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other-secret"},
		{"expired token", expired, "access-secret"},
		{"malformed token", "not.a.jwt", "access-secret"},
		{"empty token", "", "access-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.token, tt.secret); got != nil {
				t.Errorf("Verify() = %+v, want nil", got)
			}
		})
	}
}

// An access token must never be accepted as a refresh token: the two
// kinds are signed with distinct secrets.
func TestVerify_DistinctSecrets(t *testing.T) {
	access, err := Issue(7, "carol", "access-secret", 15*time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	refresh, err := Issue(7, "carol", "refresh-secret", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if Verify(access, "refresh-secret") != nil {
		t.Error("access token verified with refresh secret")
	}
	if Verify(refresh, "access-secret") != nil {
		t.Error("refresh token verified with access secret")
	}
	if Verify(refresh, "refresh-secret") == nil {
		t.Error("refresh token rejected by its own secret")
	}
}

func TestVerify_ClaimTimes(t *testing.T) {
	before := time.Now().Unix()
	raw, err := Issue(5, "dave", "s", 10*time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	after := time.Now().Unix()

	claims := Verify(raw, "s")
	if claims == nil {
		t.Fatal("Verify() returned nil")
	}
	iat := claims.IssuedAt.Unix()
	exp := claims.ExpiresAt.Unix()
	if iat < before || iat > after {
		t.Errorf("iat = %d, want within [%d, %d]", iat, before, after)
	}
	if want := iat + 600; exp != want {
		t.Errorf("exp = %d, want %d", exp, want)
	}
}
