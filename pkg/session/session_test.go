package session

import (
	"testing"
	"time"
)

func TestSession_New(t *testing.T) {
	sess := New("user-1", "Alice", RoleCreator, time.Hour)

	if sess.ID == "" {
		t.Error("ID is empty")
	}
	if sess.Token == "" {
		t.Error("Token is empty")
	}
	if sess.ID == sess.Token {
		t.Error("ID and Token must differ")
	}
	if sess.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", sess.UserID, "user-1")
	}
	if sess.Role != RoleCreator {
		t.Errorf("Role = %q, want %q", sess.Role, RoleCreator)
	}
	if sess.IsExpired() {
		t.Error("IsExpired() = true for fresh session, want false")
	}
}

func TestSession_IsExpired(t *testing.T) {
	sess := New("user-1", "Alice", RoleCreator, time.Hour)
	sess.ExpiresAt = time.Now().Add(-time.Minute)

	if !sess.IsExpired() {
		t.Error("IsExpired() = false for past expiry, want true")
	}
}

func TestSession_IsAdmin(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleCreator, false},
		{RoleAdmin, true},
		{RoleSuperadmin, true},
	}

	for _, tt := range tests {
		sess := New("user-1", "Alice", tt.role, time.Hour)
		if got := sess.IsAdmin(); got != tt.want {
			t.Errorf("IsAdmin() with role %q = %v, want %v", tt.role, got, tt.want)
		}
	}
}
