package utils

import (
	"strings"
	"testing"
)

func TestNewPublicID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := NewPublicID()
		if err != nil {
			t.Fatalf("NewPublicID: %v", err)
		}
		if !IsPublicID(id) {
			t.Fatalf("malformed id %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 199 {
		t.Fatalf("too many collisions: %d unique of 200", len(seen))
	}
}

func TestIsPublicID(t *testing.T) {
	for _, s := range []string{"abc12345", "ABC1234", "ABC123456", "ABC-1234"} {
		if IsPublicID(s) {
			t.Fatalf("%q should be rejected", s)
		}
	}
	if !IsPublicID("ABC12345") {
		t.Fatalf("ABC12345 should be accepted")
	}
}

func TestAvatarKey(t *testing.T) {
	key := AvatarKey("José María", "me.JPG")
	if !strings.HasPrefix(key, "avatars/jose-maria-") || !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("unexpected key %q", key)
	}
	if k := AvatarKey("", "x.exe"); !strings.HasPrefix(k, "avatars/user-") || !strings.HasSuffix(k, ".png") {
		t.Fatalf("unexpected fallback key %q", k)
	}
}

func TestIsImageType(t *testing.T) {
	if !IsImageType("image/png") || IsImageType("application/zip") {
		t.Fatalf("content type check is wrong")
	}
}
