package auth

import (
	"strings"
	"testing"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(1000)
	digest, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(digest, "pbkdf2$sha256$") {
		t.Fatalf("unexpected digest format %q", digest)
	}
	if !hasher.Verify("correct horse battery staple", digest) {
		t.Fatal("expected digest to verify against original password")
	}
	if hasher.Verify("wrong password", digest) {
		t.Fatal("expected verification to fail for wrong password")
	}
}

func TestPasswordHasherDistinctSalts(t *testing.T) {
	hasher := NewPasswordHasher(1000)
	first, err := hasher.Hash("hunter2hunter2")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("hunter2hunter2")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected two hashes of the same password to differ")
	}
	if !hasher.Verify("hunter2hunter2", first) || !hasher.Verify("hunter2hunter2", second) {
		t.Fatal("expected both digests to verify")
	}
}

func TestPasswordHasherRejectsMalformedDigests(t *testing.T) {
	hasher := NewPasswordHasher(1000)
	cases := []struct {
		name   string
		digest string
	}{
		{name: "empty", digest: ""},
		{name: "plaintext", digest: "not-a-digest"},
		{name: "wrong scheme", digest: "bcrypt$sha256$1000$aaaa$bbbb"},
		{name: "missing fields", digest: "pbkdf2$sha256$1000"},
		{name: "bad iteration count", digest: "pbkdf2$sha256$zero$aaaa$bbbb"},
		{name: "bad salt encoding", digest: "pbkdf2$sha256$1000$!!!!$bbbb"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if hasher.Verify("whatever", tc.digest) {
				t.Fatalf("expected malformed digest %q to fail verification", tc.digest)
			}
		})
	}
}
