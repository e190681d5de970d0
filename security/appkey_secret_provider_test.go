package security

import (
	"bytes"
	"context"
	"testing"
)

func TestAppKeySecretProvider_RoundTrip(t *testing.T) {
	ctx := context.Background()
	provider, err := NewAppKeySecretProviderFromString("app key material", WithKeyID("k1"))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	sealed, err := provider.Encrypt(ctx, []byte("shpat_secret_token"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatalf("expected sealed prefix")
	}
	if bytes.Contains(sealed, []byte("shpat_secret_token")) {
		t.Fatalf("expected token to be hidden")
	}

	plain, err := provider.Decrypt(ctx, sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(plain) != "shpat_secret_token" {
		t.Fatalf("unexpected plaintext %q", plain)
	}
}

func TestAppKeySecretProvider_RejectsForeignValues(t *testing.T) {
	ctx := context.Background()
	first, err := NewAppKeySecretProviderFromString("first key", WithKeyID("k1"))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	second, err := NewAppKeySecretProviderFromString("second key", WithKeyID("k2"))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	sealed, err := first.Encrypt(ctx, []byte("token"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := second.Decrypt(ctx, sealed); err == nil {
		t.Fatalf("expected key id mismatch")
	}

	sameID, err := NewAppKeySecretProviderFromString("other material", WithKeyID("k1"))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := sameID.Decrypt(ctx, sealed); err == nil {
		t.Fatalf("expected authentication failure with another key")
	}
	if _, err := first.Decrypt(ctx, []byte("plain")); err == nil {
		t.Fatalf("expected unsealed value to be rejected")
	}
	if _, err := NewAppKeySecretProvider(nil); err == nil {
		t.Fatalf("expected empty key error")
	}
}
