package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v := NewWebhookVerifier("secret")
	payload := []byte(`{"id": 101}`)

	if err := v.Verify(payload, sign("secret", payload)); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	v := NewWebhookVerifier("secret")
	header := sign("secret", []byte(`{"id": 101}`))

	if err := v.Verify([]byte(`{"id": 999}`), header); err == nil {
		t.Fatal("tampered payload accepted")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewWebhookVerifier("secret")
	payload := []byte(`{"id": 101}`)

	if err := v.Verify(payload, sign("other", payload)); err == nil {
		t.Fatal("signature under a different secret accepted")
	}
}

func TestVerifyRejectsMissingOrMalformedHeader(t *testing.T) {
	v := NewWebhookVerifier("secret")

	if err := v.Verify([]byte(`{}`), ""); err == nil {
		t.Fatal("missing header accepted")
	}
	if err := v.Verify([]byte(`{}`), "%%% not base64 %%%"); err == nil {
		t.Fatal("malformed header accepted")
	}
}
