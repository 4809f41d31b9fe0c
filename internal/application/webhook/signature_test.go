package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/storeops/backend/internal/domain/audit"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "shpss_test_secret"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSignatureVerifier_Verify_ValidSignature(t *testing.T) {
	auditor := &recordingAuditor{}
	v := NewSignatureVerifier(testSecret, auditor, zap.NewNop())
	body := []byte(`{"id":123,"name":"#1001"}`)

	ok := v.Verify(context.Background(), "orders/create", body, sign(testSecret, body))

	assert.True(t, ok)
	entries := auditor.byCategory(audit.CategoryVerification)
	assert.Len(t, entries, 1)
	assert.Equal(t, audit.SeverityInfo, entries[0].Severity)
	assert.Equal(t, true, entries[0].Payload["verified"])
}

func TestSignatureVerifier_Verify_TamperedBody(t *testing.T) {
	auditor := &recordingAuditor{}
	v := NewSignatureVerifier(testSecret, auditor, zap.NewNop())
	body := []byte(`{"id":123}`)
	header := sign(testSecret, body)

	ok := v.Verify(context.Background(), "orders/create", []byte(`{"id":124}`), header)

	assert.False(t, ok)
	entries := auditor.byCategory(audit.CategoryVerification)
	assert.Len(t, entries, 1)
	assert.Equal(t, audit.SeverityError, entries[0].Severity)
}

func TestSignatureVerifier_Verify_MissingHeader(t *testing.T) {
	v := NewSignatureVerifier(testSecret, nil, zap.NewNop())

	ok := v.Verify(context.Background(), "orders/create", []byte(`{}`), "")

	assert.False(t, ok)
}

func TestSignatureVerifier_Verify_FailsClosedWithoutSecret(t *testing.T) {
	v := NewSignatureVerifier("", nil, zap.NewNop())
	body := []byte(`{}`)

	// Even a signature computed with an empty key must be rejected.
	ok := v.Verify(context.Background(), "orders/create", body, sign("", body))

	assert.False(t, ok)
}

func TestSignatureVerifier_Verify_WrongSecret(t *testing.T) {
	v := NewSignatureVerifier(testSecret, nil, zap.NewNop())
	body := []byte(`{"id":1}`)

	ok := v.Verify(context.Background(), "orders/create", body, sign("other_secret", body))

	assert.False(t, ok)
}

func TestSignatureVerifier_VerifyReserialized(t *testing.T) {
	auditor := &recordingAuditor{}
	v := NewSignatureVerifier(testSecret, auditor, zap.NewNop())

	payload := map[string]any{"id": "123"}
	// The signer saw the exact bytes json.Marshal produces for this payload.
	header := sign(testSecret, []byte(`{"id":"123"}`))

	ok := v.VerifyReserialized(context.Background(), "orders/create", payload, header)

	assert.True(t, ok)
	entries := auditor.byCategory(audit.CategoryVerification)
	assert.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].Payload["reserialized"])
}

func TestSignatureVerifier_Verify_AuditBodyPreviewIsBounded(t *testing.T) {
	auditor := &recordingAuditor{}
	v := NewSignatureVerifier(testSecret, auditor, zap.NewNop())

	body := make([]byte, 4096)
	for i := range body {
		body[i] = 'x'
	}
	v.Verify(context.Background(), "orders/create", body, sign(testSecret, body))

	entries := auditor.byCategory(audit.CategoryVerification)
	assert.Len(t, entries, 1)
	preview := entries[0].Payload["body_preview"].(string)
	assert.Len(t, preview, bodyPreviewLen)
}
