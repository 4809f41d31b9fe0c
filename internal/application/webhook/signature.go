package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/storeops/backend/internal/domain/audit"
	"go.uber.org/zap"
)

// bodyPreviewLen bounds how much of the request body lands in the audit log
const bodyPreviewLen = 200

// SignatureVerifier validates that an inbound event genuinely originated
// from the upstream platform by checking the HMAC-SHA256 digest it
// declares against one computed over the exact raw request bytes.
type SignatureVerifier struct {
	secret  string
	auditor audit.Recorder
	logger  *zap.Logger
}

// NewSignatureVerifier creates a verifier for the given shared secret.
// An empty secret makes the verifier fail closed: every event is
// rejected until a secret is configured.
func NewSignatureVerifier(secret string, auditor audit.Recorder, logger *zap.Logger) *SignatureVerifier {
	return &SignatureVerifier{
		secret:  secret,
		auditor: auditor,
		logger:  logger.Named("signature"),
	}
}

// Verify checks the declared signature against the raw request body.
// Every attempt, pass or fail, is recorded to the audit log; audit
// failures never abort verification.
func (v *SignatureVerifier) Verify(ctx context.Context, topic string, rawBody []byte, header string) bool {
	if v.secret == "" {
		v.logger.Error("webhook secret not configured, rejecting event", zap.String("topic", topic))
		v.record(ctx, topic, false, rawBody, header, false)
		return false
	}
	if header == "" {
		v.logger.Warn("missing signature header", zap.String("topic", topic))
		v.record(ctx, topic, false, rawBody, header, false)
		return false
	}

	verified := v.matches(rawBody, header)
	v.record(ctx, topic, verified, rawBody, header, false)
	if !verified {
		v.logger.Warn("signature verification failed", zap.String("topic", topic))
	}
	return verified
}

// VerifyReserialized is the lower-confidence fallback used when the raw
// body is no longer available and only the decoded payload remains.
// Re-serialization can change whitespace and key order, so a mismatch
// here does not prove tampering; the attempt is audited separately.
func (v *SignatureVerifier) VerifyReserialized(ctx context.Context, topic string, payload any, header string) bool {
	if v.secret == "" || header == "" {
		v.record(ctx, topic, false, nil, header, true)
		return false
	}

	body, err := json.Marshal(payload)
	if err != nil {
		v.logger.Error("failed to re-serialize payload for verification",
			zap.String("topic", topic), zap.Error(err))
		v.record(ctx, topic, false, nil, header, true)
		return false
	}

	v.logger.Warn("raw body unavailable, verifying re-serialized payload",
		zap.String("topic", topic))
	verified := v.matches(body, header)
	v.record(ctx, topic, verified, body, header, true)
	return verified
}

// matches compares in constant time via hmac.Equal
func (v *SignatureVerifier) matches(body []byte, header string) bool {
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)
	computed := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(header))
}

func (v *SignatureVerifier) record(ctx context.Context, topic string, verified bool, body []byte, header string, reserialized bool) {
	if v.auditor == nil {
		return
	}
	severity := audit.SeverityInfo
	if !verified {
		severity = audit.SeverityError
	}
	preview := string(body)
	if len(preview) > bodyPreviewLen {
		preview = preview[:bodyPreviewLen]
	}
	v.auditor.Record(ctx, audit.Entry{
		Category:  audit.CategoryVerification,
		EventType: topic,
		Severity:  severity,
		Payload: map[string]any{
			"verified":     verified,
			"topic":        topic,
			"hmac_header":  header,
			"reserialized": reserialized,
			"body_preview": preview,
		},
	})
}
