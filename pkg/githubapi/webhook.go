package githubapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrSignatureMismatch reports that a webhook payload failed HMAC
// verification.
var ErrSignatureMismatch = errors.New("githubapi: webhook signature mismatch")

// VerifyWebhookSignature checks a webhook payload against the
// X-Hub-Signature-256 header GitHub sends with it. secret is the value
// configured on the webhook. The comparison runs in constant time so
// verification leaks nothing about the expected digest.
func VerifyWebhookSignature(rawBody []byte, signatureHeader, secret string) error {
	if signatureHeader == "" {
		return fmt.Errorf("githubapi: missing signature header")
	}

	// The header arrives as "sha256=<hex digest>".
	scheme, digest, ok := strings.Cut(signatureHeader, "=")
	if !ok || scheme != "sha256" {
		return fmt.Errorf("githubapi: malformed signature header")
	}
	provided, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("githubapi: signature digest is not valid hex")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, provided) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}
