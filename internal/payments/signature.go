package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// SignatureMaxAge bounds how far the signed timestamp may drift from now.
const SignatureMaxAge = 300 * time.Second

var (
	ErrSignatureMissing  = errors.New("signature: missing or malformed")
	ErrSignatureExpired  = errors.New("signature: timestamp outside window")
	ErrSignatureMismatch = errors.New("signature: digest mismatch")
)

// Manifest is the string the processor signs for a notification.
func Manifest(dataID, requestID, ts string) string {
	return "id:" + dataID + ";request-id:" + requestID + ";ts:" + ts + ";"
}

// SignManifest returns the hex HMAC-SHA256 of the manifest under secret.
func SignManifest(dataID, requestID, ts, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(dataID, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks an x-signature header of the form "ts=...,v1=...".
// ts is unix seconds; values above 1e12 are taken as milliseconds.
func ValidateSignature(xSignature, xRequestID, dataID, secret string, now time.Time) error {
	if xSignature == "" || xRequestID == "" || dataID == "" || secret == "" {
		return ErrSignatureMissing
	}
	var ts, v1 string
	for _, part := range strings.Split(xSignature, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	if ts == "" || v1 == "" {
		return ErrSignatureMissing
	}

	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrSignatureMissing
	}
	signedAt := time.Unix(n, 0)
	if n > 1e12 {
		signedAt = time.UnixMilli(n)
	}
	age := now.Sub(signedAt)
	if age > SignatureMaxAge || age < -SignatureMaxAge {
		return ErrSignatureExpired
	}

	got, err := hex.DecodeString(v1)
	if err != nil {
		return ErrSignatureMismatch
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(dataID, xRequestID, ts)))
	if !hmac.Equal(mac.Sum(nil), got) {
		return ErrSignatureMismatch
	}
	return nil
}
