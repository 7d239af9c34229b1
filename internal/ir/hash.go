package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
)

// Domain prefixes for digests. The version suffix leaves room for an
// algorithm change without ambiguity.
const (
	DomainPayload = "flux/payload/v1"
	DomainAction  = "flux/action/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadDigest returns the canonical payload encoding and its digest.
// A nil payload, including a typed nil slice, map or pointer, digests as
// the empty object.
func PayloadDigest(payload any) (canonical []byte, digest string, err error) {
	if isNil(payload) {
		canonical = []byte("{}")
	} else {
		canonical, err = Canonicalize(payload)
		if err != nil {
			return nil, "", fmt.Errorf("PayloadDigest: %w", err)
		}
	}
	return canonical, hashWithDomain(DomainPayload, canonical), nil
}

// ActionDigest identifies an action by content: kind, shape, payload and seq.
// Two replays of the same sends with the same clock produce equal digests.
func ActionDigest(a Action) (string, error) {
	payload, _, err := PayloadDigest(a.Payload)
	if err != nil {
		return "", fmt.Errorf("ActionDigest: %w", err)
	}
	obj := map[string]any{
		"kind":    string(a.Kind),
		"shape":   string(a.Shape),
		"payload": string(payload),
		"seq":     a.Seq,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ActionDigest: %w", err)
	}
	return hashWithDomain(DomainAction, canonical), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
