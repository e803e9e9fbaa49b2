package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashField is the JSON member carrying the integrity hash. It is always
// excluded from the bytes being hashed, which is what lets a manifest carry
// its own digest without a circular dependency.
const HashField = "manifest_hash"

// Canonical reduces a JSON document to the single canonical form used for
// integrity hashing: UTF-8, compact (no insignificant whitespace), object
// keys sorted lexicographically at every level, numbers kept as their source
// literals, and the top-level manifest_hash member removed.
//
// This is the only serialization convention in the system; Build and Verify
// both go through it, so the two can never drift apart.
func Canonical(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchema, err)
	}
	if obj, ok := doc.(map[string]any); ok {
		delete(obj, HashField)
	}
	return json.Marshal(doc)
}

// HashDocument computes the integrity hash of a serialized JSON document.
func HashDocument(raw []byte) (string, error) {
	canon, err := Canonical(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

func (m *Manifest) computeHash() (string, error) {
	c := *m
	c.ManifestHash = ""
	raw, err := json.Marshal(&c)
	if err != nil {
		return "", err
	}
	return HashDocument(raw)
}

type VerifyStatus string

const (
	// Valid means the stored hash matches the recomputed one.
	Valid VerifyStatus = "valid"
	// Invalid means a hash is stored but recomputation disagrees.
	Invalid VerifyStatus = "invalid"
	// Missing means no hash is stored at all.
	Missing VerifyStatus = "missing"
)

// VerifyResult is a structured outcome rather than an error: a mismatch is a
// warning by default and the caller decides whether to treat it as fatal.
type VerifyResult struct {
	Status   VerifyStatus
	Stored   string
	Computed string
}

func (r VerifyResult) OK() bool {
	return r.Status == Valid
}

func (r VerifyResult) String() string {
	switch r.Status {
	case Valid:
		return fmt.Sprintf("hash valid: %s", r.Stored)
	case Missing:
		return "no " + HashField + " present"
	default:
		return fmt.Sprintf("hash mismatch: stored %s, computed %s", r.Stored, r.Computed)
	}
}

// Verify recomputes the integrity hash with the hash field excluded and
// compares it to the stored value. The manifest is never mutated.
func Verify(m *Manifest) (VerifyResult, error) {
	if m.ManifestHash == "" {
		return VerifyResult{Status: Missing}, nil
	}
	computed, err := m.computeHash()
	if err != nil {
		return VerifyResult{}, err
	}
	if computed == m.ManifestHash {
		return VerifyResult{Status: Valid, Stored: m.ManifestHash, Computed: computed}, nil
	}
	return VerifyResult{Status: Invalid, Stored: m.ManifestHash, Computed: computed}, nil
}

// VerifyDocument checks an arbitrary serialized JSON document that carries a
// manifest_hash member, without binding it to the Manifest schema. Used by
// apply-hash style diagnostics.
func VerifyDocument(raw []byte) (VerifyResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return VerifyResult{}, fmt.Errorf("%w: %s", ErrSchema, err)
	}
	stored, _ := doc[HashField].(string)
	if stored == "" {
		return VerifyResult{Status: Missing}, nil
	}
	computed, err := HashDocument(raw)
	if err != nil {
		return VerifyResult{}, err
	}
	if computed == stored {
		return VerifyResult{Status: Valid, Stored: stored, Computed: computed}, nil
	}
	return VerifyResult{Status: Invalid, Stored: stored, Computed: computed}, nil
}
