package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainPatch    = "rendersync/patch/v1"
	DomainSnapshot = "rendersync/snapshot/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PatchHash computes a content hash for a delivered patch.
// Two patches with the same paths and structurally equal values hash equally
// regardless of map iteration order.
func PatchHash(patch IRObject) (string, error) {
	canonical, err := MarshalCanonical(patch)
	if err != nil {
		return "", fmt.Errorf("PatchHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPatch, canonical), nil
}

// SnapshotHash computes a content hash for a full data snapshot.
func SnapshotHash(data IRObject) (string, error) {
	canonical, err := MarshalCanonical(data)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}
