package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainModule = "tinypy/module/v1"
	DomainSource = "tinypy/source/v1"
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

// ModuleHash computes the content hash of a node tree. Trees that print
// identically hash identically.
func ModuleHash(n *Node) (string, error) {
	canonical, err := MarshalCanonical(n)
	if err != nil {
		return "", fmt.Errorf("ModuleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModule, canonical), nil
}

// SourceHash computes the content hash of raw program text.
func SourceHash(src []byte) string {
	return hashWithDomain(DomainSource, src)
}

// MustModuleHash is like ModuleHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustModuleHash(n *Node) string {
	h, err := ModuleHash(n)
	if err != nil {
		panic(err)
	}
	return h
}
