package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPlan      = "loadplan/plan/v1"
	DomainMetamodel = "loadplan/metamodel/v1"
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

// Signature computes the content-addressed signature of a canonical document
// under the given domain. The document must satisfy MarshalCanonical.
func Signature(domain string, doc map[string]any) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("signature: failed to marshal: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MetamodelSignature hashes the full descriptor arena. Two metamodels with
// the same descriptors in the same order share a signature.
func MetamodelSignature(m *Metamodel) (string, error) {
	descs := make([]any, 0, m.Len())
	for _, d := range m.Descriptors() {
		attrs := make([]any, 0, len(d.Attributes))
		for _, a := range d.Attributes {
			attrs = append(attrs, map[string]any{
				"name":       a.Name,
				"kind":       string(a.Kind),
				"target":     a.Target,
				"fetch":      a.Fetch.String(),
				"batch_size": a.BatchSize,
			})
		}
		descs = append(descs, map[string]any{
			"key":        d.Key,
			"kind":       string(d.Kind),
			"table":      d.Table,
			"id":         d.ID,
			"supertype":  d.Supertype,
			"nature":     string(d.Nature),
			"owner":      d.Owner,
			"attributes": attrs,
		})
	}
	return Signature(DomainMetamodel, map[string]any{"descriptors": descs})
}
