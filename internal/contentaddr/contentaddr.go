// Package contentaddr produces the stable identifiers and content hashes that
// the rest of Veritas keys on: section ids, section and version hashes,
// evidence ids, query hashes and policy fingerprints.
//
// Every function is pure. Identical inputs always produce identical outputs,
// and all digests come from SHA-256 (SHA-1 only for the legacy positional id).
package contentaddr

import (
	"crypto/sha1" //nolint:gosec // positional ids are identifiers, not signatures
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Truncation lengths for the derived identifiers.
const (
	SectionIDLen       = 24
	PositionalIDLen    = 16
	VersionHashLen     = 12
	PolicyVersionLen   = 12
	CorpusVersionLen   = 12
	QueryHashLen       = 16
	EvidenceIDLen      = 32
	positionalIDPrefix = "sec_"
)

var horizontalSpace = regexp.MustCompile(`[ \t]+`)

// NormalizeForHashing canonicalises whitespace so that whitespace-only edits
// never change a hash. Line endings become \n, runs of spaces and tabs
// collapse to one space and every line is trimmed.
func NormalizeForHashing(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// SHA256Hex returns the lowercase hex SHA-256 digest of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// SectionHash is the content hash of a section's normalised text.
func SectionHash(text string) string {
	return SHA256Hex(NormalizeForHashing(text))
}

// SectionID derives the id of a heading-based section. normalizedText must
// already be the output of NormalizeForHashing.
func SectionID(canonicalURL, headingPath, normalizedText string) string {
	return SHA256Hex(canonicalURL + "|" + headingPath + "|" + normalizedText)[:SectionIDLen]
}

// PositionalSectionID derives the id of a fallback chunk from its position
// alone, so a chunk keeps its identity across small text edits.
func PositionalSectionID(canonicalURL string, chunkIndex int) string {
	return positionalIDPrefix + sha1Hex(canonicalURL+":"+strconv.Itoa(chunkIndex))[:PositionalIDLen]
}

// VersionHash changes whenever the section text or the owning page's
// version changes.
func VersionHash(sectionID, sectionHash string, ownerVersion int) string {
	return SHA256Hex(sectionID + "|" + sectionHash + "|" + strconv.Itoa(ownerVersion))[:VersionHashLen]
}

// CanonicalJSON marshals v with sorted object keys and no insignificant
// whitespace.
func CanonicalJSON(v any) (string, error) {
	// encoding/json sorts map keys, and Marshal emits compact output.
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PolicyVersion fingerprints a crawl policy document.
func PolicyVersion(policy map[string]any) (string, error) {
	if policy == nil {
		policy = map[string]any{}
	}
	payload, err := CanonicalJSON(policy)
	if err != nil {
		return "", err
	}
	return SHA256Hex(payload)[:PolicyVersionLen], nil
}

// NormalizeQuery lowercases q, trims it and collapses internal whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(q))), " ")
}

// QueryHash is the cache fingerprint of a query. It is invariant to
// surrounding whitespace, internal whitespace runs and casing.
func QueryHash(q string) string {
	return SHA256Hex(NormalizeQuery(q))[:QueryHashLen]
}

// EvidenceID derives the id of an evidence record. Identical inputs collapse
// to the same id, which makes re-insertion idempotent.
func EvidenceID(tenantID, sectionID, url, quoteSpan string) string {
	return SHA256Hex(tenantID + ":" + sectionID + ":" + url + ":" + quoteSpan)[:EvidenceIDLen]
}

// SectionVersion pairs a section id with its version hash.
type SectionVersion struct {
	SectionID   string
	VersionHash string
}

// CorpusVersion fingerprints a tenant's indexed sections. The result is
// independent of input order.
func CorpusVersion(sections []SectionVersion) string {
	lines := make([]string, len(sections))
	for i, s := range sections {
		lines[i] = s.SectionID + ":" + s.VersionHash
	}
	sort.Strings(lines)
	return SHA256Hex(strings.Join(lines, "\n"))[:CorpusVersionLen]
}
