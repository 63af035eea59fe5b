// Package ulid provides prefixed ULID generation for Revline identifiers,
// built on github.com/oklog/ulid/v2. ULIDs sort lexicographically by time,
// which keeps job and review listings in creation order without extra columns.
package ulid

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Common prefixes for different parts of the application
const (
	// Prefix for review job ULIDs
	PrefixJob = "job"

	// Prefix for review ULIDs
	PrefixReview = "rev"

	// Prefix for finding ULIDs
	PrefixFinding = "find"

	// PrefixSeparator is used to separate the prefix from the ULID
	PrefixSeparator = "-"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// Generate creates a new ULID string with the current timestamp.
func Generate() string {
	entropyLock.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyLock.Unlock()
	return id.String()
}

// GenerateWithPrefix creates a new ULID string with the given prefix,
// in the format "prefix-ulid".
func GenerateWithPrefix(prefix string) string {
	return prefix + PrefixSeparator + Generate()
}

// Validate checks if a string is a valid ULID, with or without a prefix.
func Validate(id string) bool {
	raw := id
	if idx := strings.Index(id, PrefixSeparator); idx >= 0 {
		raw = id[idx+1:]
	}
	_, err := ulid.Parse(raw)
	return err == nil
}

// JobID generates a new ULID with the job prefix
func JobID() string {
	return GenerateWithPrefix(PrefixJob)
}

// ReviewID generates a new ULID with the review prefix
func ReviewID() string {
	return GenerateWithPrefix(PrefixReview)
}

// FindingID generates a new ULID with the finding prefix
func FindingID() string {
	return GenerateWithPrefix(PrefixFinding)
}
