// Package identity derives the domain-separated one-way identifiers used as
// join keys across collections.
//
// The same underlying person hashes to four different, uncorrelatable values
// depending on which collection is consulted. A reader holding the interaction
// graph cannot join it against the notification table, and a stolen hash from
// one domain is useless in another.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain salts. The graph salt is empty because the discovery protocol on the
// device computes the same hash independently; changing it would orphan every
// recorded edge.
const (
	saltGraph        = ""
	saltNotification = "notification:"
	saltChain        = "chain:"
	saltReport       = "report:"
)

func hash(salt, rawID string) string {
	sum := sha256.Sum256([]byte(salt + rawID))
	return hex.EncodeToString(sum[:])
}

// HashGraph derives the interaction-graph identifier. Must stay in lockstep
// with the device-side discovery protocol.
func HashGraph(rawID string) string { return hash(saltGraph, rawID) }

// HashNotification derives the notification-recipient identifier.
func HashNotification(rawID string) string { return hash(saltNotification, rawID) }

// HashChain derives the chain-membership identifier stored inside
// notification chain paths.
func HashChain(rawID string) string { return hash(saltChain, rawID) }

// HashReport derives the report-ownership identifier.
func HashReport(rawID string) string { return hash(saltReport, rawID) }

// Short returns a log-safe 8 character prefix of a hash. Full hashes never
// appear in log output.
func Short(h string) string {
	if len(h) <= 8 {
		return h
	}
	return h[:8]
}

// IsValid reports whether h is shaped like a hash from any domain: exactly 64
// lowercase hex characters. The domain itself is not recoverable from the
// value.
func IsValid(h string) bool {
	if len(h) != 64 {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
