package contact

import "time"

// Edge is one directed "I recorded an interaction with partner P" assertion,
// written by the owning user's device and immutable afterwards.
//
// Direction matters for security: the owner asserted this edge, so traversal
// may only cross it when the owner is the newly discovered party. Looking up
// a user's own assertions to find their partners would let a malicious
// reporter manufacture exposure for anyone they claim to have met.
type Edge struct {
	ID                 string
	OwnerGraphID       string
	PartnerGraphID     string
	PartnerDisplayName string
	RecordedAt         time.Time
}
