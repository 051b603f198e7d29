// Package notification stores delivered exposure notifications and owns the
// merge rules that keep one entry per (report, recipient) no matter how many
// paths converge on someone.
package notification

import "time"

// TestStatus is the status shown for one node of a chain visualization.
type TestStatus string

const (
	StatusPositive TestStatus = "POSITIVE"
	StatusNegative TestStatus = "NEGATIVE"
	StatusUnknown  TestStatus = "UNKNOWN"
)

// Node is one participant in a rendered chain. The node with
// IsCurrentUser=true represents the notification's recipient and is the only
// node a later self-reported status change may flip.
type Node struct {
	DisplayName   string     `json:"display_name"`
	TestStatus    TestStatus `json:"test_status"`
	IsCurrentUser bool       `json:"is_current_user"`
}

// Path is an ordered walk from reporter to recipient. Members holds the
// chain-domain hashes aligned 1:1 with Nodes, so a status change for a chain
// member can be applied at the right position without knowing who they are.
type Path struct {
	Members []string `json:"members"`
	Nodes   []Node   `json:"nodes"`
}

// EquivalentTo reports whether two paths describe the same exposure event: a
// group interaction discovered in different orders yields paths with the same
// set of intermediate members, and only one of those is worth keeping.
func (p Path) EquivalentTo(other Path) bool {
	if len(p.Members) != len(other.Members) {
		return false
	}
	if len(p.Members) < 2 {
		return sameMemberSet(p.Members, other.Members)
	}
	if p.Members[0] != other.Members[0] ||
		p.Members[len(p.Members)-1] != other.Members[len(other.Members)-1] {
		return false
	}
	return sameMemberSet(p.Members[1:len(p.Members)-1], other.Members[1:len(other.Members)-1])
}

func sameMemberSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, m := range a {
		set[m]++
	}
	for _, m := range b {
		if set[m] == 0 {
			return false
		}
		set[m]--
	}
	return true
}

// ContainsMember reports whether the chain hash appears anywhere in the path.
func (p Path) ContainsMember(chainHash string) bool {
	for _, m := range p.Members {
		if m == chainHash {
			return true
		}
	}
	return false
}

// Entry is one delivered exposure notification. At most one exists per
// (ReportID, RecipientID) pair; converging paths merge into it.
type Entry struct {
	ID          string
	ReportID    string
	RecipientID string

	// HopDepth is the shortest discovered distance from the reporter.
	HopDepth int

	// ConditionLabels and ExposedAt are unset when the report's privacy
	// level withholds them. Once written they are never replaced by a
	// converging path's disclosure outcome.
	ConditionLabels []string
	ExposedAt       *time.Time

	// Chain is the representative (shortest) path visualization; Paths
	// accumulates every distinct contributing path including Chain's.
	Chain Path
	Paths []Path

	IsRead     bool
	ReceivedAt time.Time
	UpdatedAt  time.Time
}

// Merge folds a newly discovered path into an existing entry and reports
// whether anything changed. IsRead and ReceivedAt never regress, and the
// existing privacy outcome wins over the incoming one.
func (e *Entry) Merge(incoming Entry, now time.Time) bool {
	changed := false

	if incoming.HopDepth < e.HopDepth {
		e.HopDepth = incoming.HopDepth
		e.Chain = incoming.Chain
		changed = true
	}

	for _, p := range incoming.Paths {
		if e.hasEquivalentPath(p) {
			continue
		}
		e.Paths = append(e.Paths, p)
		changed = true
	}

	if changed {
		e.UpdatedAt = now
	}
	return changed
}

func (e *Entry) hasEquivalentPath(p Path) bool {
	for _, existing := range e.Paths {
		if existing.EquivalentTo(p) {
			return true
		}
	}
	return false
}

// ChainMembers returns the union of chain hashes across all stored paths,
// the index used to answer "which notifications include this person".
func (e *Entry) ChainMembers() []string {
	seen := make(map[string]bool)
	var members []string
	for _, p := range append([]Path{e.Chain}, e.Paths...) {
		for _, m := range p.Members {
			if !seen[m] {
				seen[m] = true
				members = append(members, m)
			}
		}
	}
	return members
}

// SetMemberStatus flips the test status of the node at chainHash's position
// in the representative chain and in every stored path. Returns whether any
// node changed.
func (e *Entry) SetMemberStatus(chainHash string, status TestStatus) bool {
	changed := setStatusAt(&e.Chain, chainHash, status)
	for i := range e.Paths {
		if setStatusAt(&e.Paths[i], chainHash, status) {
			changed = true
		}
	}
	return changed
}

// SetRecipientStatus flips the IsCurrentUser node in the representative
// chain and every stored path, for recipients reporting their own result.
func (e *Entry) SetRecipientStatus(status TestStatus) bool {
	changed := setCurrentUserStatus(&e.Chain, status)
	for i := range e.Paths {
		if setCurrentUserStatus(&e.Paths[i], status) {
			changed = true
		}
	}
	return changed
}

func setStatusAt(p *Path, chainHash string, status TestStatus) bool {
	changed := false
	for i, m := range p.Members {
		if m == chainHash && i < len(p.Nodes) && p.Nodes[i].TestStatus != status {
			p.Nodes[i].TestStatus = status
			changed = true
		}
	}
	return changed
}

func setCurrentUserStatus(p *Path, status TestStatus) bool {
	changed := false
	for i := range p.Nodes {
		if p.Nodes[i].IsCurrentUser && p.Nodes[i].TestStatus != status {
			p.Nodes[i].TestStatus = status
			changed = true
		}
	}
	return changed
}
