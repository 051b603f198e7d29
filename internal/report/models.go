// Package report handles positive and negative test report intake: the
// external entry point that turns a verified device identity into the hashed
// inputs the propagation engine consumes.
package report

import "time"

// Status of a submitted report.
type Status string

const (
	StatusPositive Status = "POSITIVE"
	StatusNegative Status = "NEGATIVE"
)

// Report is one submitted test report. OwnerReportID is the report-domain
// hash of the submitter's device ID and is the only value access checks
// compare against; a caller proves ownership by having the hash recomputed
// from their verified identity, never by presenting one.
type Report struct {
	ID                  string
	OwnerReportID       string
	ReporterGraphID     string
	ReporterDisplayName string
	ConditionLabelsJSON string
	TestDate            time.Time
	Status              Status
	PrivacyLevel        string
	LinkedReportID      string
	NotifiedCount       int
	CreatedAt           time.Time
}
