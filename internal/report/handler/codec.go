package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"chainalert/internal/incubation"
	"chainalert/internal/report"
)

const maxBodyBytes = 64 << 10

// decodeBody parses a bounded JSON request body, rejecting trailing garbage.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing content")
	}
	return nil
}

// parseDate accepts both full RFC 3339 timestamps and bare dates, since
// clients report test dates without a time of day.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func toSummary(rep report.Report) reportSummary {
	labels, err := incubation.ParseLabels(rep.ConditionLabelsJSON)
	if err != nil {
		labels = nil
	}
	return reportSummary{
		ReportID:      rep.ID,
		Status:        string(rep.Status),
		TestDate:      rep.TestDate.Format(time.RFC3339),
		PrivacyLevel:  rep.PrivacyLevel,
		NotifiedCount: rep.NotifiedCount,
		CreatedAt:     rep.CreatedAt.Format(time.RFC3339),
		Labels:        labels,
	}
}
