package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chainalert/internal/report"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/testutil"
)

type stubService struct {
	submitIn   report.SubmitInput
	submitOut  report.Report
	submitErr  error
	updateIn   report.StatusUpdateInput
	updateOut  int
	updateErr  error
	listOut    []report.Report
	listErr    error
	submitSeen bool
}

func (s *stubService) Submit(_ context.Context, in report.SubmitInput) (report.Report, error) {
	s.submitSeen = true
	s.submitIn = in
	return s.submitOut, s.submitErr
}

func (s *stubService) UpdateStatus(_ context.Context, in report.StatusUpdateInput) (int, error) {
	s.updateIn = in
	return s.updateOut, s.updateErr
}

func (s *stubService) ListMine(_ context.Context) ([]report.Report, error) {
	return s.listOut, s.listErr
}

type ReportHandlerSuite struct {
	suite.Suite
	svc     *stubService
	handler *Handler
}

func TestReportHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReportHandlerSuite))
}

func (s *ReportHandlerSuite) SetupTest() {
	s.svc = &stubService{}
	s.handler = New(s.svc, slog.New(slog.DiscardHandler), nil, nil)
}

func (s *ReportHandlerSuite) TestHandleSubmit() {
	s.svc.submitOut = report.Report{ID: "rep-1", NotifiedCount: 4}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/reports", submitRequest{
		ConditionLabels: []string{"Chlamydia"},
		TestDate:        "2026-03-10",
		PrivacyLevel:    "FULL",
	})
	req = testutil.WithAuth(req, "device-1", "Alice")

	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleSubmit), req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[submitResponse](s.T(), rr)
	s.Equal("rep-1", resp.ReportID)
	s.Equal(4, resp.NotifiedCount)
	s.Equal([]string{"Chlamydia"}, s.svc.submitIn.ConditionLabels)
	s.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), s.svc.submitIn.TestDate)
}

func (s *ReportHandlerSuite) TestHandleSubmitBadBody() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/reports")
	req.Body = http.NoBody
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleSubmit), req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeBadRequest))
	s.False(s.svc.submitSeen)
}

func (s *ReportHandlerSuite) TestHandleSubmitBadDate() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/reports", submitRequest{
		TestDate: "last tuesday",
	})
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleSubmit), req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidInput))
}

func (s *ReportHandlerSuite) TestHandleSubmitServiceError() {
	s.svc.submitErr = dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/reports", submitRequest{
		TestDate: "2026-03-10",
	})
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleSubmit), req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeUnauthorized))
}

func (s *ReportHandlerSuite) TestHandleStatusUpdate() {
	s.svc.updateOut = 3

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/status", statusUpdateRequest{
		Status:         "NEGATIVE",
		ConditionLabel: "Syphilis",
	})
	req = testutil.WithAuth(req, "device-1", "Alice")
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleStatusUpdate), req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[statusUpdateResponse](s.T(), rr)
	s.Equal(3, resp.UpdatedCount)
	s.Equal(report.StatusNegative, s.svc.updateIn.Status)
	s.Equal("Syphilis", s.svc.updateIn.ConditionLabel)
}

func (s *ReportHandlerSuite) TestHandleListMine() {
	s.svc.listOut = []report.Report{{
		ID:                  "rep-1",
		Status:              report.StatusPositive,
		ConditionLabelsJSON: `["HIV"]`,
		TestDate:            time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		PrivacyLevel:        "FULL",
		NotifiedCount:       2,
		CreatedAt:           time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
	}}

	req := testutil.NewRequest(s.T(), http.MethodGet, "/v1/reports")
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleListMine), req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[map[string][]reportSummary](s.T(), rr)
	reports := (*resp)["reports"]
	s.Require().Len(reports, 1)
	s.Equal("rep-1", reports[0].ReportID)
	s.Equal([]string{"HIV"}, reports[0].Labels)
}

func TestDecodeBodyRejectsTrailingContent(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodPost, "/v1/status")
	req.Body = io.NopCloser(strings.NewReader(`{"status":"NEGATIVE"}{"status":"POSITIVE"}`))

	var dst statusUpdateRequest
	if err := decodeBody(req, &dst); err == nil {
		t.Fatal("expected trailing content to be rejected")
	}
}
