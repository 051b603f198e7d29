package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"chainalert/internal/notification"
	"chainalert/internal/platform/middleware"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/testutil"
)

type stubService struct {
	entries    []notification.Entry
	listErr    error
	markReadID string
	markErr    error
}

func (s *stubService) ListForCaller(_ context.Context) ([]notification.Entry, error) {
	return s.entries, s.listErr
}

func (s *stubService) MarkRead(_ context.Context, id string) error {
	s.markReadID = id
	return s.markErr
}

type InboxHandlerSuite struct {
	suite.Suite
	svc     *stubService
	handler *Handler
}

func TestInboxHandlerSuite(t *testing.T) {
	suite.Run(t, new(InboxHandlerSuite))
}

func (s *InboxHandlerSuite) SetupTest() {
	s.svc = &stubService{}
	s.handler = New(s.svc, slog.New(slog.DiscardHandler), nil, nil)
}

func (s *InboxHandlerSuite) TestHandleList() {
	exposed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.svc.entries = []notification.Entry{{
		ID:              "n-1",
		ReportID:        "r-1",
		HopDepth:        2,
		ConditionLabels: []string{"HIV"},
		ExposedAt:       &exposed,
		Chain: notification.Path{
			Members: []string{"h1", "h2", "h3"},
			Nodes: []notification.Node{
				{DisplayName: "Alice", TestStatus: notification.StatusPositive},
				{DisplayName: "Bob", TestStatus: notification.StatusUnknown},
				{DisplayName: "Carol", TestStatus: notification.StatusUnknown, IsCurrentUser: true},
			},
		},
		ReceivedAt: exposed.Add(24 * time.Hour),
		UpdatedAt:  exposed.Add(24 * time.Hour),
	}}

	req := testutil.NewRequest(s.T(), http.MethodGet, "/v1/notifications")
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleList), req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[map[string][]entryResponse](s.T(), rr)
	entries := (*resp)["notifications"]
	s.Require().Len(entries, 1)
	s.Equal("n-1", entries[0].ID)
	s.Equal(2, entries[0].HopDepth)
	s.Require().Len(entries[0].Chain, 3)
	s.True(entries[0].Chain[2].IsCurrentUser)
}

// The chain member hashes stay server-side; the payload only carries the
// display nodes.
func (s *InboxHandlerSuite) TestHandleListOmitsMemberHashes() {
	s.svc.entries = []notification.Entry{{
		ID: "n-1",
		Chain: notification.Path{
			Members: []string{"deadbeef"},
			Nodes:   []notification.Node{{DisplayName: "Alice"}},
		},
	}}

	req := testutil.NewRequest(s.T(), http.MethodGet, "/v1/notifications")
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleList), req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.NotContains(rr.Body.String(), "deadbeef")
}

func (s *InboxHandlerSuite) TestHandleListError() {
	s.svc.listErr = dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")

	req := testutil.NewRequest(s.T(), http.MethodGet, "/v1/notifications")
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleList), req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

// allowValidator accepts any bearer token, standing in for jwtauth in
// routing tests.
type allowValidator struct{}

func (allowValidator) ValidateToken(string) (*middleware.TokenClaims, error) {
	return &middleware.TokenClaims{DeviceID: "device-1", DisplayName: "Alice"}, nil
}

func (s *InboxHandlerSuite) routed() chi.Router {
	s.handler.validator = allowValidator{}
	r := chi.NewRouter()
	s.handler.Register(r)
	return r
}

func (s *InboxHandlerSuite) TestHandleMarkRead() {
	r := s.routed()

	req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/notifications/n-42/read")
	req.Header.Set("Authorization", "Bearer anything")
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	s.Equal("n-42", s.svc.markReadID)
}

func (s *InboxHandlerSuite) TestHandleMarkReadNotFound() {
	s.svc.markErr = dErrors.New(dErrors.CodeNotFound, "notification not found")
	r := s.routed()

	req := testutil.NewRequest(s.T(), http.MethodPost, "/v1/notifications/n-42/read")
	req.Header.Set("Authorization", "Bearer anything")
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeNotFound))
}

func (s *InboxHandlerSuite) TestRoutesRejectMissingToken() {
	r := s.routed()

	req := testutil.NewRequest(s.T(), http.MethodGet, "/v1/notifications")
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}
