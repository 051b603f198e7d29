package notification

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"chainalert/internal/identity"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store *InMemoryStore
	svc   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.svc = NewService(s.store, slog.New(slog.DiscardHandler))
}

func (s *ServiceSuite) asDevice(device string) context.Context {
	return requestcontext.WithDeviceID(context.Background(), device)
}

func (s *ServiceSuite) seed(reportID, device string) Entry {
	p := path("reporter", identity.HashChain(identity.HashGraph(device)))
	stored, _, err := s.store.Upsert(context.Background(), Entry{
		ReportID:    reportID,
		RecipientID: identity.HashNotification(device),
		HopDepth:    1,
		Chain:       p,
		Paths:       []Path{p},
	})
	s.Require().NoError(err)
	return stored
}

func (s *ServiceSuite) TestListForCaller() {
	s.seed("r1", "device-1")
	s.seed("r2", "device-1")
	s.seed("r1", "device-2")

	entries, err := s.svc.ListForCaller(s.asDevice("device-1"))
	s.Require().NoError(err)
	s.Len(entries, 2)

	entries, err = s.svc.ListForCaller(s.asDevice("device-3"))
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ServiceSuite) TestListForCallerRequiresIdentity() {
	_, err := s.svc.ListForCaller(context.Background())
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestMarkRead() {
	stored := s.seed("r1", "device-1")

	s.NoError(s.svc.MarkRead(s.asDevice("device-1"), stored.ID))
	got, err := s.store.FindByID(context.Background(), stored.ID)
	s.Require().NoError(err)
	s.True(got.IsRead)
}

// A valid ID belonging to someone else must be indistinguishable from a
// missing one.
func (s *ServiceSuite) TestMarkReadCrossRecipient() {
	stored := s.seed("r1", "device-1")

	err := s.svc.MarkRead(s.asDevice("device-2"), stored.ID)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	got, findErr := s.store.FindByID(context.Background(), stored.ID)
	s.Require().NoError(findErr)
	s.False(got.IsRead)
}

func (s *ServiceSuite) TestMarkReadMissing() {
	err := s.svc.MarkRead(s.asDevice("device-1"), "no-such-id")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
