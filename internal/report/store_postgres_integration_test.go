//go:build integration

package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chainalert/internal/report"
	"chainalert/pkg/platform/sentinel"
	"chainalert/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *report.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = report.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "reports"))
}

func (s *PostgresStoreSuite) TestSaveRoundTrip() {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	r := report.Report{
		ID:                  uuid.NewString(),
		OwnerReportID:       "owner-a",
		ReporterGraphID:     "graph-a",
		ReporterDisplayName: "Alice",
		ConditionLabelsJSON: `["HIV"]`,
		TestDate:            now.AddDate(0, 0, -2),
		Status:              report.StatusPositive,
		PrivacyLevel:        "FULL",
		CreatedAt:           now,
	}
	s.Require().NoError(s.store.Save(ctx, r))

	got, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(report.StatusPositive, got.Status)
	s.Equal(`["HIV"]`, got.ConditionLabelsJSON)
	s.Empty(got.LinkedReportID)

	_, err = s.store.FindByID(ctx, uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestLinkedReport() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	original := report.Report{
		ID: uuid.NewString(), OwnerReportID: "owner-a", ReporterGraphID: "graph-a",
		TestDate: now, Status: report.StatusPositive, PrivacyLevel: "FULL", CreatedAt: now,
	}
	s.Require().NoError(s.store.Save(ctx, original))

	follow := report.Report{
		ID: uuid.NewString(), OwnerReportID: "owner-a", ReporterGraphID: "graph-a",
		TestDate: now, Status: report.StatusNegative, PrivacyLevel: "ANONYMOUS",
		LinkedReportID: original.ID, CreatedAt: now.Add(time.Hour),
	}
	s.Require().NoError(s.store.Save(ctx, follow))

	got, err := s.store.FindByID(ctx, follow.ID)
	s.Require().NoError(err)
	s.Equal(original.ID, got.LinkedReportID)

	mine, err := s.store.FindByOwner(ctx, "owner-a")
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal(follow.ID, mine[0].ID, "newest first")
}

func (s *PostgresStoreSuite) TestSetNotifiedCount() {
	ctx := context.Background()
	r := report.Report{
		ID: uuid.NewString(), OwnerReportID: "owner-a", ReporterGraphID: "graph-a",
		TestDate: time.Now(), Status: report.StatusPositive, PrivacyLevel: "FULL", CreatedAt: time.Now(),
	}
	s.Require().NoError(s.store.Save(ctx, r))

	s.NoError(s.store.SetNotifiedCount(ctx, r.ID, 9))
	got, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(9, got.NotifiedCount)

	s.ErrorIs(s.store.SetNotifiedCount(ctx, uuid.NewString(), 1), sentinel.ErrNotFound)
}
