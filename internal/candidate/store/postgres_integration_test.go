//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"passage/internal/pipeline/models"
	id "passage/pkg/domain"
	"passage/pkg/platform/sentinel"
	"passage/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *Postgres
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.ExecContext(s.ctx, Schema)
	s.Require().NoError(err)
	s.store = NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.postgres.Terminate(s.ctx)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.postgres.DB.ExecContext(s.ctx, "TRUNCATE candidates")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newCandidate(name string, createdAt time.Time) *models.Candidate {
	c, err := models.NewCandidate(id.NewCandidateID(), name, createdAt)
	s.Require().NoError(err)
	return c
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundtrip() {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := s.newCandidate("Asha Lama", now)
	c.Email = "asha@example.com"
	c.StageData = models.StageData{
		Medical:     models.MedicalScheduled,
		Visa:        models.VisaNotStarted,
		Destination: "Dubai",
		Employer:    "Gulf Hospitality LLC",
	}
	c.Documents = []models.Document{
		{Type: models.DocumentPassport, Status: models.DocumentUploaded},
		{Type: models.DocumentPoliceClearance, Status: models.DocumentMissing},
	}

	s.Require().NoError(s.store.Create(s.ctx, c))

	got, err := s.store.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)
	s.Equal("Asha Lama", got.FullName)
	s.Equal("asha@example.com", got.Email)
	s.Equal(models.StageRegistered, got.Stage)
	s.Equal(models.StageStatusPending, got.StageStatus)
	s.Equal("Dubai", got.StageData.Destination)
	s.Require().Len(got.Documents, 2)
	s.Equal(models.DocumentUploaded, got.Documents[0].Status)
	s.True(got.StageEnteredAt.Equal(now))

	// Creation seeds the registration timeline record.
	s.Require().Len(got.Timeline, 1)
	s.Equal(models.EventSystem, got.Timeline[0].Type)
	s.Equal(models.StageRegistered, got.Timeline[0].Stage)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, id.NewCandidateID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrderedByCreation() {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := s.newCandidate("Asha Lama", base)
	second := s.newCandidate("Bikram Shah", base.Add(time.Minute))
	third := s.newCandidate("Devi Tamang", base.Add(2*time.Minute))

	// Insert out of creation order; List must still sort by it.
	for _, c := range []*models.Candidate{third, first, second} {
		s.Require().NoError(s.store.Create(s.ctx, c))
	}

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(first.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID)
	s.Equal(third.ID, all[2].ID)
}

func (s *PostgresStoreSuite) TestUpdatePersistsTimelineGrowth() {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := s.newCandidate("Asha Lama", now)
	s.Require().NoError(s.store.Create(s.ctx, c))

	changed := c.Clone()
	changed.Stage = models.StageVerified
	changed.StageEnteredAt = now.Add(24 * time.Hour)
	changed.Timeline = changed.Timeline.Prepend(models.TimelineEvent{
		ID:        id.NewEventID(),
		Type:      models.EventStageTransition,
		Title:     "Stage advanced from registered to verified",
		Timestamp: now.Add(24 * time.Hour),
		Actor:     "recruiter-1",
		Stage:     models.StageVerified,
		FromStage: models.StageRegistered,
		ToStage:   models.StageVerified,
	})
	s.Require().NoError(s.store.Update(s.ctx, changed))

	got, err := s.store.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StageVerified, got.Stage)
	s.Require().Len(got.Timeline, 2)
	s.Equal(models.EventStageTransition, got.Timeline[0].Type)
	s.Equal(models.StageRegistered, got.Timeline[0].FromStage)
	s.Equal("recruiter-1", got.Timeline[0].Actor)
}

func (s *PostgresStoreSuite) TestUpdateMissing() {
	c := s.newCandidate("Asha Lama", time.Now().UTC())
	s.ErrorIs(s.store.Update(s.ctx, c), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDelete() {
	c := s.newCandidate("Asha Lama", time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, c))
	s.Require().NoError(s.store.Delete(s.ctx, c.ID))

	_, err := s.store.Get(s.ctx, c.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, c.ID), sentinel.ErrNotFound)
}
