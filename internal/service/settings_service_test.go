package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

type settingsRepoStub struct {
	tutorStub
	saved *models.Tutor
}

func (s *settingsRepoStub) UpdateSettings(ctx context.Context, tutor *models.Tutor) error {
	snapshot := *tutor
	s.saved = &snapshot
	return nil
}

type securityStub struct {
	userID string
	req    models.SecurityUpdateRequest
}

func (s *securityStub) UpdateSecurity(ctx context.Context, userID string, req models.SecurityUpdateRequest) error {
	s.userID, s.req = userID, req
	return nil
}

func TestSettingsServiceUpdate(t *testing.T) {
	repo := &settingsRepoStub{tutorStub: tutorStub{tutor: &models.Tutor{UserID: "tutor-1", Name: "Old"}}}
	svc := NewSettingsService(repo, &securityStub{}, nil, nil)

	tutor, err := svc.Update(context.Background(), models.SettingsUpdate{Name: "  Bu Rina ", Phone: "0812", Bio: "  "})
	require.NoError(t, err)
	assert.Equal(t, "Bu Rina", tutor.Name)
	require.NotNil(t, tutor.Phone)
	assert.Equal(t, "0812", *tutor.Phone)
	assert.Nil(t, tutor.Bio)
	require.NotNil(t, repo.saved)
	assert.Equal(t, "Bu Rina", repo.saved.Name)

	_, err = svc.Update(context.Background(), models.SettingsUpdate{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingsServiceWithoutTutor(t *testing.T) {
	repo := &settingsRepoStub{tutorStub: tutorStub{err: sql.ErrNoRows}}
	svc := NewSettingsService(repo, &securityStub{}, nil, nil)

	_, err := svc.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSettingsServiceUpdateSecurityDelegates(t *testing.T) {
	security := &securityStub{}
	svc := NewSettingsService(&settingsRepoStub{}, security, nil, nil)

	req := models.SecurityUpdateRequest{CurrentEmail: "a@b.c", CurrentPassword: "secret", NewPassword: "secret-2"}
	require.NoError(t, svc.UpdateSecurity(context.Background(), "tutor-1", req))
	assert.Equal(t, "tutor-1", security.userID)
	assert.Equal(t, req, security.req)
}
