package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

type tutorSettingsRepository interface {
	FindPrimary(ctx context.Context) (*models.Tutor, error)
	UpdateSettings(ctx context.Context, tutor *models.Tutor) error
}

type securityUpdater interface {
	UpdateSecurity(ctx context.Context, userID string, req models.SecurityUpdateRequest) error
}

// SettingsService reads and updates the tutor profile and login credentials.
type SettingsService struct {
	tutors    tutorSettingsRepository
	security  securityUpdater
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(tutors tutorSettingsRepository, security securityUpdater, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{tutors: tutors, security: security, validator: validate, logger: logger}
}

// Get returns the tutor profile.
func (s *SettingsService) Get(ctx context.Context) (*models.Tutor, error) {
	return resolveTutor(ctx, s.tutors)
}

// Update writes the name, phone and bio.
func (s *SettingsService) Update(ctx context.Context, req models.SettingsUpdate) (*models.Tutor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid settings payload")
	}
	tutor, err := resolveTutor(ctx, s.tutors)
	if err != nil {
		return nil, err
	}
	tutor.Name = strings.TrimSpace(req.Name)
	tutor.Phone = optionalText(req.Phone)
	tutor.Bio = optionalText(req.Bio)
	if err := s.tutors.UpdateSettings(ctx, tutor); err != nil {
		return nil, appErrors.Internal(err, "failed to update settings")
	}
	s.logger.Info("tutor settings updated", zap.String("tutor_id", tutor.UserID))
	return tutor, nil
}

// UpdateSecurity replaces the caller's login email and/or password.
func (s *SettingsService) UpdateSecurity(ctx context.Context, userID string, req models.SecurityUpdateRequest) error {
	return s.security.UpdateSecurity(ctx, userID, req)
}
