package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type tutorFinder interface {
	FindPrimary(ctx context.Context) (*models.Tutor, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type passwordVerifier interface {
	VerifyPassword(ctx context.Context, userID, password string) error
}

// resolveTutor loads the tutor owning every record of the deployment.
func resolveTutor(ctx context.Context, tutors tutorFinder) (*models.Tutor, error) {
	tutor, err := tutors.FindPrimary(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no tutor account is configured")
		}
		return nil, appErrors.Internal(err, "failed to load tutor")
	}
	return tutor, nil
}

// notFoundOr maps sql.ErrNoRows to NOT_FOUND and anything else to INTERNAL_ERROR.
func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}

// recordAudit writes an audit entry; failures are only logged.
func recordAudit(ctx context.Context, writer auditWriter, logger *zap.Logger, actorID, action, resource, resourceID string, payload interface{}) {
	if writer == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		CreatedAt: time.Now().UTC(),
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			entry.NewValues = raw
		}
	}
	if err := writer.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
