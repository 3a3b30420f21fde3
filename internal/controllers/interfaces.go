package controllers

import (
	"context"
	"time"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

type UserRepo interface {
	FindBySessionID(ctx context.Context, sessionID string, now time.Time) (*domain.User, error)
	FindByApiKey(ctx context.Context, apiKey string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindById(ctx context.Context, id int64) (*domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Save(ctx context.Context, user *domain.User) (int64, error)
	DeleteById(ctx context.Context, id int64) error
	UpdateSession(ctx context.Context, userID int64, sessionID string, expiry time.Time) error
	ClearSessionBySessionID(ctx context.Context, sessionID string) error
}

// WorkflowStore persists workflows together with their sharing records.
type WorkflowStore interface {
	SaveWithOwner(ctx context.Context, wf *domain.Workflow, owner *domain.User) (*domain.Workflow, error)
	FindForUser(ctx context.Context, userID, workflowID int64, withTags bool) (*domain.SharedWorkflow, error)
}

type TagRepo interface {
	FindByIds(ctx context.Context, ids []int64) ([]domain.Tag, error)
	FindAll(ctx context.Context) ([]domain.Tag, error)
	Save(ctx context.Context, tag *domain.Tag) error
}

type CredentialsRepo interface {
	FindAllForUser(ctx context.Context, userID int64) ([]domain.Credential, error)
	SaveWithOwner(ctx context.Context, c *domain.Credential, owner *domain.User) error
}

type CredentialsSanitizer interface {
	ReplaceInvalidCredentials(ctx context.Context, wf *domain.Workflow, user *domain.User) error
}

type Telemetry interface {
	OnWorkflowCreated(ctx context.Context, userID int64, wf *domain.Workflow)
}
