package domain

import "time"

const RoleOwner = "owner"

const (
	RoleScopeWorkflow   = "workflow"
	RoleScopeCredential = "credential"
)

type Role struct {
	ID    int64
	Name  string
	Scope string
}

// SharedWorkflow grants a user a role over a workflow.
type SharedWorkflow struct {
	UserID     int64
	WorkflowID int64
	Role       Role
	Workflow   *Workflow
	CreatedAt  time.Time
}

type Tag struct {
	ID   int64  `json:"id,string"`
	Name string `json:"name" validate:"required,max=24"`
}
