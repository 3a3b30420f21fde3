package controllers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/RealZimboGuy/flowstudio/internal/config"
	"github.com/RealZimboGuy/flowstudio/internal/otelhelper"
	"github.com/RealZimboGuy/flowstudio/internal/tags"
	"github.com/RealZimboGuy/flowstudio/internal/util"
	"github.com/RealZimboGuy/flowstudio/internal/validation"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/hooks"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// WorkflowsController holds dependencies for workflow HTTP endpoints.
type WorkflowsController struct {
	*AuthController
	Workflows   WorkflowStore
	Tags        TagRepo
	Credentials CredentialsSanitizer
	Hooks       *hooks.ExternalHooks
	Telemetry   Telemetry
	Settings    config.Settings
	Tracer      trace.Tracer
}

func NewWorkflowsController(
	auth *AuthController,
	workflows WorkflowStore,
	tagRepo TagRepo,
	credentials CredentialsSanitizer,
	externalHooks *hooks.ExternalHooks,
	telemetry Telemetry,
	settings config.Settings,
	tracer trace.Tracer,
) *WorkflowsController {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}
	return &WorkflowsController{
		AuthController: auth,
		Workflows:      workflows,
		Tags:           tagRepo,
		Credentials:    credentials,
		Hooks:          externalHooks,
		Telemetry:      telemetry,
		Settings:       settings,
		Tracer:         tracer,
	}
}

func (c *WorkflowsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workflows", c.RequireAuth(send(c.handleCreateWorkflow)))
	mux.HandleFunc("GET /api/workflows/{id}", c.RequireAuth(send(c.handleGetWorkflowById)))
}

func (c *WorkflowsController) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) error {
	ctx, span := otelhelper.StartSpan(r.Context(), c.Tracer, "workflows.create")
	defer span.End()

	user := core.UserFromContext(ctx)
	if user == nil {
		return NewUnauthorizedError()
	}
	span.SetAttributes(attribute.Int64(otelhelper.UserIDKey, user.ID))

	req, err := util.DecodeJSONBody[models.CreateWorkflowRequest](w, r)
	if err != nil {
		return NewBadRequestError("invalid JSON payload", err)
	}
	nodes, err := req.DecodeNodes()
	if err != nil {
		return NewBadRequestError("invalid JSON payload", err)
	}

	// pinned data is kept at workflow level only
	pinData := make(map[string]json.RawMessage)
	for i := range nodes {
		if nodes[i].HasPinData() {
			pinData[nodes[i].Name] = nodes[i].PinData
		}
		nodes[i].PinData = nil
	}

	wf, err := domain.NewWorkflow(domain.WorkflowFields{
		Name:        req.Name,
		Active:      req.Active,
		Nodes:       nodes,
		Connections: req.Connections,
		Settings:    req.Settings,
		StaticData:  req.StaticData,
		PinData:     pinData,
	})
	if err != nil {
		return NewBadRequestError("invalid pinned data", err)
	}
	span.SetAttributes(
		attribute.String(otelhelper.WorkflowNameKey, wf.Name),
		attribute.Int(otelhelper.NodeCountKey, len(wf.Nodes)),
	)

	if err := validation.ValidateEntity(wf); err != nil {
		return err
	}

	if err := c.Hooks.Run(ctx, hooks.WorkflowCreate, wf); err != nil {
		otelhelper.SetError(span, err)
		return err
	}

	// a tags key, even an empty list, puts tags in the response
	tagsRequested := !c.Settings.WorkflowTagsDisabled && req.Tags != nil
	if tagsRequested && len(req.Tags) > 0 {
		found, err := c.Tags.FindByIds(ctx, req.Tags)
		if err != nil {
			otelhelper.SetError(span, err)
			return NewInternalServerError("Failed to save workflow", err)
		}
		if dropped := len(uniqueIDs(req.Tags)) - len(found); dropped > 0 {
			slog.DebugContext(ctx, "Ignoring unknown tags", "count", dropped)
		}
		wf.Tags = found
	}
	if tagsRequested && wf.Tags == nil {
		wf.Tags = []domain.Tag{}
	}

	if err := c.Credentials.ReplaceInvalidCredentials(ctx, wf, user); err != nil {
		otelhelper.SetError(span, err)
		return NewInternalServerError("Failed to save workflow", err)
	}

	saved, err := c.Workflows.SaveWithOwner(ctx, wf, user)
	if err != nil || saved == nil {
		if err != nil {
			otelhelper.SetError(span, err)
		}
		return NewInternalServerError("Failed to save workflow", err)
	}
	span.SetAttributes(attribute.Int64(otelhelper.WorkflowIDKey, saved.ID))

	if tagsRequested {
		saved.Tags = tags.SortByRequestOrder(saved.Tags, req.Tags)
	}

	if err := c.Hooks.Run(ctx, hooks.WorkflowAfterCreate, saved); err != nil {
		slog.WarnContext(ctx, "After create hook failed", "workflowId", saved.ID, "error", err)
	}

	c.Telemetry.OnWorkflowCreated(ctx, user.ID, saved)
	slog.InfoContext(ctx, "Workflow created", "workflowId", saved.ID, "userId", user.ID)

	resp := models.NewWorkflowResponse(saved, tagsRequested)
	if len(pinData) > 0 {
		resp.PinData = pinData
	}
	util.WriteJSONResponse(w, http.StatusOK, resp)
	return nil
}

func (c *WorkflowsController) handleGetWorkflowById(w http.ResponseWriter, r *http.Request) error {
	ctx, span := otelhelper.StartSpan(r.Context(), c.Tracer, "workflows.get")
	defer span.End()

	user := core.UserFromContext(ctx)
	if user == nil {
		return NewUnauthorizedError()
	}
	idStr := r.PathValue("id")
	span.SetAttributes(attribute.Int64(otelhelper.UserIDKey, user.ID))

	var shared *domain.SharedWorkflow
	if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
		shared, err = c.Workflows.FindForUser(ctx, user.ID, id, !c.Settings.WorkflowTagsDisabled)
		if err != nil {
			otelhelper.SetError(span, err)
			return NewInternalServerError("Failed to load workflow", err)
		}
	}
	if shared == nil {
		slog.InfoContext(ctx, "User attempted to access a workflow without permissions",
			"workflowId", idStr, "userId", user.ID)
		return NewNotFoundError(fmt.Sprintf("Workflow with ID %q could not be found.", idStr))
	}

	wf := shared.Workflow
	pinData, err := wf.ParsePinData()
	if err != nil {
		otelhelper.SetError(span, err)
		return NewInternalServerError("Failed to load workflow", err)
	}
	for i := range wf.Nodes {
		if data, ok := pinData[wf.Nodes[i].Name]; ok {
			wf.Nodes[i].PinData = data
		}
	}

	util.WriteJSONResponse(w, http.StatusOK, models.NewWorkflowResponse(wf, !c.Settings.WorkflowTagsDisabled))
	return nil
}

func uniqueIDs(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
