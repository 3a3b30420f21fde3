package controllers

import (
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/flowstudio/internal/util"
	"github.com/RealZimboGuy/flowstudio/internal/validation"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/models"
)

type TagsController struct {
	*AuthController
	Tags TagRepo
}

func NewTagsController(auth *AuthController, tagRepo TagRepo) *TagsController {
	return &TagsController{AuthController: auth, Tags: tagRepo}
}

func (c *TagsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tags", c.RequireAuth(send(c.handleGetTags)))
	mux.HandleFunc("POST /api/tags", c.RequireAuth(send(c.handleCreateTag)))
}

func (c *TagsController) handleGetTags(w http.ResponseWriter, r *http.Request) error {
	tags, err := c.Tags.FindAll(r.Context())
	if err != nil {
		return NewInternalServerError("Failed to get tags", err)
	}
	util.WriteJSONResponse(w, http.StatusOK, tags)
	return nil
}

func (c *TagsController) handleCreateTag(w http.ResponseWriter, r *http.Request) error {
	req, err := util.DecodeJSONBody[models.CreateTagRequest](w, r)
	if err != nil {
		return NewBadRequestError("invalid JSON payload", err)
	}
	tag := domain.Tag{Name: req.Name}
	if err := validation.ValidateEntity(tag); err != nil {
		return err
	}
	if err := c.Tags.Save(r.Context(), &tag); err != nil {
		return err
	}
	slog.InfoContext(r.Context(), "Tag created", "tagId", tag.ID, "name", tag.Name)
	util.WriteJSONResponse(w, http.StatusOK, tag)
	return nil
}
