package controllers

import (
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/flowstudio/internal/util"
	"github.com/RealZimboGuy/flowstudio/internal/validation"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/models"
)

type CredentialsController struct {
	*AuthController
	Credentials CredentialsRepo
}

func NewCredentialsController(auth *AuthController, credentials CredentialsRepo) *CredentialsController {
	return &CredentialsController{AuthController: auth, Credentials: credentials}
}

func (c *CredentialsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/credentials", c.RequireAuth(send(c.handleGetCredentials)))
	mux.HandleFunc("POST /api/credentials", c.RequireAuth(send(c.handleCreateCredential)))
}

// handleGetCredentials lists the credentials shared with the caller.
func (c *CredentialsController) handleGetCredentials(w http.ResponseWriter, r *http.Request) error {
	user := core.UserFromContext(r.Context())
	if user == nil {
		return NewUnauthorizedError()
	}
	credentials, err := c.Credentials.FindAllForUser(r.Context(), user.ID)
	if err != nil {
		return NewInternalServerError("Failed to get credentials", err)
	}
	util.WriteJSONResponse(w, http.StatusOK, credentials)
	return nil
}

func (c *CredentialsController) handleCreateCredential(w http.ResponseWriter, r *http.Request) error {
	user := core.UserFromContext(r.Context())
	if user == nil {
		return NewUnauthorizedError()
	}
	req, err := util.DecodeJSONBody[models.CreateCredentialRequest](w, r)
	if err != nil {
		return NewBadRequestError("invalid JSON payload", err)
	}
	credential := domain.Credential{Name: req.Name, Type: req.Type}
	if err := validation.ValidateEntity(credential); err != nil {
		return err
	}
	if err := c.Credentials.SaveWithOwner(r.Context(), &credential, user); err != nil {
		return NewInternalServerError("Failed to save credential", err)
	}
	slog.InfoContext(r.Context(), "Credential created", "credentialId", credential.ID, "userId", user.ID)
	util.WriteJSONResponse(w, http.StatusOK, credential)
	return nil
}
