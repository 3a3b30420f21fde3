package controllers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/RealZimboGuy/flowstudio/internal/util"
	"github.com/RealZimboGuy/flowstudio/internal/validation"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/models"
	"golang.org/x/crypto/bcrypt"
)

type UsersController struct {
	*AuthController
	UserRepo UserRepo
}

func NewUsersController(userRepo UserRepo, auth *AuthController) *UsersController {
	return &UsersController{UserRepo: userRepo, AuthController: auth}
}

func (c *UsersController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users", c.RequireAuth(send(c.handleGetUsers)))
	mux.HandleFunc("POST /api/users", c.RequireAuth(send(c.handleCreateUser)))
	mux.HandleFunc("GET /api/users/{id}", c.RequireAuth(send(c.handleGetUserById)))
	mux.HandleFunc("DELETE /api/users/{id}", c.RequireAuth(send(c.handleDeleteUser)))
}

func (c *UsersController) handleGetUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := c.UserRepo.FindAll(r.Context())
	if err != nil {
		return NewInternalServerError("Failed to get users", err)
	}
	for i := range users {
		users[i].Password = ""
	}
	util.WriteJSONResponse(w, http.StatusOK, users)
	return nil
}

func (c *UsersController) handleCreateUser(w http.ResponseWriter, r *http.Request) error {
	req, err := util.DecodeJSONBody[models.CreateUserRequest](w, r)
	if err != nil {
		return NewBadRequestError("Invalid user data", err)
	}
	if err := validation.ValidateEntity(req); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return NewInternalServerError("Failed to create user", err)
	}
	user := domain.User{
		Username: req.Username,
		Password: string(hash),
		Enabled:  sql.NullBool{Bool: true, Valid: true},
	}
	if req.ApiKey != "" {
		user.ApiKey = sql.NullString{String: req.ApiKey, Valid: true}
	}

	if _, err := c.UserRepo.Save(r.Context(), &user); err != nil {
		return NewInternalServerError("Failed to create user", err)
	}
	slog.InfoContext(r.Context(), "User created", "userId", user.ID, "username", user.Username)

	user.Password = ""
	util.WriteJSONResponse(w, http.StatusCreated, user)
	return nil
}

func (c *UsersController) handleGetUserById(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return NewBadRequestError("Invalid user ID", err)
	}

	user, err := c.UserRepo.FindById(r.Context(), id)
	if err != nil {
		return NewInternalServerError("Failed to get user", err)
	}
	if user == nil {
		return NewNotFoundError("User not found")
	}

	user.Password = ""
	util.WriteJSONResponse(w, http.StatusOK, user)
	return nil
}

func (c *UsersController) handleDeleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return NewBadRequestError("Invalid user ID", err)
	}

	if err := c.UserRepo.DeleteById(r.Context(), id); err != nil {
		return NewInternalServerError("Failed to delete user", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
