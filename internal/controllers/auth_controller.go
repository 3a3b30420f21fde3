package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/RealZimboGuy/flowstudio/internal/config"
	"github.com/RealZimboGuy/flowstudio/internal/util"
	"github.com/RealZimboGuy/flowstudio/internal/validation"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookieName = "sessionId"

type AuthController struct {
	UserRepo UserRepo
	Clock    core.Clock
	Settings config.Settings
}

func NewAuthController(userRepo UserRepo, clock core.Clock, settings config.Settings) *AuthController {
	return &AuthController{UserRepo: userRepo, Clock: clock, Settings: settings}
}

func (c *AuthController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", send(c.handleLogin))
	mux.HandleFunc("POST /api/logout", send(c.handleLogout))
}

// RequireAuth resolves the user from the session cookie or the X-API-Key
// header and stores it on the request context.
func (c *AuthController) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		// 1) session cookie
		if ck, err := r.Cookie(sessionCookieName); err == nil && ck.Value != "" {
			u, err := c.UserRepo.FindBySessionID(ctx, ck.Value, c.Clock.Now().UTC())
			if err != nil {
				slog.ErrorContext(ctx, "Failed to look up session", "error", err)
			} else if u != nil {
				next(w, r.WithContext(core.WithUser(ctx, u)))
				return
			}
		}
		// 2) X-API-Key: <key>
		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			u, err := c.UserRepo.FindByApiKey(ctx, apiKey)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to look up api key", "error", err)
			} else if u != nil {
				next(w, r.WithContext(core.WithUser(ctx, u)))
				return
			}
		}
		writeError(w, r, NewUnauthorizedError())
	}
}

func (c *AuthController) handleLogin(w http.ResponseWriter, r *http.Request) error {
	req, err := util.DecodeJSONBody[models.LoginRequest](w, r)
	if err != nil {
		return NewBadRequestError("invalid JSON payload", err)
	}
	if err := validation.ValidateEntity(req); err != nil {
		return err
	}

	ctx := r.Context()
	user, err := c.UserRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return NewInternalServerError("Failed to log in", err)
	}
	if user == nil || (user.Enabled.Valid && !user.Enabled.Bool) {
		slog.InfoContext(ctx, "Rejected login", "username", req.Username)
		return NewUnauthorizedError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.WarnContext(ctx, "Stored password hash is invalid", "userId", user.ID, "error", err)
		}
		slog.InfoContext(ctx, "Rejected login", "username", req.Username)
		return NewUnauthorizedError()
	}

	sessionID := uuid.NewString()
	expiry := c.Clock.Now().UTC().Add(time.Duration(c.Settings.SessionExpiryHours) * time.Hour)
	if err := c.UserRepo.UpdateSession(ctx, user.ID, sessionID, expiry); err != nil {
		return NewInternalServerError("Failed to log in", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.InfoContext(ctx, "User logged in", "userId", user.ID)
	util.WriteJSONResponse(w, http.StatusOK, models.LoginResponse{
		Username:      user.Username,
		SessionExpiry: expiry.Format(time.RFC3339),
	})
	return nil
}

func (c *AuthController) handleLogout(w http.ResponseWriter, r *http.Request) error {
	if ck, err := r.Cookie(sessionCookieName); err == nil && ck.Value != "" {
		if err := c.UserRepo.ClearSessionBySessionID(r.Context(), ck.Value); err != nil {
			return NewInternalServerError("Failed to log out", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
	return nil
}
