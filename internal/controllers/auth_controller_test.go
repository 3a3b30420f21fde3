package controllers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RealZimboGuy/flowstudio/internal/config"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepo implements UserRepo for testing
type MockUserRepo struct {
	FindBySessionIDFunc         func(sessionID string, now time.Time) (*domain.User, error)
	FindByApiKeyFunc            func(apiKey string) (*domain.User, error)
	FindAllFunc                 func() ([]domain.User, error)
	SaveFunc                    func(user *domain.User) (int64, error)
	FindByIdFunc                func(id int64) (*domain.User, error)
	DeleteByIdFunc              func(id int64) error
	FindByUsernameFunc          func(username string) (*domain.User, error)
	UpdateSessionFunc           func(userID int64, sessionID string, expiry time.Time) error
	ClearSessionBySessionIDFunc func(sessionID string) error
}

func (m *MockUserRepo) FindBySessionID(_ context.Context, sessionID string, now time.Time) (*domain.User, error) {
	if m.FindBySessionIDFunc != nil {
		return m.FindBySessionIDFunc(sessionID, now)
	}
	return nil, nil
}

func (m *MockUserRepo) FindByApiKey(_ context.Context, apiKey string) (*domain.User, error) {
	if m.FindByApiKeyFunc != nil {
		return m.FindByApiKeyFunc(apiKey)
	}
	return nil, nil
}

func (m *MockUserRepo) FindAll(_ context.Context) ([]domain.User, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc()
	}
	return nil, nil
}

func (m *MockUserRepo) Save(_ context.Context, user *domain.User) (int64, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(user)
	}
	return 0, nil
}

func (m *MockUserRepo) FindById(_ context.Context, id int64) (*domain.User, error) {
	if m.FindByIdFunc != nil {
		return m.FindByIdFunc(id)
	}
	return nil, nil
}

func (m *MockUserRepo) DeleteById(_ context.Context, id int64) error {
	if m.DeleteByIdFunc != nil {
		return m.DeleteByIdFunc(id)
	}
	return nil
}

func (m *MockUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(username)
	}
	return nil, nil
}

func (m *MockUserRepo) UpdateSession(_ context.Context, userID int64, sessionID string, expiry time.Time) error {
	if m.UpdateSessionFunc != nil {
		return m.UpdateSessionFunc(userID, sessionID, expiry)
	}
	return nil
}

func (m *MockUserRepo) ClearSessionBySessionID(_ context.Context, sessionID string) error {
	if m.ClearSessionBySessionIDFunc != nil {
		return m.ClearSessionBySessionIDFunc(sessionID)
	}
	return nil
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestAuth(repo UserRepo) *AuthController {
	return NewAuthController(repo, core.FixedClock{At: testNow}, config.Settings{SessionExpiryHours: 2})
}

func TestAuthController_RequireAuth_SessionCookie(t *testing.T) {
	mockRepo := &MockUserRepo{
		FindBySessionIDFunc: func(sessionID string, now time.Time) (*domain.User, error) {
			if sessionID == "valid_session" {
				return &domain.User{ID: 7, Username: "testuser"}, nil
			}
			return nil, nil
		},
	}
	ac := newTestAuth(mockRepo)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := core.UserFromContext(r.Context())
		if u == nil || u.Username != "testuser" {
			t.Errorf("Expected user in context, got %v", u)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "sessionId", Value: "valid_session"})
	w := httptest.NewRecorder()

	ac.RequireAuth(nextHandler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestAuthController_RequireAuth_ApiKey(t *testing.T) {
	mockRepo := &MockUserRepo{
		FindByApiKeyFunc: func(apiKey string) (*domain.User, error) {
			if apiKey == "valid_key" {
				return &domain.User{ID: 3, Username: "api_user"}, nil
			}
			return nil, nil
		},
	}
	ac := newTestAuth(mockRepo)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := core.UserFromContext(r.Context())
		if u == nil || u.Username != "api_user" {
			t.Errorf("Expected user in context, got %v", u)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("X-API-Key", "valid_key")
	w := httptest.NewRecorder()

	ac.RequireAuth(nextHandler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestAuthController_RequireAuth_Unauthorized(t *testing.T) {
	ac := newTestAuth(&MockUserRepo{})

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Next handler should not be called")
	})

	// no credentials
	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	ac.RequireAuth(nextHandler).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	// unknown api key
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("X-API-Key", "invalid_key")
	w = httptest.NewRecorder()
	ac.RequireAuth(nextHandler).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// expired session
	req = httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "sessionId", Value: "gone"})
	w = httptest.NewRecorder()
	ac.RequireAuth(nextHandler).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthController_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	var (
		storedSession string
		storedExpiry  time.Time
	)
	mockRepo := &MockUserRepo{
		FindByUsernameFunc: func(username string) (*domain.User, error) {
			if username != "alice" {
				return nil, nil
			}
			return &domain.User{ID: 1, Username: "alice", Password: string(hash), Enabled: sql.NullBool{Bool: true, Valid: true}}, nil
		},
		UpdateSessionFunc: func(userID int64, sessionID string, expiry time.Time) error {
			storedSession = sessionID
			storedExpiry = expiry
			return nil
		},
	}
	ac := newTestAuth(mockRepo)

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "correct-horse"})
	req := httptest.NewRequest("POST", "/api/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	send(ac.handleLogin)(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, storedSession)
	assert.Equal(t, testNow.Add(2*time.Hour), storedExpiry)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sessionId", cookies[0].Name)
	assert.Equal(t, storedSession, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuthController_Login_Rejected(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := &MockUserRepo{
		FindByUsernameFunc: func(username string) (*domain.User, error) {
			switch username {
			case "alice":
				return &domain.User{ID: 1, Username: "alice", Password: string(hash)}, nil
			case "disabled":
				return &domain.User{ID: 2, Username: "disabled", Password: string(hash), Enabled: sql.NullBool{Bool: false, Valid: true}}, nil
			}
			return nil, nil
		},
		UpdateSessionFunc: func(userID int64, sessionID string, expiry time.Time) error {
			t.Error("session must not be created")
			return nil
		},
	}
	ac := newTestAuth(mockRepo)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"bob","password":"correct-horse"}`, http.StatusUnauthorized},
		{"disabled user", `{"username":"disabled","password":"correct-horse"}`, http.StatusUnauthorized},
		{"missing password", `{"username":"alice"}`, http.StatusBadRequest},
		{"unknown field", `{"username":"alice","password":"x","remember":true}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/login", bytes.NewBufferString(tc.body))
			w := httptest.NewRecorder()
			send(ac.handleLogin)(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestAuthController_Logout(t *testing.T) {
	var cleared string
	ac := newTestAuth(&MockUserRepo{
		ClearSessionBySessionIDFunc: func(sessionID string) error {
			cleared = sessionID
			return nil
		},
	})

	req := httptest.NewRequest("POST", "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sessionId", Value: "abc"})
	w := httptest.NewRecorder()
	send(ac.handleLogout)(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "abc", cleared)
}
