package controllers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"golang.org/x/crypto/bcrypt"
)

func newTestUsersController(repo *MockUserRepo) *UsersController {
	return NewUsersController(repo, newTestAuth(repo))
}

func TestUsersController_GetUsers(t *testing.T) {
	mockUserRepo := &MockUserRepo{
		FindAllFunc: func() ([]domain.User, error) {
			return []domain.User{
				{ID: 1, Username: "user1", Password: "$2a$hash"},
			}, nil
		},
	}

	c := newTestUsersController(mockUserRepo)

	req := httptest.NewRequest("GET", "/api/users", nil)
	w := httptest.NewRecorder()

	send(c.handleGetUsers)(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if strings.Contains(w.Body.String(), "hash") {
		t.Errorf("password hash leaked: %s", w.Body.String())
	}

	var users []domain.User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("Expected 1 user, got %d", len(users))
	}
}

func TestUsersController_CreateUser(t *testing.T) {
	var saved domain.User
	mockUserRepo := &MockUserRepo{
		SaveFunc: func(user *domain.User) (int64, error) {
			user.ID = 123
			saved = *user
			return 123, nil
		},
	}

	c := newTestUsersController(mockUserRepo)

	body, _ := json.Marshal(map[string]string{"username": "newuser", "password": "password1"})
	req := httptest.NewRequest("POST", "/api/users", bytes.NewReader(body))
	w := httptest.NewRecorder()

	send(c.handleCreateUser)(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	var user domain.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if user.ID != 123 {
		t.Errorf("Expected ID 123, got %d", user.ID)
	}
	if user.Password != "" {
		t.Errorf("Expected no password in response")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("password1")); err != nil {
		t.Errorf("Expected stored password to be a bcrypt hash: %v", err)
	}
	if !saved.Enabled.Valid || !saved.Enabled.Bool {
		t.Errorf("Expected new user to be enabled")
	}
}

func TestUsersController_CreateUser_Invalid(t *testing.T) {
	c := newTestUsersController(&MockUserRepo{
		SaveFunc: func(user *domain.User) (int64, error) {
			t.Error("Save must not be called")
			return 0, nil
		},
	})

	req := httptest.NewRequest("POST", "/api/users", bytes.NewBufferString(`{"username":"x","password":"short"}`))
	w := httptest.NewRecorder()
	send(c.handleCreateUser)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestUsersController_DeleteUser(t *testing.T) {
	mockUserRepo := &MockUserRepo{
		DeleteByIdFunc: func(id int64) error {
			if id == 1 {
				return nil
			}
			return sql.ErrNoRows
		},
	}

	c := newTestUsersController(mockUserRepo)

	req := httptest.NewRequest("DELETE", "/api/users/1", nil)
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()

	send(c.handleDeleteUser)(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}
}

func TestUsersController_GetUserById(t *testing.T) {
	mockUserRepo := &MockUserRepo{
		FindByIdFunc: func(id int64) (*domain.User, error) {
			if id == 1 {
				return &domain.User{ID: 1, Username: "found"}, nil
			}
			return nil, nil
		},
	}

	c := newTestUsersController(mockUserRepo)

	// Success case
	req := httptest.NewRequest("GET", "/api/users/1", nil)
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	send(c.handleGetUserById)(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Result().StatusCode)
	}

	// Not found case
	req = httptest.NewRequest("GET", "/api/users/999", nil)
	req.SetPathValue("id", "999")
	w = httptest.NewRecorder()
	send(c.handleGetUserById)(w, req)
	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Result().StatusCode)
	}

	// Bad id
	req = httptest.NewRequest("GET", "/api/users/abc", nil)
	req.SetPathValue("id", "abc")
	w = httptest.NewRecorder()
	send(c.handleGetUserById)(w, req)
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Result().StatusCode)
	}
}
