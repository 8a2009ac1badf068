package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/todo-tracker/internal/domain"
	"github.com/dom/todo-tracker/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	name     string
	email    string
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		name:     "Test User " + suffix,
		email:    fmt.Sprintf("user_%s@example.com", suffix),
		password: "testpassword123",
	}
}

// WithName sets the name
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build stores the user and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, users repository.UserRepository) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         b.name,
		Email:        b.email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// User matches the API user representation
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	Message string `json:"message"`
	Data    User   `json:"data"`
	Token   string `json:"token"`
}

// Todo matches the API todo representation
type Todo struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Descriptions *string `json:"descriptions"`
	IsDone       bool    `json:"is_done"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// TodoListResponse matches the API list response
type TodoListResponse struct {
	Data  []Todo `json:"data"`
	Links struct {
		First *string `json:"first"`
		Last  *string `json:"last"`
		Prev  *string `json:"prev"`
		Next  *string `json:"next"`
	} `json:"links"`
	Meta struct {
		Path       string  `json:"path"`
		PerPage    int     `json:"per_page"`
		NextCursor *string `json:"next_cursor"`
		PrevCursor *string `json:"prev_cursor"`
	} `json:"meta"`
}

// TodoUpdateResponse matches the API update response
type TodoUpdateResponse struct {
	Message string `json:"message"`
	Data    Todo   `json:"data"`
}

// BuildAndAuthenticate registers the user via API and returns the user and bearer token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"name":     b.name,
		"email":    b.email,
		"password": b.password,
	})

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	userID, _ := uuid.Parse(authResp.Data.ID)
	user := &domain.User{
		ID:    userID,
		Name:  authResp.Data.Name,
		Email: authResp.Data.Email,
	}

	return user, authResp.Token
}

// TodoBuilder creates test todos with a builder pattern
type TodoBuilder struct {
	owner        *domain.User
	title        string
	descriptions *string
	isDone       bool
	createdAt    time.Time
}

// NewTodoBuilder creates a new TodoBuilder with default values
func NewTodoBuilder() *TodoBuilder {
	return &TodoBuilder{
		title:     "Todo " + uuid.New().String()[:8],
		createdAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// WithOwner sets the owner
func (b *TodoBuilder) WithOwner(user *domain.User) *TodoBuilder {
	b.owner = user
	return b
}

// WithTitle sets the title
func (b *TodoBuilder) WithTitle(title string) *TodoBuilder {
	b.title = title
	return b
}

// WithDescriptions sets the descriptions
func (b *TodoBuilder) WithDescriptions(d string) *TodoBuilder {
	b.descriptions = &d
	return b
}

// WithDone marks the todo as done
func (b *TodoBuilder) WithDone(done bool) *TodoBuilder {
	b.isDone = done
	return b
}

// WithCreatedAt sets the creation timestamp, truncated to microseconds
func (b *TodoBuilder) WithCreatedAt(ts time.Time) *TodoBuilder {
	b.createdAt = ts.UTC().Truncate(time.Microsecond)
	return b
}

// Build stores the todo. The owner must already exist.
func (b *TodoBuilder) Build(t *testing.T, todos repository.TodoRepository) *domain.Todo {
	t.Helper()

	if b.owner == nil {
		t.Fatalf("todo builder requires an owner")
	}

	todo := &domain.Todo{
		ID:           uuid.New(),
		OwnerID:      b.owner.ID,
		Title:        b.title,
		Descriptions: b.descriptions,
		IsDone:       b.isDone,
		CreatedAt:    b.createdAt,
		UpdatedAt:    b.createdAt,
	}

	if err := todos.Create(context.Background(), todo); err != nil {
		t.Fatalf("failed to create todo: %v", err)
	}

	return todo
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// Do sends req with the default client and fails the test on transport errors
func Do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
