package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// errEmailTaken is returned by Register when the account already exists.
var errEmailTaken = errors.New("email already taken")

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuthResponse struct {
	Data  User   `json:"data"`
	Token string `json:"token"`
}

type Todo struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Descriptions *string `json:"descriptions"`
	IsDone       bool    `json:"is_done"`
	CreatedAt    string  `json:"created_at"`
}

type TodoPage struct {
	Data []Todo `json:"data"`
	Meta struct {
		PerPage    int     `json:"per_page"`
		NextCursor *string `json:"next_cursor"`
	} `json:"meta"`
}

// Register creates a new account and returns its bearer token
func (c *APIClient) Register(name, email, password string) (*User, string, error) {
	body := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}

	resp, err := c.post("/auth/register", body, "")
	if err != nil {
		return nil, "", fmt.Errorf("register request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil, "", errEmailTaken
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, "", statusError("register", resp)
	}

	return decodeAuth(resp)
}

// Login starts a new session for an existing account
func (c *APIClient) Login(email, password string) (*User, string, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	resp, err := c.post("/auth/login", body, "")
	if err != nil {
		return nil, "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError("login", resp)
	}

	return decodeAuth(resp)
}

// CreateTodo creates a todo owned by the token's user
func (c *APIClient) CreateTodo(token, title, descriptions string, done bool) (*Todo, error) {
	body := map[string]interface{}{
		"title":        title,
		"descriptions": descriptions,
		"is_done":      done,
	}

	resp, err := c.post("/todos", body, token)
	if err != nil {
		return nil, fmt.Errorf("create todo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, statusError("create todo", resp)
	}

	var todo Todo
	if err := json.NewDecoder(resp.Body).Decode(&todo); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &todo, nil
}

// ListTodos fetches one page of the token user's todos
func (c *APIClient) ListTodos(token, cursor string, limit int) (*TodoPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	path := "/todos"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.get(path, token)
	if err != nil {
		return nil, fmt.Errorf("list todos request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list todos", resp)
	}

	var page TodoPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &page, nil
}

// Logout revokes the token
func (c *APIClient) Logout(token string) error {
	resp, err := c.post("/auth/logout", nil, token)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("logout", resp)
	}
	return nil
}

func decodeAuth(resp *http.Response) (*User, string, error) {
	var result AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, "", fmt.Errorf("failed to decode response: %w", err)
	}
	return &result.Data, result.Token, nil
}

func statusError(op string, resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%s failed (status %d): %s", op, resp.StatusCode, string(bodyBytes))
}

// HTTP helpers

func (c *APIClient) get(path, token string) (*http.Response, error) {
	return c.do(http.MethodGet, path, nil, token)
}

func (c *APIClient) post(path string, body interface{}, token string) (*http.Response, error) {
	return c.do(http.MethodPost, path, body, token)
}

func (c *APIClient) do(method, path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
