package handlers_test

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dom/todo-tracker/internal/domain"
	"github.com/dom/todo-tracker/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTodo(t *testing.T, ts *testutil.TestServer, token string, body map[string]interface{}) testutil.Todo {
	t.Helper()

	req := testutil.CreateAuthenticatedRequest(t, http.MethodPost, ts.APIURL("/todos"), body, token)
	resp := testutil.Do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var todo testutil.Todo
	testutil.AssertJSONResponse(t, resp, &todo)
	return todo
}

func listTodos(t *testing.T, ts *testutil.TestServer, token string, query url.Values) testutil.TodoListResponse {
	t.Helper()

	target := ts.APIURL("/todos")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, target, nil, token))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page testutil.TodoListResponse
	testutil.AssertJSONResponse(t, resp, &page)
	return page
}

func TestTodoHandler_RequiresAuthentication(t *testing.T) {
	ts := testutil.NewTestServer(t)
	id := uuid.New().String()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/todos"},
		{http.MethodPost, "/todos"},
		{http.MethodGet, "/todos/" + id},
		{http.MethodPut, "/todos/" + id},
		{http.MethodPatch, "/todos/" + id},
		{http.MethodDelete, "/todos/" + id},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			for _, token := range []string{"", "garbage"} {
				req := testutil.CreateAuthenticatedRequest(t, tt.method, ts.APIURL(tt.path), map[string]string{"title": "x"}, token)
				resp := testutil.Do(t, req)
				testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "unauthenticated")
			}
		})
	}

	// Nothing was written by the rejected requests.
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	assert.Empty(t, listTodos(t, ts, token, nil).Data)
}

func TestTodoHandler_Create(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	other, _ := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	tests := []struct {
		name           string
		request        interface{}
		expectedStatus int
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name:           "title only",
			request:        map[string]interface{}{"title": "Buy milk"},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var todo testutil.Todo
				testutil.AssertJSONResponse(t, resp, &todo)
				assert.Equal(t, "Buy milk", todo.Title)
				assert.Nil(t, todo.Descriptions)
				assert.False(t, todo.IsDone)
				assert.NotEmpty(t, todo.ID)
				// Create stamps both fields with the same instant.
				assert.Equal(t, todo.CreatedAt, todo.UpdatedAt)
				assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{6}Z$`, todo.CreatedAt)
			},
		},
		{
			name:           "owner in body is ignored",
			request:        map[string]interface{}{"title": "Mine", "user_id": other.ID.String(), "owner_id": other.ID.String()},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var todo testutil.Todo
				testutil.AssertJSONResponse(t, resp, &todo)
				stored, err := ts.Repos.Todo.GetByID(t.Context(), uuid.MustParse(todo.ID))
				require.NoError(t, err)
				assert.Equal(t, user.ID, stored.OwnerID)
			},
		},
		{
			name:           "missing title",
			request:        map[string]interface{}{"descriptions": "no title"},
			expectedStatus: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, resp *http.Response) {
				body := testutil.AssertErrorResponse(t, resp, http.StatusUnprocessableEntity, "validation")
				assert.Contains(t, body.Errors, "title")
			},
		},
		{
			name:           "title too long",
			request:        map[string]interface{}{"title": strings.Repeat("x", domain.MaxTitleLength+1)},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "wrong type for is_done",
			request:        map[string]interface{}{"title": "typed", "is_done": "yes"},
			expectedStatus: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, resp *http.Response) {
				body := testutil.AssertErrorResponse(t, resp, http.StatusUnprocessableEntity, "validation")
				assert.Contains(t, body.Errors, "is_done")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.CreateAuthenticatedRequest(t, http.MethodPost, ts.APIURL("/todos"), tt.request, token)
			resp := testutil.Do(t, req)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestTodoHandler_CreateMalformedJSON(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	req, err := http.NewRequest(http.MethodPost, ts.APIURL("/todos"), bytes.NewBufferString(`{"title":`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := testutil.Do(t, req)
	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "bad_request")
}

func TestTodoHandler_Get(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	todo := createTodo(t, ts, token, map[string]interface{}{"title": "Read", "descriptions": "chapter 3"})

	tests := []struct {
		name           string
		id             string
		expectedStatus int
	}{
		{name: "own todo", id: todo.ID, expectedStatus: http.StatusOK},
		{name: "unknown id", id: uuid.New().String(), expectedStatus: http.StatusNotFound},
		{name: "not a uuid", id: "42", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/todos/"+tt.id), nil, token))

			if tt.expectedStatus != http.StatusOK {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, "not_found")
				return
			}

			var got testutil.Todo
			testutil.AssertJSONResponse(t, resp, &got)
			assert.Equal(t, todo, got)
		})
	}
}

func TestTodoHandler_Update(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	tests := []struct {
		name           string
		method         string
		request        map[string]interface{}
		expectedStatus int
		wantTitle      string
		wantDesc       *string
		wantDone       bool
	}{
		{
			name:           "patch is_done keeps other fields",
			method:         http.MethodPatch,
			request:        map[string]interface{}{"is_done": true},
			expectedStatus: http.StatusOK,
			wantTitle:      "Original",
			wantDesc:       strPtr("keep me"),
			wantDone:       true,
		},
		{
			name:           "put with only title keeps descriptions",
			method:         http.MethodPut,
			request:        map[string]interface{}{"title": "Renamed"},
			expectedStatus: http.StatusOK,
			wantTitle:      "Renamed",
			wantDesc:       strPtr("keep me"),
		},
		{
			name:           "null descriptions clears them",
			method:         http.MethodPatch,
			request:        map[string]interface{}{"descriptions": nil},
			expectedStatus: http.StatusOK,
			wantTitle:      "Original",
		},
		{
			name:           "empty body changes nothing",
			method:         http.MethodPut,
			request:        map[string]interface{}{},
			expectedStatus: http.StatusOK,
			wantTitle:      "Original",
			wantDesc:       strPtr("keep me"),
		},
		{
			name:           "null title rejected",
			method:         http.MethodPatch,
			request:        map[string]interface{}{"title": nil},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "empty title rejected",
			method:         http.MethodPut,
			request:        map[string]interface{}{"title": ""},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := createTodo(t, ts, token, map[string]interface{}{"title": "Original", "descriptions": "keep me"})

			req := testutil.CreateAuthenticatedRequest(t, tt.method, ts.APIURL("/todos/"+original.ID), tt.request, token)
			resp := testutil.Do(t, req)

			if tt.expectedStatus != http.StatusOK {
				body := testutil.AssertErrorResponse(t, resp, tt.expectedStatus, "validation")
				assert.Contains(t, body.Errors, "title")
				return
			}

			require.Equal(t, http.StatusOK, resp.StatusCode)
			var result testutil.TodoUpdateResponse
			testutil.AssertJSONResponse(t, resp, &result)
			assert.NotEmpty(t, result.Message)
			assert.Equal(t, original.ID, result.Data.ID)
			assert.Equal(t, tt.wantTitle, result.Data.Title)
			assert.Equal(t, tt.wantDesc, result.Data.Descriptions)
			assert.Equal(t, tt.wantDone, result.Data.IsDone)
			assert.Equal(t, original.CreatedAt, result.Data.CreatedAt)
		})
	}
}

func TestTodoHandler_UpdateAdvancesUpdatedAt(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	todo := createTodo(t, ts, token, map[string]interface{}{"title": "Toggle me"})

	patch := func(done bool) testutil.Todo {
		t.Helper()
		req := testutil.CreateAuthenticatedRequest(t, http.MethodPatch, ts.APIURL("/todos/"+todo.ID), map[string]interface{}{"is_done": done}, token)
		resp := testutil.Do(t, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var result testutil.TodoUpdateResponse
		testutil.AssertJSONResponse(t, resp, &result)
		return result.Data
	}

	parse := func(value string) time.Time {
		t.Helper()
		parsed, err := time.Parse(time.RFC3339Nano, value)
		require.NoError(t, err)
		return parsed
	}

	first := patch(true)
	second := patch(false)

	assert.True(t, parse(first.UpdatedAt).After(parse(todo.UpdatedAt)), "first update must advance updated_at")
	assert.True(t, parse(second.UpdatedAt).After(parse(first.UpdatedAt)), "second update must advance updated_at")
	assert.Equal(t, todo.CreatedAt, second.CreatedAt)
}

func TestTodoHandler_RejectsTrailingData(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	todo := createTodo(t, ts, token, map[string]interface{}{"title": "Untouched"})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "update with garbage after the object", method: http.MethodPatch, path: "/todos/" + todo.ID, body: `{"title":"ok"} garbage`},
		{name: "update with two objects", method: http.MethodPut, path: "/todos/" + todo.ID, body: `{"title":"ok"}{"title":"again"}`},
		{name: "create with garbage after the object", method: http.MethodPost, path: "/todos", body: `{"title":"new"} x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.APIURL(tt.path), bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)

			resp := testutil.Do(t, req)
			testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "bad_request")
		})
	}

	// Trailing whitespace is still a single value.
	req, err := http.NewRequest(http.MethodPatch, ts.APIURL("/todos/"+todo.ID), bytes.NewBufferString("{\"is_done\":true}\n  "))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	testutil.AssertStatusCode(t, testutil.Do(t, req), http.StatusOK)

	testutil.AssertTodoTitles(t, listTodos(t, ts, token, nil).Data, "Untouched")
}

func TestTodoHandler_Delete(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	todo := createTodo(t, ts, token, map[string]interface{}{"title": "Temporary"})

	resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodDelete, ts.APIURL("/todos/"+todo.ID), nil, token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msg struct {
		Message string `json:"message"`
	}
	testutil.AssertJSONResponse(t, resp, &msg)
	assert.NotEmpty(t, msg.Message)

	resp = testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/todos/"+todo.ID), nil, token))
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "not_found")

	resp = testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodDelete, ts.APIURL("/todos/"+todo.ID), nil, token))
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "not_found")
}

func TestTodoHandler_OwnershipIsolation(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, aliceToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	_, bobToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	aliceTodo := createTodo(t, ts, aliceToken, map[string]interface{}{"title": "Alice's secret"})
	createTodo(t, ts, bobToken, map[string]interface{}{"title": "Bob's"})

	testutil.AssertTodoTitles(t, listTodos(t, ts, bobToken, nil).Data, "Bob's")

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			req := testutil.CreateAuthenticatedRequest(t, method, ts.APIURL("/todos/"+aliceTodo.ID), map[string]interface{}{"title": "stolen"}, bobToken)
			resp := testutil.Do(t, req)
			body := testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "not_found")
			assert.NotContains(t, body.Message, "Alice")
		})
	}

	resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/todos/"+aliceTodo.ID), nil, aliceToken))
	var got testutil.Todo
	testutil.AssertJSONResponse(t, resp, &got)
	assert.Equal(t, "Alice's secret", got.Title)
}

func TestTodoHandler_ListPagination(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	base := time.Now().Add(-time.Hour)
	testutil.NewTodoBuilder().WithOwner(user).WithTitle("Buy milk").WithCreatedAt(base).Build(t, ts.Repos.Todo)
	testutil.NewTodoBuilder().WithOwner(user).WithTitle("Pay rent").WithCreatedAt(base.Add(time.Minute)).Build(t, ts.Repos.Todo)

	first := listTodos(t, ts, token, url.Values{"limit": {"1"}})
	testutil.AssertTodoTitles(t, first.Data, "Pay rent")
	assert.Equal(t, 1, first.Meta.PerPage)
	assert.Equal(t, "/api/v1/todos", first.Meta.Path)
	require.NotNil(t, first.Meta.NextCursor)
	assert.Nil(t, first.Meta.PrevCursor)
	assert.Nil(t, first.Links.First)
	assert.Nil(t, first.Links.Last)
	assert.Nil(t, first.Links.Prev)
	require.NotNil(t, first.Links.Next)

	// The next link carries the cursor and the requested page size.
	next, err := url.Parse(*first.Links.Next)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/todos", next.Path)
	assert.Equal(t, *first.Meta.NextCursor, next.Query().Get("cursor"))
	assert.Equal(t, "1", next.Query().Get("limit"))

	second := listTodos(t, ts, token, next.Query())
	testutil.AssertTodoTitles(t, second.Data, "Buy milk")
	assert.Nil(t, second.Meta.NextCursor)
	assert.Nil(t, second.Links.Next)

	all := listTodos(t, ts, token, nil)
	testutil.AssertTodoTitles(t, all.Data, "Pay rent", "Buy milk")
	assert.Equal(t, 15, all.Meta.PerPage)
	assert.Nil(t, all.Meta.NextCursor)

	restarted := listTodos(t, ts, token, url.Values{"cursor": {"definitely-not-a-cursor"}})
	testutil.AssertTodoTitles(t, restarted.Data, "Pay rent", "Buy milk")
}

func TestTodoHandler_ListEmpty(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	page := listTodos(t, ts, token, nil)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Nil(t, page.Meta.NextCursor)
}

func TestRouter_CORSPreflight(t *testing.T) {
	ts := testutil.NewTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.APIURL("/todos"), nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp := testutil.Do(t, req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRouter_Health(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.BaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func strPtr(s string) *string { return &s }
