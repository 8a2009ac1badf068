package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ErrorBody matches the API error response
type ErrorBody struct {
	Message string              `json:"message"`
	Kind    string              `json:"kind"`
	Errors  map[string][]string `json:"errors"`
}

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies an error response's status and kind and returns its body
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedKind string) ErrorBody {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var body ErrorBody
	AssertJSONResponse(t, resp, &body)
	assert.Equal(t, expectedKind, body.Kind, "error kind mismatch")
	assert.NotEmpty(t, body.Message, "error message should not be empty")
	return body
}

// AssertTodoTitles verifies the titles of a todo page, in order
func AssertTodoTitles(t *testing.T, todos []Todo, expected ...string) {
	t.Helper()

	titles := make([]string, len(todos))
	for i, todo := range todos {
		titles[i] = todo.Title
	}
	assert.Equal(t, expected, titles, "unexpected todo titles")
}
