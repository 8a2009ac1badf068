package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dom/todo-tracker/internal/api/middleware"
	"github.com/dom/todo-tracker/internal/domain"
	"github.com/dom/todo-tracker/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type TodoHandler struct {
	todoService *service.TodoService
	logger      *slog.Logger
}

func NewTodoHandler(todoService *service.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todoService: todoService, logger: logger}
}

// CreateTodoRequest has no owner field; the owner is always the caller.
type CreateTodoRequest struct {
	Title        string  `json:"title"`
	Descriptions *string `json:"descriptions"`
	IsDone       *bool   `json:"is_done"`
}

// UpdateTodoRequest is applied as a partial update for both PUT and PATCH.
type UpdateTodoRequest struct {
	Title        service.OptionalString `json:"title"`
	Descriptions service.OptionalString `json:"descriptions"`
	IsDone       *bool                  `json:"is_done"`
}

type TodoResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Descriptions *string `json:"descriptions"`
	IsDone       bool    `json:"is_done"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type TodoListResponse struct {
	Data  []TodoResponse `json:"data"`
	Links CursorLinks    `json:"links"`
	Meta  CursorMeta     `json:"meta"`
}

// CursorLinks follows the shape of a cursor paginator. Listing is forward
// only, so first, last and prev are always null.
type CursorLinks struct {
	First *string `json:"first"`
	Last  *string `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

type CursorMeta struct {
	Path       string  `json:"path"`
	PerPage    int     `json:"per_page"`
	NextCursor *string `json:"next_cursor"`
	PrevCursor *string `json:"prev_cursor"`
}

type TodoUpdateResponse struct {
	Message string       `json:"message"`
	Data    TodoResponse `json:"data"`
}

func toTodoResponse(t *domain.Todo) TodoResponse {
	return TodoResponse{
		ID:           t.ID.String(),
		Title:        t.Title,
		Descriptions: t.Descriptions,
		IsDone:       t.IsDone,
		CreatedAt:    t.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:    t.UpdatedAt.UTC().Format(timestampLayout),
	}
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, h.logger, domain.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	page, err := h.todoService.List(r.Context(), userID, service.ListTodosInput{
		Cursor:   q.Get("cursor"),
		PageSize: limit,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := TodoListResponse{
		Data: make([]TodoResponse, 0, len(page.Items)),
		Meta: CursorMeta{Path: r.URL.Path, PerPage: page.PageSize},
	}
	for _, t := range page.Items {
		resp.Data = append(resp.Data, toTodoResponse(t))
	}
	if page.NextCursor != "" {
		resp.Meta.NextCursor = &page.NextCursor
		next := url.Values{"cursor": {page.NextCursor}}
		if q.Has("limit") {
			next.Set("limit", strconv.Itoa(page.PageSize))
		}
		link := r.URL.Path + "?" + next.Encode()
		resp.Links.Next = &link
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, h.logger, domain.ErrUnauthenticated)
		return
	}

	var req CreateTodoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, r, h.logger, err)
		return
	}

	todo, err := h.todoService.Create(r.Context(), userID, service.CreateTodoInput{
		Title:        req.Title,
		Descriptions: req.Descriptions,
		IsDone:       req.IsDone,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTodoResponse(todo))
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, todoID, ok := h.target(w, r)
	if !ok {
		return
	}

	todo, err := h.todoService.Get(r.Context(), userID, todoID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTodoResponse(todo))
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, todoID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req UpdateTodoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, r, h.logger, err)
		return
	}

	todo, err := h.todoService.Update(r.Context(), userID, todoID, service.UpdateTodoInput{
		Title:        req.Title,
		Descriptions: req.Descriptions,
		IsDone:       req.IsDone,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TodoUpdateResponse{
		Message: "Todo updated successfully",
		Data:    toTodoResponse(todo),
	})
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, todoID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.todoService.Delete(r.Context(), userID, todoID); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Todo deleted successfully"})
}

// target extracts the caller and the todo id from the request. An id that
// is not a uuid cannot name any todo and is reported as not found.
func (h *TodoHandler) target(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, h.logger, domain.ErrUnauthenticated)
		return uuid.Nil, uuid.Nil, false
	}

	todoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "Todo not found")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, todoID, true
}

func (h *TodoHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeNotFound(w, "Todo not found")
		return
	}
	writeError(w, r, h.logger, err)
}
