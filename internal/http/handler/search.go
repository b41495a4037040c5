package handler

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"reposearch/internal/model"
	"reposearch/internal/paging"
	"reposearch/internal/service"
	"reposearch/internal/task"
)

// Sessions keeps the searches opened over HTTP. Their pagers and coordinators
// run on the server scope.
type Sessions struct {
	scope *task.Scope

	mu sync.Mutex
	m  map[string]*service.SearchResult
}

// NewSessions returns an empty registry whose searches run on s.
func NewSessions(s *task.Scope) *Sessions {
	return &Sessions{scope: s, m: make(map[string]*service.SearchResult)}
}

func (ss *Sessions) add(r *service.SearchResult) string {
	id := uuid.NewString()
	ss.mu.Lock()
	ss.m[id] = r
	ss.mu.Unlock()
	return id
}

func (ss *Sessions) get(id string) (*service.SearchResult, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	r, ok := ss.m[id]
	return r, ok
}

func (ss *Sessions) remove(id string) (*service.SearchResult, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	r, ok := ss.m[id]
	delete(ss.m, id)
	return r, ok
}

// Clear closes and forgets every search. It returns how many there were.
func (ss *Sessions) Clear() int {
	ss.mu.Lock()
	old := ss.m
	ss.m = make(map[string]*service.SearchResult)
	ss.mu.Unlock()

	for _, r := range old {
		r.Close()
	}
	return len(old)
}

// Len returns the number of open searches.
func (ss *Sessions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.m)
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchView struct {
	ID        string             `json:"id"`
	Query     string             `json:"query"`
	Criterion model.Criterion    `json:"criterion"`
	Status    model.FetchStatus  `json:"status"`
	Count     int                `json:"count"`
	Items     []model.Repository `json:"items"`
}

func viewOf(id string, r *service.SearchResult) searchView {
	st, _ := r.Status.Get()
	items := r.Data.Snapshot()
	return searchView{
		ID:        id,
		Query:     r.Query,
		Criterion: r.Criterion,
		Status:    st,
		Count:     len(items),
		Items:     items,
	}
}

// CreateSearch opens a search. Results arrive asynchronously; poll GetSearch.
func CreateSearch(svc service.SearchService, sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		q := strings.TrimSpace(req.Query)
		if q == "" {
			return writeError(c, fiber.StatusBadRequest, "QUERY_REQUIRED", "query is required")
		}

		res := svc.Search(sessions.scope, q)
		id := sessions.add(res)
		return c.Status(fiber.StatusCreated).JSON(viewOf(id, res))
	}
}

// GetSearch returns what is loaded so far. ?around=N moves the consumer
// position, which may load more rows or fetch the next remote page.
func GetSearch(sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, res, ok := session(c, sessions)
		if !ok {
			return nil
		}

		if around := c.Query("around"); around != "" {
			n, err := strconv.Atoi(around)
			if err != nil || n < 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_AROUND", "invalid around")
			}
			if err := res.Data.LoadAround(n); err != nil {
				if errors.Is(err, paging.ErrInvalidated) {
					return invalidated(c)
				}
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}

		select {
		case <-res.Data.Done():
			return invalidated(c)
		default:
		}
		return c.JSON(viewOf(id, res))
	}
}

// RetrySearch re-attempts the remote page that failed last.
func RetrySearch(sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, res, ok := session(c, sessions)
		if !ok {
			return nil
		}
		if !res.Retry() {
			return writeError(c, fiber.StatusConflict, "NOT_RETRYABLE", "search has no failed fetch")
		}
		return c.Status(fiber.StatusAccepted).JSON(viewOf(id, res))
	}
}

// DeleteSearch closes a search.
func DeleteSearch(sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		res, ok := sessions.remove(id)
		if !ok {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "search not found")
		}
		res.Close()
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// session resolves :id. When it reports false the error response is already written.
func session(c *fiber.Ctx, sessions *Sessions) (string, *service.SearchResult, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		return "", nil, false
	}
	res, ok := sessions.get(id)
	if !ok {
		_ = writeError(c, fiber.StatusNotFound, "NOT_FOUND", "search not found")
		return "", nil, false
	}
	return id, res, true
}

func invalidated(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusGone, "SEARCH_INVALIDATED", "search was invalidated, open a new one")
}
