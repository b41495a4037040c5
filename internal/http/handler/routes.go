package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reposearch/internal/live"
	"reposearch/internal/model"
	"reposearch/internal/repository"
	"reposearch/internal/service"
	"reposearch/internal/task"
)

// Pinger is satisfied by *sql.DB and *bun.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CacheReader is the read-only part of the cache used for inspection.
type CacheReader interface {
	List(ctx context.Context, criterion model.Criterion, pq repository.PageQuery) (*repository.PageResult[model.Repository], error)
	CountRepositories(ctx context.Context) (int, error)
	CountOwners(ctx context.Context) (int, error)
}

// Deps are the collaborators the routes are served from.
type Deps struct {
	DB       Pinger
	Search   service.SearchService
	Cache    CacheReader
	Sessions *Sessions
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Searches are kept in sessions; everything else goes straight to the service.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	app.Get("/metrics", Metrics(d.Gatherer))
	app.Get("/stats", Stats(d.Cache, d.Sessions))

	app.Post("/searches", CreateSearch(d.Search, d.Sessions))
	app.Get("/searches/:id", GetSearch(d.Sessions))
	app.Post("/searches/:id/retry", RetrySearch(d.Sessions))
	app.Delete("/searches/:id", DeleteSearch(d.Sessions))

	app.Get("/repositories", ListRepositories(d.Cache))
	app.Get("/repositories/:id", GetRepository(d.Search))
	app.Get("/owners/:id", GetOwner(d.Search))
	app.Delete("/owners", DeleteOwners(d.Search, d.Sessions))

	app.Get("/criterion", GetCriterion(d.Search))
	app.Put("/criterion", SetCriterion(d.Search))
}

// HealthCheck checks cache database connectivity only.
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Metrics exposes g in the Prometheus text format.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// ListRepositories pages through the whole cache with limit & offset,
// independent of any search.
func ListRepositories(cache CacheReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil || limit < 1 || limit > maxListLimit {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil || offset < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}
		criterion, err := model.ParseCriterion(c.Query("criterion"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CRITERION", "unknown criterion")
		}

		res, err := cache.List(c.UserContext(), criterion, repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

const maxListLimit = 100

// Stats reports cache sizes and the number of open searches.
func Stats(cache CacheReader, sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		repos, err := cache.CountRepositories(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		owners, err := cache.CountOwners(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{
			"repositories":    repos,
			"owners":          owners,
			"active_searches": sessions.Len(),
		})
	}
}

// GetRepository returns a cached repository by its numeric ID.
func GetRepository(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return lookup(c, "repository", svc.GetRepositoryByID)
	}
}

// GetOwner returns a cached owner by its numeric ID.
func GetOwner(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return lookup(c, "owner", svc.GetOwnerByID)
	}
}

// lookup resolves one cached row. The observer behind it lives on a request
// scope and stops when the response is written.
func lookup[T any](c *fiber.Ctx, what string, get func(*task.Scope, int64) *task.Future[*live.Value[*T]]) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}

	s := task.NewScope(c.UserContext())
	defer s.Close()

	v, err := get(s, id).Await(c.UserContext())
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	row, _ := v.Get()
	if row == nil {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", what+" not found")
	}
	return c.JSON(row)
}

// DeleteOwners clears the cache. Every open search is invalidated and dropped.
func DeleteOwners(svc service.SearchService, sessions *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := task.NewScope(c.UserContext())
		defer s.Close()

		if _, err := svc.DeleteOwners(s).Await(c.UserContext()); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		closed := sessions.Clear()
		return c.JSON(fiber.Map{"status": "deleted", "closed_searches": closed})
	}
}

type criterionBody struct {
	Criterion string `json:"criterion"`
}

// GetCriterion reports the order used for new searches.
func GetCriterion(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(criterionBody{Criterion: string(svc.Criterion())})
	}
}

// SetCriterion changes the order of searches created afterwards.
func SetCriterion(svc service.SearchService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body criterionBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := svc.SetCriterion(body.Criterion); err != nil {
			if errors.Is(err, model.ErrInvalidCriterion) {
				return writeError(c, fiber.StatusBadRequest, "INVALID_CRITERION", "unknown criterion")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(criterionBody{Criterion: string(svc.Criterion())})
	}
}
