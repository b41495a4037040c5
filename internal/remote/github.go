package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v82/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"reposearch/internal/config"
)

const (
	defaultPerPage = 50
	maxPerPage     = 100

	// searchCap is how many hits GitHub serves for one query, whatever the total.
	searchCap = 1000
)

// GitHub implements SearchClient on the GitHub REST search API.
type GitHub struct {
	client  *github.Client
	perPage int
	sort    string
	order   string
}

var _ SearchClient = (*GitHub)(nil)

// NewGitHub builds a client from cfg. An empty token searches anonymously,
// which GitHub rate limits far more aggressively.
func NewGitHub(cfg config.GitHubConfig) (*GitHub, error) {
	var rt http.RoundTripper = otelhttp.NewTransport(http.DefaultTransport)
	if cfg.Token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   rt,
		}
	}
	hc := &http.Client{Transport: rt}
	if cfg.TimeoutSec > 0 {
		hc.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	client := github.NewClient(hc)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	return &GitHub{
		client:  client,
		perPage: perPage,
		sort:    cfg.Sort,
		order:   cfg.Order,
	}, nil
}

// SearchRepositories calls GET /search/repositories for one page. Pages past
// the search cap are reported empty rather than failed.
func (g *GitHub) SearchRepositories(ctx context.Context, query string, page int) ([]RepositoryRecord, error) {
	if g.pastCap(page) {
		return []RepositoryRecord{}, nil
	}

	opts := &github.SearchOptions{
		Sort:  g.sort,
		Order: g.order,
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: g.perPage,
		},
	}

	result, _, err := g.client.Search.Repositories(ctx, query, opts)
	if err != nil {
		var ge *github.ErrorResponse
		if errors.As(err, &ge) && ge.Response != nil &&
			ge.Response.StatusCode == http.StatusUnprocessableEntity && page*g.perPage > searchCap {
			return []RepositoryRecord{}, nil
		}
		return nil, fmt.Errorf("%w: query %q page %d: %w", ErrSearch, query, page, err)
	}

	records := make([]RepositoryRecord, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		if r == nil {
			continue
		}
		records = append(records, recordFrom(r))
	}
	return records, nil
}

// pastCap reports whether page starts beyond the hits GitHub will serve.
func (g *GitHub) pastCap(page int) bool {
	return (page-1)*g.perPage >= searchCap
}

func recordFrom(r *github.Repository) RepositoryRecord {
	o := r.GetOwner()
	return RepositoryRecord{
		ID:          r.GetID(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		HTMLURL:     r.GetHTMLURL(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		UpdatedAt:   r.GetUpdatedAt().Time,
		Owner: OwnerRecord{
			ID:        o.GetID(),
			Login:     o.GetLogin(),
			AvatarURL: o.GetAvatarURL(),
			HTMLURL:   o.GetHTMLURL(),
			Type:      o.GetType(),
		},
	}
}
