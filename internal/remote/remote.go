// Package remote fetches repository search results from the code hosting platform.
package remote

import (
	"context"
	"errors"
	"time"
)

// ErrSearch wraps every failure of a remote search call.
var ErrSearch = errors.New("remote search failed")

// OwnerRecord is the account embedded in a search hit.
type OwnerRecord struct {
	ID        int64
	Login     string
	AvatarURL string
	HTMLURL   string
	Type      string
}

// RepositoryRecord is one search hit as returned by the remote API.
type RepositoryRecord struct {
	ID          int64
	Name        string
	FullName    string
	Description string
	Language    string
	HTMLURL     string
	Stars       int
	Forks       int
	UpdatedAt   time.Time
	Owner       OwnerRecord
}

// SearchClient runs paged repository searches.
type SearchClient interface {
	// SearchRepositories returns one page of hits for query. Pages are 1-based.
	// An empty result means there are no further pages.
	SearchRepositories(ctx context.Context, query string, page int) ([]RepositoryRecord, error)
}
