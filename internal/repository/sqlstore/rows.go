package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"reposearch/internal/model"
)

type ownerRow struct {
	bun.BaseModel `bun:"table:owners,alias:o"`

	ID        int64  `bun:"id,pk"`
	Login     string `bun:"login,notnull"`
	AvatarURL string `bun:"avatar_url,notnull"`
	HTMLURL   string `bun:"html_url,notnull"`
	Type      string `bun:"type,notnull"`
}

type repositoryRow struct {
	bun.BaseModel `bun:"table:repositories,alias:r"`

	ID          int64     `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	FullName    string    `bun:"full_name,notnull"`
	Description string    `bun:"description,notnull"`
	Language    string    `bun:"language,notnull"`
	HTMLURL     string    `bun:"html_url,notnull"`
	Stars       int       `bun:"stars,notnull"`
	Forks       int       `bun:"forks,notnull"`
	OwnerID     int64     `bun:"owner_id,notnull"`
	Rank        int       `bun:"rank,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero"`
}

func ownerRowFrom(o model.Owner) ownerRow {
	return ownerRow{
		ID:        o.ID,
		Login:     o.Login,
		AvatarURL: o.AvatarURL,
		HTMLURL:   o.HTMLURL,
		Type:      o.Type,
	}
}

func (r ownerRow) toModel() model.Owner {
	return model.Owner{
		ID:        r.ID,
		Login:     r.Login,
		AvatarURL: r.AvatarURL,
		HTMLURL:   r.HTMLURL,
		Type:      r.Type,
	}
}

func repositoryRowFrom(r model.Repository) repositoryRow {
	return repositoryRow{
		ID:          r.ID,
		Name:        r.Name,
		FullName:    r.FullName,
		Description: r.Description,
		Language:    r.Language,
		HTMLURL:     r.HTMLURL,
		Stars:       r.Stars,
		Forks:       r.Forks,
		OwnerID:     r.OwnerID,
		Rank:        r.Rank,
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r repositoryRow) toModel() model.Repository {
	out := model.Repository{
		ID:          r.ID,
		Name:        r.Name,
		FullName:    r.FullName,
		Description: r.Description,
		Language:    r.Language,
		HTMLURL:     r.HTMLURL,
		Stars:       r.Stars,
		Forks:       r.Forks,
		OwnerID:     r.OwnerID,
		Rank:        r.Rank,
	}
	if !r.UpdatedAt.IsZero() {
		out.UpdatedAt = r.UpdatedAt.UTC()
	}
	return out
}

var (
	ownerUpdateColumns      = []string{"login", "avatar_url", "html_url", "type"}
	repositoryUpdateColumns = []string{"name", "full_name", "description", "language", "html_url", "stars", "forks", "owner_id", "rank", "updated_at"}
)

// orderings maps each criterion to its ORDER BY terms. Rows without an update
// time sort last on every dialect; id breaks ties so offset paging is stable.
var orderings = map[model.Criterion][]string{
	model.CriterionStars:   {"r.stars DESC", "r.id ASC"},
	model.CriterionForks:   {"r.forks DESC", "r.id ASC"},
	model.CriterionUpdated: {"r.updated_at DESC NULLS LAST", "r.id ASC"},
	model.CriterionName:    {"r.name ASC", "r.id ASC"},
	model.CriterionRank:    {"r.rank ASC", "r.id ASC"},
}

func orderFor(c model.Criterion) []string {
	if o, ok := orderings[c]; ok {
		return o
	}
	return orderings[model.DefaultCriterion]
}
