package boundary

import (
	"reposearch/internal/model"
	"reposearch/internal/remote"
)

// toRows maps one remote page to store rows. Owners and repositories are
// deduplicated by ID keeping the first occurrence, and repositories are ranked
// from base in remote order.
func toRows(records []remote.RepositoryRecord, base int) ([]model.Owner, []model.Repository) {
	owners := make([]model.Owner, 0, len(records))
	repos := make([]model.Repository, 0, len(records))
	seenOwner := make(map[int64]struct{}, len(records))
	seenRepo := make(map[int64]struct{}, len(records))

	for _, r := range records {
		if _, ok := seenOwner[r.Owner.ID]; !ok {
			seenOwner[r.Owner.ID] = struct{}{}
			owners = append(owners, model.Owner{
				ID:        r.Owner.ID,
				Login:     r.Owner.Login,
				AvatarURL: r.Owner.AvatarURL,
				HTMLURL:   r.Owner.HTMLURL,
				Type:      r.Owner.Type,
			})
		}
		if _, ok := seenRepo[r.ID]; ok {
			continue
		}
		seenRepo[r.ID] = struct{}{}
		repos = append(repos, model.Repository{
			ID:          r.ID,
			Name:        r.Name,
			FullName:    r.FullName,
			Description: r.Description,
			Language:    r.Language,
			HTMLURL:     r.HTMLURL,
			Stars:       r.Stars,
			Forks:       r.Forks,
			OwnerID:     r.Owner.ID,
			Rank:        base + len(repos),
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return owners, repos
}
