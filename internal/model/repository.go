package model

import "time"

// Repository is a cached code repository as rendered by the consumer.
// It references its owner by ID; owners are stored separately and shared.
type Repository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	HTMLURL     string    `json:"html_url"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	OwnerID     int64     `json:"owner_id"`
	Rank        int       `json:"rank"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Owner is the account a repository belongs to.
type Owner struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Type      string `json:"type"`
}
