package model

import "fmt"

// FetchState is the coarse state of remote fetching as seen by the consumer.
type FetchState string

const (
	FetchIdle    FetchState = "idle"
	FetchLoading FetchState = "loading"
	FetchSuccess FetchState = "success"
	FetchError   FetchState = "error"
	// FetchDone means the remote source has no more results for the query.
	FetchDone FetchState = "done"
)

// FetchStatus is published by the boundary coordinator after every transition.
// Message is safe to show to clients; Err keeps the cause.
type FetchStatus struct {
	State   FetchState `json:"state"`
	Page    int        `json:"page"`
	Message string     `json:"message,omitempty"`
	Err     error      `json:"-"`
}

// IdleStatus is the status of a coordinator that has not fetched anything yet.
func IdleStatus() FetchStatus {
	return FetchStatus{State: FetchIdle}
}

// ErrorStatus wraps err for publication. The message names the page only;
// err may carry upstream URLs and the query.
func ErrorStatus(page int, err error) FetchStatus {
	return FetchStatus{
		State:   FetchError,
		Page:    page,
		Message: fmt.Sprintf("fetching page %d failed, retry later", page),
		Err:     err,
	}
}
