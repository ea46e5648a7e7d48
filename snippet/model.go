package snippet

import "errors"

// Entry is the stored state of one named snippet.
type Entry struct {
	Source     string `json:"source"`
	Duplicates int    `json:"duplicates"` // forks taken from this name so far
}

// Result is the single value delivered by a Loader future.
type Result struct {
	Name   string
	Source string
	Err    error
}

var ErrFetch = errors.New("snippet fetch failed")
