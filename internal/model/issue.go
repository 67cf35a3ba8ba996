// Package model contains domain types for the stalebot application.
// These types are independent of any external GitHub library.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Repository identifies a GitHub repository by owner and name.
type Repository struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ParseRepository parses an "owner/name" string.
func ParseRepository(fullName string) (Repository, error) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("invalid repository %q (expected owner/name)", fullName)
	}
	return Repository{Owner: parts[0], Name: parts[1]}, nil
}

// FullName returns the repository in owner/name form.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r Repository) String() string {
	return r.FullName()
}

// Issue is an open issue as returned by the issues listing. The listing
// also returns pull requests; IsPullRequest marks those.
type Issue struct {
	Number        int       `json:"number"`
	Title         string    `json:"title"`
	HTMLURL       string    `json:"htmlUrl,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
	IsPullRequest bool      `json:"isPullRequest,omitempty"`
}

// Key returns the decimal string used for exclusion set membership.
func (i Issue) Key() string {
	return strconv.Itoa(i.Number)
}
