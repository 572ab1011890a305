package domain

import (
	"fmt"
	"regexp"
)

// projectPattern matches "<owner>/<repo>" with exactly two non-empty segments
var projectPattern = regexp.MustCompile(`^([^/\s]+)/([^/\s]+)$`)

// ProjectReference identifies a repository listed in the dashboard config
type ProjectReference struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// ParseProjectReference parses an "owner/repo" string
func ParseProjectReference(s string) (ProjectReference, error) {
	m := projectPattern.FindStringSubmatch(s)
	if m == nil {
		return ProjectReference{}, fmt.Errorf("invalid project %q: expected owner/repo", s)
	}
	return ProjectReference{Owner: m[1], Repo: m[2]}, nil
}

// IsProjectReference reports whether s is a well-formed "owner/repo" string
func IsProjectReference(s string) bool {
	return projectPattern.MatchString(s)
}

func (p ProjectReference) String() string {
	return p.Owner + "/" + p.Repo
}

// Threshold holds the optional alerting limits of the dashboard config
type Threshold struct {
	PullRequests        *int `json:"pullRequests,omitempty"`
	Issues              *int `json:"issues,omitempty"`
	VulnerabilityAlerts *int `json:"vulnerabilityAlerts,omitempty"`
}

// GistConfig is the validated content of the dashboard config file
type GistConfig struct {
	Projects  []ProjectReference `json:"projects"`
	Threshold *Threshold         `json:"threshold,omitempty"`
}

// Exceeds reports whether value is above limit. A nil limit is never exceeded.
func Exceeds(limit *int, value int) bool {
	return limit != nil && value > *limit
}
