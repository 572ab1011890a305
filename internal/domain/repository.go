package domain

import "time"

// RepositorySnapshot represents the metadata of one repository at page render time
type RepositorySnapshot struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Owner           string     `json:"owner"`
	Description     string     `json:"description,omitempty"`
	HTMLURL         string     `json:"html_url"`
	Homepage        string     `json:"homepage,omitempty"`
	Language        string     `json:"language,omitempty"`
	DefaultBranch   string     `json:"default_branch"`
	StargazersCount int        `json:"stargazers_count"`
	ForksCount      int        `json:"forks_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	Archived        bool       `json:"archived"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	PushedAt        *time.Time `json:"pushed_at,omitempty"`
}

// Ref returns the project reference of the snapshot
func (r *RepositorySnapshot) Ref() ProjectReference {
	return ProjectReference{Owner: r.Owner, Repo: r.Name}
}

// Summary represents the headline numbers shown above the overview table
type Summary struct {
	Projects     int        `json:"projects"`
	OpenIssues   int        `json:"open_issues"`
	TotalStars   int        `json:"total_stars"`
	TotalForks   int        `json:"total_forks"`
	MedianStars  float64    `json:"median_stars"`
	OldestUpdate *time.Time `json:"oldest_update,omitempty"`
}

// User represents the authenticated GitHub account
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Overview is the dashboard page payload: every configured repository in
// config order, the headline summary and the alerting limits
type Overview struct {
	Repositories []*RepositorySnapshot `json:"data"`
	Summary      Summary               `json:"summary"`
	Threshold    *Threshold            `json:"threshold,omitempty"`
}
