package domain

import "time"

// PullState represents the combined CI state of a pull request as shown in the UI
type PullState string

const (
	PullStateSuccess PullState = "success"
	PullStatePending PullState = "pending"
	PullStateError   PullState = "error"
	PullStateUnknown PullState = "unknown"
)

// PullStateFromCombined maps an upstream combined-status value to a PullState
func PullStateFromCombined(state string) PullState {
	switch state {
	case "success":
		return PullStateSuccess
	case "pending":
		return PullStatePending
	case "failure":
		return PullStateError
	default:
		return PullStateUnknown
	}
}

// QueryState represents the lifecycle of a per-cell status query
type QueryState string

const (
	QueryStateLoading QueryState = "loading"
	QueryStateError   QueryState = "error"
	QueryStateSuccess QueryState = "success"
)

// WorkflowRun represents the latest CI run on a branch
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	HeadBranch string    `json:"head_branch"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	HTMLURL    string    `json:"html_url"`
	RunNumber  int       `json:"run_number"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PullRequest represents an open pull request
type PullRequest struct {
	ID      int64     `json:"id"`
	Number  int       `json:"number"`
	Title   string    `json:"title"`
	HTMLURL string    `json:"html_url"`
	Author  string    `json:"author"`
	Draft   bool      `json:"draft"`
	Created time.Time `json:"created_at"`
}

// Issue represents an open issue that is not a pull request
type Issue struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	HTMLURL   string    `json:"html_url"`
	Author    string    `json:"author"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Created   time.Time `json:"created_at"`

	// IsPullRequest is set for entries of the issues endpoint that are pull requests
	IsPullRequest bool `json:"-"`
}

// PullStatus is the resolved CI state of one pull request
type PullStatus struct {
	Number int       `json:"number"`
	State  PullState `json:"state"`
}

// LastCommit holds the date of the newest commit on the default branch.
// Date is nil when the repository has no commits yet.
type LastCommit struct {
	SHA  string     `json:"sha,omitempty"`
	Date *time.Time `json:"date,omitempty"`
}

// VulnerabilityAlerts holds the number of open Dependabot alerts
type VulnerabilityAlerts struct {
	Open int `json:"open"`
}

// Workflow represents a GitHub Actions workflow definition
type Workflow struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state"`
}
