// Package render draws the dashboard as terminal tables
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
)

const (
	noValue      = "-"
	failedToLoad = "Failed to load"
	noCommits    = "No commits yet..."
)

// Outcome is the settled result of one cell query
type Outcome[T any] struct {
	Value T
	Err   error
}

// Cells holds the lazily loaded columns of one row. A nil field was not
// requested.
type Cells struct {
	Workflow   *Outcome[*domain.WorkflowRun]
	Issues     *Outcome[[]*domain.Issue]
	Pulls      *Outcome[[]*domain.PullRequest]
	LastCommit *Outcome[*domain.LastCommit]
	Alerts     *Outcome[*domain.VulnerabilityAlerts]
}

// Renderer writes tables to w
type Renderer struct {
	w      io.Writer
	styles styles
	now    func() time.Time
}

// New creates a renderer writing to w
func New(w io.Writer) *Renderer {
	return &Renderer{
		w:      w,
		styles: newStyles(lipgloss.NewRenderer(w)),
		now:    time.Now,
	}
}

// Summary writes the headline numbers
func (r *Renderer) Summary(s domain.Summary) {
	oldest := noValue
	if s.OldestUpdate != nil {
		oldest = Ago(*s.OldestUpdate, r.now())
	}

	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Projects", strconv.Itoa(s.Projects)})
	table.Append([]string{"Open Issues", strconv.Itoa(s.OpenIssues)})
	table.Append([]string{"Oldest update", oldest})
	table.Append([]string{"Total Stars", strconv.Itoa(s.TotalStars)})
	table.Append([]string{"Median Stars", strconv.FormatFloat(s.MedianStars, 'f', -1, 64)})
	table.Append([]string{"Total Forks", strconv.Itoa(s.TotalForks)})
	table.Render()
}

// Overview writes one row per repository. cells may be nil or miss entries,
// in which case the lazily loaded columns show "-".
func (r *Renderer) Overview(o *domain.Overview, cells map[domain.ProjectReference]Cells) {
	threshold := o.Threshold
	if threshold == nil {
		threshold = &domain.Threshold{}
	}

	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"Name", "Homepage", "Workflow", "Issues", "Pulls", "Forks", "Stars", "Last Commit", "Alerts"})
	table.SetAutoWrapText(false)

	for _, repo := range o.Repositories {
		c := cells[repo.Ref()]
		table.Append([]string{
			repo.Name,
			homepage(repo.Homepage),
			r.workflowCell(c.Workflow),
			countCell(r, c.Issues, threshold.Issues, func(v []*domain.Issue) int { return len(v) }),
			countCell(r, c.Pulls, threshold.PullRequests, func(v []*domain.PullRequest) int { return len(v) }),
			strconv.Itoa(repo.ForksCount),
			strconv.Itoa(repo.StargazersCount),
			r.lastCommitCell(c.LastCommit),
			countCell(r, c.Alerts, threshold.VulnerabilityAlerts, func(v *domain.VulnerabilityAlerts) int { return v.Open }),
		})
	}
	table.Render()
}

// Config writes the projects and limits of the dashboard config
func (r *Renderer) Config(cfg *domain.GistConfig) {
	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"Project"})
	for _, p := range cfg.Projects {
		table.Append([]string{p.String()})
	}
	table.Render()

	if cfg.Threshold == nil {
		return
	}
	limits := tablewriter.NewWriter(r.w)
	limits.SetHeader([]string{"Threshold", "Limit"})
	limits.Append([]string{"Pull Requests", limit(cfg.Threshold.PullRequests)})
	limits.Append([]string{"Issues", limit(cfg.Threshold.Issues)})
	limits.Append([]string{"Vulnerability Alerts", limit(cfg.Threshold.VulnerabilityAlerts)})
	limits.Render()
}

// Repository writes the metadata of one repository
func (r *Renderer) Repository(s *domain.RepositorySnapshot) {
	pushed := noValue
	if s.PushedAt != nil {
		pushed = Ago(*s.PushedAt, r.now())
	}

	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.Append([]string{"Repository", s.FullName})
	table.Append([]string{"Description", orDash(s.Description)})
	table.Append([]string{"Homepage", homepage(s.Homepage)})
	table.Append([]string{"Language", orDash(s.Language)})
	table.Append([]string{"Default Branch", s.DefaultBranch})
	table.Append([]string{"Stars", strconv.Itoa(s.StargazersCount)})
	table.Append([]string{"Forks", strconv.Itoa(s.ForksCount)})
	table.Append([]string{"Open Issues", strconv.Itoa(s.OpenIssuesCount)})
	table.Append([]string{"Archived", strconv.FormatBool(s.Archived)})
	table.Append([]string{"Updated", Ago(s.UpdatedAt, r.now())})
	table.Append([]string{"Pushed", pushed})
	table.Render()
}

// Issues writes the open issues of a repository
func (r *Renderer) Issues(issues []*domain.Issue) {
	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"#", "Title", "Author", "Opened"})
	table.SetAutoWrapText(false)
	for _, issue := range issues {
		table.Append([]string{
			strconv.Itoa(issue.Number),
			issue.Title,
			issue.Author,
			Ago(issue.Created, r.now()),
		})
	}
	table.Render()
}

// Pulls writes the open pull requests of a repository with their CI state.
// Pull requests missing from states show as unknown.
func (r *Renderer) Pulls(pulls []*domain.PullRequest, states map[int]domain.PullState) {
	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"#", "Title", "Author", "State"})
	table.SetAutoWrapText(false)
	for _, pull := range pulls {
		state, ok := states[pull.Number]
		if !ok {
			state = domain.PullStateUnknown
		}
		table.Append([]string{
			strconv.Itoa(pull.Number),
			pull.Title,
			pull.Author,
			r.styles.pullState(state).Render(string(state)),
		})
	}
	table.Render()
}

func (r *Renderer) workflowCell(o *Outcome[*domain.WorkflowRun]) string {
	switch {
	case o == nil:
		return noValue
	case o.Err != nil:
		return r.styles.muted.Render(failedToLoad)
	}
	conclusion := o.Value.Conclusion
	label := conclusion
	if label == "" {
		label = o.Value.Status
	}
	return r.styles.conclusion(conclusion).Render(label)
}

func (r *Renderer) lastCommitCell(o *Outcome[*domain.LastCommit]) string {
	switch {
	case o == nil:
		return noValue
	case o.Err != nil:
		return r.styles.muted.Render(failedToLoad)
	case o.Value == nil || o.Value.Date == nil:
		return noCommits
	}
	return Ago(*o.Value.Date, r.now())
}

// countCell renders a count, marked with "!" when it is above limit
func countCell[T any](r *Renderer, o *Outcome[T], limit *int, count func(T) int) string {
	switch {
	case o == nil:
		return noValue
	case o.Err != nil:
		return r.styles.muted.Render(failedToLoad)
	}
	n := count(o.Value)
	if domain.Exceeds(limit, n) {
		return r.styles.exceeded.Render(fmt.Sprintf("%d !", n))
	}
	return strconv.Itoa(n)
}

func homepage(url string) string {
	if url == "" {
		return noValue
	}
	return strings.TrimPrefix(url, "https://")
}

func limit(v *int) string {
	if v == nil {
		return noValue
	}
	return strconv.Itoa(*v)
}

func orDash(s string) string {
	if s == "" {
		return noValue
	}
	return s
}
