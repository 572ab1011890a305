package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
)

var (
	colorSuccess = lipgloss.Color("46")  // green
	colorPending = lipgloss.Color("220") // yellow
	colorError   = lipgloss.Color("196") // red
	colorMuted   = lipgloss.Color("240") // gray
)

type styles struct {
	exceeded lipgloss.Style
	success  lipgloss.Style
	pending  lipgloss.Style
	failure  lipgloss.Style
	muted    lipgloss.Style
}

// newStyles binds the styles to r so colour is only emitted when the output
// supports it
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		exceeded: r.NewStyle().Bold(true).Foreground(colorError),
		success:  r.NewStyle().Foreground(colorSuccess),
		pending:  r.NewStyle().Foreground(colorPending),
		failure:  r.NewStyle().Foreground(colorError),
		muted:    r.NewStyle().Foreground(colorMuted),
	}
}

func (s styles) pullState(state domain.PullState) lipgloss.Style {
	switch state {
	case domain.PullStateSuccess:
		return s.success
	case domain.PullStatePending:
		return s.pending
	case domain.PullStateError:
		return s.failure
	default:
		return s.muted
	}
}

func (s styles) conclusion(conclusion string) lipgloss.Style {
	switch conclusion {
	case "success":
		return s.success
	case "failure", "timed_out", "startup_failure":
		return s.failure
	case "":
		return s.pending
	default:
		return s.muted
	}
}
