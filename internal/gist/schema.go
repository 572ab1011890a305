package gist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
)

// document mirrors the JSON stored in the gist before validation
type document struct {
	Projects  []string   `json:"projects" validate:"required,dive,project"`
	Threshold *threshold `json:"threshold" validate:"omitempty"`
}

type threshold struct {
	PullRequests        *int `json:"pullRequests" validate:"omitempty,min=0"`
	Pulls               *int `json:"pulls" validate:"omitempty,min=0"` // legacy alias of pullRequests
	Issues              *int `json:"issues" validate:"omitempty,min=0"`
	VulnerabilityAlerts *int `json:"vulnerabilityAlerts" validate:"omitempty,min=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("project", func(fl validator.FieldLevel) bool {
		return domain.IsProjectReference(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Parse decodes and validates the content of the config file. Any malformed
// project entry rejects the whole document.
func Parse(content []byte) (*domain.GistConfig, error) {
	var doc document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, apperrors.NewValidationError("config is not valid JSON", err)
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, apperrors.NewValidationError(describe(err), err)
	}

	cfg := &domain.GistConfig{
		Projects: make([]domain.ProjectReference, 0, len(doc.Projects)),
	}
	for _, p := range doc.Projects {
		ref, err := domain.ParseProjectReference(p)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), err)
		}
		cfg.Projects = append(cfg.Projects, ref)
	}

	if doc.Threshold != nil {
		pulls := doc.Threshold.PullRequests
		if pulls == nil {
			pulls = doc.Threshold.Pulls
		}
		cfg.Threshold = &domain.Threshold{
			PullRequests:        pulls,
			Issues:              doc.Threshold.Issues,
			VulnerabilityAlerts: doc.Threshold.VulnerabilityAlerts,
		}
	}

	return cfg, nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "config does not match schema"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "project":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not owner/repo", fe.Namespace(), fe.Value()))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}
