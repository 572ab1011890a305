package gist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-project-dashboard/internal/collector/collectortest"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
	"github.com/kurihiro0119/github-project-dashboard/internal/logging"
)

const testFilename = "oss-projects.json"

func strPtr(s string) *string { return &s }

func TestResolver_Resolve(t *testing.T) {
	listed := []*domain.Gist{
		{ID: "other", Files: map[string]domain.GistFile{"notes.md": {Filename: "notes.md"}}},
		{ID: "cfg", Files: map[string]domain.GistFile{testFilename: {Filename: testFilename}}},
	}

	testCases := []struct {
		name      string
		gists     []*domain.Gist
		listErr   error
		full      *domain.Gist
		checkErr  func(error) bool
		expectGet bool
		expected  *domain.GistConfig
	}{
		{
			name:      "happy path",
			gists:     listed,
			expectGet: true,
			full: &domain.Gist{ID: "cfg", Files: map[string]domain.GistFile{
				testFilename: {Filename: testFilename, Content: strPtr(`{"projects":["acme/widget"],"threshold":{}}`)},
			}},
			expected: &domain.GistConfig{
				Projects:  []domain.ProjectReference{{Owner: "acme", Repo: "widget"}},
				Threshold: &domain.Threshold{},
			},
		},
		{
			name:     "no gist has the file",
			gists:    listed[:1],
			checkErr: apperrors.IsNotFound,
		},
		{
			name:      "fetched gist lacks the file",
			gists:     listed,
			expectGet: true,
			full:      &domain.Gist{ID: "cfg", Files: map[string]domain.GistFile{}},
			checkErr:  apperrors.IsNotFound,
		},
		{
			name:      "file has no content",
			gists:     listed,
			expectGet: true,
			full: &domain.Gist{ID: "cfg", Files: map[string]domain.GistFile{
				testFilename: {Filename: testFilename, Content: strPtr("")},
			}},
			checkErr: apperrors.IsEmptyContent,
		},
		{
			name:      "content fails schema",
			gists:     listed,
			expectGet: true,
			full: &domain.Gist{ID: "cfg", Files: map[string]domain.GistFile{
				testFilename: {Filename: testFilename, Content: strPtr(`{"projects":["not-a-project"]}`)},
			}},
			checkErr: apperrors.IsValidation,
		},
		{
			name:     "listing fails upstream",
			listErr:  apperrors.NewUpstreamError("failed to list gists", errors.New("boom")),
			checkErr: apperrors.IsUpstream,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := new(collectortest.MockCollector)
			if tc.listErr != nil {
				m.On("ListGists", mock.Anything).Return(nil, tc.listErr)
			} else {
				m.On("ListGists", mock.Anything).Return(tc.gists, nil)
			}
			if tc.expectGet {
				m.On("GetGist", mock.Anything, "cfg").Return(tc.full, nil)
			}

			resolver := NewResolver(m.Factory(), testFilename, logging.Discard())
			cfg, err := resolver.Resolve(context.Background(), "token")

			if tc.checkErr != nil {
				require.Error(t, err)
				assert.True(t, tc.checkErr(err), "unexpected error: %v", err)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, cfg)
			}
			m.AssertExpectations(t)
			// The config resolver never reaches repository endpoints.
			m.AssertNotCalled(t, "GetRepository", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
