package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/github-project-dashboard/internal/aggregator"
	"github.com/kurihiro0119/github-project-dashboard/internal/collector"
	"github.com/kurihiro0119/github-project-dashboard/internal/config"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	"github.com/kurihiro0119/github-project-dashboard/internal/gist"
	"github.com/kurihiro0119/github-project-dashboard/internal/logging"
	"github.com/kurihiro0119/github-project-dashboard/internal/render"
	"github.com/kurihiro0119/github-project-dashboard/internal/status"
	"github.com/kurihiro0119/github-project-dashboard/pkg/client"
)

// maxCellQueries bounds the concurrent cell queries of one overview
const maxCellQueries = 8

var (
	outputJSON bool
	remote     bool
	apiURL     string
	withCells  bool
	branch     string
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "GitHub project dashboard",
	Long: `A CLI for the GitHub project dashboard.

The project list is read from a JSON file in one of your Gists. Each project
is shown with its CI status, open issues and pull requests, stars, forks and
last commit. GitHub is queried directly with GITHUB_TOKEN, or through a running
dashboard server with --remote.`,
	SilenceUsage: true,
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show every configured project",
	Args:  cobra.NoArgs,
	RunE:  runOverview,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the dashboard config stored in your Gist",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var repoCmd = &cobra.Command{
	Use:   "repo [owner/repo]",
	Short: "Show the metadata of one repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepo,
}

var cellsCmd = &cobra.Command{
	Use:   "cells [owner/repo]",
	Short: "Show the open issues and pull requests of one repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runCells,
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the GitHub account behind the token",
	Args:  cobra.NoArgs,
	RunE:  runMe,
}

var serveCheckCmd = &cobra.Command{
	Use:   "serve-check",
	Short: "Check that a dashboard server is healthy",
	Args:  cobra.NoArgs,
	RunE:  runServeCheck,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&remote, "remote", false, "read through a dashboard server instead of GitHub")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "dashboard server URL (default is API_ENDPOINT)")

	overviewCmd.Flags().BoolVar(&withCells, "cells", false, "also load workflow, issues, pulls, last commit and alerts")
	cellsCmd.Flags().StringVar(&branch, "branch", "", "branch for the workflow run (default is the repository default branch)")

	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(cellsCmd)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(serveCheckCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.SetupLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, logger, nil
}

func newSource() (source, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if remote {
		return &remoteSource{client: client.NewClient(endpoint(cfg), cfg.GitHubToken)}, nil
	}

	if err := cfg.ValidateCLI(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	factory, err := collector.NewFactory(cfg.GitHubAPIURL, logger)
	if err != nil {
		return nil, err
	}
	resolver := gist.NewResolver(factory, cfg.GistName, logger)

	return &localSource{
		token:      cfg.GitHubToken,
		collectors: factory,
		config:     resolver,
		agg:        aggregator.NewAggregator(factory, resolver, logger),
		resolver:   status.NewResolver(factory, cfg.WorkflowName, logger),
		cache:      status.NewCache(),
	}, nil
}

func endpoint(cfg *config.Config) string {
	if apiURL != "" {
		return apiURL
	}
	return cfg.APIEndpoint
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runOverview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src, err := newSource()
	if err != nil {
		return err
	}

	overview, err := src.Overview(ctx)
	if err != nil {
		return fmt.Errorf("failed to load overview: %w", err)
	}

	var cells map[domain.ProjectReference]render.Cells
	if withCells {
		cells = loadCells(ctx, src, overview.Repositories)
	}

	if outputJSON {
		return printJSON(overview)
	}

	r := render.New(os.Stdout)
	r.Summary(overview.Summary)
	fmt.Println()
	r.Overview(overview, cells)
	return nil
}

// loadCells queries the lazily loaded columns of every row. A failed cell is
// shown as failed and does not affect the others.
func loadCells(ctx context.Context, src source, repos []*domain.RepositorySnapshot) map[domain.ProjectReference]render.Cells {
	var mu sync.Mutex
	cells := make(map[domain.ProjectReference]render.Cells, len(repos))
	update := func(ref domain.ProjectReference, fn func(*render.Cells)) {
		mu.Lock()
		defer mu.Unlock()
		c := cells[ref]
		fn(&c)
		cells[ref] = c
	}

	var g errgroup.Group
	g.SetLimit(maxCellQueries)
	for _, repo := range repos {
		ref, defaultBranch := repo.Ref(), repo.DefaultBranch

		g.Go(func() error {
			run, err := src.Workflow(ctx, ref, defaultBranch)
			update(ref, func(c *render.Cells) { c.Workflow = &render.Outcome[*domain.WorkflowRun]{Value: run, Err: err} })
			return nil
		})
		g.Go(func() error {
			issues, err := src.Issues(ctx, ref)
			update(ref, func(c *render.Cells) { c.Issues = &render.Outcome[[]*domain.Issue]{Value: issues, Err: err} })
			return nil
		})
		g.Go(func() error {
			pulls, err := src.Pulls(ctx, ref)
			update(ref, func(c *render.Cells) { c.Pulls = &render.Outcome[[]*domain.PullRequest]{Value: pulls, Err: err} })
			return nil
		})
		g.Go(func() error {
			commit, err := src.LastCommit(ctx, ref)
			update(ref, func(c *render.Cells) { c.LastCommit = &render.Outcome[*domain.LastCommit]{Value: commit, Err: err} })
			return nil
		})
		g.Go(func() error {
			alerts, err := src.VulnerabilityAlerts(ctx, ref)
			update(ref, func(c *render.Cells) { c.Alerts = &render.Outcome[*domain.VulnerabilityAlerts]{Value: alerts, Err: err} })
			return nil
		})
	}
	_ = g.Wait()
	return cells
}

func runConfig(cmd *cobra.Command, args []string) error {
	src, err := newSource()
	if err != nil {
		return err
	}

	cfg, err := src.Config(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load dashboard config: %w", err)
	}

	if outputJSON {
		return printJSON(cfg)
	}
	render.New(os.Stdout).Config(cfg)
	return nil
}

func runRepo(cmd *cobra.Command, args []string) error {
	ref, err := domain.ParseProjectReference(args[0])
	if err != nil {
		return err
	}
	src, err := newSource()
	if err != nil {
		return err
	}

	snapshot, err := src.Repository(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("failed to get repository: %w", err)
	}

	if outputJSON {
		return printJSON(snapshot)
	}
	render.New(os.Stdout).Repository(snapshot)
	return nil
}

func runCells(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ref, err := domain.ParseProjectReference(args[0])
	if err != nil {
		return err
	}
	src, err := newSource()
	if err != nil {
		return err
	}

	if branch == "" {
		snapshot, err := src.Repository(ctx, ref)
		if err != nil {
			return fmt.Errorf("failed to get repository: %w", err)
		}
		branch = snapshot.DefaultBranch
	}

	var (
		run    *domain.WorkflowRun
		runErr error
		issues []*domain.Issue
		pulls  []*domain.PullRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		run, runErr = src.Workflow(gctx, ref, branch)
		return nil
	})
	g.Go(func() error {
		var err error
		issues, err = src.Issues(gctx, ref)
		return err
	})
	g.Go(func() error {
		var err error
		pulls, err = src.Pulls(gctx, ref)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load cells: %w", err)
	}

	states := make(map[int]domain.PullState, len(pulls))
	var mu sync.Mutex
	sg, sctx := errgroup.WithContext(ctx)
	sg.SetLimit(maxCellQueries)
	for _, pull := range pulls {
		number := pull.Number
		sg.Go(func() error {
			ps, err := src.PullStatus(sctx, ref, number)
			if err != nil {
				return nil
			}
			mu.Lock()
			states[number] = ps.State
			mu.Unlock()
			return nil
		})
	}
	_ = sg.Wait()

	if outputJSON {
		return printJSON(map[string]any{
			"workflow":    run,
			"issues":      issues,
			"pulls":       pulls,
			"pull_states": states,
		})
	}

	fmt.Printf("\n%s on %s\n", ref, branch)
	if runErr != nil {
		fmt.Printf("Workflow: %v\n\n", runErr)
	} else {
		conclusion := run.Conclusion
		if conclusion == "" {
			conclusion = run.Status
		}
		fmt.Printf("Workflow: %s (%s)\n\n", conclusion, run.HTMLURL)
	}

	r := render.New(os.Stdout)
	fmt.Printf("Open issues: %d\n", len(issues))
	r.Issues(issues)
	fmt.Printf("\nOpen pull requests: %d\n", len(pulls))
	r.Pulls(pulls, states)
	return nil
}

func runMe(cmd *cobra.Command, args []string) error {
	src, err := newSource()
	if err != nil {
		return err
	}

	user, err := src.Me(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if outputJSON {
		return printJSON(user)
	}
	if user.Name != "" {
		fmt.Printf("Logged in as %s (%s)\n", user.Login, user.Name)
	} else {
		fmt.Printf("Logged in as %s\n", user.Login)
	}
	return nil
}

func runServeCheck(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	url := endpoint(cfg)
	if err := client.NewClient(url, "").HealthCheck(cmd.Context()); err != nil {
		return fmt.Errorf("server at %s is not healthy: %w", url, err)
	}
	fmt.Printf("Server at %s is healthy\n", url)
	return nil
}
