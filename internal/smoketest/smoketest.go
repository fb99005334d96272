// Package smoketest runs minimal post-deployment health checks: HTTP probes
// against the deployed stack and an optional external test executable.
package smoketest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ragstack/ragctl/internal/config"
	"github.com/ragstack/ragctl/internal/logging"
)

// HTTPCheck probes a single URL and passes on a status code inside the
// expected window.
type HTTPCheck struct {
	Name              string
	URL               string
	ExpectedStatusMin int
	ExpectedStatusMax int
	Client            *http.Client
}

func NewHTTPCheck(name, url string) HTTPCheck {
	return HTTPCheck{
		Name:              name,
		URL:               url,
		ExpectedStatusMin: 200,
		ExpectedStatusMax: 399,
		Client:            &http.Client{Timeout: 10 * time.Second},
	}
}

func (c HTTPCheck) Run(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", c.Name, err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", c.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < c.ExpectedStatusMin || resp.StatusCode > c.ExpectedStatusMax {
		return fmt.Errorf("%s: HTTP %d %s (expected %d-%d)",
			c.Name, resp.StatusCode, http.StatusText(resp.StatusCode),
			c.ExpectedStatusMin, c.ExpectedStatusMax)
	}
	return nil
}

// Runner executes the smoke suite for an environment.
type Runner struct {
	env    *config.Environment
	logger *logging.Logger
}

func NewRunner(env *config.Environment, logger *logging.Logger) *Runner {
	return &Runner{env: env, logger: logger}
}

// Run executes HTTP probes (when a base URL is configured) followed by the
// external test executable (when configured). The first failure is returned;
// the caller decides between warning and rollback based on the environment.
func (r *Runner) Run(ctx context.Context) error {
	if r.env.SmokeTest.BaseURL == "" && r.env.SmokeTest.Command == "" {
		r.logger.Info("No smoke tests configured, skipping")
		return nil
	}

	if r.env.SmokeTest.BaseURL != "" {
		base := strings.TrimRight(r.env.SmokeTest.BaseURL, "/")
		for _, target := range r.env.Services {
			check := NewHTTPCheck(target.Name, base+"/"+target.Name+target.ProbePath)
			r.logger.Debug("Probing %s at %s", target.Name, check.URL)
			if err := check.Run(ctx); err != nil {
				return fmt.Errorf("smoke probe failed: %w", err)
			}
		}
	}

	if r.env.SmokeTest.Command != "" {
		r.logger.Info("Running smoke test command: %s %s", r.env.SmokeTest.Command, r.env.Name)
		cmd := exec.CommandContext(ctx, r.env.SmokeTest.Command, r.env.Name)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("smoke test command %s failed: %w", r.env.SmokeTest.Command, err)
		}
	}
	return nil
}
