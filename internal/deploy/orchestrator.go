// Package deploy implements the deployment pipeline for a RAG stack
// environment: prerequisite checks, image build and publish, secret
// materialization, backup, manifest apply, readiness polling, smoke tests,
// and rollback on post-deploy validation failure in production.
package deploy

import (
	"context"
	"fmt"
	"time"

	"k8s.io/client-go/kubernetes"

	"github.com/ragstack/ragctl/internal/config"
	"github.com/ragstack/ragctl/internal/constants"
	"github.com/ragstack/ragctl/internal/docker"
	"github.com/ragstack/ragctl/internal/logging"
	"github.com/ragstack/ragctl/internal/pipeline"
	"github.com/ragstack/ragctl/internal/store"
)

// ImagePublisher builds and pushes images. Satisfied by docker.Publisher.
type ImagePublisher interface {
	Build(ctx context.Context, imageRef string, source docker.BuildSource) error
	Push(ctx context.Context, imageRef string, auth docker.RegistryAuth) error
}

// RecordStore is the record persistence the orchestrator needs, satisfied by
// *store.Store.
type RecordStore interface {
	SaveRecord(record store.Record) error
	LatestSuccessful(environment, service string) (store.Record, error)
	LatestBefore(environment, service, failingVersion string) (store.Record, error)
	Prune(environment string, keep int) error
}

// SmokeRunner executes post-deployment validation.
type SmokeRunner interface {
	Run(ctx context.Context) error
}

// Orchestrator runs the deployment pipeline for exactly one environment.
// One instance per invocation; it is not safe for concurrent use.
type Orchestrator struct {
	env    *config.Environment
	logger *logging.Logger

	kube      kubernetes.Interface
	publisher ImagePublisher
	records   RecordStore
	smoke     SmokeRunner

	pollInterval time.Duration
	version      string
	runID        string
}

type Option func(*Orchestrator)

// WithKubeClient injects a pre-built clientset, bypassing kubeconfig loading.
func WithKubeClient(client kubernetes.Interface) Option {
	return func(o *Orchestrator) { o.kube = client }
}

// WithPublisher injects the image build/push backend.
func WithPublisher(publisher ImagePublisher) Option {
	return func(o *Orchestrator) { o.publisher = publisher }
}

// WithSmokeRunner replaces the default smoke suite.
func WithSmokeRunner(runner SmokeRunner) Option {
	return func(o *Orchestrator) { o.smoke = runner }
}

// WithPollInterval overrides the readiness poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(o *Orchestrator) { o.pollInterval = interval }
}

// WithVersion pins the version identifier instead of deriving it from git.
func WithVersion(version string) Option {
	return func(o *Orchestrator) { o.version = version }
}

func New(env *config.Environment, records RecordStore, logger *logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		env:          env,
		records:      records,
		logger:       logger,
		pollInterval: constants.ReadinessPollInterval,
		runID:        NewRunID(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunID identifies this pipeline run in logs and records.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run executes the full deployment pipeline. The returned result carries the
// terminal outcome; warnings do not fail the run.
func (o *Orchestrator) Run(ctx context.Context) pipeline.Result {
	if o.version == "" {
		o.version = ResolveVersion(ctx)
	}
	o.logger.Info("Deploying environment %s (version %s, run %s)", o.env.Name, o.version, o.runID)

	steps := []pipeline.Step{
		{Name: "validate prerequisites", Policy: pipeline.Fatal, Run: o.validatePrerequisites},
		{Name: "ensure namespace", Policy: pipeline.Fatal, Run: o.ensureNamespace},
		{Name: "build and publish images", Policy: pipeline.Fatal, Run: o.buildAndPublishImages},
		{Name: "materialize secrets", Policy: pipeline.Fatal, Run: o.materializeSecrets},
	}
	if o.env.Production {
		// Backups are best-effort: they must never block a deploy.
		steps = append(steps, pipeline.Step{Name: "create backup", Policy: pipeline.WarnOnly, Run: o.createBackup})
	}
	steps = append(steps,
		pipeline.Step{Name: "apply manifests", Policy: pipeline.Fatal, Run: o.applyManifests},
		pipeline.Step{Name: "await readiness", Policy: pipeline.Fatal, Run: o.awaitReadiness},
		pipeline.Step{Name: "verify services", Policy: pipeline.Fatal, Run: o.verifyServices},
	)
	if o.env.Production {
		steps = append(steps, pipeline.Step{Name: "run smoke tests", Policy: pipeline.Fatal, Run: o.runSmokeTestsWithRollback})
	} else {
		steps = append(steps, pipeline.Step{Name: "run smoke tests", Policy: pipeline.WarnOnly, Run: o.runSmokeTests})
	}
	steps = append(steps, pipeline.Step{Name: "record deployment", Policy: pipeline.WarnOnly, Run: o.recordDeployment})

	result := pipeline.New(o.logger, steps...).WithCleanup(o.cleanup).Run(ctx)

	switch result.Outcome {
	case pipeline.Succeeded:
		o.logger.Success("Environment %s deployed at version %s", o.env.Name, o.version)
	case pipeline.SucceededWithWarnings:
		o.logger.Success("Environment %s deployed at version %s with %d warning(s)",
			o.env.Name, o.version, len(result.Warnings))
	case pipeline.Failed:
		o.logger.Error(fmt.Sprintf("Deployment of %s failed at step %q", o.env.Name, result.FailedStep), result.Err)
	}
	return result
}

// cleanup runs after a fatal step failure or cancellation. External
// mutations stay in place deliberately: a half-applied rollout is
// observable state an operator may need to inspect.
func (o *Orchestrator) cleanup(_ context.Context, cause error) {
	o.logger.Warn(fmt.Sprintf("Aborting pipeline for %s", o.env.Name), cause)
}
