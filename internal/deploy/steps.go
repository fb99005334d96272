package deploy

import (
	"context"
	"fmt"

	"github.com/ragstack/ragctl/internal/backup"
	"github.com/ragstack/ragctl/internal/docker"
	"github.com/ragstack/ragctl/internal/kube"
	"github.com/ragstack/ragctl/internal/secrets"
	"github.com/ragstack/ragctl/internal/smoketest"
	"github.com/ragstack/ragctl/internal/store"
)

// validatePrerequisites confirms every external tool binding the pipeline
// needs is reachable before any mutation happens. Collaborators injected via
// options are taken as already verified.
func (o *Orchestrator) validatePrerequisites(ctx context.Context) error {
	if o.publisher == nil {
		if o.buildableTargets() > 0 {
			publisher, err := docker.NewPublisher(ctx)
			if err != nil {
				return fmt.Errorf("container runtime unavailable: %w", err)
			}
			o.publisher = publisher
		} else {
			o.logger.Debug("No buildable service targets, skipping container runtime check")
		}
	}

	if o.kube == nil {
		client, err := kube.NewClient(o.env.Kubeconfig)
		if err != nil {
			return fmt.Errorf("cluster client unavailable: %w", err)
		}
		if _, err := client.Discovery().ServerVersion(); err != nil {
			return fmt.Errorf("cluster API unreachable: %w", err)
		}
		o.kube = client
	}

	if o.records == nil {
		return fmt.Errorf("deployment record store is not configured")
	}

	if o.smoke == nil {
		o.smoke = smoketest.NewRunner(o.env, o.logger)
	}
	return nil
}

func (o *Orchestrator) buildableTargets() int {
	n := 0
	for _, target := range o.env.Services {
		if target.Buildable() {
			n++
		}
	}
	return n
}

// ensureNamespace is idempotent: an existing namespace is only a warning.
func (o *Orchestrator) ensureNamespace(ctx context.Context) error {
	created, err := kube.EnsureNamespace(ctx, o.kube, o.env.Namespace)
	if err != nil {
		return err
	}
	if created {
		o.logger.Info("Namespace %s created", o.env.Namespace)
	} else {
		o.logger.Warn(fmt.Sprintf("Namespace %s already exists", o.env.Namespace))
	}
	return nil
}

// buildAndPublishImages builds and pushes an image per buildable target,
// tagged with the resolved version identifier.
func (o *Orchestrator) buildAndPublishImages(ctx context.Context) error {
	auth := docker.RegistryAuth{
		ServerAddress: o.env.Registry.URL,
		Username:      o.env.Registry.Username,
		Password:      o.env.Registry.Password,
	}

	for _, target := range o.env.Services {
		if !target.Buildable() {
			o.logger.Debug("Service %s uses a pinned image, skipping build", target.Name)
			continue
		}
		imageRef := target.ImageRef(o.env.Registry.URL, o.version)

		o.logger.Info("Building image %s", imageRef)
		source := docker.BuildSource{
			Context:    target.BuildContext,
			Dockerfile: target.Dockerfile,
			BuildArgs:  target.Env,
		}
		if err := o.publisher.Build(ctx, imageRef, source); err != nil {
			return err
		}

		o.logger.Info("Pushing image %s", imageRef)
		if err := o.publisher.Push(ctx, imageRef, auth); err != nil {
			return err
		}
	}
	return nil
}

// materializeSecrets reads the local secret source and applies it to the
// cluster as one Secret with create-or-update semantics, never partially.
func (o *Orchestrator) materializeSecrets(ctx context.Context) error {
	values, err := secrets.ReadSecretsFile(o.env.SecretsFile)
	if err != nil {
		return err
	}
	data := make(map[string][]byte, len(values))
	for key, value := range values {
		data[key] = []byte(value)
	}
	if err := kube.ApplySecret(ctx, o.kube, o.env.Namespace, o.env.SecretName, data); err != nil {
		return err
	}
	o.logger.Info("Secret %s applied with %d key(s)", o.env.SecretName, len(data))
	return nil
}

func (o *Orchestrator) createBackup(ctx context.Context) error {
	archivePath, err := backup.Create(ctx, o.kube, o.env)
	if err != nil {
		return err
	}
	o.logger.Info("Backup written to %s", archivePath)
	return nil
}

// applyManifests renders and applies the Deployment and Service objects per
// target with the resolved version substituted into the image reference.
func (o *Orchestrator) applyManifests(ctx context.Context) error {
	for _, target := range o.env.Services {
		imageRef := target.ResolvedImageRef(o.env.Registry.URL, o.version)
		deployment := kube.NewDeployment(target, imageRef, o.version, o.env.SecretName)
		if err := kube.ApplyDeployment(ctx, o.kube, o.env.Namespace, deployment); err != nil {
			return err
		}
		if err := kube.ApplyService(ctx, o.kube, o.env.Namespace, kube.NewService(target)); err != nil {
			return err
		}
		o.logger.Info("Applied manifests for %s (%s)", target.Name, imageRef)
	}
	return nil
}

// awaitReadiness polls rollout status per target, bounded by each target's
// readiness budget.
func (o *Orchestrator) awaitReadiness(ctx context.Context) error {
	for _, target := range o.env.Services {
		o.logger.Info("Waiting for %s rollout (budget %s)", target.Name, target.ReadinessTimeout)
		if err := kube.AwaitRollout(ctx, o.kube, o.env.Namespace, target.Name, target.ReadinessTimeout, o.pollInterval); err != nil {
			return err
		}
		o.logger.Info("Service %s is ready", target.Name)
	}
	return nil
}

// verifyServices confirms every expected Service object exists after apply,
// including external dependencies like the vector database.
func (o *Orchestrator) verifyServices(ctx context.Context) error {
	expected := make([]string, 0, len(o.env.Services)+len(o.env.ExternalServices))
	for _, target := range o.env.Services {
		expected = append(expected, target.Name)
	}
	expected = append(expected, o.env.ExternalServices...)

	for _, name := range expected {
		exists, err := kube.ServiceExists(ctx, o.kube, o.env.Namespace, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("expected service %s not found in namespace %s", name, o.env.Namespace)
		}
	}
	o.logger.Info("All %d expected services present", len(expected))
	return nil
}

// runSmokeTests is the non-production variant: a failure is only a warning.
func (o *Orchestrator) runSmokeTests(ctx context.Context) error {
	return o.smoke.Run(ctx)
}

// runSmokeTestsWithRollback is the production variant: a failure triggers an
// automated rollback, and the step fails fatally either way.
func (o *Orchestrator) runSmokeTestsWithRollback(ctx context.Context) error {
	err := o.smoke.Run(ctx)
	if err == nil {
		return nil
	}

	o.logger.Error("Smoke tests failed in production, rolling back", err)
	if rollbackErr := o.performRollback(ctx, o.version); rollbackErr != nil {
		return &DoubleFaultError{Trigger: err, Cause: rollbackErr}
	}
	return &RolledBackError{Trigger: err}
}

// recordDeployment persists the known-good record per target. Failure to
// write history must not fail an otherwise successful deployment.
func (o *Orchestrator) recordDeployment(_ context.Context) error {
	for _, target := range o.env.Services {
		record := store.Record{
			ID:          o.runID,
			Environment: o.env.Name,
			Service:     target.Name,
			ImageRef:    target.ResolvedImageRef(o.env.Registry.URL, o.version),
			Version:     o.version,
		}
		if err := o.records.SaveRecord(record); err != nil {
			return err
		}
	}
	if err := o.records.Prune(o.env.Name, o.env.RecordsToKeep); err != nil {
		return fmt.Errorf("failed to prune old deployment records: %w", err)
	}
	return nil
}
