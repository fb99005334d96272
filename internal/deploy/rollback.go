package deploy

import (
	"context"
	"fmt"

	"github.com/ragstack/ragctl/internal/kube"
	"github.com/ragstack/ragctl/internal/store"
)

// performRollback restores every service target to its last known-good
// record distinct from failingVersion, then re-verifies readiness with the
// same per-target budgets. All records are resolved before any mutation so a
// missing record never leaves a half-rolled-back namespace behind.
func (o *Orchestrator) performRollback(ctx context.Context, failingVersion string) error {
	type rollbackTarget struct {
		service string
		record  store.Record
	}

	targets := make([]rollbackTarget, 0, len(o.env.Services))
	for _, target := range o.env.Services {
		record, err := o.records.LatestBefore(o.env.Name, target.Name, failingVersion)
		if err != nil {
			return fmt.Errorf("cannot roll back %s: %w", target.Name, err)
		}
		targets = append(targets, rollbackTarget{service: target.Name, record: record})
	}

	for _, rt := range targets {
		o.logger.Info("Rolling back %s to %s", rt.service, rt.record.ImageRef)
		if err := kube.SetImage(ctx, o.kube, o.env.Namespace, rt.service, rt.record.ImageRef, rt.record.Version); err != nil {
			return fmt.Errorf("failed to roll back %s: %w", rt.service, err)
		}
	}

	for _, target := range o.env.Services {
		if err := kube.AwaitRollout(ctx, o.kube, o.env.Namespace, target.Name, target.ReadinessTimeout, o.pollInterval); err != nil {
			return fmt.Errorf("rollback of %s did not reach readiness: %w", target.Name, err)
		}
	}

	for _, rt := range targets {
		failed := failingVersion
		record := rt.record
		record.ID = o.runID
		record.RolledBackFrom = &failed
		if err := o.records.SaveRecord(record); err != nil {
			o.logger.Warn(fmt.Sprintf("Failed to record rollback of %s", rt.service), err)
		}
	}

	o.logger.Success("Rollback complete, all services back on their previous versions")
	return nil
}

// Rollback is the manual entry point (`ragctl rollback <environment>`). It
// restores each target to the newest record that differs from what is
// currently deployed. Requiring a record for every target is deliberate: a
// partial rollback would leave the stack on mixed versions.
func (o *Orchestrator) Rollback(ctx context.Context) error {
	if err := o.validatePrerequisites(ctx); err != nil {
		return err
	}

	// Figure out which version is live so the rollback target excludes it.
	// All targets of one run share a version, so the first one decides.
	failingVersion := o.version
	if failingVersion == "" {
		for _, target := range o.env.Services {
			record, err := o.records.LatestSuccessful(o.env.Name, target.Name)
			if err != nil {
				return fmt.Errorf("cannot roll back %s: %w", target.Name, err)
			}
			deployed, err := kube.DeployedImage(ctx, o.kube, o.env.Namespace, target.Name)
			if err != nil {
				return err
			}
			if record.ImageRef == deployed {
				failingVersion = record.Version
			}
			break
		}
	}
	if failingVersion == "" {
		return fmt.Errorf("cannot determine the currently deployed version for %s", o.env.Name)
	}

	return o.performRollback(ctx, failingVersion)
}
