package kube

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// ErrRolloutTimeout wraps readiness-poll expiry so callers can distinguish a
// timeout (partial state may already be live) from a mutation error.
type ErrRolloutTimeout struct {
	Deployment string
	Timeout    time.Duration
}

func (e *ErrRolloutTimeout) Error() string {
	return fmt.Sprintf("deployment %s did not become ready within %s", e.Deployment, e.Timeout)
}

// RolloutReady reports whether the Deployment's latest generation is fully
// rolled out: all replicas updated, available and ready.
func RolloutReady(ctx context.Context, client kubernetes.Interface, namespace, name string) (bool, error) {
	deployment, err := client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to get deployment %s: %w", name, err)
	}

	if deployment.Status.ObservedGeneration < deployment.Generation {
		return false, nil
	}
	want := int32(1)
	if deployment.Spec.Replicas != nil {
		want = *deployment.Spec.Replicas
	}
	status := deployment.Status
	ready := status.UpdatedReplicas >= want &&
		status.ReadyReplicas >= want &&
		status.AvailableReplicas >= want
	return ready, nil
}

// AwaitRollout polls rollout status at a fixed interval until the Deployment
// is ready, the timeout elapses, or ctx is canceled. It never blocks past
// the timeout. The fixed 1s interval with no backoff is deliberate: the
// status check is cheap and idempotent.
func AwaitRollout(ctx context.Context, client kubernetes.Interface, namespace, name string, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		ready, err := RolloutReady(ctx, client, namespace, name)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if !time.Now().Add(interval).Before(deadline) {
			return &ErrRolloutTimeout{Deployment: name, Timeout: timeout}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// SetImage points the single container of a Deployment at a different image
// reference. Used for rollback: the recorded known-good ref goes back in.
func SetImage(ctx context.Context, client kubernetes.Interface, namespace, name, imageRef, version string) error {
	deployments := client.AppsV1().Deployments(namespace)

	deployment, err := deployments.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get deployment %s: %w", name, err)
	}
	if len(deployment.Spec.Template.Spec.Containers) == 0 {
		return fmt.Errorf("deployment %s has no containers", name)
	}
	deployment.Spec.Template.Spec.Containers[0].Image = imageRef
	if deployment.Spec.Template.Labels != nil {
		deployment.Spec.Template.Labels[LabelVersion] = version
	}
	if _, err := deployments.Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update deployment %s: %w", name, err)
	}
	return nil
}

// DeployedImage returns the image currently set on the Deployment.
func DeployedImage(ctx context.Context, client kubernetes.Interface, namespace, name string) (string, error) {
	deployment, err := client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get deployment %s: %w", name, err)
	}
	if len(deployment.Spec.Template.Spec.Containers) == 0 {
		return "", fmt.Errorf("deployment %s has no containers", name)
	}
	return deployment.Spec.Template.Spec.Containers[0].Image, nil
}
