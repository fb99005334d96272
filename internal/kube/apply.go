package kube

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// EnsureNamespace creates the namespace if it does not exist. The second
// invocation is a no-op: an already existing namespace is reported through
// the created flag so callers can log a warning instead of failing.
func EnsureNamespace(ctx context.Context, client kubernetes.Interface, name string) (created bool, err error) {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name},
	}
	_, err = client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil {
		if kubeerr.IsAlreadyExists(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return true, nil
}

// ApplySecret creates or fully replaces a Secret. The update replaces the
// whole data map so a partial write can never be left behind.
func ApplySecret(ctx context.Context, client kubernetes.Interface, namespace, name string, data map[string][]byte) error {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    managedLabels(name),
		},
		Type: corev1.SecretTypeOpaque,
		Data: data,
	}

	_, err := client.CoreV1().Secrets(namespace).Create(ctx, secret, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !kubeerr.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create secret %s: %w", name, err)
	}
	if _, err := client.CoreV1().Secrets(namespace).Update(ctx, secret, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update secret %s: %w", name, err)
	}
	return nil
}

// ApplyDeployment creates the Deployment or replaces its spec if it exists.
func ApplyDeployment(ctx context.Context, client kubernetes.Interface, namespace string, deployment *appsv1.Deployment) error {
	deployments := client.AppsV1().Deployments(namespace)

	_, err := deployments.Create(ctx, deployment, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !kubeerr.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create deployment %s: %w", deployment.Name, err)
	}

	existing, err := deployments.Get(ctx, deployment.Name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get deployment %s: %w", deployment.Name, err)
	}
	existing.Labels = deployment.Labels
	existing.Spec = deployment.Spec
	if _, err := deployments.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update deployment %s: %w", deployment.Name, err)
	}
	return nil
}

// ApplyService creates the Service or updates its spec in place. ClusterIP
// is immutable and carried over from the live object on update.
func ApplyService(ctx context.Context, client kubernetes.Interface, namespace string, service *corev1.Service) error {
	services := client.CoreV1().Services(namespace)

	_, err := services.Create(ctx, service, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !kubeerr.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create service %s: %w", service.Name, err)
	}

	existing, err := services.Get(ctx, service.Name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get service %s: %w", service.Name, err)
	}
	clusterIP := existing.Spec.ClusterIP
	existing.Labels = service.Labels
	existing.Spec = service.Spec
	existing.Spec.ClusterIP = clusterIP
	if _, err := services.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update service %s: %w", service.Name, err)
	}
	return nil
}

// ServiceExists reports whether a Service object is present in the namespace.
func ServiceExists(ctx context.Context, client kubernetes.Interface, namespace, name string) (bool, error) {
	_, err := client.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if kubeerr.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get service %s: %w", name, err)
	}
	return true, nil
}
