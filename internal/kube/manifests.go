package kube

import (
	"sort"

	"github.com/ragstack/ragctl/internal/config"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

const (
	LabelApp       = "app"
	LabelManagedBy = "app.kubernetes.io/managed-by"
	LabelVersion   = "app.kubernetes.io/version"

	managedByValue = "ragctl"
)

func managedLabels(app string) map[string]string {
	return map[string]string{
		LabelApp:       app,
		LabelManagedBy: managedByValue,
	}
}

// NewDeployment renders the Deployment object for a service target with the
// resolved version substituted into the image reference. Environment values
// of the target are reprojected as container env vars sorted by name so the
// rendered spec is stable between runs.
func NewDeployment(target config.ServiceTarget, imageRef, version, secretName string) *appsv1.Deployment {
	labels := managedLabels(target.Name)
	podLabels := managedLabels(target.Name)
	podLabels[LabelVersion] = version

	replicas := int32(target.Replicas)

	container := corev1.Container{
		Name:  target.Name,
		Image: imageRef,
		Ports: []corev1.ContainerPort{
			{ContainerPort: int32(target.Port)},
		},
		Env: containerEnv(target.Env),
		ReadinessProbe: &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{
					Path: target.ProbePath,
					Port: intstr.FromInt32(int32(target.Port)),
				},
			},
			InitialDelaySeconds: 5,
			PeriodSeconds:       10,
		},
	}
	if secretName != "" {
		container.EnvFrom = []corev1.EnvFromSource{
			{
				SecretRef: &corev1.SecretEnvSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: secretName},
				},
			},
		}
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:   target.Name,
			Labels: labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{LabelApp: target.Name},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
				},
			},
		},
	}
}

// NewService renders the ClusterIP Service for a target.
func NewService(target config.ServiceTarget) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:   target.Name,
			Labels: managedLabels(target.Name),
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{LabelApp: target.Name},
			Ports: []corev1.ServicePort{
				{
					Port:       int32(target.Port),
					TargetPort: intstr.FromInt32(int32(target.Port)),
				},
			},
		},
	}
}

func containerEnv(env map[string]string) []corev1.EnvVar {
	if len(env) == 0 {
		return nil
	}
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]corev1.EnvVar, 0, len(names))
	for _, name := range names {
		vars = append(vars, corev1.EnvVar{Name: name, Value: env[name]})
	}
	return vars
}
