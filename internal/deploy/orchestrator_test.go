package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/ragstack/ragctl/internal/config"
	"github.com/ragstack/ragctl/internal/kube"
	"github.com/ragstack/ragctl/internal/logging"
	"github.com/ragstack/ragctl/internal/pipeline"
	"github.com/ragstack/ragctl/internal/store"
)

func testLogger() *logging.Logger {
	return logging.NewWriterLogger(io.Discard, logging.ERROR)
}

// memStore is an in-memory RecordStore. It also counts LatestBefore calls so
// tests can assert whether a rollback was attempted.
type memStore struct {
	records           []store.Record
	latestBeforeCalls int
	pruneCalls        int
}

func (m *memStore) SaveRecord(record store.Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memStore) LatestSuccessful(environment, service string) (store.Record, error) {
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.Environment == environment && r.Service == service {
			return r, nil
		}
	}
	return store.Record{}, fmt.Errorf("%w for service %s", store.ErrNoRecord, service)
}

func (m *memStore) LatestBefore(environment, service, failingVersion string) (store.Record, error) {
	m.latestBeforeCalls++
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.Environment == environment && r.Service == service && r.Version != failingVersion {
			return r, nil
		}
	}
	return store.Record{}, fmt.Errorf("%w for service %s", store.ErrNoRecord, service)
}

func (m *memStore) Prune(environment string, keep int) error {
	m.pruneCalls++
	return nil
}

func (m *memStore) saved(service string) []store.Record {
	var out []store.Record
	for _, r := range m.records {
		if r.Service == service {
			out = append(out, r)
		}
	}
	return out
}

type stubSmoke struct {
	err   error
	calls int
}

func (s *stubSmoke) Run(context.Context) error {
	s.calls++
	return s.err
}

// testEnv builds a resolved environment with pinned images only, so the
// pipeline never needs a container runtime.
func testEnv(t *testing.T, production bool) *config.Environment {
	t.Helper()

	name := "staging"
	if production {
		name = "production"
	}

	secretsFile := filepath.Join(t.TempDir(), name+".secrets.env")
	require.NoError(t, os.WriteFile(secretsFile, []byte("OPENAI_API_KEY=sk-test\nCHROMA_TOKEN=tok\n"), 0o600))

	return &config.Environment{
		Name:       name,
		Production: production,
		Namespace:  "rag-" + name,
		Registry:   config.Registry{URL: "registry.example.com"},
		Services: []config.ServiceTarget{
			{Name: "model", Replicas: 1, Port: 8000, Image: "registry.example.com/model:v2", ProbePath: "/health", ReadinessTimeout: time.Second},
			{Name: "api", Replicas: 1, Port: 8080, Image: "registry.example.com/api:v2", ProbePath: "/health", ReadinessTimeout: time.Second},
			{Name: "ui", Replicas: 1, Port: 3000, Image: "registry.example.com/ui:v2", ProbePath: "/health", ReadinessTimeout: time.Second},
		},
		SecretsFile:   secretsFile,
		SecretName:    "rag-secrets",
		Backup:        config.Backup{Dir: t.TempDir()},
		RecordsToKeep: 5,
	}
}

// readyReactor intercepts deployment gets and reports a fully rolled-out
// deployment, so readiness polling completes immediately.
func readyReactor(namespace string) k8stesting.ReactionFunc {
	return func(action k8stesting.Action) (bool, runtime.Object, error) {
		get, ok := action.(k8stesting.GetAction)
		if !ok {
			return false, nil, nil
		}
		replicas := int32(1)
		return true, &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: get.GetName(), Namespace: namespace},
			Spec: appsv1.DeploymentSpec{
				Replicas: &replicas,
				Template: corev1.PodTemplateSpec{
					ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": get.GetName()}},
					Spec: corev1.PodSpec{
						Containers: []corev1.Container{{Name: get.GetName(), Image: "registry.example.com/" + get.GetName() + ":v2"}},
					},
				},
			},
			Status: appsv1.DeploymentStatus{
				UpdatedReplicas:   1,
				ReadyReplicas:     1,
				AvailableReplicas: 1,
			},
		}, nil
	}
}

// stuckReactor reports a deployment whose replicas never become ready.
func stuckReactor(namespace string) k8stesting.ReactionFunc {
	return func(action k8stesting.Action) (bool, runtime.Object, error) {
		get, ok := action.(k8stesting.GetAction)
		if !ok {
			return false, nil, nil
		}
		replicas := int32(1)
		return true, &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: get.GetName(), Namespace: namespace},
			Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		}, nil
	}
}

// recordImageUpdates registers a reactor that captures the container image of
// every deployment update without swallowing the action.
func recordImageUpdates(client *fake.Clientset) map[string]string {
	images := make(map[string]string)
	client.PrependReactor("update", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		update := action.(k8stesting.UpdateAction)
		deployment := update.GetObject().(*appsv1.Deployment)
		if len(deployment.Spec.Template.Spec.Containers) > 0 {
			images[deployment.Name] = deployment.Spec.Template.Spec.Containers[0].Image
		}
		return false, nil, nil
	})
	return images
}

func newOrchestrator(env *config.Environment, records RecordStore, client *fake.Clientset, smoke SmokeRunner) *Orchestrator {
	return New(env, records, testLogger(),
		WithKubeClient(client),
		WithVersion("v2"),
		WithPollInterval(10*time.Millisecond),
		WithSmokeRunner(smoke),
	)
}

func TestRun_StagingSucceeds(t *testing.T) {
	env := testEnv(t, false)
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))
	records := &memStore{}
	smoke := &stubSmoke{}

	result := newOrchestrator(env, records, client, smoke).Run(context.Background())

	require.NoError(t, result.Err)
	assert.Equal(t, pipeline.Succeeded, result.Outcome)
	assert.Equal(t, 1, smoke.calls)

	// Namespace, secret and one Service per target must exist.
	_, err := client.CoreV1().Namespaces().Get(context.Background(), env.Namespace, metav1.GetOptions{})
	require.NoError(t, err)
	secret, err := client.CoreV1().Secrets(env.Namespace).Get(context.Background(), env.SecretName, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("sk-test"), secret.Data["OPENAI_API_KEY"])
	for _, name := range []string{"model", "api", "ui"} {
		_, err := client.CoreV1().Services(env.Namespace).Get(context.Background(), name, metav1.GetOptions{})
		assert.NoError(t, err, "service %s", name)
	}

	// One record per target at the deployed version, then a prune.
	for _, name := range []string{"model", "api", "ui"} {
		saved := records.saved(name)
		require.Len(t, saved, 1)
		assert.Equal(t, "v2", saved[0].Version)
		assert.Nil(t, saved[0].RolledBackFrom)
	}
	assert.Equal(t, 1, records.pruneCalls)
}

func TestRun_StagingSmokeFailureIsWarningOnly(t *testing.T) {
	env := testEnv(t, false)
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))
	records := &memStore{}
	smoke := &stubSmoke{err: errors.New("api returned 503")}

	result := newOrchestrator(env, records, client, smoke).Run(context.Background())

	assert.True(t, result.Ok())
	assert.Equal(t, pipeline.SucceededWithWarnings, result.Outcome)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "run smoke tests", result.Warnings[0].Step)

	// No rollback outside production, and the deployment is still recorded.
	assert.Zero(t, records.latestBeforeCalls)
	require.Len(t, records.saved("api"), 1)
	assert.Equal(t, "v2", records.saved("api")[0].Version)
}

func TestRun_ProductionSmokeFailureRollsBack(t *testing.T) {
	env := testEnv(t, true)
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))
	updates := recordImageUpdates(client)
	smoke := &stubSmoke{err: errors.New("model returned 500")}

	records := &memStore{}
	for _, name := range []string{"model", "api", "ui"} {
		require.NoError(t, records.SaveRecord(store.Record{
			ID:          "01OLD",
			Environment: env.Name,
			Service:     name,
			ImageRef:    "registry.example.com/" + name + ":v1",
			Version:     "v1",
		}))
	}

	result := newOrchestrator(env, records, client, smoke).Run(context.Background())

	assert.Equal(t, pipeline.Failed, result.Outcome)
	assert.Equal(t, "run smoke tests", result.FailedStep)

	var rolledBack *RolledBackError
	require.ErrorAs(t, result.Err, &rolledBack)
	assert.ErrorContains(t, rolledBack.Trigger, "model returned 500")

	// Every target was pointed back at its previous image.
	assert.Equal(t, map[string]string{
		"model": "registry.example.com/model:v1",
		"api":   "registry.example.com/api:v1",
		"ui":    "registry.example.com/ui:v1",
	}, updates)

	// The rollback itself is recorded, tagged with the version it replaced.
	for _, name := range []string{"model", "api", "ui"} {
		saved := records.saved(name)
		require.Len(t, saved, 2)
		rollback := saved[1]
		assert.Equal(t, "v1", rollback.Version)
		require.NotNil(t, rollback.RolledBackFrom)
		assert.Equal(t, "v2", *rollback.RolledBackFrom)
	}
}

func TestRun_ProductionWithoutHistoryIsDoubleFault(t *testing.T) {
	env := testEnv(t, true)
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))
	updates := recordImageUpdates(client)
	records := &memStore{}
	smoke := &stubSmoke{err: errors.New("model returned 500")}

	result := newOrchestrator(env, records, client, smoke).Run(context.Background())

	assert.Equal(t, pipeline.Failed, result.Outcome)

	var doubleFault *DoubleFaultError
	require.ErrorAs(t, result.Err, &doubleFault)
	assert.ErrorIs(t, doubleFault.Cause, store.ErrNoRecord)
	assert.ErrorContains(t, doubleFault.Trigger, "model returned 500")

	// Records are resolved before any mutation, so nothing was touched.
	assert.Empty(t, updates)
}

func TestRun_ReadinessTimeoutDoesNotTriggerRollback(t *testing.T) {
	env := testEnv(t, true)
	for i := range env.Services {
		env.Services[i].ReadinessTimeout = 30 * time.Millisecond
	}
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", stuckReactor(env.Namespace))
	records := &memStore{}
	smoke := &stubSmoke{}

	result := newOrchestrator(env, records, client, smoke).Run(context.Background())

	assert.Equal(t, pipeline.Failed, result.Outcome)
	assert.Equal(t, "await readiness", result.FailedStep)

	var timeout *kube.ErrRolloutTimeout
	require.ErrorAs(t, result.Err, &timeout)
	assert.Equal(t, "model", timeout.Deployment)

	// Rollback only answers smoke-test failures, not rollout timeouts.
	assert.Zero(t, records.latestBeforeCalls)
	assert.Zero(t, smoke.calls)
	assert.Empty(t, records.records)
}

func TestRun_MissingSecretsFileFailsBeforeApply(t *testing.T) {
	env := testEnv(t, false)
	env.SecretsFile = filepath.Join(t.TempDir(), "does-not-exist.secrets.env")
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))

	result := newOrchestrator(env, &memStore{}, client, &stubSmoke{}).Run(context.Background())

	assert.Equal(t, pipeline.Failed, result.Outcome)
	assert.Equal(t, "materialize secrets", result.FailedStep)

	// Nothing was applied to the namespace.
	deployments, err := client.AppsV1().Deployments(env.Namespace).List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, deployments.Items)
}

func TestRun_ProductionWritesBackupArchive(t *testing.T) {
	env := testEnv(t, true)
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))

	result := newOrchestrator(env, &memStore{}, client, &stubSmoke{}).Run(context.Background())

	require.NoError(t, result.Err)
	archives, err := filepath.Glob(filepath.Join(env.Backup.Dir, env.Name+"-*.tar.gz"))
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestRun_BackupFailureIsWarningOnly(t *testing.T) {
	env := testEnv(t, true)
	// A backup directory that cannot be created: a path under a regular file.
	env.Backup.Dir = filepath.Join(env.SecretsFile, "backups")
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))

	result := newOrchestrator(env, &memStore{}, client, &stubSmoke{}).Run(context.Background())

	assert.True(t, result.Ok())
	assert.Equal(t, pipeline.SucceededWithWarnings, result.Outcome)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "create backup", result.Warnings[0].Step)
}

func TestRun_MissingExternalServiceFailsVerification(t *testing.T) {
	env := testEnv(t, false)
	env.ExternalServices = []string{"chroma"}
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))

	result := newOrchestrator(env, &memStore{}, client, &stubSmoke{}).Run(context.Background())

	assert.Equal(t, pipeline.Failed, result.Outcome)
	assert.Equal(t, "verify services", result.FailedStep)
	assert.ErrorContains(t, result.Err, "chroma")
}

func TestRun_PresentExternalServicePassesVerification(t *testing.T) {
	env := testEnv(t, false)
	env.ExternalServices = []string{"chroma"}
	client := fake.NewSimpleClientset(&corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "chroma", Namespace: env.Namespace},
	})
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))

	result := newOrchestrator(env, &memStore{}, client, &stubSmoke{}).Run(context.Background())

	require.NoError(t, result.Err)
	assert.Equal(t, pipeline.Succeeded, result.Outcome)
}

func TestRollback_RestoresPreviousImages(t *testing.T) {
	env := testEnv(t, true)
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))
	updates := recordImageUpdates(client)

	// The fake tracker needs the deployments to exist for updates to land.
	for _, name := range []string{"model", "api", "ui"} {
		_, err := client.AppsV1().Deployments(env.Namespace).Create(context.Background(), &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: env.Namespace},
		}, metav1.CreateOptions{})
		require.NoError(t, err)
	}

	records := &memStore{}
	for _, name := range []string{"model", "api", "ui"} {
		require.NoError(t, records.SaveRecord(store.Record{
			ID:          "01OLD",
			Environment: env.Name,
			Service:     name,
			ImageRef:    "registry.example.com/" + name + ":v1",
			Version:     "v1",
		}))
	}

	orchestrator := newOrchestrator(env, records, client, &stubSmoke{})
	require.NoError(t, orchestrator.Rollback(context.Background()))

	assert.Equal(t, map[string]string{
		"model": "registry.example.com/model:v1",
		"api":   "registry.example.com/api:v1",
		"ui":    "registry.example.com/ui:v1",
	}, updates)
}

func TestRollback_AllOrNothing(t *testing.T) {
	env := testEnv(t, true)
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "deployments", readyReactor(env.Namespace))
	updates := recordImageUpdates(client)

	// Only two of three targets have history.
	records := &memStore{}
	for _, name := range []string{"model", "api"} {
		require.NoError(t, records.SaveRecord(store.Record{
			ID:          "01OLD",
			Environment: env.Name,
			Service:     name,
			ImageRef:    "registry.example.com/" + name + ":v1",
			Version:     "v1",
		}))
	}

	orchestrator := newOrchestrator(env, records, client, &stubSmoke{})
	err := orchestrator.Rollback(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNoRecord)
	assert.Empty(t, updates)
}
