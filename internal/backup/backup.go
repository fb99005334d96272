// Package backup snapshots cluster configuration before a production deploy.
// Backups are best-effort: a failure here must never block the deployment.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/ragstack/ragctl/internal/config"
	"github.com/ragstack/ragctl/internal/constants"
)

// Create writes a timestamped tar.gz archive of the namespace's deployments
// and services plus a snapshot of the resolved environment configuration.
// Returns the archive path.
func Create(ctx context.Context, client kubernetes.Interface, env *config.Environment) (string, error) {
	if err := os.MkdirAll(env.Backup.Dir, constants.ModeDirDefault); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", env.Backup.Dir, err)
	}

	timestamp := time.Now().UTC().Format("20060102150405")
	archivePath := filepath.Join(env.Backup.Dir, fmt.Sprintf("%s-%s.tar.gz", env.Name, timestamp))

	entries, err := collect(ctx, client, env)
	if err != nil {
		return "", err
	}

	file, err := os.OpenFile(archivePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.ModeFileDefault)
	if err != nil {
		return "", fmt.Errorf("failed to create backup archive %s: %w", archivePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzWriter)

	now := time.Now()
	for _, entry := range entries {
		header := &tar.Header{
			Name:    entry.name,
			Mode:    int64(constants.ModeFileDefault),
			Size:    int64(len(entry.data)),
			ModTime: now,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return "", fmt.Errorf("failed to write archive header for %s: %w", entry.name, err)
		}
		if _, err := tarWriter.Write(entry.data); err != nil {
			return "", fmt.Errorf("failed to write archive entry %s: %w", entry.name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize backup archive: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize backup archive: %w", err)
	}
	return archivePath, nil
}

type archiveEntry struct {
	name string
	data []byte
}

func collect(ctx context.Context, client kubernetes.Interface, env *config.Environment) ([]archiveEntry, error) {
	var entries []archiveEntry

	deployments, err := client.AppsV1().Deployments(env.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments in %s: %w", env.Namespace, err)
	}
	data, err := yaml.Marshal(deployments.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode deployments snapshot: %w", err)
	}
	entries = append(entries, archiveEntry{name: "deployments.yaml", data: data})

	services, err := client.CoreV1().Services(env.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list services in %s: %w", env.Namespace, err)
	}
	data, err = yaml.Marshal(services.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode services snapshot: %w", err)
	}
	entries = append(entries, archiveEntry{name: "services.yaml", data: data})

	// Configuration snapshot: the resolved environment minus credentials.
	redacted := *env
	redacted.Registry.Username = ""
	redacted.Registry.Password = ""
	data, err = yaml.Marshal(redacted)
	if err != nil {
		return nil, fmt.Errorf("failed to encode environment snapshot: %w", err)
	}
	entries = append(entries, archiveEntry{name: "environment.yaml", data: data})

	return entries, nil
}
