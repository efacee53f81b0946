package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: ":9090"
  requestTimeout: 10s
database:
  driver: sqlite
  dsn: "file:reviews.db"
logging:
  level: debug
  format: json
enrichment:
  endpoint: "http://localhost:8000"
  deadline: 3s
sources: [reddit, coursicle, rmp]
collection:
  launchTimeout: 2s
  sources:
    - name: reddit
      launcher: pubsub
    - name: twitter
      launcher: exec
  pubsub:
    projectId: demo
    topic: collect
`

func TestParseAndMerge(t *testing.T) {
	t.Parallel()

	fileCfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	cfg := mergeConfig(defaultConfig(), fileCfg)
	cfg.dropUnknownCollectSources()

	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, 10*time.Second, cfg.Server.RequestTimeout.Duration)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, 3*time.Second, cfg.Enrichment.Deadline.Duration)
	require.Equal(t, 15*time.Second, cfg.Enrichment.Timeout.Duration, "unset values keep defaults")
	require.Equal(t, []CollectSource{{Name: "reddit", Launcher: LauncherPubSub}}, cfg.Collection.Sources)
	require.Equal(t, "collect", cfg.Collection.PubSub.Topic)
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("server:\n  requestTimeout: soon\n"))
	require.Error(t, err)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://override")
	t.Setenv(databaseDriverEnv, "postgres")
	t.Setenv(launcherEnv, LauncherNoop)
	t.Setenv(enrichmentAPIKeyEnv, "secret")

	cfg := Load()

	require.Equal(t, "postgres://override", cfg.Database.DSN)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "secret", cfg.Enrichment.APIKey)
	require.Len(t, cfg.Collection.Sources, 1)
	require.Equal(t, LauncherNoop, cfg.Collection.Sources[0].Launcher)
}

func TestDefaultCollectSourcesAreKnown(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.dropUnknownCollectSources()
	require.Len(t, cfg.Collection.Sources, 2)
	require.Less(t, len(cfg.Collection.Sources), len(cfg.Sources))
}
