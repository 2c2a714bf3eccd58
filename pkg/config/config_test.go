package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"ACCESS_TOKEN":             "secret",
		"MONGO_URI":                "mongodb://localhost:27017",
		"MONGO_DB_NAME":            "updates",
		"MONGO_COLLECTIONS_PREFIX": "tenantA_",
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.AccessToken)
	assert.Equal(t, "tenantA_", cfg.CollectionsPrefix)
	assert.Equal(t, BackendMongo, cfg.Backend)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, DefaultRedirectURL, cfg.RedirectURL)
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.MaxBodyBytes)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.MemoryJournalSync)
}

func TestFromLookup_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		message string
	}{
		{"access token", "ACCESS_TOKEN", "ACCESS_TOKEN is required"},
		{"mongo uri", "MONGO_URI", "MONGO_URI is required"},
		{"db name", "MONGO_DB_NAME", "MONGO_DB_NAME is required"},
		{"prefix", "MONGO_COLLECTIONS_PREFIX", "MONGO_COLLECTIONS_PREFIX is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			delete(env, tt.unset)

			cfg, err := FromLookup(lookupFrom(env))
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestFromLookup_ReportsEveryMissingValue(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN")
	assert.Contains(t, err.Error(), "MONGO_URI")
	assert.Contains(t, err.Error(), "MONGO_DB_NAME")
	assert.Contains(t, err.Error(), "MONGO_COLLECTIONS_PREFIX")
}

func TestFromLookup_NonMongoBackendsSkipMongoSettings(t *testing.T) {
	for _, backend := range []string{BackendSQLite, BackendMemory, "MEMORY"} {
		t.Run(backend, func(t *testing.T) {
			env := map[string]string{
				"ACCESS_TOKEN":             "secret",
				"MONGO_COLLECTIONS_PREFIX": "tenantA_",
				"STORE_BACKEND":            backend,
			}
			cfg, err := FromLookup(lookupFrom(env))
			require.NoError(t, err)
			assert.NotEqual(t, BackendMongo, cfg.Backend)
		})
	}
}

func TestFromLookup_UnknownBackend(t *testing.T) {
	env := baseEnv()
	env["STORE_BACKEND"] = "cassandra"

	_, err := FromLookup(lookupFrom(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORE_BACKEND")
}

func TestFromLookup_Optional(t *testing.T) {
	env := baseEnv()
	env["KAFKA_BROKERS"] = "k1:9092, k2:9092,"
	env["KAFKA_TOPIC"] = "inserted"
	env["WRITE_TIMEOUT"] = "5s"
	env["MAX_BODY_BYTES"] = "1024"
	env["PORT"] = "9090"
	env["MEMORY_CHECKPOINT_INTERVAL"] = "1m"
	env["MEMORY_JOURNAL_SYNC"] = "true"

	cfg, err := FromLookup(lookupFrom(env))
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, int64(1024), cfg.MaxBodyBytes)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, time.Minute, cfg.MemoryCheckpointInterval)
	assert.True(t, cfg.MemoryJournalSync)
}

func TestFromLookup_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"WRITE_TIMEOUT":       "soon",
		"MAX_BODY_BYTES":      "lots",
		"MEMORY_JOURNAL_SYNC": "sometimes",
		"KAFKA_TOPIC":         "topic-without-brokers",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			env := baseEnv()
			env[key] = value
			_, err := FromLookup(lookupFrom(env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	for _, key := range []string{"ACCESS_TOKEN", "MONGO_URI", "MONGO_DB_NAME", "MONGO_COLLECTIONS_PREFIX", "STORE_BACKEND"} {
		t.Setenv(key, "")
	}

	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "ACCESS_TOKEN=from-file\nMONGO_COLLECTIONS_PREFIX=pre_\nSTORE_BACKEND=memory\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	// godotenv does not override variables that are already set, even to ""
	for _, key := range []string{"ACCESS_TOKEN", "MONGO_COLLECTIONS_PREFIX", "STORE_BACKEND"} {
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.AccessToken)
	assert.Equal(t, "pre_", cfg.CollectionsPrefix)
	assert.Equal(t, BackendMemory, cfg.Backend)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("ACCESS_TOKEN", "secret")
	t.Setenv("MONGO_COLLECTIONS_PREFIX", "tenantA_")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.AccessToken)
}
