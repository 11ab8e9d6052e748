package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the variables Load consults outside the IMGMETA_ prefix so
// the host environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "TABLE_NAME", "IMAGE_BUCKET", "IMGMETA_SERVER_PORT", "IMGMETA_DYNAMODB_TABLE", "IMGMETA_S3_BUCKET"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, StoreDynamoDB, cfg.Store.Driver)
	assert.Equal(t, "images", cfg.DynamoDB.Table)
	assert.Equal(t, "UserIndex", cfg.DynamoDB.UserIndex)
	assert.Equal(t, "imgmeta-images", cfg.S3.Bucket)
	assert.Equal(t, 900*time.Second, cfg.S3.UploadTTL())
	assert.Equal(t, 300*time.Second, cfg.S3.DownloadTTL())
	assert.Equal(t, 10, cfg.List.DefaultLimit)
	assert.Equal(t, 100, cfg.List.MaxLimit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("IMGMETA_STORE_DRIVER", "Postgres")
	t.Setenv("IMGMETA_DB_PORT", "6543")
	t.Setenv("IMGMETA_SERVER_BASE_PATH", "/prod/")
	t.Setenv("IMGMETA_LIST_DEFAULT_LIMIT", "25")
	t.Setenv("IMGMETA_CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, "/prod", cfg.Server.BasePath)
	assert.Equal(t, 25, cfg.List.DefaultLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_DeploymentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("TABLE_NAME", "ImagesTable")
	t.Setenv("IMAGE_BUCKET", "stack-bucket")
	t.Setenv("PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ImagesTable", cfg.DynamoDB.Table)
	assert.Equal(t, "stack-bucket", cfg.S3.Bucket)
	assert.Equal(t, ":3000", cfg.Server.Port)
}

func TestLoad_PrefixedVariablesWin(t *testing.T) {
	clearEnv(t)
	t.Setenv("TABLE_NAME", "ImagesTable")
	t.Setenv("IMGMETA_DYNAMODB_TABLE", "explicit")
	t.Setenv("PORT", "3000")
	t.Setenv("IMGMETA_SERVER_PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "explicit", cfg.DynamoDB.Table)
	assert.Equal(t, ":9090", cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"IMGMETA_STORE_DRIVER": "mongo"}},
		{"zero upload expiry", map[string]string{"IMGMETA_S3_UPLOAD_EXPIRY": "0"}},
		{"default above max", map[string]string{"IMGMETA_LIST_DEFAULT_LIMIT": "200"}},
		{"zero default", map[string]string{"IMGMETA_LIST_DEFAULT_LIMIT": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_DSN(t *testing.T) {
	d := DBConfig{User: "u", Password: "p", Host: "db", Port: 5432, Name: "imgmeta", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/imgmeta?sslmode=disable", d.DSN())
}
