// Package config 配置管理单元测试
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithDefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "edu-backoffice", cfg.Server.Name)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "0.6", cfg.Business.Finance.TaobaoFeeRate)
}

func TestLoad_WithConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.yaml")

	configContent := `
server:
  name: "test-server"
  port: 9000
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	// sync.Once 只执行一次，这里只保证不报错
	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)
}

func TestSetDefaults_FinanceSeeds(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	require.NoError(t, v.Unmarshal(cfg))

	seeds := cfg.Business.Finance.Seeds()
	assert.Equal(t, "0.6", seeds["taobao_fee_rate"])
	assert.Equal(t, "0.5", seeds["shareholder_a_ratio"])
	assert.Equal(t, "股东A", seeds["shareholder_a_name"])
	assert.Len(t, seeds, 7)
}

func TestSetDefaults_RateLimitAndScheduler(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	require.NoError(t, v.Unmarshal(cfg))

	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 120, cfg.RateLimit.Limit)
	assert.Equal(t, 60, cfg.RateLimit.WindowSeconds)

	assert.False(t, cfg.Business.Scheduler.Enabled)
	assert.Equal(t, 60, cfg.Business.Scheduler.ReconcileIntervalMinutes)
	assert.Equal(t, 300, cfg.Business.Scheduler.ConfigRefreshSeconds)
}

func TestGet_ReturnsSameInstance(t *testing.T) {
	cfg1 := Get()
	cfg2 := Get()
	assert.Equal(t, cfg1, cfg2)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config DatabaseConfig
		want   string
	}{
		{
			name: "Standard config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "secret",
				Name:     "mydb",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 user=postgres password=secret dbname=mydb sslmode=disable TimeZone=UTC",
		},
		{
			name: "URL wins",
			config: DatabaseConfig{
				URL:  "postgres://admin:pw@db.example.com:5433/production",
				Host: "ignored",
			},
			want: "postgres://admin:pw@db.example.com:5433/production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "127.0.0.1", Port: 6380}
	assert.Equal(t, "127.0.0.1:6380", r.Addr())
}

func TestConfig_Mode(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Mode: "debug"}}
	assert.True(t, cfg.IsDebug())
	assert.False(t, cfg.IsRelease())

	cfg.Server.Mode = "release"
	assert.True(t, cfg.IsRelease())
}
