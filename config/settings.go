package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Settings struct {
	Server     ServerSettings    `mapstructure:"server"`
	Database   DatabaseSettings  `mapstructure:"database"`
	Security   SecuritySettings  `mapstructure:"security"`
	Aggregates AggregateSettings `mapstructure:"aggregates"`
	AI         AISettings        `mapstructure:"ai"`
	Storage    StorageSettings   `mapstructure:"storage"`
	Workers    WorkerSettings    `mapstructure:"workers"`
	Auth       AuthSettings      `mapstructure:"auth"`
	Interviews InterviewSettings `mapstructure:"interviews"`
}

type ServerSettings struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseSettings struct {
	// Driver is "postgres" or "memory".
	Driver        string `mapstructure:"driver"`
	MigrationsDir string `mapstructure:"migrations_dir"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
}

type SecuritySettings struct {
	TabSwitchLimit       int  `mapstructure:"tab_switch_limit"`
	WarningLimit         int  `mapstructure:"warning_limit"`
	TerminateOnDevTools  bool `mapstructure:"terminate_on_dev_tools"`
	TerminateOnCopyPaste bool `mapstructure:"terminate_on_copy_paste"`
	MaxRecordedEvents    int  `mapstructure:"max_recorded_events"`
}

type AggregateSettings struct {
	TeacherStatsStaleness time.Duration `mapstructure:"teacher_stats_staleness"`
	LockWait              time.Duration `mapstructure:"lock_wait"`
	LockTTL               time.Duration `mapstructure:"lock_ttl"`
	ActivityWindow        time.Duration `mapstructure:"activity_window"`

	// Mode is "sync" or "async".
	Mode     string        `mapstructure:"mode"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type AISettings struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	Model     string        `mapstructure:"model"`
	ProjectID string        `mapstructure:"project_id"`
	Location  string        `mapstructure:"location"`
	Speech    bool          `mapstructure:"speech"`
}

type StorageSettings struct {
	Bucket        string `mapstructure:"bucket"`
	MaxAudioBytes int64  `mapstructure:"max_audio_bytes"`
}

type WorkerSettings struct {
	Recompute     int           `mapstructure:"recompute"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type AuthSettings struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

type InterviewSettings struct {
	SweepBatchLimit int `mapstructure:"sweep_batch_limit"`
}

// LoadSettings reads config.yaml when present and lets env override every key
// (security.tab_switch_limit -> SECURITY_TAB_SWITCH_LIMIT).
func LoadSettings() (*Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the auth provider hands out SUPABASE_JWT_SECRET
	if err := v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "SUPABASE_JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch s.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("database.driver must be postgres or memory, got %q", s.Database.Driver)
	}
	switch s.Aggregates.Mode {
	case "sync", "async":
	default:
		return fmt.Errorf("aggregates.mode must be sync or async, got %q", s.Aggregates.Mode)
	}
	if s.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("security.tab_switch_limit", 3)
	v.SetDefault("security.warning_limit", 5)
	v.SetDefault("security.terminate_on_dev_tools", true)
	v.SetDefault("security.terminate_on_copy_paste", true)
	v.SetDefault("security.max_recorded_events", 10)

	v.SetDefault("aggregates.teacher_stats_staleness", "1h")
	v.SetDefault("aggregates.lock_wait", "2s")
	v.SetDefault("aggregates.lock_ttl", "30s")
	v.SetDefault("aggregates.activity_window", "720h")
	v.SetDefault("aggregates.mode", "sync")
	v.SetDefault("aggregates.cache_ttl", "5m")

	v.SetDefault("ai.timeout", "8s")
	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.project_id", "")
	v.SetDefault("ai.location", "us-central1")
	v.SetDefault("ai.speech", false)

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.max_audio_bytes", 10<<20)

	v.SetDefault("workers.recompute", 4)
	v.SetDefault("workers.sweep_interval", "1m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")

	v.SetDefault("interviews.sweep_batch_limit", 200)
}
