package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/your-org/mallid/internal/errs"
)

// Config is the full application configuration: YAML file plus environment
// variable overrides, mirroring the two-pass loader (parse, then
// applyEnvOverrides, then setDefaults) used throughout this codebase's
// lineage.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// MatchingConfig is the core's numeric configuration surface: every
// tunable threshold the scoring and retrieval pipeline reads at startup.
type MatchingConfig struct {
	WalkSpeedMS               float64 `yaml:"walk_speed_ms"`
	TimeToleranceSec          float64 `yaml:"time_tolerance_sec"`
	MaxCandidateWindowSec     float64 `yaml:"max_candidate_window_sec"`
	EmbedFloor                float64 `yaml:"embed_floor"`
	MatchThreshold            float64 `yaml:"match_threshold"`
	OutfitMin                 float64 `yaml:"outfit_min"`
	AmbiguityGap              float64 `yaml:"ambiguity_gap"`
	RushHourCandidateTrigger  int     `yaml:"rush_hour_candidate_trigger"`
	RushHourThresholdBump     float64 `yaml:"rush_hour_threshold_bump"`
	CooldownSec               float64 `yaml:"cooldown_sec"`
	IdleTimeoutSec            float64 `yaml:"idle_timeout_sec"`
	FrequentOutfitThreshold   int     `yaml:"frequent_outfit_threshold"`
	FrequentOutfitPenalty     float64 `yaml:"frequent_outfit_penalty"`
	CandidateTopK             int     `yaml:"candidate_topk"`
	WorkerCount               int     `yaml:"worker_count"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file, applies environment variable
// overrides, fills in defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	m := &cfg.Matching
	if m.WalkSpeedMS == 0 {
		m.WalkSpeedMS = 1.2
	}
	if m.TimeToleranceSec == 0 {
		m.TimeToleranceSec = 30
	}
	if m.MaxCandidateWindowSec == 0 {
		m.MaxCandidateWindowSec = 480
	}
	if m.EmbedFloor == 0 {
		m.EmbedFloor = 0.75
	}
	if m.MatchThreshold == 0 {
		m.MatchThreshold = 0.78
	}
	if m.OutfitMin == 0 {
		m.OutfitMin = 0.70
	}
	if m.AmbiguityGap == 0 {
		m.AmbiguityGap = 0.04
	}
	if m.RushHourCandidateTrigger == 0 {
		m.RushHourCandidateTrigger = 12
	}
	if m.RushHourThresholdBump == 0 {
		m.RushHourThresholdBump = 0.05
	}
	if m.CooldownSec == 0 {
		m.CooldownSec = 15
	}
	if m.IdleTimeoutSec == 0 {
		m.IdleTimeoutSec = 1800
	}
	if m.FrequentOutfitThreshold == 0 {
		m.FrequentOutfitThreshold = 5
	}
	if m.FrequentOutfitPenalty == 0 {
		m.FrequentOutfitPenalty = 0.8
	}
	if m.CandidateTopK == 0 {
		m.CandidateTopK = 50
	}
	if m.WorkerCount == 0 {
		m.WorkerCount = runtime.NumCPU()
	}
}

// Validate enforces the ConfigInvalid error class: out-of-range
// thresholds or mutually inconsistent defaults fail fast before any batch
// work begins.
func Validate(cfg *Config) error {
	m := cfg.Matching

	type bound struct {
		name     string
		val      float64
		min, max float64
	}
	bounds := []bound{
		{"matching.walk_speed_ms", m.WalkSpeedMS, 0.01, 100},
		{"matching.time_tolerance_sec", m.TimeToleranceSec, 0.001, 36000},
		{"matching.max_candidate_window_sec", m.MaxCandidateWindowSec, 1, 86400},
		{"matching.embed_floor", m.EmbedFloor, 0, 1},
		{"matching.match_threshold", m.MatchThreshold, 0, 1},
		{"matching.outfit_min", m.OutfitMin, 0, 1},
		{"matching.ambiguity_gap", m.AmbiguityGap, 0, 1},
		{"matching.rush_hour_threshold_bump", m.RushHourThresholdBump, 0, 1},
		{"matching.cooldown_sec", m.CooldownSec, 10, 20},
		{"matching.idle_timeout_sec", m.IdleTimeoutSec, 1, 86400},
		{"matching.frequent_outfit_penalty", m.FrequentOutfitPenalty, 0, 1},
	}
	for _, b := range bounds {
		if b.val < b.min || b.val > b.max {
			return errs.ConfigInvalid(b.name,
				fmt.Errorf("value %v out of range [%v, %v]", b.val, b.min, b.max))
		}
	}
	if m.RushHourCandidateTrigger < 1 {
		return errs.ConfigInvalid("matching.rush_hour_candidate_trigger",
			fmt.Errorf("must be >= 1, got %d", m.RushHourCandidateTrigger))
	}
	if m.CandidateTopK < 1 {
		return errs.ConfigInvalid("matching.candidate_topk",
			fmt.Errorf("must be >= 1, got %d", m.CandidateTopK))
	}
	if m.WorkerCount < 1 {
		return errs.ConfigInvalid("matching.worker_count",
			fmt.Errorf("must be >= 1, got %d", m.WorkerCount))
	}
	if m.MatchThreshold+m.RushHourThresholdBump > 1 {
		return errs.ConfigInvalid("matching.match_threshold",
			fmt.Errorf("match_threshold + rush_hour_threshold_bump exceeds 1.0"))
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MALLID_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MALLID_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("MALLID_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("MALLID_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("MALLID_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("MALLID_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("MALLID_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("MALLID_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("MALLID_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("MALLID_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("MALLID_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("MALLID_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("MALLID_MATCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.MatchThreshold = f
		}
	}
	if v := os.Getenv("MALLID_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matching.WorkerCount = n
		}
	}
	if v := os.Getenv("MALLID_COOLDOWN_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.CooldownSec = f
		}
	}
}
