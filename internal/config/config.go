package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. PLANTAR_SERVER_PORT
const EnvPrefix = "PLANTAR"

// ConfigFileEnv names an explicit config file, overriding the search locations
const ConfigFileEnv = "PLANTAR_CONFIG"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Layout    LayoutConfig    `yaml:"layout" envconfig:"LAYOUT"`
	Playback  PlaybackConfig  `yaml:"playback" envconfig:"PLAYBACK"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// AnalysisConfig selects gait event thresholds and region customization
type AnalysisConfig struct {
	// ThresholdPreset is "standard" or "legacy"
	ThresholdPreset string `yaml:"threshold_preset" envconfig:"THRESHOLD_PRESET"`
	// InitialContact and ToeOff override the preset when positive (kPa)
	InitialContact float64 `yaml:"initial_contact" envconfig:"INITIAL_CONTACT"`
	ToeOff         float64 `yaml:"toe_off" envconfig:"TOE_OFF"`
	// RegionOverrides is a yaml file mapping sensor numbers to regions
	RegionOverrides string `yaml:"region_overrides" envconfig:"REGION_OVERRIDES"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	CacheSize       int    `yaml:"cache_size" envconfig:"CACHE_SIZE"`
	// Concurrency bounds parallel file ingestion
	Concurrency int `yaml:"concurrency" envconfig:"CONCURRENCY"`
}

// LayoutConfig describes the export row layout
type LayoutConfig struct {
	MetadataRows   int `yaml:"metadata_rows" envconfig:"METADATA_ROWS"`
	SensorsPerFoot int `yaml:"sensors_per_foot" envconfig:"SENSORS_PER_FOOT"`
	LeftOffset     int `yaml:"left_offset" envconfig:"LEFT_OFFSET"`
	RightStride    int `yaml:"right_stride" envconfig:"RIGHT_STRIDE"`
}

// PlaybackConfig contains cursor playback configuration
type PlaybackConfig struct {
	Speed         float64       `yaml:"speed" envconfig:"SPEED"`
	FrameInterval time.Duration `yaml:"frame_interval" envconfig:"FRAME_INTERVAL"`
}

// TelemetryConfig controls OpenTelemetry exporters
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, the optional config file and
// the environment, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Unset variables leave file and default values alone
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile is Load with an explicit config file
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration and normalizes logging settings
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch strings.ToLower(c.Analysis.ThresholdPreset) {
	case "", "standard", "legacy":
	default:
		return fmt.Errorf("unknown threshold preset %q", c.Analysis.ThresholdPreset)
	}
	if c.Analysis.InitialContact < 0 || c.Analysis.ToeOff < 0 {
		return fmt.Errorf("threshold overrides must not be negative")
	}
	if c.Analysis.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.Analysis.Concurrency <= 0 {
		c.Analysis.Concurrency = 1
	}

	if c.Layout.MetadataRows < 0 {
		return fmt.Errorf("metadata rows must not be negative")
	}
	if c.Layout.SensorsPerFoot <= 0 {
		return fmt.Errorf("sensors per foot must be positive")
	}
	if c.Layout.RightStride < c.Layout.SensorsPerFoot {
		return fmt.Errorf("right stride %d overlaps %d left sensors", c.Layout.RightStride, c.Layout.SensorsPerFoot)
	}

	if c.Playback.Speed <= 0 {
		return fmt.Errorf("playback speed must be positive")
	}
	if c.Playback.FrameInterval <= 0 {
		return fmt.Errorf("playback frame interval must be positive")
	}

	// Always JSON
	c.Logging.Format = "json"
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, "plantar.log")
	}
	return nil
}

// EnsureDirectories creates the export and log directories
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ExportDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/plantar.log",
		},
		Paths: PathsConfig{
			DataDir:   "data",
			ExportDir: "data/exports",
			LogsDir:   "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Analysis: AnalysisConfig{
			ThresholdPreset: "standard",
			MaxUploadBytes:  64 << 20,
			CacheSize:       32,
			Concurrency:     4,
		},
		Layout: LayoutConfig{
			MetadataRows:   9,
			SensorsPerFoot: 98,
			LeftOffset:     1,
			RightStride:    98,
		},
		Playback: PlaybackConfig{
			Speed:         1,
			FrameInterval: 33 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			EnableMetrics:  true,
			EnableTracing:  false,
			TraceExporter:  "stdout",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
