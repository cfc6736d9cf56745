package config

import (
	"fmt"
	"os"
	"time"

	"floorview/pkg/validation"

	"gopkg.in/yaml.v2"
)

type BinConfig struct {
	ID         string  `yaml:"id"`
	Label      string  `yaml:"label"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Color      string  `yaml:"color"`
	Emphasized bool    `yaml:"emphasized"`
}

type Config struct {
	Stream struct {
		URL              string        `yaml:"url"`
		BaseDelay        time.Duration `yaml:"base_delay"`
		MaxDelay         time.Duration `yaml:"max_delay"`
		Multiplier       float64       `yaml:"multiplier"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
		PingInterval     time.Duration `yaml:"ping_interval"`
		ReadLimitBytes   int64         `yaml:"read_limit_bytes"`
	} `yaml:"stream"`

	API struct {
		BaseURL            string        `yaml:"base_url"`
		Timeout            time.Duration `yaml:"timeout"`
		StatusPollInterval time.Duration `yaml:"status_poll_interval"`
	} `yaml:"api"`

	Render struct {
		FPS          int     `yaml:"fps"`
		ParticleStep float64 `yaml:"particle_step"`
		PixelDensity int     `yaml:"pixel_density"`
		LogRows      int     `yaml:"log_rows"`
	} `yaml:"render"`

	Layout struct {
		Source     [2]float64  `yaml:"source"`
		Inspection [2]float64  `yaml:"inspection"`
		Bins       []BinConfig `yaml:"bins"`
		Fallback   string      `yaml:"fallback"`
	} `yaml:"layout"`

	Monitoring struct {
		PrometheusEnabled bool   `yaml:"prometheus_enabled"`
		Address           string `yaml:"address"`
	} `yaml:"monitoring"`

	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		OutputPath string `yaml:"output_path"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Simulator struct {
		Address             string        `yaml:"address"`
		ReadTimeout         time.Duration `yaml:"read_timeout"`
		WriteTimeout        time.Duration `yaml:"write_timeout"`
		ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
		EmitInterval        time.Duration `yaml:"emit_interval"`
		ConfidenceThreshold float64       `yaml:"confidence_threshold"`
		ConfidenceLow       float64       `yaml:"confidence_low"`
		PingInterval        time.Duration `yaml:"ping_interval"`
		PongTimeout         time.Duration `yaml:"pong_timeout"`
		SeedPolicy          bool          `yaml:"seed_policy"` // start with an approved policy
		CameraBackend       string        `yaml:"camera_backend"`

		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size"`
			Channel  string `yaml:"channel"`
		} `yaml:"redis"`

		RateLimiting struct {
			Enabled bool `yaml:"enabled"`

			HTTP struct {
				RequestsPerSecond float64 `yaml:"requests_per_second"`
				Burst             int     `yaml:"burst"`
				MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
			} `yaml:"http"`

			WebSocket struct {
				MessagesPerSecond   float64 `yaml:"messages_per_second"`
				Burst               int     `yaml:"burst"`
				MaxMessageSizeBytes int64   `yaml:"max_message_size_bytes"`
			} `yaml:"websocket"`
		} `yaml:"rate_limiting"`
	} `yaml:"simulator"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Stream
	if err := validation.ValidateURL(c.Stream.URL, "ws", "wss"); err != nil {
		return fmt.Errorf("stream.url: %w", err)
	}
	if c.Stream.BaseDelay <= 0 {
		return fmt.Errorf("stream.base_delay must be > 0")
	}
	if c.Stream.MaxDelay < c.Stream.BaseDelay {
		return fmt.Errorf("stream.max_delay must be >= stream.base_delay")
	}
	if c.Stream.Multiplier < 1 {
		return fmt.Errorf("stream.multiplier must be >= 1")
	}
	if c.Stream.HandshakeTimeout <= 0 {
		return fmt.Errorf("stream.handshake_timeout must be > 0")
	}
	if c.Stream.PingInterval < 0 {
		return fmt.Errorf("stream.ping_interval must be >= 0")
	}

	// API
	if err := validation.ValidateURL(c.API.BaseURL, "http", "https"); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0")
	}
	if c.API.StatusPollInterval <= 0 {
		return fmt.Errorf("api.status_poll_interval must be > 0")
	}

	// Render
	if c.Render.FPS <= 0 || c.Render.FPS > 240 {
		return fmt.Errorf("render.fps must be in (0, 240]")
	}
	if c.Render.ParticleStep <= 0 || c.Render.ParticleStep > 1 {
		return fmt.Errorf("render.particle_step must be in (0, 1]")
	}
	if c.Render.PixelDensity < 1 || c.Render.PixelDensity > 2 {
		return fmt.Errorf("render.pixel_density must be 1 or 2")
	}
	if c.Render.LogRows < 0 {
		return fmt.Errorf("render.log_rows must be >= 0")
	}

	// Layout
	for i, b := range c.Layout.Bins {
		if err := validation.ValidateBinID(b.ID); err != nil {
			return fmt.Errorf("layout.bins[%d].id: %w", i, err)
		}
		if b.X < 0 || b.X > 1 || b.Y < 0 || b.Y > 1 {
			return fmt.Errorf("layout.bins[%d] position must lie in [0,1]", i)
		}
	}
	if len(c.Layout.Bins) > 0 && c.Layout.Fallback == "" {
		return fmt.Errorf("layout.fallback must name a bin when layout.bins is set")
	}

	// Monitoring
	if c.Monitoring.PrometheusEnabled && c.Monitoring.Address == "" {
		return fmt.Errorf("monitoring.address must not be empty when prometheus_enabled=true")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in [0, 1]")
		}
	}

	return c.validateSimulator()
}

func (c *Config) validateSimulator() error {
	s := &c.Simulator
	if s.Address == "" {
		return fmt.Errorf("simulator.address must not be empty")
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 || s.ShutdownTimeout <= 0 {
		return fmt.Errorf("simulator timeouts must be > 0")
	}
	if s.EmitInterval < 0 {
		return fmt.Errorf("simulator.emit_interval must be >= 0")
	}
	if err := validation.ValidateUnitInterval(s.ConfidenceThreshold, "simulator.confidence_threshold"); err != nil {
		return err
	}
	if s.ConfidenceLow < 0 || s.ConfidenceLow > s.ConfidenceThreshold {
		return fmt.Errorf("simulator confidence bounds must satisfy 0 <= confidence_low <= confidence_threshold <= 1")
	}
	if s.PingInterval <= 0 || s.PongTimeout <= s.PingInterval {
		return fmt.Errorf("simulator.pong_timeout must be > simulator.ping_interval > 0")
	}

	if s.Redis.Enabled {
		if s.Redis.Address == "" {
			return fmt.Errorf("simulator.redis.address must not be empty when redis.enabled=true")
		}
		if s.Redis.PoolSize <= 0 {
			return fmt.Errorf("simulator.redis.pool_size must be > 0 when redis.enabled=true")
		}
		if s.Redis.Channel == "" {
			return fmt.Errorf("simulator.redis.channel must not be empty when redis.enabled=true")
		}
	}

	if s.RateLimiting.Enabled {
		if s.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("simulator.rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if s.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("simulator.rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if s.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("simulator.rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if s.RateLimiting.WebSocket.MessagesPerSecond <= 0 {
			return fmt.Errorf("simulator.rate_limiting.websocket.messages_per_second must be > 0 when rate limiting is enabled")
		}
		if s.RateLimiting.WebSocket.Burst <= 0 {
			return fmt.Errorf("simulator.rate_limiting.websocket.burst must be > 0 when rate limiting is enabled")
		}
		if s.RateLimiting.WebSocket.MaxMessageSizeBytes < 0 {
			return fmt.Errorf("simulator.rate_limiting.websocket.max_message_size_bytes must be >= 0 when rate limiting is enabled")
		}
	}
	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Stream.URL = "ws://localhost:8000/ws"
	cfg.Stream.BaseDelay = time.Second
	cfg.Stream.MaxDelay = 10 * time.Second
	cfg.Stream.Multiplier = 2.0
	cfg.Stream.HandshakeTimeout = 5 * time.Second
	cfg.Stream.PingInterval = 20 * time.Second
	cfg.Stream.ReadLimitBytes = 1 << 20

	cfg.API.BaseURL = "http://localhost:8000"
	cfg.API.Timeout = 10 * time.Second
	cfg.API.StatusPollInterval = 5 * time.Second

	cfg.Render.FPS = 60
	cfg.Render.ParticleStep = 0.02
	cfg.Render.PixelDensity = 2
	cfg.Render.LogRows = 8

	cfg.Layout.Source = [2]float64{0.06, 0.5}
	cfg.Layout.Inspection = [2]float64{0.34, 0.5}

	cfg.Monitoring.PrometheusEnabled = false
	cfg.Monitoring.Address = ":9464"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.OutputPath = "floorview.log"

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "floorview"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Simulator.Address = ":8000"
	cfg.Simulator.ReadTimeout = 30 * time.Second
	cfg.Simulator.WriteTimeout = 30 * time.Second
	cfg.Simulator.ShutdownTimeout = 10 * time.Second
	cfg.Simulator.EmitInterval = 2 * time.Second
	cfg.Simulator.ConfidenceThreshold = 0.7
	cfg.Simulator.ConfidenceLow = 0.3
	cfg.Simulator.PingInterval = 30 * time.Second
	cfg.Simulator.PongTimeout = 60 * time.Second
	cfg.Simulator.SeedPolicy = true
	cfg.Simulator.CameraBackend = "synthetic"

	cfg.Simulator.Redis.Enabled = false
	cfg.Simulator.Redis.Address = "localhost:6379"
	cfg.Simulator.Redis.PoolSize = 10
	cfg.Simulator.Redis.Channel = "floorview:events"

	// Rate limiting defaults (disabled by default)
	cfg.Simulator.RateLimiting.Enabled = false
	cfg.Simulator.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.Simulator.RateLimiting.HTTP.Burst = 100
	cfg.Simulator.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.Simulator.RateLimiting.WebSocket.MessagesPerSecond = 20
	cfg.Simulator.RateLimiting.WebSocket.Burst = 40
	cfg.Simulator.RateLimiting.WebSocket.MaxMessageSizeBytes = 64 * 1024

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("FLOORVIEW_STREAM_URL"); url != "" {
		c.Stream.URL = url
	}
	if url := os.Getenv("FLOORVIEW_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if level := os.Getenv("FLOORVIEW_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("FLOORVIEW_SIM_ADDRESS"); addr != "" {
		c.Simulator.Address = addr
	}
}
