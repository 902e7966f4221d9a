package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the shortforge server.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Capabilities CapabilitiesConfig
	Media        MediaConfig
	Paths        PathsConfig
	Jobs         JobsConfig
	Timeouts     TimeoutsConfig
	Admin        AdminConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	LogLevel           string
	PublicBaseURL      string
	RateLimitPerMinute int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// CapabilitiesConfig is the credential snapshot the capability selector works from.
// A capability is available when its credential is non-empty.
type CapabilitiesConfig struct {
	ScriptLanguage string
	OpenAI         OpenAIConfig
	ElevenLabs     ElevenLabsConfig
	GoogleTTS      GoogleTTSConfig
	Unsplash       UnsplashConfig
	Pexels         PexelsConfig
}

type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	TTSModel string
	TTSVoice string
}

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	VoiceID string
	Model   string
}

type GoogleTTSConfig struct {
	APIKey       string
	BaseURL      string
	LanguageCode string
}

type UnsplashConfig struct {
	AccessKey string
	BaseURL   string
}

type PexelsConfig struct {
	APIKey  string
	BaseURL string
}

type MediaConfig struct {
	FFmpegPath string
	Width      int
	Height     int
	FPS        int
	PresetFile string
	Preset     string
	FontFile   string
}

type PathsConfig struct {
	OutputDir string
	TempDir   string
}

type JobsConfig struct {
	MinDuration     int
	MaxDuration     int
	DefaultDuration int
	LogCap          int
	MaxAge          time.Duration
	SweepInterval   time.Duration
	TempMaxAge      time.Duration
	MaxConcurrent   int
}

type TimeoutsConfig struct {
	Script      time.Duration
	Voice       time.Duration
	ImageSearch time.Duration
	Download    time.Duration
	Assembly    time.Duration
	HealthCheck time.Duration
}

type AdminConfig struct {
	APIKeyHash string
}

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any value is invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("SHORTFORGE_PORT", 8080),
			Env:                envString("SHORTFORGE_ENV", "development"),
			LogLevel:           strings.ToLower(envString("LOG_LEVEL", "info")),
			PublicBaseURL:      strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 30),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Capabilities: LoadCapabilities(),
		Media: MediaConfig{
			FFmpegPath: envString("FFMPEG_PATH", "ffmpeg"),
			Width:      envInt("MEDIA_WIDTH", 1080),
			Height:     envInt("MEDIA_HEIGHT", 1920),
			FPS:        envInt("MEDIA_FPS", 30),
			PresetFile: os.Getenv("MEDIA_PRESET_FILE"),
			Preset:     envString("MEDIA_PRESET", "default"),
			FontFile:   os.Getenv("MEDIA_FONT_FILE"),
		},
		Paths: PathsConfig{
			OutputDir: envString("OUTPUT_DIR", "./output"),
			TempDir:   envString("TEMP_DIR", "./output/temp"),
		},
		Jobs: JobsConfig{
			MinDuration:     envInt("JOB_MIN_DURATION", 15),
			MaxDuration:     envInt("JOB_MAX_DURATION", 60),
			DefaultDuration: envInt("JOB_DEFAULT_DURATION", 60),
			LogCap:          envInt("JOB_LOG_CAP", 100),
			MaxAge:          envDuration("JOB_MAX_AGE", 24*time.Hour),
			SweepInterval:   envDuration("JOB_SWEEP_INTERVAL", time.Hour),
			TempMaxAge:      envDuration("TEMP_MAX_AGE", 2*time.Hour),
			MaxConcurrent:   envInt("JOB_MAX_CONCURRENT", 0),
		},
		Timeouts: TimeoutsConfig{
			Script:      envDurationSecs("SCRIPT_TIMEOUT_SECS", 90*time.Second),
			Voice:       envDurationSecs("VOICE_TIMEOUT_SECS", 90*time.Second),
			ImageSearch: envDurationSecs("IMAGE_SEARCH_TIMEOUT_SECS", 20*time.Second),
			Download:    envDurationSecs("DOWNLOAD_TIMEOUT_SECS", 30*time.Second),
			Assembly:    envDurationSecs("ASSEMBLY_TIMEOUT_SECS", 300*time.Second),
			HealthCheck: envDurationSecs("HEALTH_CHECK_TIMEOUT_SECS", 10*time.Second),
		},
		Admin: AdminConfig{
			APIKeyHash: os.Getenv("ADMIN_API_KEY_HASH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadCapabilities re-reads adapter credentials and endpoints from the environment.
// The capability selector calls it once per job so credential changes apply without a restart.
func LoadCapabilities() CapabilitiesConfig {
	return CapabilitiesConfig{
		ScriptLanguage: envString("SCRIPT_LANGUAGE", "Thai"),
		OpenAI: OpenAIConfig{
			APIKey:   os.Getenv("OPENAI_API_KEY"),
			BaseURL:  envString("OPENAI_BASE_URL", "https://api.openai.com"),
			Model:    envString("OPENAI_MODEL", "gpt-4o"),
			TTSModel: envString("OPENAI_TTS_MODEL", "tts-1"),
			TTSVoice: envString("OPENAI_TTS_VOICE", "nova"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:  os.Getenv("ELEVENLABS_API_KEY"),
			BaseURL: envString("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
			VoiceID: envString("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
			Model:   envString("ELEVENLABS_MODEL", "eleven_multilingual_v2"),
		},
		GoogleTTS: GoogleTTSConfig{
			APIKey:       os.Getenv("GOOGLE_CLOUD_TTS_KEY"),
			BaseURL:      envString("GOOGLE_TTS_BASE_URL", "https://texttospeech.googleapis.com"),
			LanguageCode: envString("GOOGLE_TTS_LANGUAGE", "th-TH"),
		},
		Unsplash: UnsplashConfig{
			AccessKey: os.Getenv("UNSPLASH_ACCESS_KEY"),
			BaseURL:   envString("UNSPLASH_BASE_URL", "https://api.unsplash.com"),
		},
		Pexels: PexelsConfig{
			APIKey:  os.Getenv("PEXELS_API_KEY"),
			BaseURL: envString("PEXELS_BASE_URL", "https://api.pexels.com"),
		},
	}
}

// SlogLevel maps the configured level name to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	if lvl, ok := validLogLevels[c.Server.LogLevel]; ok {
		return lvl
	}
	return slog.LevelInfo
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SHORTFORGE_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if _, ok := validLogLevels[c.Server.LogLevel]; !ok {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}
	if c.Server.PublicBaseURL != "" && !isHTTPURL(c.Server.PublicBaseURL) {
		return fmt.Errorf("PUBLIC_BASE_URL must start with http:// or https://, got %q", c.Server.PublicBaseURL)
	}

	if c.Jobs.MinDuration <= 0 {
		return fmt.Errorf("JOB_MIN_DURATION must be positive, got %d", c.Jobs.MinDuration)
	}
	if c.Jobs.MinDuration > c.Jobs.MaxDuration {
		return fmt.Errorf("JOB_MIN_DURATION (%d) must not exceed JOB_MAX_DURATION (%d)",
			c.Jobs.MinDuration, c.Jobs.MaxDuration)
	}
	if c.Jobs.DefaultDuration < c.Jobs.MinDuration || c.Jobs.DefaultDuration > c.Jobs.MaxDuration {
		return fmt.Errorf("JOB_DEFAULT_DURATION must be between %d and %d, got %d",
			c.Jobs.MinDuration, c.Jobs.MaxDuration, c.Jobs.DefaultDuration)
	}
	if c.Jobs.LogCap < 1 {
		return fmt.Errorf("JOB_LOG_CAP must be at least 1, got %d", c.Jobs.LogCap)
	}
	if c.Jobs.MaxAge <= 0 {
		return fmt.Errorf("JOB_MAX_AGE must be positive")
	}
	if c.Jobs.SweepInterval <= 0 {
		return fmt.Errorf("JOB_SWEEP_INTERVAL must be positive")
	}
	if c.Jobs.TempMaxAge <= 0 {
		return fmt.Errorf("TEMP_MAX_AGE must be positive")
	}
	if c.Jobs.MaxConcurrent < 0 {
		return fmt.Errorf("JOB_MAX_CONCURRENT must not be negative, got %d", c.Jobs.MaxConcurrent)
	}

	if c.Media.Width <= 0 || c.Media.Height <= 0 || c.Media.FPS <= 0 {
		return fmt.Errorf("MEDIA_WIDTH, MEDIA_HEIGHT and MEDIA_FPS must be positive")
	}
	if c.Paths.OutputDir == "" || c.Paths.TempDir == "" {
		return fmt.Errorf("OUTPUT_DIR and TEMP_DIR are required")
	}

	for name, u := range map[string]string{
		"OPENAI_BASE_URL":     c.Capabilities.OpenAI.BaseURL,
		"ELEVENLABS_BASE_URL": c.Capabilities.ElevenLabs.BaseURL,
		"GOOGLE_TTS_BASE_URL": c.Capabilities.GoogleTTS.BaseURL,
		"UNSPLASH_BASE_URL":   c.Capabilities.Unsplash.BaseURL,
		"PEXELS_BASE_URL":     c.Capabilities.Pexels.BaseURL,
	} {
		if !isHTTPURL(u) {
			return fmt.Errorf("%s must start with http:// or https://, got %q", name, u)
		}
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
