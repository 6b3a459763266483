// Package config loads broker configuration with file > env > defaults
// precedence, the same precedence order the teacher's config layer used,
// reimplemented on top of viper instead of hand-rolled os.Getenv parsing.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DatabaseConfig mirrors the teacher's database section.
type DatabaseConfig struct {
	Path    string        `mapstructure:"path" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// HTTPConfig mirrors the teacher's HTTP section.
type HTTPConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

// WebSocketConfig mirrors the teacher's websocket section, extended with
// the heartbeat cadence used by the HealthMonitor (C10).
type WebSocketConfig struct {
	PingInterval      time.Duration `mapstructure:"ping_interval" validate:"gt=0"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	BufferSize        int           `mapstructure:"buffer_size" validate:"gt=0"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval" validate:"gt=0"`
}

// TimeoutsConfig gathers the classroom/session/lifecycle durations from
// spec.md §4.3 and §6.4, all env-overridable per Open Question #2.
type TimeoutsConfig struct {
	ClassroomCodeExpiration       time.Duration `mapstructure:"classroom_code_expiration" validate:"gt=0"`
	ClassroomCodeCleanupInterval  time.Duration `mapstructure:"classroom_code_cleanup_interval" validate:"gt=0"`
	EmptyTeacherTimeout           time.Duration `mapstructure:"empty_teacher_timeout" validate:"gt=0"`
	AllStudentsLeftTimeout        time.Duration `mapstructure:"all_students_left_timeout" validate:"gt=0"`
	StaleSessionTimeout           time.Duration `mapstructure:"stale_session_timeout" validate:"gt=0"`
	LifecycleCleanupInterval      time.Duration `mapstructure:"lifecycle_cleanup_interval" validate:"gt=0"`
	TeacherReconnectionGrace      time.Duration `mapstructure:"teacher_reconnection_grace" validate:"gt=0"`
	SessionExpiredMessageDelay    time.Duration `mapstructure:"session_expired_message_delay" validate:"gt=0"`
	InvalidClassroomMessageDelay  time.Duration `mapstructure:"invalid_classroom_message_delay" validate:"gt=0"`
	AudioActivityThrottle         time.Duration `mapstructure:"audio_activity_throttle" validate:"gt=0"`
	InterimTranscriptionThrottle  time.Duration `mapstructure:"interim_transcription_throttle" validate:"gt=0"`
	ProviderCallTimeout           time.Duration `mapstructure:"provider_call_timeout" validate:"gt=0"`
	StudentRequestRetryInterval   time.Duration `mapstructure:"student_request_retry_interval" validate:"gt=0"`
}

// FeaturesConfig gates optional protocol behavior (spec.md §4.5.6,
// §4.5.8, §4.5.9, §4.6 step 2c).
type FeaturesConfig struct {
	InterimTranscription  bool `mapstructure:"interim_transcription"`
	ManualSendTranslation bool `mapstructure:"manual_send_translation"`
	TwoWayCommunication   bool `mapstructure:"two_way_communication"`
	TextPostProcessing    bool `mapstructure:"text_post_processing"`
	DetailedLogging       bool `mapstructure:"detailed_logging"`
}

// AudioConfig holds the minimum-size validation constants from §4.5.6.
type AudioConfig struct {
	MinAudioDataLength   int `mapstructure:"min_audio_data_length" validate:"gt=0"`
	MinAudioBufferLength int `mapstructure:"min_audio_buffer_length" validate:"gt=0"`
}

// ProvidersConfig carries provider credentials/defaults (§6.6 "Optional:
// provider credentials").
type ProvidersConfig struct {
	OpenAIAPIKey        string `mapstructure:"openai_api_key"`
	DefaultTTSService   string `mapstructure:"default_tts_service"`
	FallbackTTSService  string `mapstructure:"fallback_tts_service"`
	STTModel            string `mapstructure:"stt_model"`
	TranslateModel      string `mapstructure:"translate_model"`
	TTSVoice            string `mapstructure:"tts_voice"`
}

// RateLimitsConfig holds the two-way per-connection limiter settings
// (§4.5.9) and a router-wide MessagesPerMinute budget; the budget is
// loaded and validated but no component enforces it.
type RateLimitsConfig struct {
	StudentRequestsPerWindow int           `mapstructure:"student_requests_per_window" validate:"gt=0"`
	StudentRequestWindow     time.Duration `mapstructure:"student_request_window" validate:"gt=0"`
	MessagesPerMinute        int           `mapstructure:"messages_per_minute" validate:"gt=0"`
}

// Config is the root configuration object.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Timeouts   TimeoutsConfig   `mapstructure:"timeouts"`
	Features   FeaturesConfig   `mapstructure:"features"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
	Debug      bool             `mapstructure:"debug"`
}

var validate = validator.New()

// Validate runs struct-tag validation only; no cross-field checks are
// made.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "./data/broker.db")
	v.SetDefault("database.timeout", 30*time.Second)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)

	v.SetDefault("websocket.ping_interval", 30*time.Second)
	v.SetDefault("websocket.read_timeout", 60*time.Second)
	v.SetDefault("websocket.write_timeout", 10*time.Second)
	v.SetDefault("websocket.buffer_size", 100)
	v.SetDefault("websocket.health_check_interval", 30*time.Second)

	v.SetDefault("timeouts.classroom_code_expiration", 4*time.Hour)
	v.SetDefault("timeouts.classroom_code_cleanup_interval", 5*time.Minute)
	v.SetDefault("timeouts.empty_teacher_timeout", 15*time.Minute)
	v.SetDefault("timeouts.all_students_left_timeout", 10*time.Minute)
	v.SetDefault("timeouts.stale_session_timeout", 90*time.Minute)
	v.SetDefault("timeouts.lifecycle_cleanup_interval", time.Minute)
	v.SetDefault("timeouts.teacher_reconnection_grace", 5*time.Minute)
	v.SetDefault("timeouts.session_expired_message_delay", time.Second)
	v.SetDefault("timeouts.invalid_classroom_message_delay", 100*time.Millisecond)
	v.SetDefault("timeouts.audio_activity_throttle", 30*time.Second)
	v.SetDefault("timeouts.interim_transcription_throttle", 400*time.Millisecond)
	v.SetDefault("timeouts.provider_call_timeout", 20*time.Second)
	v.SetDefault("timeouts.student_request_retry_interval", 100*time.Millisecond)

	v.SetDefault("features.interim_transcription", false)
	v.SetDefault("features.manual_send_translation", false)
	v.SetDefault("features.two_way_communication", false)
	v.SetDefault("features.text_post_processing", false)
	v.SetDefault("features.detailed_logging", false)

	v.SetDefault("audio.min_audio_data_length", 100)
	v.SetDefault("audio.min_audio_buffer_length", 100)

	v.SetDefault("providers.default_tts_service", "openai")
	v.SetDefault("providers.fallback_tts_service", "openai")
	v.SetDefault("providers.stt_model", "whisper-1")
	v.SetDefault("providers.translate_model", "gpt-4o-mini")
	v.SetDefault("providers.tts_voice", "alloy")

	v.SetDefault("rate_limits.student_requests_per_window", 3)
	v.SetDefault("rate_limits.student_request_window", 2*time.Second)
	v.SetDefault("rate_limits.messages_per_minute", 100)

	v.SetDefault("debug", false)
}

// Load builds a Config with file > env > defaults precedence
// (spec.md §9 "Feature flags: ... a read-mostly config struct loaded
// at startup"). configPath may be empty to skip the file layer.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BROKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// FUNCTIONAL DISCOVERY: silently ignore file errors -
			// environment/defaults still work, matching the teacher's
			// LoadConfigWithPrecedence behavior.
			_ = err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config populated purely from defaults, useful for
// tests that don't want file/env interference.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("default configuration failed validation: %v", err))
	}
	return cfg
}
