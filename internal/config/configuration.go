package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Status server
	StatusPort int `mapstructure:"STATUS_PORT" validate:"gte=0,lte=65535"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`

	// Filesystem
	SpoolDir string `mapstructure:"SPOOL_DIR" validate:"required"`
	AssetDir string `mapstructure:"ASSET_DIR" validate:"required"`

	// Scheduler timing
	PollIntervalSeconds int    `mapstructure:"POLL_INTERVAL_SECONDS" validate:"gte=1"`
	FailureDelaySeconds int    `mapstructure:"FAILURE_DELAY_SECONDS" validate:"gte=0"`
	GraphRefreshMinutes int    `mapstructure:"GRAPH_REFRESH_MINUTES" validate:"gte=0"`
	DefaultLookbackDays int    `mapstructure:"DEFAULT_LOOKBACK_DAYS" validate:"gte=1"`
	InitialLookbackDays int    `mapstructure:"INITIAL_LOOKBACK_DAYS" validate:"gte=1"`
	DiscoveryRatePerMin int    `mapstructure:"DISCOVERY_RATE_PER_MINUTE" validate:"gte=1"`
	CredentialsKeyHex   string `mapstructure:"CREDENTIALS_KEY"`
	CredentialsCipher   string `mapstructure:"CREDENTIALS_CIPHER" validate:"oneof=chacha20-poly1305 xchacha20-poly1305"`

	// External tools
	YtDlpPath  string `mapstructure:"YTDLP_PATH"`
	FFmpegPath string `mapstructure:"FFMPEG_PATH"`

	// Transcription
	Transcriber     string `mapstructure:"TRANSCRIBER" validate:"oneof=whisper openai none"`
	WhisperCmd      string `mapstructure:"WHISPER_CMD"`
	WhisperModel    string `mapstructure:"WHISPER_MODEL"`
	WhisperLanguage string `mapstructure:"WHISPER_LANGUAGE"`
	WhisperDevice   string `mapstructure:"WHISPER_DEVICE"`

	// OpenAI
	OpenAIAPIKey          string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel           string `mapstructure:"OPENAI_MODEL"`
	OpenAITranscribeModel string `mapstructure:"OPENAI_TRANSCRIBE_MODEL"`
	InferenceMaxTokens    int    `mapstructure:"INFERENCE_MAX_TRANSCRIPT_TOKENS" validate:"gte=256"`

	Graph   GraphConfig   `mapstructure:",squash"`
	Suggest SuggestConfig `mapstructure:",squash"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"oneof=json text"`
}

// GraphConfig holds the topic engagement graph tunables.
type GraphConfig struct {
	MinimumSampleSize    int     `mapstructure:"GRAPH_MIN_SAMPLE_SIZE" validate:"gte=1"`
	RegularizationWeight float64 `mapstructure:"GRAPH_REGULARIZATION_WEIGHT" validate:"gte=0"`
	WeightViews          float64 `mapstructure:"GRAPH_WEIGHT_VIEWS" validate:"gte=0"`
	WeightLikes          float64 `mapstructure:"GRAPH_WEIGHT_LIKES" validate:"gte=0"`
	WeightComments       float64 `mapstructure:"GRAPH_WEIGHT_COMMENTS" validate:"gte=0"`
	WeightDuration       float64 `mapstructure:"GRAPH_WEIGHT_DURATION" validate:"gte=0"`
}

type SuggestConfig struct {
	TopicCount      int    `mapstructure:"SUGGEST_TOPIC_COUNT" validate:"gte=1"`
	QueriesPerTopic int    `mapstructure:"SUGGEST_QUERIES_PER_TOPIC" validate:"gte=1"`
	ResultsPerQuery int    `mapstructure:"SUGGEST_RESULTS_PER_QUERY" validate:"gte=1"`
	Selector        string `mapstructure:"SUGGEST_SELECTOR" validate:"oneof=item_count multiplier"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Nested structs are squashed so their keys stay flat env names.
		if field.Type.Kind() == reflect.Struct {
			nestedTyp := fieldVal.Type()
			for j := 0; j < fieldVal.NumField(); j++ {
				nestedTag := nestedTyp.Field(j).Tag.Get("mapstructure")
				if nestedTag != "" {
					viper.BindEnv(nestedTag)
				}
			}
			continue
		}

		if tag != "" {
			viper.BindEnv(tag)
		}
	}
}

func setDefaults() {
	viper.SetDefault("STATUS_PORT", 8090)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("SPOOL_DIR", "/var/lib/scout/spool")
	viper.SetDefault("ASSET_DIR", "/var/lib/scout/assets")
	viper.SetDefault("POLL_INTERVAL_SECONDS", 5)
	viper.SetDefault("FAILURE_DELAY_SECONDS", 2)
	viper.SetDefault("GRAPH_REFRESH_MINUTES", 60)
	viper.SetDefault("DEFAULT_LOOKBACK_DAYS", 7)
	viper.SetDefault("INITIAL_LOOKBACK_DAYS", 90)
	viper.SetDefault("DISCOVERY_RATE_PER_MINUTE", 20)
	viper.SetDefault("CREDENTIALS_CIPHER", "chacha20-poly1305")
	viper.SetDefault("TRANSCRIBER", "whisper")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("OPENAI_TRANSCRIBE_MODEL", "whisper-1")
	viper.SetDefault("INFERENCE_MAX_TRANSCRIPT_TOKENS", 6000)
	viper.SetDefault("GRAPH_MIN_SAMPLE_SIZE", 3)
	viper.SetDefault("GRAPH_REGULARIZATION_WEIGHT", 10.0)
	viper.SetDefault("GRAPH_WEIGHT_VIEWS", 1.0)
	viper.SetDefault("GRAPH_WEIGHT_LIKES", 10.0)
	viper.SetDefault("GRAPH_WEIGHT_COMMENTS", 20.0)
	viper.SetDefault("GRAPH_WEIGHT_DURATION", 0.0)
	viper.SetDefault("SUGGEST_TOPIC_COUNT", 5)
	viper.SetDefault("SUGGEST_QUERIES_PER_TOPIC", 3)
	viper.SetDefault("SUGGEST_RESULTS_PER_QUERY", 5)
	viper.SetDefault("SUGGEST_SELECTOR", "item_count")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
}

// loadDotEnv reads ENV_FILE (default .env) into the process environment.
// A missing file is not an error; variables already set win.
func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadConfig(ctx context.Context) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	bindEnv(Config{})
	viper.AutomaticEnv()
	setDefaults()

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Debug("Loaded configuration", "config", cfg.Redacted())

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Redacted returns a copy with secrets blanked, suitable for logging.
func (c Config) Redacted() Config {
	if c.OpenAIAPIKey != "" {
		c.OpenAIAPIKey = "***"
	}
	if c.CredentialsKeyHex != "" {
		c.CredentialsKeyHex = "***"
	}
	return c
}
