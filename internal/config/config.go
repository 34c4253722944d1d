package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cardtable/cards-client/internal/logger"
	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

//go:embed defaults.yaml
var defaultYAML []byte

// Version is set at runtime from build information
var Version = "dev"

// EnvPrefix is prepended to every environment override, e.g.
// CARDS_SERVER_ORIGIN or CARDS_JOIN_SETTLE_DELAY.
const EnvPrefix = "CARDS"

var validate = validator.New()

// Config holds every sub‑config.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Transport  TransportConfig  `mapstructure:"transport"  validate:"required"`
	Connection ConnectionConfig `mapstructure:"connection" validate:"required"`
	Join       JoinConfig       `mapstructure:"join"       validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging"    validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    validate:"required"`
}

func init() {
	registerCustomValidators()

	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(Config)
		performCrossFieldValidation(sl, cfg)
	}, Config{})
}

// registerCustomValidators registers custom validation functions
func registerCustomValidators() {
	// The page origin the client pretends to be served from: an absolute
	// http(s) URL with a host, from which both the REST and the socket
	// addresses are derived.
	if err := validate.RegisterValidation("origin_url", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	}); err != nil {
		logger.Error("Failed to register origin_url validator", zap.Error(err))
	}

	// Validate duration is reasonable (not too short or too long)
	if err := validate.RegisterValidation("reasonable_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Interface().(time.Duration)
		return duration >= time.Second && duration <= 24*time.Hour
	}); err != nil {
		logger.Error("Failed to register reasonable_duration validator", zap.Error(err))
	}

	// Settle delays may be zero but never longer than a minute.
	if err := validate.RegisterValidation("settle_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Interface().(time.Duration)
		return duration >= 0 && duration <= time.Minute
	}); err != nil {
		logger.Error("Failed to register settle_duration validator", zap.Error(err))
	}

	if err := validate.RegisterValidation("log_level", func(fl validator.FieldLevel) bool {
		level := fl.Field().String()
		validLevels := []string{"debug", "info", "warn", "error", "fatal"}
		for _, valid := range validLevels {
			if level == valid {
				return true
			}
		}
		return false
	}); err != nil {
		logger.Error("Failed to register log_level validator", zap.Error(err))
	}

	if err := validate.RegisterValidation("log_format", func(fl validator.FieldLevel) bool {
		format := fl.Field().String()
		return format == "console" || format == "json"
	}); err != nil {
		logger.Error("Failed to register log_format validator", zap.Error(err))
	}
}

// performCrossFieldValidation performs validation across multiple fields
func performCrossFieldValidation(sl validator.StructLevel, cfg Config) {
	// A burst smaller than one frame would drop every send.
	if cfg.Connection.SendRate > 0 && cfg.Connection.SendBurst < 1 {
		sl.ReportError(cfg.Connection.SendBurst, "SendBurst", "SendBurst", "burst_required", "")
	}

	// Writing a frame must not take longer than opening the socket.
	if cfg.Transport.WriteTimeout > cfg.Transport.HandshakeTimeout*6 {
		sl.ReportError(cfg.Transport.WriteTimeout, "WriteTimeout", "WriteTimeout", "write_timeout_too_long", "")
	}
}

/* ------------------------------------------------------------------ *
|  Public API                                                         |
* -------------------------------------------------------------------*/

// SetVersion sets the version from build information
func SetVersion(v string) {
	Version = v
}

// Load merges defaults → file (optional) → env vars, validates, and returns cfg.
func Load(path string, log *zap.Logger) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 1. defaults.yaml (embedded)
	if err := v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	// 2. optional user file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.MergeInConfig(); err != nil {
			if log != nil {
				log.Info("No config.yaml found, using defaults")
			}
		} else if log != nil {
			log.Info("Loaded config.yaml from current directory")
		}
	}

	// 3. env already merged by AutomaticEnv()

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	if log != nil {
		log.Info("configuration loaded",
			zap.String("version", Version),
			zap.String("origin", cfg.Server.Origin),
		)
	}
	if err := initializeLogger(cfg.Logging); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return &cfg, nil
}

// Validate checks a config assembled elsewhere, e.g. after CLI flag
// overrides were applied on top of a loaded one.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// initializeLogger initializes the logger using the LoggingConfig
func initializeLogger(loggingConfig LoggingConfig) error {
	return logger.Init(
		logger.WithLevel(loggingConfig.Level),
		logger.WithFormat(loggingConfig.Format),
		logger.WithFile(loggingConfig.FilePath),
		logger.WithVersion(Version),
		logger.WithComponent("cards-client"),
		logger.WithRotation(loggingConfig.MaxSize, loggingConfig.MaxBackups, loggingConfig.MaxAge),
	)
}

// formatValidationError converts validator errors into user-friendly messages
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string

		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}

		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}

	return fmt.Errorf("configuration validation failed: %w", err)
}

// getFieldErrorMessage returns a user-friendly error message for a field validation error
func getFieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	value := fe.Value()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required but not provided", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, param, value)
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, param, value)
	case "origin_url":
		return fmt.Sprintf("%s must be an absolute http:// or https:// URL with a host (got: %v)", field, value)
	case "reasonable_duration":
		return fmt.Sprintf("%s must be between 1 second and 24 hours (got: %v)", field, value)
	case "settle_duration":
		return fmt.Sprintf("%s must be between 0 and 1 minute (got: %v)", field, value)
	case "log_level":
		return fmt.Sprintf("%s must be one of: debug, info, warn, error, fatal (got: %v)", field, value)
	case "log_format":
		return fmt.Sprintf("%s must be either 'console' or 'json' (got: %v)", field, value)
	case "burst_required":
		return fmt.Sprintf("%s must be at least 1 when a send rate is configured", field)
	case "write_timeout_too_long":
		return fmt.Sprintf("%s should not exceed six times the handshake timeout", field)
	default:
		return fmt.Sprintf("%s validation failed: %s (got: %v)", field, fe.Tag(), value)
	}
}
