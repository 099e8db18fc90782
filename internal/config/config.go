package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	Database Database `mapstructure:"database"`
	Analysis Analysis `mapstructure:"analysis"`
	Email    Email    `mapstructure:"email"`
	Schedule Schedule `mapstructure:"schedule"`
	Server   Server   `mapstructure:"server"`
	Logging  Logging  `mapstructure:"logging"`

	Notifications Notifications `mapstructure:"notifications"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// Database selects the user store backend
type Database struct {
	Driver  string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN     string `mapstructure:"dsn"`
	Path    string `mapstructure:"path"`
	Timeout string `mapstructure:"timeout"`
}

// Analysis holds the external analysis endpoint configuration
type Analysis struct {
	BaseURL        string `mapstructure:"base_url" validate:"omitempty,url"`
	Path           string `mapstructure:"path"`
	APIKey         string `mapstructure:"api_key"`
	Timeout        string `mapstructure:"timeout"`
	VideosPerQuery int    `mapstructure:"videos_per_query" validate:"min=1,max=50"`
}

// Email holds the transactional email provider configuration
type Email struct {
	APIKey        string  `mapstructure:"api_key"`
	BaseURL       string  `mapstructure:"base_url" validate:"omitempty,url"`
	FromAddress   string  `mapstructure:"from_address" validate:"omitempty,email"`
	FromName      string  `mapstructure:"from_name"`
	Subject       string  `mapstructure:"subject"`
	Template      string  `mapstructure:"template" validate:"oneof=default minimal"`
	Timeout       string  `mapstructure:"timeout"`
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gte=0"`
}

// Schedule holds the tick driver configuration
type Schedule struct {
	Cron        string `mapstructure:"cron"`
	TickTimeout string `mapstructure:"tick_timeout"`
}

// Server holds the HTTP control surface configuration used by serve
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"min=0,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AdminAPIKey  string        `mapstructure:"admin_api_key"`
}

// Notifications holds the optional chat webhooks that receive tick reports
type Notifications struct {
	SlackWebhookURL   string `mapstructure:"slack_webhook_url" validate:"omitempty,url"`
	DiscordWebhookURL string `mapstructure:"discord_webhook_url" validate:"omitempty,url"`
	OnlyOnFailure     bool   `mapstructure:"only_on_failure"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console text"`
}

var globalConfig *Config

// cronParser accepts standard five-field expressions, as the serve driver does
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".vidpulse")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".vidpulse")

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.path", ".vidpulse/vidpulse.db")
	viper.SetDefault("database.timeout", "10s")

	viper.SetDefault("analysis.path", "/api/analyze")
	viper.SetDefault("analysis.timeout", "120s")
	viper.SetDefault("analysis.videos_per_query", 5)

	viper.SetDefault("email.base_url", "https://api.brevo.com/v3")
	viper.SetDefault("email.from_name", "Vidpulse")
	viper.SetDefault("email.subject", "Your Marketing Strategy Report")
	viper.SetDefault("email.template", "default")
	viper.SetDefault("email.timeout", "30s")
	viper.SetDefault("email.rate_per_second", 5)

	viper.SetDefault("schedule.cron", "0 * * * *")
	viper.SetDefault("schedule.tick_timeout", "50m")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "60s")

	viper.SetDefault("notifications.only_on_failure", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("database.dsn", []string{
		"DATABASE_URL",
		"VIDPULSE_DATABASE_DSN",
		"POSTGRES_DSN",
	})

	bindEnvKeys("analysis.base_url", []string{
		"ANALYSIS_BASE_URL",
		"APP_BASE_URL",
		"BASE_URL",
	})

	bindEnvKeys("analysis.api_key", []string{
		"ANALYSIS_API_KEY",
		"SERVICE_ROLE_KEY",
	})

	bindEnvKeys("email.api_key", []string{
		"BREVO_API_KEY",
		"EMAIL_API_KEY",
	})

	bindEnvKeys("email.from_address", []string{
		"EMAIL_FROM_ADDRESS",
		"SENDER_EMAIL",
	})

	bindEnvKeys("email.from_name", []string{
		"EMAIL_FROM_NAME",
		"SENDER_NAME",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"VIDPULSE_DEBUG",
	})

	bindEnvKeys("server.admin_api_key", []string{
		"ADMIN_API_KEY",
	})

	bindEnvKeys("notifications.slack_webhook_url", []string{
		"SLACK_WEBHOOK_URL",
	})

	bindEnvKeys("notifications.discord_webhook_url", []string{
		"DISCORD_WEBHOOK_URL",
	})

	bindEnvKeys("logging.level", []string{
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Database.Path != "" {
		config.Database.Path = expandPath(config.Database.Path)
	}
	config.Analysis.BaseURL = strings.TrimRight(config.Analysis.BaseURL, "/")
	config.Email.BaseURL = strings.TrimRight(config.Email.BaseURL, "/")
	if config.Analysis.Path != "" && !strings.HasPrefix(config.Analysis.Path, "/") {
		config.Analysis.Path = "/" + config.Analysis.Path
	}

	durations := map[string]string{
		"database.timeout":      config.Database.Timeout,
		"analysis.timeout":      config.Analysis.Timeout,
		"email.timeout":         config.Email.Timeout,
		"schedule.tick_timeout": config.Schedule.TickTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig checks struct tags first, then the cross-field rules.
func validateConfig(config *Config) error {
	var result *multierror.Error

	if err := validator.New().Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result = multierror.Append(result, fmt.Errorf("%s: failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			result = multierror.Append(result, err)
		}
	}

	if config.Database.Driver == "postgres" && config.Database.DSN == "" {
		result = multierror.Append(result, errors.New("database DSN is required for the postgres driver. Set DATABASE_URL or database.dsn"))
	}
	if config.Database.Driver == "sqlite" && config.Database.Path == "" {
		result = multierror.Append(result, errors.New("database path is required for the sqlite driver"))
	}

	if _, err := cronParser.Parse(config.Schedule.Cron); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid schedule.cron %q: %w", config.Schedule.Cron, err))
	}

	if config.Email.APIKey != "" && config.Email.FromAddress == "" {
		result = multierror.Append(result, errors.New("sender address is required when an email API key is configured. Set EMAIL_FROM_ADDRESS"))
	}

	if result != nil {
		return fmt.Errorf("configuration errors: %w", result.ErrorOrNil())
	}
	return nil
}

// Duration parses a duration already checked by postProcessConfig.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
