package startup

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"pixelbox/internal/resample"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// S3Config configures the optional object storage mirror.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region" validate:"required_with=Bucket"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// Enabled reports whether a bucket was configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Config holds all application configuration
type Config struct {
	InputDir     string `mapstructure:"input_dir" validate:"required"`
	OutputDir    string `mapstructure:"output_dir" validate:"required"`
	TargetWidth  int    `mapstructure:"target_width" validate:"gt=0"`
	TargetHeight int    `mapstructure:"target_height" validate:"gt=0"`
	Background   string `mapstructure:"background" validate:"hexcolor"`

	JPEGQuality  int  `mapstructure:"jpeg_quality" validate:"min=1,max=100"`
	WebPQuality  int  `mapstructure:"webp_quality" validate:"min=1,max=100"`
	WebPLossless bool `mapstructure:"webp_lossless"`
	MaxPixels    int  `mapstructure:"max_pixels" validate:"gte=0"`
	VipsEnabled  bool `mapstructure:"vips_enabled"`

	Workers     int    `mapstructure:"workers" validate:"gte=0"`
	Recursive   bool   `mapstructure:"recursive"`
	FailOnError bool   `mapstructure:"fail_on_error"`
	ReportFile  string `mapstructure:"report_file"`

	DatabaseDir   string `mapstructure:"database_dir"`
	SkipUnchanged bool   `mapstructure:"skip_unchanged"`

	Watch          bool          `mapstructure:"watch"`
	WatchDebounce  time.Duration `mapstructure:"watch_debounce" validate:"gte=0"`
	RescanInterval time.Duration `mapstructure:"rescan_interval" validate:"gte=0"`
	Port           string        `mapstructure:"port" validate:"omitempty,numeric"`

	LogLevel        string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFile         string `mapstructure:"log_file"`
	LogMaxSizeMB    int    `mapstructure:"log_max_size_mb" validate:"gte=0"`
	LogMaxBackups   int    `mapstructure:"log_max_backups" validate:"gte=0"`
	LogMaxAgeDays   int    `mapstructure:"log_max_age_days" validate:"gte=0"`
	LogHealthChecks bool   `mapstructure:"log_health_checks"`

	S3 S3Config `mapstructure:"s3"`

	// Derived values
	Target          resample.Dimensions `mapstructure:"-"`
	BackgroundColor color.RGBA          `mapstructure:"-"`
	DatabasePath    string              `mapstructure:"-"`
	ConfigFile      string              `mapstructure:"-"`
}

// LedgerEnabled reports whether a database directory was configured.
func (c *Config) LedgerEnabled() bool {
	return c.DatabaseDir != ""
}

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage: pixelbox [input_dir [output_dir]]")

var defaults = map[string]any{
	"input_dir":            "./input",
	"output_dir":           "./output",
	"target_width":         1280,
	"target_height":        720,
	"background":           "#000000",
	"jpeg_quality":         95,
	"webp_quality":         80,
	"webp_lossless":        false,
	"max_pixels":           100_000_000,
	"vips_enabled":         false,
	"workers":              1,
	"recursive":            false,
	"fail_on_error":        false,
	"report_file":          "",
	"database_dir":         "",
	"skip_unchanged":       false,
	"watch":                false,
	"watch_debounce":       "2s",
	"rescan_interval":      "0s",
	"port":                 "8080",
	"log_level":            "",
	"log_file":             "",
	"log_max_size_mb":      100,
	"log_max_backups":      3,
	"log_max_age_days":     28,
	"log_health_checks":    false,
	"s3.bucket":            "",
	"s3.region":            "us-east-1",
	"s3.endpoint":          "",
	"s3.prefix":            "",
	"s3.access_key_id":     "",
	"s3.secret_access_key": "",
	"s3.use_path_style":    false,
}

// newViper returns a viper instance with defaults registered and
// environment lookup enabled. Nested keys map to underscores, so s3.bucket
// reads S3_BUCKET.
func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// parseConfig resolves configuration from defaults, CONFIG_FILE, the
// environment and positional arguments, in increasing precedence.
func parseConfig(v *viper.Viper, configFile string, args []string) (*Config, error) {
	if len(args) > 2 {
		return nil, ErrUsage
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if len(args) > 0 {
		v.Set("input_dir", args[0])
	}
	if len(args) > 1 {
		v.Set("output_dir", args[1])
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.ConfigFile = configFile

	if err := validate.Struct(cfg); err != nil {
		return nil, describeValidation(err)
	}

	bg, err := ParseHexColor(cfg.Background)
	if err != nil {
		return nil, err
	}
	cfg.BackgroundColor = bg
	cfg.Target = resample.Dimensions{Width: cfg.TargetWidth, Height: cfg.TargetHeight}

	return cfg, nil
}

// describeValidation flattens validator errors into one message naming the
// offending keys.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// ParseHexColor parses #rgb, #rgba, #rrggbb or #rrggbbaa. Alpha is accepted
// and discarded since the canvas is always opaque.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3, 4:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6, 8:
		hex = hex[:6]
	default:
		return color.RGBA{}, fmt.Errorf("invalid background color %q", s)
	}

	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid background color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
}
