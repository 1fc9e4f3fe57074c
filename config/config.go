// Package config loads the decoder tool configuration from YAML and the
// environment.
package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/nvr-ai/go-pose/inference"
	"github.com/nvr-ai/go-pose/logger"
	"github.com/nvr-ai/go-pose/models/model"
	"github.com/nvr-ai/go-pose/models/openpose"
)

// EnvPrefix prefixes every environment override, e.g.
// POSE_DECODER_MIN_JOINTS_NUMBER.
const EnvPrefix = "POSE"

// Config is the complete tool configuration.
type Config struct {
	Model     model.NewModelArgs `json:"model" yaml:"model" mapstructure:"model"`
	Decoder   openpose.Config    `json:"decoder" yaml:"decoder" mapstructure:"decoder"`
	Estimator inference.Options  `json:"estimator" yaml:"estimator" mapstructure:"estimator"`
	Log       logger.Options     `json:"log" yaml:"log" mapstructure:"log"`
	Profiler  ProfilerConfig     `json:"profiler" yaml:"profiler" mapstructure:"profiler"`
}

// ProfilerConfig controls stage timing reports.
type ProfilerConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ReportInterval time.Duration `json:"report_interval" yaml:"report_interval" mapstructure:"report_interval" validate:"gte=0"`
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	d := openpose.DefaultConfig()
	v.SetDefault("model.name", string(model.ModelNameOpenPose))

	v.SetDefault("decoder.confidence_threshold", d.ConfidenceThreshold)
	v.SetDefault("decoder.min_peaks_distance", d.MinPeaksDistance)
	v.SetDefault("decoder.mid_points_score_threshold", d.MidPointsScoreThreshold)
	v.SetDefault("decoder.found_mid_points_ratio_threshold", d.FoundMidPointsRatioThreshold)
	v.SetDefault("decoder.min_joints_number", d.MinJointsNumber)
	v.SetDefault("decoder.min_subset_score", d.MinSubsetScore)
	v.SetDefault("decoder.mid_points_number", d.MidPointsNumber)
	v.SetDefault("decoder.interpolation", string(d.Interpolation))
	v.SetDefault("decoder.limb_length_penalty", d.LimbLengthPenalty)
	v.SetDefault("decoder.workers", d.Workers)

	e := inference.DefaultOptions()
	v.SetDefault("estimator.stride", e.Stride)
	v.SetDefault("estimator.upsample_ratio", e.UpsampleRatio)

	l := logger.DefaultOptions()
	v.SetDefault("log.level", l.Level)
	v.SetDefault("log.dir", l.Dir)
	v.SetDefault("log.name", l.Name)
	v.SetDefault("log.console", l.Console)
	v.SetDefault("log.max_size_mb", l.MaxSizeMB)
	v.SetDefault("log.max_backups", l.MaxBackups)
	v.SetDefault("log.max_age_days", l.MaxAgeDays)

	v.SetDefault("profiler.enabled", false)
	v.SetDefault("profiler.report_interval", 10*time.Second)
}

// Load reads the configuration.
//
// With an empty path, posedecode.yml is looked up in the working directory
// and its absence is not an error. Environment variables prefixed with
// EnvPrefix override file values.
//
// Arguments:
//   - path: Config file path, or empty.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: If the file cannot be read, decoded or validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigType("yml")
		v.SetConfigName("posedecode")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if err := cfg.Decoder.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
