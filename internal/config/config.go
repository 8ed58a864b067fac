package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Trainer   TrainerConfig   `mapstructure:"trainer"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	IPFS      IPFSConfig      `mapstructure:"ipfs"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Client    ClientConfig    `mapstructure:"client"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Endpoint     string        `mapstructure:"endpoint"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	// HealthInterval is how often component health is refreshed.
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

// Dataset path placement in the trainer invocation.
const (
	DatasetModeInline = "inline"
	DatasetModeFlag   = "flag"
)

// Trainer runtimes.
const (
	RuntimeProcess = "process"
	RuntimeDocker  = "docker"
)

type TrainerConfig struct {
	Binary           string            `mapstructure:"binary"`
	Runtime          string            `mapstructure:"runtime"`
	DatasetMode      string            `mapstructure:"dataset_mode"`
	DatasetFlag      string            `mapstructure:"dataset_flag"`
	MetricsFile      string            `mapstructure:"metrics_file"`
	ImageFile        string            `mapstructure:"image_file"`
	WeightsFile      string            `mapstructure:"weights_file"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	ParameterAliases map[string]string `mapstructure:"parameter_aliases"`
	Docker           DockerConfig      `mapstructure:"docker"`
}

type DockerConfig struct {
	Image       string `mapstructure:"image"`
	MemoryLimit string `mapstructure:"memory_limit"`
	CPULimit    string `mapstructure:"cpu_limit"`
	WorkDir     string `mapstructure:"workdir"`
}

type PredictorConfig struct {
	Binary     string `mapstructure:"binary"`
	OutputFile string `mapstructure:"output_file"`
}

type StorageConfig struct {
	Root         string `mapstructure:"root"`
	DatasetFile  string `mapstructure:"dataset_file"`
	FeaturesFile string `mapstructure:"features_file"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type IPFSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIURL  string `mapstructure:"api_url"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type TelemetryConfig struct {
	Enabled       bool                  `mapstructure:"enabled"`
	ServiceName   string                `mapstructure:"service_name"`
	OTELCollector OTELCollectorConfig   `mapstructure:"otel_collector"`
	Metrics       TelemetryMetricConfig `mapstructure:"metrics"`
}

type OTELCollectorConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type TelemetryMetricConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Token     string        `mapstructure:"token"`
}

const DefaultConfigPath = "config/config.yaml"

// DefaultParameterAliases maps form parameter keys onto the names the trainer reads.
func DefaultParameterAliases() map[string]string {
	return map[string]string{
		"learning_rate":  "lr",
		"c":              "C",
		"max_iterations": "epochs",
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.endpoint", "")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.max_body_bytes", int64(50<<20))
	v.SetDefault("server.health_interval", 30*time.Second)

	v.SetDefault("trainer.binary", "./demo")
	v.SetDefault("trainer.runtime", RuntimeProcess)
	v.SetDefault("trainer.dataset_mode", DatasetModeInline)
	v.SetDefault("trainer.dataset_flag", "--dataset")
	v.SetDefault("trainer.metrics_file", "metrics.json")
	v.SetDefault("trainer.image_file", "visual.png")
	v.SetDefault("trainer.weights_file", "weights.json")
	v.SetDefault("trainer.timeout", time.Duration(0))
	v.SetDefault("trainer.parameter_aliases", DefaultParameterAliases())
	v.SetDefault("trainer.docker.memory_limit", "512m")
	v.SetDefault("trainer.docker.cpu_limit", "1.0")
	v.SetDefault("trainer.docker.workdir", "/job")

	v.SetDefault("predictor.binary", "./predict")
	v.SetDefault("predictor.output_file", "metrics.json")

	v.SetDefault("storage.root", "data")
	v.SetDefault("storage.dataset_file", "dataset")
	v.SetDefault("storage.features_file", "features.txt")

	v.SetDefault("ipfs.api_url", "localhost:5001")

	v.SetDefault("telemetry.service_name", "tinyml-runner")
	v.SetDefault("telemetry.otel_collector.host", "localhost")
	v.SetDefault("telemetry.otel_collector.port", 4317)
	v.SetDefault("telemetry.metrics.interval", 15*time.Second)

	v.SetDefault("client.server_url", "http://localhost:3000")
	v.SetDefault("client.timeout", time.Duration(0))
	v.SetDefault("client.token", "")
}

// LoadConfig reads the YAML file at path. A missing file falls back to
// defaults and environment variables (prefix TINYML_).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TINYML")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Trainer.DatasetMode {
	case DatasetModeInline, DatasetModeFlag:
	default:
		return fmt.Errorf("invalid trainer.dataset_mode %q", c.Trainer.DatasetMode)
	}

	switch c.Trainer.Runtime {
	case RuntimeProcess:
	case RuntimeDocker:
		if c.Trainer.Docker.Image == "" {
			return errors.New("trainer.docker.image is required for the docker runtime")
		}
	default:
		return fmt.Errorf("invalid trainer.runtime %q", c.Trainer.Runtime)
	}

	if c.Storage.Root == "" {
		return errors.New("storage.root is required")
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
