package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds local-fallback database settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the journey log backend
type StorageConfig struct {
	Type          string        `json:"type" mapstructure:"type"`
	WriteInterval time.Duration `json:"writeInterval" mapstructure:"writeInterval"`
	Memory        MemoryConfig  `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig  `json:"sqlite" mapstructure:"sqlite"`
}

// DepotConfig names the depot and fixes its terminal position
type DepotConfig struct {
	Name     string `json:"name" mapstructure:"name"`
	Terminal string `json:"terminal" mapstructure:"terminal"` // "lon,lat"
}

// FleetConfig sizes the simulated fleet
type FleetConfig struct {
	Count    int    `json:"count" mapstructure:"count"`
	Capacity int    `json:"capacity" mapstructure:"capacity"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
}

// RetryConfig bounds re-attempts on route acquisition calls
type RetryConfig struct {
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
	MaxAttempts int           `json:"maxAttempts" mapstructure:"maxAttempts"`
	Backoff     time.Duration `json:"backoff" mapstructure:"backoff"`
}

// StreamConfig configures the out-of-band route dispatch subscription
type StreamConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

// DispatchConfig configures the dispatch authority connection
type DispatchConfig struct {
	Mode      string        `json:"mode" mapstructure:"mode"` // stub | http
	ServerURL string        `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string        `json:"apiKey" mapstructure:"apiKey"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	Retry     RetryConfig   `json:"retry" mapstructure:"retry"`
	Stream    StreamConfig  `json:"stream" mapstructure:"stream"`
}

// NavigationConfig tunes the per-vehicle navigation machine
type NavigationConfig struct {
	TickInterval   time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	LoiterDuration time.Duration `json:"loiterDuration" mapstructure:"loiterDuration"`
	SettleDelay    time.Duration `json:"settleDelay" mapstructure:"settleDelay"`
	StopTimeout    time.Duration `json:"stopTimeout" mapstructure:"stopTimeout"`
	StopRadiusM    float64       `json:"stopRadiusM" mapstructure:"stopRadiusM"`
	StopDwell      time.Duration `json:"stopDwell" mapstructure:"stopDwell"`
}

// KinematicConfig tunes the simulated speed/distance source
type KinematicConfig struct {
	TargetSpeedKph float64       `json:"targetSpeedKph" mapstructure:"targetSpeedKph"`
	JitterKph      float64       `json:"jitterKph" mapstructure:"jitterKph"`
	AccelKphPerSec float64       `json:"accelKphPerSec" mapstructure:"accelKphPerSec"`
	SampleInterval time.Duration `json:"sampleInterval" mapstructure:"sampleInterval"`
}

// BoardingConfig tunes the passenger boarding generator
type BoardingConfig struct {
	Model       string        `json:"model" mapstructure:"model"` // uniform | poisson
	MinInterval time.Duration `json:"minInterval" mapstructure:"minInterval"`
	MaxInterval time.Duration `json:"maxInterval" mapstructure:"maxInterval"`
	MinBatch    int           `json:"minBatch" mapstructure:"minBatch"`
	MaxBatch    int           `json:"maxBatch" mapstructure:"maxBatch"`
	PoissonMean float64       `json:"poissonMean" mapstructure:"poissonMean"`
}

// MonitorConfig tunes the status monitor service
type MonitorConfig struct {
	Interval  time.Duration `json:"interval" mapstructure:"interval"`
	StatusDir string        `json:"statusDir" mapstructure:"statusDir"`
}

// OTelConfig holds OpenTelemetry log export settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./depotlogs")

	viper.SetDefault("depot.name", "Bridgetown River Terminal")
	viper.SetDefault("depot.terminal", "-59.6132,13.0969")

	viper.SetDefault("fleet.count", 3)
	viper.SetDefault("fleet.capacity", 11)
	viper.SetDefault("fleet.prefix", "ZR-")

	viper.SetDefault("dispatch.mode", "stub")
	viper.SetDefault("dispatch.serverUrl", "http://localhost:5000")
	viper.SetDefault("dispatch.apiKey", "")
	viper.SetDefault("dispatch.timeout", "10s")
	viper.SetDefault("dispatch.retry.enabled", false)
	viper.SetDefault("dispatch.retry.maxAttempts", 3)
	viper.SetDefault("dispatch.retry.backoff", "2s")
	viper.SetDefault("dispatch.stream.enabled", false)
	viper.SetDefault("dispatch.stream.url", "ws://localhost:5001/dispatch")
	viper.SetDefault("dispatch.stream.secret", "")

	viper.SetDefault("navigation.tickInterval", "100ms")
	viper.SetDefault("navigation.loiterDuration", "5m")
	viper.SetDefault("navigation.settleDelay", "1s")
	viper.SetDefault("navigation.stopTimeout", "3s")
	viper.SetDefault("navigation.stopRadiusM", 60.0)
	viper.SetDefault("navigation.stopDwell", "10s")

	viper.SetDefault("kinematic.targetSpeedKph", 40.0)
	viper.SetDefault("kinematic.jitterKph", 10.0)
	viper.SetDefault("kinematic.accelKphPerSec", 8.0)
	viper.SetDefault("kinematic.sampleInterval", "100ms")

	viper.SetDefault("boarding.model", "uniform")
	viper.SetDefault("boarding.minInterval", "3s")
	viper.SetDefault("boarding.maxInterval", "8s")
	viper.SetDefault("boarding.minBatch", 1)
	viper.SetDefault("boarding.maxBatch", 3)
	viper.SetDefault("boarding.poissonMean", 2.0)

	viper.SetDefault("monitor.interval", "10s")
	viper.SetDefault("monitor.statusDir", ".")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.writeInterval", "5s")
	viper.SetDefault("storage.memory.outputDir", "./servicedays")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "depotsim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "depot-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "depotsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("depotsim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetDepotConfig returns the depot settings.
func GetDepotConfig() DepotConfig {
	var cfg DepotConfig
	_ = viper.UnmarshalKey("depot", &cfg)
	return cfg
}

// GetFleetConfig returns the fleet settings.
func GetFleetConfig() FleetConfig {
	var cfg FleetConfig
	_ = viper.UnmarshalKey("fleet", &cfg)
	return cfg
}

// GetDispatchConfig returns the dispatch authority settings.
func GetDispatchConfig() DispatchConfig {
	var cfg DispatchConfig
	_ = viper.UnmarshalKey("dispatch", &cfg)
	return cfg
}

// GetNavigationConfig returns the navigation machine settings.
func GetNavigationConfig() NavigationConfig {
	var cfg NavigationConfig
	_ = viper.UnmarshalKey("navigation", &cfg)
	return cfg
}

// GetKinematicConfig returns the kinematic source settings.
func GetKinematicConfig() KinematicConfig {
	var cfg KinematicConfig
	_ = viper.UnmarshalKey("kinematic", &cfg)
	return cfg
}

// GetBoardingConfig returns the boarding generator settings.
func GetBoardingConfig() BoardingConfig {
	var cfg BoardingConfig
	_ = viper.UnmarshalKey("boarding", &cfg)
	return cfg
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	var cfg MonitorConfig
	_ = viper.UnmarshalKey("monitor", &cfg)
	return cfg
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	var cfg StorageConfig
	_ = viper.UnmarshalKey("storage", &cfg)
	return cfg
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	var cfg OTelConfig
	_ = viper.UnmarshalKey("otel", &cfg)
	return cfg
}
