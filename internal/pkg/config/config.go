package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Geo       GeoConfig       `mapstructure:"geo"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// UpstreamConfig points at the public-data APIs the ingestors read from.
type UpstreamConfig struct {
	ZonesURL     string `mapstructure:"zones_url"`
	SheltersURL  string `mapstructure:"shelters_url"`
	HospitalsURL string `mapstructure:"hospitals_url"`
	AlertsURL    string `mapstructure:"alerts_url"`
	TimeoutSec   int    `mapstructure:"timeout"`
}

// Timeout returns the per-request upstream timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSec) * time.Second
}

// GeoConfig holds search radii and the grid calibration reference.
type GeoConfig struct {
	ZoneRadiusKm     float64           `mapstructure:"zone_radius_km"`
	HospitalRadiusKm float64           `mapstructure:"hospital_radius_km"`
	ShelterSearchKm  float64           `mapstructure:"shelter_search_km"`
	Calibration      CalibrationConfig `mapstructure:"calibration"`
}

// CalibrationConfig pairs a known WGS 84 point with its surveyed grid
// coordinate. Zero values select the grid origin.
type CalibrationConfig struct {
	RefLat      float64 `mapstructure:"ref_lat"`
	RefLon      float64 `mapstructure:"ref_lon"`
	RefEasting  float64 `mapstructure:"ref_easting"`
	RefNorthing float64 `mapstructure:"ref_northing"`
}

// IsZero reports whether no calibration reference was configured.
func (c CalibrationConfig) IsZero() bool {
	return c == CalibrationConfig{}
}

// Calibration returns the projector calibration, or the grid origin when
// none is configured.
func (c CalibrationConfig) Calibration() geospatial.Calibration {
	if c.IsZero() {
		return geospatial.DefaultCalibration
	}
	return geospatial.Calibration{
		Reference: domain.GeoPoint{Lat: c.RefLat, Lon: c.RefLon},
		Surveyed:  domain.ProjectedPoint{Easting: c.RefEasting, Northing: c.RefNorthing},
	}
}

type AlertsConfig struct {
	ActiveWindowSec int `mapstructure:"active_window"`
	PollIntervalSec int `mapstructure:"poll_interval"`
}

func (a AlertsConfig) ActiveWindow() time.Duration {
	return time.Duration(a.ActiveWindowSec) * time.Second
}

func (a AlertsConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalSec) * time.Second
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment variables.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:8081")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "safezone")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "safezone")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "safezone-countdown")
	v.SetDefault("upstream.zones_url", "")
	v.SetDefault("upstream.shelters_url", "")
	v.SetDefault("upstream.hospitals_url", "")
	v.SetDefault("upstream.alerts_url", "")
	v.SetDefault("upstream.timeout", 15)
	v.SetDefault("geo.zone_radius_km", 5.0)
	v.SetDefault("geo.hospital_radius_km", 20.0)
	v.SetDefault("geo.shelter_search_km", 3.0)
	v.SetDefault("geo.calibration.ref_lat", 0.0)
	v.SetDefault("geo.calibration.ref_lon", 0.0)
	v.SetDefault("geo.calibration.ref_easting", 0.0)
	v.SetDefault("geo.calibration.ref_northing", 0.0)
	v.SetDefault("alerts.active_window", 600)
	v.SetDefault("alerts.poll_interval", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: SAFEZONE_DATABASE_HOST → database.host
	v.SetEnvPrefix("SAFEZONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Upstream.TimeoutSec <= 0 {
		errs = append(errs, "upstream.timeout must be positive")
	}
	radii := []struct {
		name string
		km   float64
	}{
		{"geo.zone_radius_km", c.Geo.ZoneRadiusKm},
		{"geo.hospital_radius_km", c.Geo.HospitalRadiusKm},
		{"geo.shelter_search_km", c.Geo.ShelterSearchKm},
	}
	for _, r := range radii {
		if !(r.km > 0) || math.IsInf(r.km, 0) {
			errs = append(errs, fmt.Sprintf("%s must be a positive number, got %v", r.name, r.km))
		}
	}
	if cal := c.Geo.Calibration; !cal.IsZero() {
		if cal.RefLat < -90 || cal.RefLat > 90 || cal.RefLon < -180 || cal.RefLon > 180 {
			errs = append(errs, "geo.calibration reference point is out of range")
		}
	}
	if c.Alerts.ActiveWindowSec <= 0 {
		errs = append(errs, "alerts.active_window must be positive")
	}
	if c.Alerts.PollIntervalSec <= 0 {
		errs = append(errs, "alerts.poll_interval must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
