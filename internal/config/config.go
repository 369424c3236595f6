package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/go-disaster-dashboard/internal/logging"
)

const (
	PlatformClient = "client"
	PlatformStatic = "static"
	PlatformGoogle = "google"
	PlatformNMEA   = "nmea"
	PlatformNone   = "none"

	WeatherSimulated = "simulated"
	WeatherOpenMeteo = "openmeteo"
)

type Config struct {
	Server      ServerConfig
	GRPC        GRPCConfig
	Worker      WorkerConfig
	DB          DatabaseConfig
	Logging     LoggingConfig
	Geolocation GeolocationConfig
	Weather     WeatherConfig
	Session     SessionConfig
}

type GRPCConfig struct {
	Port int
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPS int
	CORSOrigins  []string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type GeolocationConfig struct {
	Platform     string
	Timeout      time.Duration
	MaxAge       time.Duration
	StaticLat    float64
	StaticLng    float64
	GoogleAPIKey string
	SerialPort   string
	BaudRate     int
}

type WeatherConfig struct {
	Source       string
	Delay        time.Duration
	OpenMeteoURL string
}

type SessionConfig struct {
	TTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 20),
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		GRPC: GRPCConfig{
			Port: getEnvInt("GRPC_PORT", 50051),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 4),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 64),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/disaster-dashboard.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", logging.FormatJSON),
		},
		Geolocation: GeolocationConfig{
			Platform:     strings.ToLower(getEnv("GEOLOCATION_PLATFORM", PlatformClient)),
			Timeout:      getEnvDuration("GEOLOCATION_TIMEOUT", 10*time.Second),
			MaxAge:       getEnvDuration("GEOLOCATION_MAX_AGE", 10*time.Minute),
			StaticLat:    getEnvFloat("GEOLOCATION_STATIC_LAT", 0),
			StaticLng:    getEnvFloat("GEOLOCATION_STATIC_LNG", 0),
			GoogleAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
			SerialPort:   getEnv("GPS_SERIAL_PORT", ""),
			BaudRate:     getEnvInt("GPS_BAUD_RATE", 9600),
		},
		Weather: WeatherConfig{
			Source:       strings.ToLower(getEnv("WEATHER_SOURCE", WeatherSimulated)),
			Delay:        getEnvDuration("WEATHER_DELAY", time.Second),
			OpenMeteoURL: getEnv("OPEN_METEO_URL", "https://api.open-meteo.com"),
		},
		Session: SessionConfig{
			TTL: getEnvDuration("SESSION_TTL", 30*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 request per second")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != logging.FormatJSON && c.Logging.Format != logging.FormatText {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if err := c.Geolocation.validate(); err != nil {
		return err
	}

	switch c.Weather.Source {
	case WeatherSimulated:
		if c.Weather.Delay < 0 {
			return fmt.Errorf("weather delay must not be negative")
		}
	case WeatherOpenMeteo:
		if c.Weather.OpenMeteoURL == "" {
			return fmt.Errorf("OPEN_METEO_URL is required for the openmeteo weather source")
		}
	default:
		return fmt.Errorf("invalid weather source: %s", c.Weather.Source)
	}

	if c.Session.TTL < time.Minute {
		return fmt.Errorf("session TTL must be at least 1 minute")
	}

	return nil
}

func (g GeolocationConfig) validate() error {
	if g.Timeout <= 0 {
		return fmt.Errorf("geolocation timeout must be positive")
	}
	if g.MaxAge < 0 {
		return fmt.Errorf("geolocation max age must not be negative")
	}

	switch g.Platform {
	case PlatformClient, PlatformNone:
	case PlatformStatic:
		if g.StaticLat < -90 || g.StaticLat > 90 || g.StaticLng < -180 || g.StaticLng > 180 {
			return fmt.Errorf("static position out of range: %f, %f", g.StaticLat, g.StaticLng)
		}
	case PlatformGoogle:
		if g.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for the google geolocation platform")
		}
	case PlatformNMEA:
		if g.SerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required for the nmea geolocation platform")
		}
		if g.BaudRate <= 0 {
			return fmt.Errorf("invalid GPS baud rate: %d", g.BaudRate)
		}
	default:
		return fmt.Errorf("invalid geolocation platform: %s", g.Platform)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
