package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Shortener ShortenerConfig
	Clicks    ClicksConfig
	Geo       GeoConfig
	Kafka     KafkaConfig
	Security  SecurityConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port string
	Host string
}

type MongoDBConfig struct {
	URI         string
	Database    string
	MaxPoolSize int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ShortenerConfig struct {
	BaseURL        string
	IDLength       int
	RedirectStatus int // 301 or 302
}

// ClicksConfig controls how the redirect path hands off click telemetry.
// Sink "mongo" extracts attributes in-process and writes the event store
// directly; "kafka" enqueues the raw click into the outbox for the worker
// and consumer binaries to finish.
type ClicksConfig struct {
	Sink    string
	Timeout string
}

type GeoConfig struct {
	CityDBPath string
	ISPDBPath  string
}

type KafkaConfig struct {
	Brokers    []string
	ClickTopic string
}

type SecurityConfig struct {
	APIKeys          []string
	CreateRatePerMin int
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "linklytics"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: GetEnv("APP_PORT", "8080"),
			Host: GetEnv("APP_HOST", "localhost"),
		},
		MongoDB: MongoDBConfig{
			URI:         GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:    GetEnv("MONGODB_DATABASE", "linklytics"),
			MaxPoolSize: GetEnvInt("MONGODB_MAX_POOL_SIZE", 100),
		},
		Redis: RedisConfig{
			Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
		},
		Shortener: ShortenerConfig{
			BaseURL:        GetEnv("SHORTENER_BASE_URL", "http://localhost:8080"),
			IDLength:       GetEnvInt("ID_LENGTH", 8),
			RedirectStatus: GetEnvInt("REDIRECT_STATUS", 302),
		},
		Clicks: ClicksConfig{
			Sink:    GetEnv("CLICK_SINK", "mongo"),
			Timeout: GetEnv("CLICK_TIMEOUT", "2s"),
		},
		Geo: GeoConfig{
			CityDBPath: GetEnv("GEOIP_CITY_DB", ""),
			ISPDBPath:  GetEnv("GEOIP_ISP_DB", ""),
		},
		Kafka: KafkaConfig{
			Brokers:    SplitCSV(GetEnv("KAFKA_BROKERS", "")),
			ClickTopic: GetEnv("KAFKA_CLICK_TOPIC", "clicks.recorded"),
		},
		Security: SecurityConfig{
			APIKeys:          SplitCSV(GetEnv("API_KEYS", "")),
			CreateRatePerMin: GetEnvInt("CREATE_RATE_PER_MINUTE", 60),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if cfg.Shortener.RedirectStatus != 301 && cfg.Shortener.RedirectStatus != 302 {
		return nil, fmt.Errorf("REDIRECT_STATUS must be 301 or 302 (got %d)", cfg.Shortener.RedirectStatus)
	}
	if cfg.Shortener.IDLength < 4 || cfg.Shortener.IDLength > 32 {
		return nil, fmt.Errorf("ID_LENGTH must be between 4 and 32 (got %d)", cfg.Shortener.IDLength)
	}
	if cfg.Clicks.Sink != "mongo" && cfg.Clicks.Sink != "kafka" {
		return nil, fmt.Errorf("CLICK_SINK must be mongo or kafka (got %q)", cfg.Clicks.Sink)
	}

	return cfg, nil
}
