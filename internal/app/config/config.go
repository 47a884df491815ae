package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type HTTPServerConfig struct {
	Port            string        `yaml:"port" env:"HTTP_PORT_CART_SERVICE" env-default:"8086"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	TimeoutGraceful time.Duration `yaml:"timeout_graceful_shutdown" env-default:"15s"`
}

type CartAPIConfig struct {
	BaseURL string        `yaml:"base_url" env:"CART_API_BASE_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"CART_API_TIMEOUT" env-default:"15s"`
}

// LocalStoreConfig selects where the anonymous cart snapshot lives: a JSON
// file on disk or a redis key.
type LocalStoreConfig struct {
	Mode      string        `yaml:"mode" env:"LOCAL_STORE_MODE" env-default:"file"`
	Dir       string        `yaml:"dir" env:"LOCAL_STORE_DIR" env-default:"./data"`
	SessionID string        `yaml:"session_id" env:"LOCAL_STORE_SESSION_ID" env-default:"default"`
	TTL       time.Duration `yaml:"ttl" env:"LOCAL_STORE_TTL" env-default:"720h"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type NATSConfig struct {
	URL string `yaml:"url" env:"NATS_URL"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

type ShippingConfig struct {
	FreeThreshold float64 `yaml:"free_threshold" env:"SHIPPING_FREE_THRESHOLD" env-default:"1000"`
	Fee           float64 `yaml:"fee" env:"SHIPPING_FEE" env-default:"50"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05.000Z07:00"`
}

type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	CartAPI    CartAPIConfig    `yaml:"cart_api"`
	LocalStore LocalStoreConfig `yaml:"local_store"`
	Redis      RedisConfig      `yaml:"redis"`
	NATS       NATSConfig       `yaml:"nats"`
	Auth       AuthConfig       `yaml:"auth"`
	Shipping   ShippingConfig   `yaml:"shipping"`
	Logger     LoggerConfig     `yaml:"logger"`
}

func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		if _, ok := err.(*os.PathError); ok {
			log.Printf("Warning: Config file not found at %s, attempting to load from environment variables only.", path)
			if errEnv := cleanenv.ReadEnv(&cfg); errEnv != nil {
				return nil, errEnv
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH_CART_SERVICE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
