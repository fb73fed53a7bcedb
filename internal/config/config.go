package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port         string   `mapstructure:"port"`
		Env          string   `mapstructure:"env"`
		AllowOrigins []string `mapstructure:"allow_origins"`
		PublicURL    string   `mapstructure:"public_url"`
	} `mapstructure:"app"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		TokenLifespan time.Duration `mapstructure:"token_lifespan"`
	} `mapstructure:"auth"`
	LLM struct {
		Provider         string  `mapstructure:"provider"`
		Model            string  `mapstructure:"model"`
		BatchTemperature float32 `mapstructure:"batch_temperature"`
		ChatTemperature  float32 `mapstructure:"chat_temperature"`
	} `mapstructure:"llm"`
	Gemini struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"gemini"`
	Ollama struct {
		Host string `mapstructure:"host"`
	} `mapstructure:"ollama"`
	Chat struct {
		HistoryWindow int           `mapstructure:"history_window"`
		InflightTTL   time.Duration `mapstructure:"inflight_ttl"`
	} `mapstructure:"chat"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	} `mapstructure:"cloudinary"`
	Jaeger struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"jaeger"`
}

// LoadConfig reads config.yaml from the given directories (default ".")
// and lets environment variables override it.
func LoadConfig(paths ...string) (cfg Config, err error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	v := viper.New()

	envFiles := make([]string, 0, len(paths))
	for _, p := range paths {
		envFiles = append(envFiles, strings.TrimRight(p, "/")+"/.env")
		v.AddConfigPath(p)
	}
	if err = godotenv.Load(envFiles...); err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read .env only. Error: %v", err)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.allow_origins", "APP_ALLOW_ORIGINS")
	v.BindEnv("app.public_url", "APP_PUBLIC_URL")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.token_lifespan", "TOKEN_LIFESPAN")

	v.BindEnv("llm.provider", "LLM_PROVIDER")
	v.BindEnv("llm.model", "LLM_MODEL")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "API_KEY")
	v.BindEnv("ollama.host", "OLLAMA_HOST")
	v.BindEnv("chat.history_window", "CHAT_HISTORY_WINDOW")
	v.BindEnv("chat.inflight_ttl", "CHAT_INFLIGHT_TTL")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")
	v.BindEnv("jaeger.otlp_endpoint", "JAEGER_OTLP_ENDPOINT")

	err = v.Unmarshal(&cfg)
	if err != nil {
		return
	}

	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.App.AllowOrigins = splitList(cfg.App.AllowOrigins)
	return
}

// splitList expands a list that arrived from env as one comma separated
// string.
func splitList(in []string) []string {
	if len(in) == 1 && strings.Contains(in[0], ",") {
		return strings.Split(in[0], ",")
	}
	return in
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.public_url", "http://localhost:5173")
	v.SetDefault("app.allow_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("auth.token_lifespan", "24h")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-1.5-pro")
	v.SetDefault("llm.batch_temperature", 0.8)
	v.SetDefault("llm.chat_temperature", 0.9)
	v.SetDefault("chat.history_window", 6)
	v.SetDefault("chat.inflight_ttl", "2m")
}
