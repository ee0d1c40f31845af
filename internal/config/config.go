package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseDSN string
	JWTSecret   string
	Env         string

	// 消息生命周期与清扫
	MessageTTL    time.Duration
	SweepInterval time.Duration

	// 机器人调度参数，产品可调而非结构常量
	BotResponseProbability float64
	BotSilenceThreshold    int

	// 文本生成后端
	CohereAPIKey     string
	CohereBaseURL    string
	GeneratorTimeout time.Duration

	ProfileTokenTTLHours int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getenvFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

// Load 读取环境变量（先尝试 .env 文件），缺省值适用于本地开发。
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseDSN: getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=nightshade port=5432 sslmode=disable TimeZone=UTC"),
		JWTSecret:   getenv("JWT_SECRET", "dev-secret-change-me"),
		Env:         getenv("APP_ENV", "dev"),

		MessageTTL:    time.Duration(getenvInt("MESSAGE_TTL_MINUTES", 10)) * time.Minute,
		SweepInterval: time.Duration(getenvInt("SWEEP_INTERVAL_SECONDS", 60)) * time.Second,

		BotResponseProbability: getenvFloat("BOT_RESPONSE_PROBABILITY", 0.33),
		BotSilenceThreshold:    getenvInt("BOT_SILENCE_THRESHOLD", 3),

		CohereAPIKey:     getenv("COHERE_API_KEY", ""),
		CohereBaseURL:    getenv("COHERE_BASE_URL", "https://api.cohere.ai"),
		GeneratorTimeout: time.Duration(getenvInt("GENERATOR_TIMEOUT_SECONDS", 8)) * time.Second,

		ProfileTokenTTLHours: getenvInt("PROFILE_TOKEN_TTL_HOURS", 72),
	}
}
