package config

import (
	"strings"
	"time"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	StoreDriver  string        `env:"STORE_DRIVER" envDefault:"memory"`
	Dsn          string        `env:"DSN"`
	MongoURI     string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB      string        `env:"MONGO_DB" envDefault:"barrier_reports"`
	RedisAddr    string        `env:"REDIS_ADDR"`
	RedisPass    string        `env:"REDIS_PASSWORD"`
	RedisDB      int           `env:"REDIS_DB" envDefault:"0"`
	AreaCacheTTL time.Duration `env:"AREA_CACHE_TTL" envDefault:"5m"`

	MediaStore          string `env:"MEDIA_STORE" envDefault:"none"`
	MaxUploadBytes      int64  `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `env:"CLOUDINARY_FOLDER" envDefault:"reports"`
	S3Bucket            string `env:"S3_BUCKET"`
	S3Endpoint          string `env:"S3_ENDPOINT"`
	S3Region            string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKey         string `env:"S3_ACCESS_KEY"`
	S3SecretKey         string `env:"S3_SECRET_KEY"`
	S3PublicURL         string `env:"S3_PUBLIC_URL"`

	ClassifierURL     string        `env:"CLASSIFIER_URL"`
	ClassifierAPIKey  string        `env:"CLASSIFIER_API_KEY"`
	ClassifierModel   string        `env:"CLASSIFIER_MODEL"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"30s"`

	AnalyzeRateLimit   string   `env:"ANALYZE_RATE_LIMIT" envDefault:"20-M"`
	TrustProxyHeaders  bool     `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AdminJWTSecret     string   `env:"ADMIN_JWT_SECRET"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		logger.Log.Debugf("[Env]: unable to load .env file: %v", loadErr)
	}

	var cfg Config

	if parseErr := env.Parse(&cfg); parseErr != nil {
		logger.Log.Warnf("[Env]: failed to parse environment variables: %v", parseErr)
	}
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	cfg.MediaStore = strings.ToLower(cfg.MediaStore)

	return &cfg
}
