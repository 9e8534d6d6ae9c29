package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HttpPort string

	// 上游生成后端
	WriterBaseURL    string
	WriterTimeout    time.Duration // 普通请求
	PlanTimeout      time.Duration // 智能字数规划（慢）
	StreamRetryDelay time.Duration // 断流重连退避

	// S3/MinIO
	BucketEndpoint  string
	BucketAccessID  string
	BucketAccessKey string
	BucketName      string
	BucketRegion    string
	UseSSL          bool   // MinIO: false, S3: true
	StorageType     string // "minio" or "s3"

	// Redis
	RedisURL      string
	RedisPassword string

	// Postgres
	Host     string
	User     string
	Password string
	DBName   string
	Port     string

	// others
	MaxFileSize  int64
	AuthCacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		HttpPort:         os.Getenv("PORT"),
		WriterBaseURL:    os.Getenv("WRITER_BASE_URL"),
		WriterTimeout:    2 * time.Minute,
		PlanTimeout:      200 * time.Second,
		StreamRetryDelay: 3 * time.Second,
		BucketEndpoint:   os.Getenv("BUCKET_ENDPOINT"),
		BucketAccessID:   os.Getenv("BUCKET_ACCESS_ID"),
		BucketAccessKey:  os.Getenv("BUCKET_ACCESS_KEY"),
		BucketName:       os.Getenv("BUCKET_NAME"),
		BucketRegion:     os.Getenv("BUCKET_REGION"),
		UseSSL:           os.Getenv("BUCKET_USE_SSL") == "true",
		StorageType:      os.Getenv("STORAGE_TYPE"),
		RedisURL:         os.Getenv("REDIS_URL"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		Host:             os.Getenv("PG_HOST"),
		User:             os.Getenv("PG_USER"),
		Password:         os.Getenv("PG_PASSWORD"),
		DBName:           os.Getenv("PG_DB"),
		Port:             os.Getenv("PG_PORT"),
		MaxFileSize:      envInt64("MAX_FILE_SIZE", 50*1024*1024),
		AuthCacheTTL:     30 * time.Minute,
	}
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
