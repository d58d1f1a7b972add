package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	Generator GeneratorConfig
	Store     StoreConfig
	Pinning   PinningConfig

	// DeleteAfterPin enables best-effort retraction of the object-store
	// copies once the pinned copies exist.
	DeleteAfterPin bool
}

type GeneratorConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	// LabelModel is the multimodal model used for vision labels.
	LabelModel string
}

type StoreConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type PinningConfig struct {
	JWT      string
	Endpoint string
	Gateway  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port: *port,
		Env:  env,
		Generator: GeneratorConfig{
			APIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Endpoint:   firstNonEmpty(strings.TrimSpace(os.Getenv("IMAGEN_ENDPOINT")), "https://generativelanguage.googleapis.com/v1beta"),
			Model:      firstNonEmpty(strings.TrimSpace(os.Getenv("IMAGEN_MODEL")), "imagen-3.0-generate-002"),
			LabelModel: firstNonEmpty(strings.TrimSpace(os.Getenv("LABEL_MODEL")), "gemini-2.0-flash"),
		},
		Store:          loadStoreConfig(env),
		Pinning:        loadPinningConfig(),
		DeleteAfterPin: resolveBool("DELETE_AFTER_PIN", true),
	}

	if cfg.Generator.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	return cfg, nil
}

func loadStoreConfig(env string) StoreConfig {
	return StoreConfig{
		Endpoint:  resolveStoreEndpoint(env),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_S3_BUCKET")), "veriprompt-assets"),
		UseSSL:    resolveStoreUseSSL(env),
	}
}

func loadPinningConfig() PinningConfig {
	return PinningConfig{
		JWT:      strings.TrimSpace(os.Getenv("PINATA_JWT")),
		Endpoint: firstNonEmpty(strings.TrimSpace(os.Getenv("PINATA_ENDPOINT")), "https://api.pinata.cloud"),
		Gateway:  firstNonEmpty(strings.TrimSpace(os.Getenv("PINATA_GATEWAY")), "gateway.pinata.cloud"),
	}
}

func resolveStoreEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("ASSET_S3_ENDPOINT"))
}

func resolveStoreUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ASSET_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func resolveBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
