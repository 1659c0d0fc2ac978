package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	PublicWSURL string

	LLM       LLMConfig
	Retrieval RetrievalConfig
	Artifact  ArtifactConfig

	StageTimeout time.Duration
}

type LLMConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
	RPS        float64
	Burst      int
}

type RetrievalConfig struct {
	PGDSN string
	Dim   int
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
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

	return &Config{
		Port:         *port,
		Env:          env,
		PublicWSURL:  strings.TrimSpace(os.Getenv("PUBLIC_WS_URL")),
		LLM:          loadLLMConfig(),
		Retrieval:    loadRetrievalConfig(),
		Artifact:     loadArtifactConfig(env),
		StageTimeout: envDuration("STAGE_TIMEOUT_SECONDS", 120*time.Second),
	}, nil
}

func loadLLMConfig() LLMConfig {
	return LLMConfig{
		APIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:      firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_MODEL")), "gemini-2.0-flash"),
		EmbedModel: firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")), "text-embedding-004"),
		RPS:        envFloat("LLM_RPS"),
		Burst:      envInt("LLM_BURST"),
	}
}

func loadRetrievalConfig() RetrievalConfig {
	dim := envInt("EMBEDDING_DIM")
	if dim <= 0 {
		dim = 768
	}
	return RetrievalConfig{
		PGDSN: strings.TrimSpace(os.Getenv("RETRIEVAL_PG_DSN")),
		Dim:   dim,
	}
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "lts-scenes"),
		UseSSL:    resolveArtifactUseSSL(env),
	}
}

func resolveArtifactEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envFloat(key string) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

func envInt(key string) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
