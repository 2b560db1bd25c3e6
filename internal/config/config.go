package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	MaxUploadBytes int64
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	cfg := ServerConfig{MaxUploadBytes: 16 << 20}

	maxUpload, err := parseOptionalIntEnv("MAX_UPLOAD_MB")
	if err != nil {
		return ServerConfig{}, err
	}
	if maxUpload != nil && *maxUpload > 0 {
		cfg.MaxUploadBytes = int64(*maxUpload) << 20
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// AIConfig 描述 Gemini 模型相关配置。
type AIConfig struct {
	APIKey          string
	PersonaModel    string
	ChatModel       string
	ChatTemperature *float64
	StreamResponse  bool
}

func loadAIConfig() (AIConfig, error) {
	// The original deployment names the secret GEMINI_KEY; the SDK's own
	// conventional names are accepted as fallbacks.
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	}
	if apiKey == "" {
		return AIConfig{}, fmt.Errorf("missing API credential: set GEMINI_KEY (or GEMINI_API_KEY / GOOGLE_API_KEY)")
	}

	temperature, err := parseOptionalFloatEnv("GEMINI_CHAT_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("GEMINI_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:          apiKey,
		PersonaModel:    getEnvOrDefault("GEMINI_PERSONA_MODEL", "gemini-2.5-flash"),
		ChatModel:       getEnvOrDefault("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		ChatTemperature: temperature,
		StreamResponse:  stream,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
