package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// 运行时模式。
const (
	RuntimeLangGraph = "langgraph"
	RuntimeLocal     = "local"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Runtime RuntimeConfig
	AI      AIConfig
	Geocode GeocodeConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	rt, err := loadRuntimeConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	geocode, err := loadGeocodeConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Runtime: rt, AI: ai, Geocode: geocode}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// RuntimeConfig 描述智能体运行时的连接方式。
type RuntimeConfig struct {
	Mode           string
	APIURL         string
	APIKey         string
	GraphID        string
	Stream         bool
	SummarizerNode string
	Timeout        time.Duration
}

func loadRuntimeConfig() (RuntimeConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("RUNTIME_MODE", RuntimeLangGraph))
	if mode != RuntimeLangGraph && mode != RuntimeLocal {
		return RuntimeConfig{}, fmt.Errorf("invalid RUNTIME_MODE value %q: want %s or %s", mode, RuntimeLangGraph, RuntimeLocal)
	}

	stream, err := parseBoolEnv("LANGGRAPH_STREAM", true)
	if err != nil {
		return RuntimeConfig{}, err
	}

	timeout, err := parseSecondsEnv("LANGGRAPH_TIMEOUT", 120*time.Second)
	if err != nil {
		return RuntimeConfig{}, err
	}

	return RuntimeConfig{
		Mode:           mode,
		APIURL:         getEnvOrDefault("LANGGRAPH_API_URL", "http://localhost:2024"),
		APIKey:         strings.TrimSpace(os.Getenv("LANGGRAPH_API_KEY")),
		GraphID:        getEnvOrDefault("LANGGRAPH_GRAPH_ID", "agent"),
		Stream:         stream,
		SummarizerNode: getEnvOrDefault("LANGGRAPH_SUMMARIZER_NODE", "summarizer_agent"),
		Timeout:        timeout,
	}, nil
}

// AIConfig 描述本地运行时所用大模型的配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// GeocodeConfig 描述地理编码服务配置。
type GeocodeConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Enabled 表示是否配置了 Google Maps 密钥。
func (c GeocodeConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadGeocodeConfig() (GeocodeConfig, error) {
	timeout, err := parseSecondsEnv("GEOCODE_TIMEOUT", 10*time.Second)
	if err != nil {
		return GeocodeConfig{}, err
	}

	return GeocodeConfig{
		APIKey:  strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY")),
		BaseURL: getEnvOrDefault("GEOCODE_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		Timeout: timeout,
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

// parseSecondsEnv 读取以秒为单位的超时，0 表示不限时。
func parseSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	seconds, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if seconds == nil {
		return defaultValue, nil
	}
	if *seconds < 0 {
		return 0, fmt.Errorf("invalid %s value %d: must not be negative", key, *seconds)
	}
	return time.Duration(*seconds) * time.Second, nil
}
