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

	"github.com/Dhvanitmonpara/interview.ai/internal/round"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Interview InterviewConfig
	Storage   StorageConfig
	Broker    BrokerConfig
	LogLevel  string
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

	interview, err := loadInterviewConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Interview: interview,
		Storage:   StorageConfig{DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		Broker: BrokerConfig{
			URL:      strings.TrimSpace(os.Getenv("AMQP_URL")),
			Exchange: getEnvOrDefault("AMQP_EXCHANGE", "interview.analytics"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr          string
	AllowedOrigin string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origin := getEnvOrDefault("ACCESS_CONTROL_ORIGIN", "*")

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigin: origin}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigin: origin}, nil
}

// AIConfig 描述大模型相关配置。
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
	Timeout     time.Duration
}

// InterviewConfig 描述面试流程参数。
type InterviewConfig struct {
	Rounds                round.Table
	MaxQuestions          int
	SampleInterval        time.Duration
	MaxPendingExpressions int
	FeedbackEnabled       bool
}

// StorageConfig 描述归档存储，DatabaseURL 为空时使用内存归档。
type StorageConfig struct {
	DatabaseURL string
}

// BrokerConfig 描述分析消息投递，URL 为空时只写日志。
type BrokerConfig struct {
	URL      string
	Exchange string
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
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

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	var timeout *time.Duration
	if c.Timeout > 0 {
		val := c.Timeout
		timeout = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		Timeout:     timeout,
		MaxTokens:   maxTokens,
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

	timeout := 20 * time.Second
	if override, err := parseOptionalIntEnv("ARK_TIMEOUT_SECONDS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		timeout = time.Duration(*override) * time.Second
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	}, nil
}

func loadInterviewConfig() (InterviewConfig, error) {
	rounds, err := loadRoundTable()
	if err != nil {
		return InterviewConfig{}, err
	}

	maxQuestions := 10
	if override, err := parseOptionalIntEnv("INTERVIEW_MAX_QUESTIONS"); err != nil {
		return InterviewConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return InterviewConfig{}, fmt.Errorf("INTERVIEW_MAX_QUESTIONS must be positive, got %d", *override)
		}
		maxQuestions = *override
	}

	interval := 333 * time.Millisecond
	if override, err := parseOptionalIntEnv("EXPRESSION_SAMPLE_MS"); err != nil {
		return InterviewConfig{}, err
	} else if override != nil && *override > 0 {
		interval = time.Duration(*override) * time.Millisecond
	}

	maxPending := 1024
	if override, err := parseOptionalIntEnv("EXPRESSION_MAX_PENDING"); err != nil {
		return InterviewConfig{}, err
	} else if override != nil && *override > 0 {
		maxPending = *override
	}

	feedback, err := parseBoolEnv("INTERVIEW_FEEDBACK_ENABLED", true)
	if err != nil {
		return InterviewConfig{}, err
	}

	return InterviewConfig{
		Rounds:                rounds,
		MaxQuestions:          maxQuestions,
		SampleInterval:        interval,
		MaxPendingExpressions: maxPending,
		FeedbackEnabled:       feedback,
	}, nil
}

// loadRoundTable 依次叠加默认值、INTERVIEW_ROUNDS_FILE 与 ROUND_TIME_<ROUND> 环境变量。
func loadRoundTable() (round.Table, error) {
	table := round.DefaultTable()

	if path := strings.TrimSpace(os.Getenv("INTERVIEW_ROUNDS_FILE")); path != "" {
		fromFile, err := round.LoadFile(path)
		if err != nil {
			return nil, err
		}
		table = table.Merge(fromFile)
	}

	overrides := make(round.Table)
	for _, r := range round.All {
		key := roundEnvKey(r)
		limit, err := parseOptionalIntEnv(key)
		if err != nil {
			return nil, err
		}
		if limit == nil {
			continue
		}
		if *limit <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %d", key, *limit)
		}
		overrides[r] = *limit
	}
	return table.Merge(overrides), nil
}

func roundEnvKey(r round.Round) string {
	return "ROUND_TIME_" + strings.ToUpper(strings.ReplaceAll(string(r), "-", "_"))
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
