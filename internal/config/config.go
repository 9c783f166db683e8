package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"

	speechmodel "github.com/zhouzirui/mindmate/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	AI       AIConfig
	Speech   SpeechConfig
	Log      LogConfig
}

// Load 从环境变量（以及可选的 CONFIG_FILE）加载配置。
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper builds the configuration from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	server, err := loadServerConfig(v)
	if err != nil {
		return nil, err
	}
	database, err := loadDatabaseConfig(v)
	if err != nil {
		return nil, err
	}
	ai, err := loadAIConfig(v)
	if err != nil {
		return nil, err
	}
	speech, err := loadSpeechConfig(v)
	if err != nil {
		return nil, err
	}
	logCfg, err := loadLogConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Database: database,
		Auth:     AuthConfig{Secret: v.GetString("JWT_SECRET"), Issuer: v.GetString("JWT_ISSUER")},
		AI:       ai,
		Speech:   speech,
		Log:      logCfg,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10")
	v.SetDefault("DATABASE_DRIVER", "memory")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "mindmate.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", "10")
	v.SetDefault("DB_MAX_IDLE_CONNS", "5")
	v.SetDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("ARK_REGION", "cn-beijing")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("AI_REPLY_TIMEOUT", "30")
	v.SetDefault("AI_HISTORY_WINDOW", "0")
	v.SetDefault("SPEECH_TTS_VOICE", "en_female_amy_jupiter_bigtts")
	v.SetDefault("SPEECH_TTS_FORMAT", "mp3")
	v.SetDefault("SPEECH_TIMEOUT", "30")
	v.SetDefault("LOG_LEVEL", "info")
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(v *viper.Viper) (ServerConfig, error) {
	port := strings.TrimSpace(v.GetString("PORT"))

	shutdown, err := parseSeconds(v, "SHUTDOWN_TIMEOUT")
	if err != nil {
		return ServerConfig{}, err
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, ShutdownTimeout: shutdown}, nil
	}

	if port == "" || strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, ShutdownTimeout: shutdown}, nil
}

// DatabaseConfig 描述存储后端。
type DatabaseConfig struct {
	Driver       string // memory | postgres | sqlite
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

func loadDatabaseConfig(v *viper.Viper) (DatabaseConfig, error) {
	maxOpen, err := parseInt(v, "DB_MAX_OPEN_CONNS")
	if err != nil {
		return DatabaseConfig{}, err
	}
	maxIdle, err := parseInt(v, "DB_MAX_IDLE_CONNS")
	if err != nil {
		return DatabaseConfig{}, err
	}

	cfg := DatabaseConfig{
		Driver:       strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
	}

	// DATABASE_URL 优先，且隐含 postgres
	if raw := strings.TrimSpace(v.GetString("DATABASE_URL")); raw != "" {
		if _, err := url.Parse(raw); err != nil {
			return DatabaseConfig{}, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		cfg.Driver = "postgres"
		cfg.DSN = raw
		return cfg, nil
	}

	switch cfg.Driver {
	case "memory":
	case "sqlite":
		cfg.DSN = strings.TrimSpace(v.GetString("SQLITE_PATH"))
	case "postgres":
		port, err := parseInt(v, "DB_PORT")
		if err != nil {
			return DatabaseConfig{}, err
		}
		cfg.DSN = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			v.GetString("DB_HOST"), port, v.GetString("DB_USER"), v.GetString("DB_PASS"),
			v.GetString("DB_NAME"), v.GetString("DB_SSLMODE"))
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid DATABASE_DRIVER value %q", cfg.Driver)
	}
	return cfg, nil
}

// AuthConfig JWT 校验配置。
type AuthConfig struct {
	Secret string
	Issuer string
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string // ark | openai | gemini | echo，留空时按凭证推断

	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	GeminiKey   string
	GeminiModel string

	Temperature   *float64
	TopP          *float64
	MaxTokens     *int
	ReplyTimeout  time.Duration
	HistoryWindow int
}

// Enabled 表示是否提供了 Ark 必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// ResolvedProvider returns the explicit provider or the first one with credentials.
func (c AIConfig) ResolvedProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	switch {
	case c.Enabled():
		return "ark"
	case c.OpenAIKey != "":
		return "openai"
	case c.GeminiKey != "":
		return "gemini"
	default:
		return "echo"
	}
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
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

func loadAIConfig(v *viper.Viper) (AIConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("AI_PROVIDER")))
	switch provider {
	case "", "ark", "openai", "gemini", "echo":
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloat(v, "AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	topP, err := parseOptionalFloat(v, "AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}
	maxTokens, err := parseOptionalInt(v, "AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	timeout, err := parseSeconds(v, "AI_REPLY_TIMEOUT")
	if err != nil {
		return AIConfig{}, err
	}
	window, err := parseInt(v, "AI_HISTORY_WINDOW")
	if err != nil {
		return AIConfig{}, err
	}
	if window < 0 {
		return AIConfig{}, fmt.Errorf("invalid AI_HISTORY_WINDOW value %d: must not be negative", window)
	}

	return AIConfig{
		Provider:      provider,
		APIKey:        getString(v, "ARK_API_KEY"),
		AccessKey:     getString(v, "ARK_ACCESS_KEY"),
		SecretKey:     getString(v, "ARK_SECRET_KEY"),
		Model:         getString(v, "ARK_MODEL"),
		BaseURL:       getString(v, "ARK_BASE_URL"),
		Region:        getString(v, "ARK_REGION"),
		OpenAIKey:     getString(v, "OPENAI_API_KEY"),
		OpenAIModel:   getString(v, "OPENAI_MODEL"),
		OpenAIBaseURL: getString(v, "OPENAI_BASE_URL"),
		GeminiKey:     getString(v, "GEMINI_API_KEY"),
		GeminiModel:   getString(v, "GEMINI_MODEL"),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
		ReplyTimeout:  timeout,
		HistoryWindow: window,
	}, nil
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	AppID       string
	AccessToken string
	Endpoint    string
	ResourceID  string
	Voices      map[string]string
	Speed       float32
	Volume      float32
	Format      string
	Timeout     time.Duration
	Enabled     bool
}

func loadSpeechConfig(v *viper.Viper) (SpeechConfig, error) {
	timeout, err := parseSeconds(v, "SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}

	ttsSpeed := float32(1.0) // 默认1.0倍速
	if speed, err := parseOptionalFloat(v, "SPEECH_TTS_SPEED"); err != nil {
		return SpeechConfig{}, err
	} else if speed != nil {
		ttsSpeed = float32(*speed)
	}

	ttsVolume := float32(1.0) // 默认1.0音量
	if volume, err := parseOptionalFloat(v, "SPEECH_TTS_VOLUME"); err != nil {
		return SpeechConfig{}, err
	} else if volume != nil {
		ttsVolume = float32(*volume)
	}

	appID := getString(v, "SPEECH_APP_ID")
	accessToken := getString(v, "SPEECH_ACCESS_TOKEN")
	if accessToken == "" {
		accessToken = getString(v, "SPEECH_API_KEY")
	}

	voices := map[string]string{"en": getString(v, "SPEECH_TTS_VOICE")}
	if hi := getString(v, "SPEECH_TTS_VOICE_HI"); hi != "" {
		voices["hi"] = hi
	}

	enabled := appID != "" && accessToken != ""
	if raw := getString(v, "SPEECH_ENABLED"); raw != "" {
		flag, err := strconv.ParseBool(raw)
		if err != nil {
			return SpeechConfig{}, fmt.Errorf("invalid SPEECH_ENABLED value %q: %w", raw, err)
		}
		enabled = enabled && flag
	}

	return SpeechConfig{
		AppID:       appID,
		AccessToken: accessToken,
		Endpoint:    getString(v, "SPEECH_ENDPOINT"),
		ResourceID:  getString(v, "SPEECH_RESOURCE_ID"),
		Voices:      voices,
		Speed:       ttsSpeed,
		Volume:      ttsVolume,
		Format:      getString(v, "SPEECH_TTS_FORMAT"),
		Timeout:     timeout,
		Enabled:     enabled,
	}, nil
}

// Model converts the loaded settings to the speech client configuration.
func (c SpeechConfig) Model() speechmodel.Config {
	return speechmodel.Config{
		AppID:       c.AppID,
		AccessToken: c.AccessToken,
		Endpoint:    c.Endpoint,
		ResourceID:  c.ResourceID,
		Voices:      c.Voices,
		Speed:       c.Speed,
		Volume:      c.Volume,
		Format:      c.Format,
		Timeout:     c.Timeout,
	}
}

// LogConfig 日志配置。
type LogConfig struct {
	Level       string
	Development bool
}

func loadLogConfig(v *viper.Viper) (LogConfig, error) {
	dev := false
	if raw := getString(v, "LOG_DEVELOPMENT"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return LogConfig{}, fmt.Errorf("invalid LOG_DEVELOPMENT value %q: %w", raw, err)
		}
		dev = parsed
	}
	return LogConfig{Level: strings.ToLower(getString(v, "LOG_LEVEL")), Development: dev}, nil
}

func getString(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func parseInt(v *viper.Viper, key string) (int, error) {
	raw := getString(v, key)
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseSeconds 读取以秒为单位的时长，0 表示不限制。
func parseSeconds(v *viper.Viper, key string) (time.Duration, error) {
	secs, err := parseInt(v, key)
	if err != nil {
		return 0, err
	}
	if secs < 0 {
		return 0, fmt.Errorf("invalid %s value %d: must not be negative", key, secs)
	}
	return time.Duration(secs) * time.Second, nil
}

func parseOptionalFloat(v *viper.Viper, key string) (*float64, error) {
	value := getString(v, key)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalInt(v *viper.Viper, key string) (*int, error) {
	value := getString(v, key)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
