package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Session   SessionConfig   `mapstructure:"session"`
	OAuth     OAuthConfig     `mapstructure:"oauth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Admission AdmissionConfig `mapstructure:"admission"`
	LLM       LLMConfig       `mapstructure:"llm"`
	PDF       PDFConfig       `mapstructure:"pdf"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// SessionConfig 登录会话配置
type SessionConfig struct {
	IdleTimeoutMinutes int `mapstructure:"idle_timeout_minutes"`
}

// IdleTimeout 空闲超时，未配置时为 30 分钟
func (c SessionConfig) IdleTimeout() time.Duration {
	if c.IdleTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// StorageConfig 对象存储配置，backend 为 oss / minio，留空则不启用归档
type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	OSS     OSSConfig   `mapstructure:"oss"`
	Minio   MinioConfig `mapstructure:"minio"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
}

type MinioConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

type UploadConfig struct {
	MaxSizeMB         int      `mapstructure:"max_size_mb"`        // 最大文件大小（MB）
	MaxPages          int      `mapstructure:"max_pages"`          // PDF 最大页数
	ExpireMinutes     int      `mapstructure:"expire_minutes"`     // 暂存过期时间（分钟）
	AllowedExtensions []string `mapstructure:"allowed_extensions"` // 允许的扩展名
}

// MaxSizeBytes 最大上传字节数
func (c UploadConfig) MaxSizeBytes() int64 {
	if c.MaxSizeMB <= 0 {
		return 20 * 1024 * 1024
	}
	return int64(c.MaxSizeMB) * 1024 * 1024
}

// Expire 暂存有效期，未配置时为 60 分钟
func (c UploadConfig) Expire() time.Duration {
	if c.ExpireMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.ExpireMinutes) * time.Minute
}

// AdmissionConfig 分析准入配置
type AdmissionConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	DailyLimit int  `mapstructure:"daily_limit"`
}

// LLMConfig 模型调用配置，models 的顺序即回退优先级
type LLMConfig struct {
	Providers          []ProviderConfig `mapstructure:"providers"`
	Models             []ModelConfig    `mapstructure:"models"`
	Temperature        float32          `mapstructure:"temperature"`
	MaxTokens          int              `mapstructure:"max_tokens"`
	RateLimitBackoffMS int              `mapstructure:"rate_limit_backoff_ms"`
	MaxReportChars     int              `mapstructure:"max_report_chars"`
}

// ReportCharLimit 报告文本的字数上限，未配置时为 20000
func (c LLMConfig) ReportCharLimit() int {
	if c.MaxReportChars <= 0 {
		return 20000
	}
	return c.MaxReportChars
}

type ProviderConfig struct {
	Name    string `mapstructure:"name"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type ModelConfig struct {
	Provider    string `mapstructure:"provider"`
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	Description string `mapstructure:"description"`
}

type PDFConfig struct {
	FontPath string `mapstructure:"font_path"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	// .env 只补充未设置的环境变量
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("session.idle_timeout_minutes", 30)
	viper.SetDefault("upload.max_size_mb", 20)
	viper.SetDefault("upload.max_pages", 50)
	viper.SetDefault("upload.expire_minutes", 60)
	viper.SetDefault("upload.allowed_extensions", []string{".pdf"})
	viper.SetDefault("admission.daily_limit", 6)
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 2000)
	viper.SetDefault("llm.rate_limit_backoff_ms", 2000)
	viper.SetDefault("llm.max_report_chars", 20000)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
