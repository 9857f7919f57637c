// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar, böylece
// her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct, her biri tek bir concern'ü temsil eder.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	LiveKit   LiveKitConfig
	Upload    UploadConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS ve WS origin kontrolü; boşsa "*"
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/dmrelay.db)
}

// JWTConfig, access token doğrulama ayarları.
//
// Token'lar dış kimlik servisi tarafından imzalanır; Secret o servisle paylaşılır.
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry int // Dakika; sadece dahili token üretiminde kullanılır
}

// LiveKitConfig, sesli/görüntülü arama SFU ayarları.
type LiveKitConfig struct {
	URL       string // ör: ws://localhost:7880
	APIKey    string
	APISecret string
}

// UploadConfig, dosya yükleme ayarları.
type UploadConfig struct {
	Dir       string
	MaxSize   int64  // Byte (varsayılan: 25MB)
	PublicURL string // Dönen URL'lerin öneki
}

// EmailConfig, kaçırılan mesaj email'leri.
// ResendAPIKey boşsa email kapalıdır.
type EmailConfig struct {
	ResendAPIKey string
	From         string
	AppURL       string
	Throttle     time.Duration // Aynı (gönderen, alıcı) çifti için min aralık
}

// RateLimitConfig, gönderim ve bağlantı limitleri.
type RateLimitConfig struct {
	MessagesPerWindow int
	Window            time.Duration
	Cooldown          time.Duration
	TypingPerWindow   int // Window başına typing event'i
	ConnectPerMinute  int // IP başına WS upgrade denemesi
}

// WebSocketConfig, bağlantı başına ayarlar.
type WebSocketConfig struct {
	SendBufferSize int // Yavaş client'ın kuyruğu; dolunca bağlantı kapanır
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// Dosya yoksa hata vermez; production'da gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	var p parser

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           p.int("SERVER_PORT", 9090),
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/dmrelay.db"),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: p.int("JWT_ACCESS_EXPIRY_MINUTES", 15),
		},
		LiveKit: LiveKitConfig{
			URL:       getEnv("LIVEKIT_URL", "ws://localhost:7880"),
			APIKey:    getEnv("LIVEKIT_API_KEY", ""),
			APISecret: getEnv("LIVEKIT_API_SECRET", ""),
		},
		Upload: UploadConfig{
			Dir:       getEnv("UPLOAD_DIR", "./data/uploads"),
			MaxSize:   p.int64("UPLOAD_MAX_SIZE", 25*1024*1024),
			PublicURL: getEnv("UPLOAD_PUBLIC_URL", "/api/uploads"),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "noreply@dmrelay.local"),
			AppURL:       strings.TrimRight(getEnv("APP_URL", "http://localhost:3030"), "/"),
			Throttle:     p.duration("EMAIL_THROTTLE", 15*time.Minute),
		},
		RateLimit: RateLimitConfig{
			MessagesPerWindow: p.int("RATE_LIMIT_MESSAGES", 5),
			Window:            p.duration("RATE_LIMIT_WINDOW", 5*time.Second),
			Cooldown:          p.duration("RATE_LIMIT_COOLDOWN", 10*time.Second),
			TypingPerWindow:   p.int("RATE_LIMIT_TYPING", 10),
			ConnectPerMinute:  p.int("RATE_LIMIT_WS_CONNECT", 30),
		},
		WebSocket: WebSocketConfig{
			SendBufferSize: p.int("WS_SEND_BUFFER", 256),
		},
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}
	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be positive")
	}
	if c.RateLimit.MessagesPerWindow <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_MESSAGES and RATE_LIMIT_WINDOW must be positive")
	}
	if c.WebSocket.SendBufferSize <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	return nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// parser, ilk parse hatasını saklar; Load sonunda tek seferde kontrol edilir.
type parser struct {
	err error
}

func (p *parser) int(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || p.err != nil {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) int64(key string, fallback int64) int64 {
	raw, ok := os.LookupEnv(key)
	if !ok || p.err != nil {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

// duration, "30s", "15m" gibi Go duration formatını okur.
func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || p.err != nil {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

// splitList, virgülle ayrılmış listeyi boşlukları kırparak böler.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
