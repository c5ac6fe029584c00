// config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 启动时构建一次，之后按值传给各组件（不在调用时再读环境变量）
type Config struct {
	Port string
	Env  string // "development" | "production"

	DB       DBConfig
	RedisURL string
	RedisPwd string

	WebOrigin   string
	RPID        string
	RPOrigins   []string
	SessionTTL  time.Duration // WebAuthn 仪式数据
	AppTTL      time.Duration // 业务会话
	AdminEmails []string

	BootstrapEmail string

	SMTP SMTPConfig

	Sweep SweepConfig
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// DSN builds the postgres keyword/value connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type SMTPConfig struct {
	Host     string // SMTP_HOST, e.g. smtp.gmail.com
	Port     string // SMTP_PORT, e.g. 587
	Username string
	Password string
	From     string // 为空时回退 Username
	AppName  string
}

// Enabled reports whether real delivery is configured; otherwise mail is only logged.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && (s.Username != "" || s.From != "")
}

type SweepConfig struct {
	OverdueSpec    string  // cron spec, 默认每小时
	DueSoonSpec    string  // cron spec, 默认每天 08:00
	DueSoonWindow  time.Duration
	LateFeePerTick float64 // 每次扫描的固定滞纳金
	LockTTL        time.Duration
}

// LoadEnv 读取 .env（生产环境没有该文件是正常的）
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
}

func Load() Config {
	return Config{
		Port: get("PORT", "3001"),
		Env:  get("APP_ENV", "development"),
		DB: DBConfig{
			Host:     get("DB_HOST", "127.0.0.1"),
			User:     get("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     get("DB_NAME", "vaultlease"),
			Port:     get("DB_PORT", "5432"),
			SSLMode:  get("DB_SSLMODE", "disable"),
		},
		RedisURL:       get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:       os.Getenv("REDIS_PASSWORD"),
		WebOrigin:      get("WEB_ORIGIN", "http://localhost:5173"),
		RPID:           get("RP_ID", "localhost"),
		RPOrigins:      csv(get("RP_ORIGINS", "http://localhost:5173"), false),
		SessionTTL:     seconds("SESSION_TTL_SECONDS", 10*time.Minute),
		AppTTL:         seconds("APP_SESSION_TTL_SECONDS", 24*time.Hour),
		AdminEmails:    csv(os.Getenv("ADMIN_EMAILS"), true), // 例如: "admin@uni.edu,ops@uni.edu"
		BootstrapEmail: strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),
		SMTP: SMTPConfig{
			Host:     get("SMTP_HOST", ""),
			Port:     get("SMTP_PORT", "587"),
			Username: get("SMTP_USERNAME", ""),
			Password: get("SMTP_PASSWORD", ""),
			From:     get("SMTP_FROM", ""),
			AppName:  get("APP_NAME", "VaultLease"),
		},
		Sweep: SweepConfig{
			OverdueSpec:    get("SWEEP_OVERDUE_SPEC", "@every 1h"),
			DueSoonSpec:    get("SWEEP_DUE_SOON_SPEC", "0 8 * * *"),
			DueSoonWindow:  seconds("SWEEP_DUE_SOON_WINDOW_SECONDS", 24*time.Hour),
			LateFeePerTick: float(get("LATE_FEE_PER_SWEEP", "10")),
			LockTTL:        seconds("SWEEP_LOCK_TTL_SECONDS", 5*time.Minute),
		},
	}
}

// IsAdminEmail 比较时忽略大小写
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.AdminEmails {
		if a == email {
			return true
		}
	}
	return false
}

// Validate 启动前检查，避免下游库在非法取值上 panic
func (c Config) Validate() error {
	if o := c.WebOrigin; o != "" && o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
		return fmt.Errorf("WEB_ORIGIN %q must start with http:// or https://", o)
	}
	if c.Production() && c.WebOrigin == "*" {
		return fmt.Errorf("WEB_ORIGIN must not be * in production: sessions use credentialed requests")
	}
	return nil
}

func (c Config) Production() bool { return c.Env == "production" }

func get(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func seconds(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("config: ignoring %s=%q", k, v)
		return def
	}
	return time.Duration(n) * time.Second
}

func float(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 10
	}
	return f
}

func csv(s string, lower bool) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			if lower {
				t = strings.ToLower(t)
			}
			out = append(out, t)
		}
	}
	return out
}
