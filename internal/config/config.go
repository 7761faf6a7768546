package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins []string

	OpenAIAPIKey  string
	AIModel       string
	AIBaseURL     string
	SendGridKey   string
	MailFromAddr  string
	MailFromName  string
	ScheduleCache time.Duration

	NotificationsEnabled bool
	NotificationLocation *time.Location
	SessionEndingEvery   time.Duration
	QuizScoresEvery      time.Duration
	UnfinishedWorkAt     time.Duration
	DedupeTTL            time.Duration
	CheckRunTimeout      time.Duration
	NotificationChannel  string
	TriggerRateLimit     int
	LoginRateLimit       int

	SupportInbox     string
	SupportOpenLimit int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STUDYPLAN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "StudyPlan API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("mail.from_name", "StudyPlan")
	v.SetDefault("schedule.cache_ttl", "2m")
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.timezone", "Local")
	v.SetDefault("notifications.ending_interval", "15m")
	v.SetDefault("notifications.quiz_interval", "1h")
	v.SetDefault("notifications.end_of_day_at", "23:00")
	v.SetDefault("notifications.dedupe_ttl", "2h")
	v.SetDefault("notifications.run_timeout", "5m")
	v.SetDefault("notifications.channel", "studyplan")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("admin.trigger_rate_limit", 5)
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("support.open_rate_limit", 3)
	v.SetDefault("cors.allow_origins", "*")

	durations := map[string]*time.Duration{}
	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		JWTSecret:            v.GetString("jwt.secret"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		AIModel:              v.GetString("ai.model"),
		AIBaseURL:            v.GetString("ai.base_url"),
		SendGridKey:          v.GetString("sendgrid.api_key"),
		MailFromAddr:         v.GetString("mail.from_address"),
		MailFromName:         v.GetString("mail.from_name"),
		NotificationsEnabled: v.GetBool("notifications.enabled"),
		NotificationChannel:  v.GetString("notifications.channel"),
		TriggerRateLimit:     v.GetInt("admin.trigger_rate_limit"),
		LoginRateLimit:       v.GetInt("auth.login_rate_limit"),
		SupportInbox:         v.GetString("support.inbox"),
		SupportOpenLimit:     v.GetInt("support.open_rate_limit"),
	}
	durations["jwt.ttl"] = &cfg.JWTTTL
	durations["schedule.cache_ttl"] = &cfg.ScheduleCache
	durations["notifications.ending_interval"] = &cfg.SessionEndingEvery
	durations["notifications.quiz_interval"] = &cfg.QuizScoresEvery
	durations["notifications.dedupe_ttl"] = &cfg.DedupeTTL
	durations["notifications.run_timeout"] = &cfg.CheckRunTimeout

	for key, target := range durations {
		parsed, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = parsed
	}

	location, err := time.LoadLocation(v.GetString("notifications.timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid notifications.timezone: %w", err)
	}
	cfg.NotificationLocation = location
	cfg.CORSOrigins = splitList(v.GetString("cors.allow_origins"))

	endOfDay, err := models.ParseClock(v.GetString("notifications.end_of_day_at"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid notifications.end_of_day_at: %w", err)
	}
	cfg.UnfinishedWorkAt = endOfDay

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("jwt.ttl must be positive")
	}
	if cfg.SessionEndingEvery <= 0 || cfg.QuizScoresEvery <= 0 {
		return Config{}, fmt.Errorf("notification intervals must be positive")
	}
	if cfg.TriggerRateLimit <= 0 {
		cfg.TriggerRateLimit = 5
	}
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}
	if cfg.SupportOpenLimit <= 0 {
		cfg.SupportOpenLimit = 3
	}

	return cfg, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
