package utils

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	port     string
	logLevel slog.Level

	dbDriver string
	dbDSN    string

	location      *time.Location
	pixelsPerHour float64
	weekStart     time.Weekday
	nowTick       time.Duration

	authSecret string
	ownerUID   string

	discordWebhookURL string
	reminderCron      string
	reminderLead      time.Duration

	metricCollectionInterval time.Duration
}

// envDuration reads a Go duration from key, falling back to def on blank or
// malformed values.
func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "env", key, "value", raw, "default", def)
		return def
	}
	slog.Debug("env", key, d)
	return d
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),
		logLevel: func() slog.Level {
			var level slog.Level
			raw := os.Getenv("LOG_LEVEL")
			if raw == "" {
				return slog.LevelInfo
			}
			if err := level.UnmarshalText([]byte(raw)); err != nil {
				slog.Warn("invalid LOG_LEVEL, using info", "value", raw)
				return slog.LevelInfo
			}
			return level
		}(),

		dbDriver: func() string {
			driver := strings.ToLower(os.Getenv("DB_DRIVER"))
			switch driver {
			case "":
				driver = DB_DRIVER_SQLITE
			case DB_DRIVER_SQLITE, DB_DRIVER_POSTGRES:
			default:
				slog.Error("DB_DRIVER must be sqlite or postgres", "value", driver)
				os.Exit(1)
			}
			slog.Debug("env", "DB_DRIVER", driver)
			return driver
		}(),
		dbDSN: func() string {
			dsn := os.Getenv("DB_DSN")
			if dsn == "" {
				dsn = "./planner.db?mode=rwc"
			}
			return dsn
		}(),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),
		pixelsPerHour: func() float64 {
			raw := os.Getenv("PIXELS_PER_HOUR")
			if raw == "" {
				return 60
			}
			pph, err := strconv.ParseFloat(raw, 64)
			if err != nil || pph <= 0 {
				slog.Error("PIXELS_PER_HOUR must be a positive number", "value", raw)
				os.Exit(1)
			}
			slog.Debug("env", "PIXELS_PER_HOUR", pph)
			return pph
		}(),
		weekStart: func() time.Weekday {
			switch strings.ToLower(os.Getenv("WEEK_START")) {
			case "monday":
				return time.Monday
			case "", "sunday":
				return time.Sunday
			default:
				slog.Warn("WEEK_START must be sunday or monday, using sunday", "value", os.Getenv("WEEK_START"))
				return time.Sunday
			}
		}(),
		nowTick: envDuration("NOW_TICK", time.Minute),

		authSecret: func() string {
			secret := os.Getenv("AUTH_SECRET")
			if secret == "" {
				slog.Warn("AUTH_SECRET is not set")
				secret = "secret"
			}
			return secret
		}(),
		ownerUID: strings.TrimSpace(os.Getenv("OWNER_UID")),

		discordWebhookURL: func() string {
			webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
			if webhookURL == "" {
				slog.Info("DISCORD_WEBHOOK_URL is not set, reminders are disabled")
			}
			return webhookURL
		}(),
		reminderCron: func() string {
			spec := os.Getenv("REMINDER_CRON")
			if spec == "" {
				spec = "* * * * *"
			}
			if _, err := cron.ParseStandard(spec); err != nil {
				slog.Error("invalid REMINDER_CRON", "value", spec, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "REMINDER_CRON", spec)
			return spec
		}(),
		reminderLead: envDuration("REMINDER_LEAD", 15*time.Minute),

		metricCollectionInterval: envDuration("METRIC_INTERVAL", 10*time.Second),
	}
}

const (
	DB_DRIVER_SQLITE   = "sqlite"
	DB_DRIVER_POSTGRES = "postgres"
)

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get LOG_LEVEL env, default to info
func (c *Config) GetLogLevel() slog.Level {
	return c.logLevel
}

// Get DB_DRIVER env, default to sqlite
func (c *Config) GetDBDriver() string {
	return c.dbDriver
}

// Get DB_DSN env
func (c *Config) GetDBDSN() string {
	return c.dbDSN
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get PIXELS_PER_HOUR env, default to 60
func (c *Config) GetPixelsPerHour() float64 {
	return c.pixelsPerHour
}

// Get WEEK_START env, default to sunday
func (c *Config) GetWeekStart() time.Weekday {
	return c.weekStart
}

// Get NOW_TICK env, default to 1m
func (c *Config) GetNowTick() time.Duration {
	return c.nowTick
}

// Get AUTH_SECRET env
func (c *Config) GetAuthSecret() string {
	return c.authSecret
}

// Get OWNER_UID env, empty lets the first signed-in account claim the device
func (c *Config) GetOwnerUID() string {
	return c.ownerUID
}

// Get DISCORD_WEBHOOK_URL env
func (c *Config) GetDiscordWebhookURL() string {
	return c.discordWebhookURL
}

// Get REMINDER_CRON env, default to every minute
func (c *Config) GetReminderCron() string {
	return c.reminderCron
}

// Get REMINDER_LEAD env, default to 15m
func (c *Config) GetReminderLead() time.Duration {
	return c.reminderLead
}

// Get METRIC_INTERVAL env, default to 10s
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}
