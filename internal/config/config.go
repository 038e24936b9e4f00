package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port int
	Host string

	// Database
	DatabaseDriver string // sqlite3 or pgx
	DatabaseURL    string

	// Lifecycle
	VotingWindow  time.Duration
	SweepInterval time.Duration

	// Chat
	RedisURL          string // empty disables publishing
	ChatChannelPrefix string

	// Rate Limiting
	DebateRateLimit  int // per window
	CommentRateLimit int
	VoteRateLimit    int
	ChatRateLimit    int
	RateLimitWindow  time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:              getEnvInt("PORT", 8080),
		Host:              getEnv("HOST", "0.0.0.0"),
		DatabaseDriver:    getEnv("DATABASE_DRIVER", "sqlite3"),
		DatabaseURL:       getEnv("DATABASE_URL", "debateboard.db"),
		VotingWindow:      getEnvDuration("VOTING_WINDOW", 12*time.Hour),
		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", time.Minute),
		RedisURL:          getEnv("REDIS_URL", ""),
		ChatChannelPrefix: getEnv("CHAT_CHANNEL_PREFIX", "debateboard:chat:"),
		DebateRateLimit:   getEnvInt("DEBATE_RATE_LIMIT", 10),
		CommentRateLimit:  getEnvInt("COMMENT_RATE_LIMIT", 60),
		VoteRateLimit:     getEnvInt("VOTE_RATE_LIMIT", 120),
		ChatRateLimit:     getEnvInt("CHAT_RATE_LIMIT", 300),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// LoadDotEnv copies variables from the given files (default .env) into the process
// environment. Variables already set win. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// SlogLevel parses LogLevel, falling back to info
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Addr is the listen address
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
