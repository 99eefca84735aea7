package confs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"signage-console/realtime"
)

// Config holds everything the composition root wires together.
type Config struct {
	ListenAddr string
	BackendURL string

	DeviceSocketURL string
	ChatSocketURL   string

	// The two channels keep their historically different reconnection
	// behavior: devices back off and eventually give up, chat retries
	// forever. Both are overridable per channel.
	DevicePolicy realtime.ReconnectPolicy
	ChatPolicy   realtime.ReconnectPolicy

	CommandTimeout time.Duration
	TypingWindow   time.Duration

	SenderID   string
	SenderName string

	LogLevel string
	LogDebug bool

	// ArchiveEnabled gates the optional Postgres archive; the service
	// runs fully in-memory without it.
	ArchiveEnabled bool
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
		}
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}

	cfg := &Config{
		ListenAddr:      envOr("LISTEN_ADDR", "0.0.0.0:3640"),
		BackendURL:      backendURL,
		DeviceSocketURL: envOr("DEVICE_SOCKET_URL", ""),
		ChatSocketURL:   envOr("CHAT_SOCKET_URL", ""),
		CommandTimeout:  envDuration("COMMAND_TIMEOUT", 10*time.Second),
		TypingWindow:    envDuration("TYPING_WINDOW", 2*time.Second),
		SenderID:        envOr("SENDER_ID", "console"),
		SenderName:      envOr("SENDER_NAME", "Console"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogDebug:        os.Getenv("LOG_DEBUG") == "true",
		ArchiveEnabled:  os.Getenv("ARCHIVE_ENABLED") == "true",
	}
	if cfg.DeviceSocketURL == "" || cfg.ChatSocketURL == "" {
		return nil, fmt.Errorf("DEVICE_SOCKET_URL and CHAT_SOCKET_URL are required")
	}

	var err error
	if cfg.DevicePolicy, err = policyFromEnv("DEVICE"); err != nil {
		return nil, err
	}
	if cfg.ChatPolicy, err = policyFromEnv("CHAT"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// policyFromEnv builds the reconnection policy for one channel. Defaults:
// the device channel uses bounded backoff (base 1s, max 30s, 10 attempts),
// the chat channel retries every 5s forever.
func policyFromEnv(prefix string) (realtime.ReconnectPolicy, error) {
	kind := os.Getenv(prefix + "_RECONNECT_POLICY")
	if kind == "" {
		if prefix == "CHAT" {
			kind = "fixed"
		} else {
			kind = "backoff"
		}
	}
	switch kind {
	case "backoff":
		return realtime.BackoffPolicy{
			Base:        envDuration(prefix+"_RECONNECT_BASE", time.Second),
			MaxDelay:    envDuration(prefix+"_RECONNECT_MAX_DELAY", 30*time.Second),
			MaxAttempts: envInt(prefix+"_RECONNECT_MAX_ATTEMPTS", 10),
		}, nil
	case "fixed":
		return realtime.FixedPolicy{
			Interval: envDuration(prefix+"_RECONNECT_INTERVAL", 5*time.Second),
		}, nil
	default:
		return nil, fmt.Errorf("unknown reconnect policy %q for %s channel", kind, prefix)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
