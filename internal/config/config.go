package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/websocket"

	"github.com/jwtly10/gh-relay/internal/relay"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Host string `env:"RELAY_HOST" default:"127.0.0.1"`
	Port string `env:"RELAY_PORT" default:"8002"`

	// AllowedOrigins are the front-end origins granted CORS access
	AllowedOrigins []string `env:"RELAY_ALLOWED_ORIGINS"`

	// Timeout bounds each outbound GitHub call. Zero means no timeout.
	Timeout   time.Duration `env:"RELAY_TIMEOUT" default:"0"`
	UserAgent string        `env:"RELAY_USER_AGENT" default:"AstroBoxCreatorConsole"`

	logLevel string `env:"LOG_LEVEL" default:"info"`
	Logger   *slog.Logger
}

// ClientConfig will be set by the CLI app
type ClientConfig struct {
	ServerURL string // The relay host to invoke against
	UseWS     bool   // Invoke over the websocket transport instead of plain HTTP

	Request relay.Request // The request to relay, built from flags

	ShowHistory  bool // Print recent history instead of relaying
	HistoryLimit int
}

// DatabaseConfig points at the sqlite request history. An empty path disables it.
type DatabaseConfig struct {
	Path string `env:"RELAY_HISTORY_DB"`
}

const defaultAllowedOrigins = "tauri://localhost,http://localhost:5173"

func LoadConfig() (*Config, error) {
	// We will manually validate the config values
	// We ignore the error as the .env file is optional
	_ = godotenv.Load()

	allowedLogLevels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}

	cfg := &Config{}

	host := getOrDefault("RELAY_HOST", "127.0.0.1")
	port := getOrDefault("RELAY_PORT", "8002")
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return nil, fmt.Errorf("invalid port: %s", port)
	}

	logLevel := getOrDefault("LOG_LEVEL", "info")
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return nil, fmt.Errorf("invalid log level: %s", logLevel)
	}

	timeout, err := time.ParseDuration(getOrDefault("RELAY_TIMEOUT", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	if timeout < 0 {
		return nil, fmt.Errorf("invalid timeout: %s is negative", timeout)
	}

	cfg.Server = ServerConfig{
		Host:           host,
		Port:           port,
		AllowedOrigins: splitList(getOrDefault("RELAY_ALLOWED_ORIGINS", defaultAllowedOrigins)),
		Timeout:        timeout,
		UserAgent:      getOrDefault("RELAY_USER_AGENT", relay.DefaultUserAgent),
		logLevel:       logLevel,
		Logger:         setupLogger(allowedLogLevels[logLevel]),
	}

	cfg.Database = DatabaseConfig{
		Path: os.Getenv("RELAY_HISTORY_DB"),
	}

	return cfg, nil
}

// Utility methods

// setupLogger creates a new logger for the relay host
func setupLogger(l slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     l,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source := a.Value.Any().(*slog.Source)
				a.Value = slog.StringValue(source.File + ":" + strconv.Itoa(source.Line))
			}
			return a
		},
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// Addr returns the listen address of the relay host
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// HTTPURL returns the base URL the front-end uses to reach the relay host
func (c *ServerConfig) HTTPURL() string {
	return "http://" + c.Addr()
}

// IsAllowedOrigin reports whether a browser origin may call the relay host
func (c *ServerConfig) IsAllowedOrigin(origin string) bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// IsLocalHost reports whether a request Host names this relay host: the
// configured bind host, localhost or a loopback IP literal
func (c *ServerConfig) IsLocalHost(hostport string) bool {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
	}
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	if host == "" {
		return false
	}

	if strings.EqualFold(host, "localhost") || strings.EqualFold(host, c.Host) {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// InvokeURL returns the plain HTTP endpoint for a command
func (c *ClientConfig) InvokeURL(command string) string {
	return strings.TrimSuffix(c.ServerURL, "/") + "/invoke/" + command
}

// HistoryURL returns the history endpoint with the requested limit
func (c *ClientConfig) HistoryURL() string {
	u := strings.TrimSuffix(c.ServerURL, "/") + "/history"
	if c.HistoryLimit > 0 {
		u += "?limit=" + strconv.Itoa(c.HistoryLimit)
	}
	return u
}

// WebSocketURL returns the WebSocket URL (ws:// or wss://) of the relay host
func (c *ClientConfig) WebSocketURL() string {
	wsURL := strings.TrimSuffix(c.ServerURL, "/")
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return wsURL + "/ws"
}

// NewWebSocketConfig creates a websocket.Config for CLI usage
func (c *ClientConfig) NewWebSocketConfig() (*websocket.Config, error) {
	// The CLI presents itself as same-origin with the host
	return websocket.NewConfig(c.WebSocketURL(), strings.TrimSuffix(c.ServerURL, "/"))
}

// splitList splits a comma separated env value, dropping empty entries
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getOrDefault returns the value of the environment variable with the given key
// or the default value if the variable is not set
func getOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
