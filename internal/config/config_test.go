package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"RELAY_HOST", "RELAY_PORT", "RELAY_ALLOWED_ORIGINS", "RELAY_TIMEOUT", "RELAY_USER_AGENT", "RELAY_HISTORY_DB", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:8002", cfg.Server.Addr())
	require.Equal(t, []string{"tauri://localhost", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
	require.Zero(t, cfg.Server.Timeout, "no outbound timeout unless configured")
	require.Equal(t, "AstroBoxCreatorConsole", cfg.Server.UserAgent)
	require.Empty(t, cfg.Database.Path)
	require.NotNil(t, cfg.Server.Logger)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("RELAY_HOST", "0.0.0.0")
	t.Setenv("RELAY_PORT", "9000")
	t.Setenv("RELAY_ALLOWED_ORIGINS", " https://app.example , ,tauri://localhost")
	t.Setenv("RELAY_TIMEOUT", "15s")
	t.Setenv("RELAY_USER_AGENT", "custom-agent")
	t.Setenv("RELAY_HISTORY_DB", "/tmp/history.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	require.Equal(t, []string{"https://app.example", "tauri://localhost"}, cfg.Server.AllowedOrigins)
	require.Equal(t, 15*time.Second, cfg.Server.Timeout)
	require.Equal(t, "custom-agent", cfg.Server.UserAgent)
	require.Equal(t, "/tmp/history.db", cfg.Database.Path)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "test invalid log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "test invalid port", key: "RELAY_PORT", value: "http"},
		{name: "test out of range port", key: "RELAY_PORT", value: "70000"},
		{name: "test invalid timeout", key: "RELAY_TIMEOUT", value: "soon"},
		{name: "test negative timeout", key: "RELAY_TIMEOUT", value: "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestServerConfigIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{
			name:    "test listed origin",
			allowed: []string{"tauri://localhost"},
			origin:  "tauri://localhost",
			want:    true,
		},
		{
			name:    "test unlisted origin",
			allowed: []string{"tauri://localhost"},
			origin:  "https://evil.example",
			want:    false,
		},
		{
			name:    "test wildcard",
			allowed: []string{"*"},
			origin:  "https://anything.example",
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serverConfig := ServerConfig{AllowedOrigins: tt.allowed}
			if got := serverConfig.IsAllowedOrigin(tt.origin); got != tt.want {
				t.Errorf("IsAllowedOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServerConfigIsLocalHost(t *testing.T) {
	tests := []struct {
		name string
		host string
		want bool
	}{
		{name: "test configured host", host: "relay.internal:8002", want: true},
		{name: "test ipv4 loopback", host: "127.0.0.1:8002", want: true},
		{name: "test ipv6 loopback", host: "[::1]:8002", want: true},
		{name: "test localhost", host: "LOCALHOST:8002", want: true},
		{name: "test localhost without port", host: "localhost", want: true},
		{name: "test rebound hostname", host: "attacker.example:8002", want: false},
		{name: "test lan address", host: "192.168.1.10:8002", want: false},
		{name: "test empty host", host: "", want: false},
	}

	serverConfig := ServerConfig{Host: "relay.internal", Port: "8002"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serverConfig.IsLocalHost(tt.host); got != tt.want {
				t.Errorf("IsLocalHost(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestClientConfigURLs(t *testing.T) {
	tests := []struct {
		name             string
		serverURL        string
		wantWebSocketURL string
		wantInvokeURL    string
	}{
		{
			name:             "test client config with local server url",
			serverURL:        "http://127.0.0.1:8002",
			wantWebSocketURL: "ws://127.0.0.1:8002/ws",
			wantInvokeURL:    "http://127.0.0.1:8002/invoke/github_request",
		},
		{
			name:             "test client config with trailing slash and tls",
			serverURL:        "https://relay.example/",
			wantWebSocketURL: "wss://relay.example/ws",
			wantInvokeURL:    "https://relay.example/invoke/github_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientConfig := ClientConfig{
				ServerURL: tt.serverURL,
			}
			if got := clientConfig.WebSocketURL(); got != tt.wantWebSocketURL {
				t.Errorf("WebSocketURL() = %v, want %v", got, tt.wantWebSocketURL)
			}
			if got := clientConfig.InvokeURL("github_request"); got != tt.wantInvokeURL {
				t.Errorf("InvokeURL() = %v, want %v", got, tt.wantInvokeURL)
			}
		})
	}
}

func TestClientConfigHistoryURL(t *testing.T) {
	c := ClientConfig{ServerURL: "http://127.0.0.1:8002"}
	require.Equal(t, "http://127.0.0.1:8002/history", c.HistoryURL())

	c.HistoryLimit = 5
	require.Equal(t, "http://127.0.0.1:8002/history?limit=5", c.HistoryURL())
}
