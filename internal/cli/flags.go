package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jwtly10/gh-relay/internal/config"
	"github.com/jwtly10/gh-relay/internal/relay"
)

const (
	// Default local relay host
	defaultServerUrl = "http://127.0.0.1:8002"

	// Environment Variable for server URL
	serverUrlEnv = "GH_RELAY_SERVER_URL"
)

// headerFlags collects repeated -H 'Name: value' flags
type headerFlags map[string]string

func (f headerFlags) String() string {
	return fmt.Sprint(map[string]string(f))
}

func (f headerFlags) Set(value string) error {
	name, v, ok := strings.Cut(value, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("invalid header %q, expected 'Name: value'", value)
	}
	f[name] = strings.TrimSpace(v)
	return nil
}

// ParseFlags builds the client configuration from command line arguments
func ParseFlags(args []string, output io.Writer) (*config.ClientConfig, error) {
	var (
		headers     = headerFlags{}
		method      string
		body        string
		serverUrl   string
		useWS       bool
		showHistory bool
		limit       int
	)

	fs := flag.NewFlagSet("gh-relay", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: gh-relay [flags] <url>")
		fmt.Fprintln(output, "       gh-relay -history [-n N]")
		fs.PrintDefaults()
	}

	fs.StringVar(&method, "X", "GET", "HTTP method")
	fs.Var(headers, "H", "Header 'Name: value' (can be specified multiple times)")
	fs.StringVar(&body, "d", "", "Request body, sent verbatim")
	fs.StringVar(&serverUrl, "server", "", "Relay host URL (defaults to GH_RELAY_SERVER_URL env var or "+defaultServerUrl+")")
	fs.BoolVar(&useWS, "ws", false, "Invoke over the websocket transport")
	fs.BoolVar(&showHistory, "history", false, "Print recently relayed requests")
	fs.IntVar(&limit, "n", 20, "Number of history entries to print")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &config.ClientConfig{
		ServerURL:    resolveServerUrl(serverUrl),
		UseWS:        useWS,
		ShowHistory:  showHistory,
		HistoryLimit: limit,
	}

	if showHistory {
		return cfg, nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one url")
	}

	cfg.Request = relay.Request{
		Method: method,
		URL:    fs.Arg(0),
	}
	if len(headers) > 0 {
		cfg.Request.Headers = headers
	}

	// -d "" is a deliberate empty body, an absent -d is no body
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "d" {
			cfg.Request.Body = &body
		}
	})

	return cfg, nil
}

func resolveServerUrl(serverUrl string) string {
	if serverUrl == "" {
		// If the server URL is not provided via the flag, check the environment
		serverUrl = os.Getenv(serverUrlEnv)
		if serverUrl == "" {
			serverUrl = defaultServerUrl
		}
	}

	return serverUrl
}
