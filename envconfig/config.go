package envconfig

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultPort = "11535"

// Host returns the scheme and host of the server. Configurable via
// BYTEPAIR_HOST. Default is http://127.0.0.1:11535.
func Host() *url.URL {
	port := defaultPort

	s := strings.TrimSpace(Var("BYTEPAIR_HOST"))
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		port = "80"
	case scheme == "https":
		port = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, p, err := net.SplitHostPort(hostport)
	if err != nil {
		host, p = "127.0.0.1", port
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(p, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", p, "default", port)
		p = port
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, p),
		Path:   path,
	}
}

// AllowedOrigins returns the CORS origins accepted by the server: those in
// BYTEPAIR_ORIGINS followed by localhost in its usual spellings.
func AllowedOrigins() (origins []string) {
	if s := Var("BYTEPAIR_ORIGINS"); s != "" {
		origins = strings.Split(s, ",")
	}

	for _, origin := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		origins = append(origins,
			fmt.Sprintf("http://%s", origin),
			fmt.Sprintf("https://%s", origin),
			fmt.Sprintf("http://%s", net.JoinHostPort(origin, "*")),
			fmt.Sprintf("https://%s", net.JoinHostPort(origin, "*")),
		)
	}

	return origins
}

// Vocabulary returns the path of the vocabulary file. Configurable via
// BYTEPAIR_VOCAB. Default is $HOME/.bytepair/vocab.json.
func Vocabulary() string {
	if s := Var("BYTEPAIR_VOCAB"); s != "" {
		return s
	}

	return filepath.Join(Home(), "vocab.json")
}

// Home returns the directory holding the default vocabulary and the .env
// file.
func Home() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}

	return filepath.Join(home, ".bytepair")
}

// LogLevel returns the log level. Configurable via BYTEPAIR_DEBUG: false or
// 0 is INFO, true or 1 is DEBUG and 2 is TRACE.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("BYTEPAIR_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

var (
	// ChunkSize is the number of bytes merged together by one encode step.
	ChunkSize = Uint("BYTEPAIR_CHUNK_SIZE", 4096)
	// Normalizer names the normalizer applied before encoding.
	Normalizer = StringWithDefault("BYTEPAIR_NORMALIZER", "whitespace")
	// NoDotenv skips loading the .env file.
	NoDotenv = Bool("BYTEPAIR_NO_DOTENV")
)

func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

func StringWithDefault(k, defaultValue string) func() string {
	return func() string {
		if s := Var(k); s != "" {
			return s
		}
		return defaultValue
	}
}

func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil || n == 0 {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BYTEPAIR_DEBUG":      {"BYTEPAIR_DEBUG", LogLevel(), "Show additional debug information (e.g. BYTEPAIR_DEBUG=1)"},
		"BYTEPAIR_HOST":       {"BYTEPAIR_HOST", Host(), "IP Address for the bytepair server (default 127.0.0.1:11535)"},
		"BYTEPAIR_ORIGINS":    {"BYTEPAIR_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"BYTEPAIR_VOCAB":      {"BYTEPAIR_VOCAB", Vocabulary(), "The path to the vocabulary file"},
		"BYTEPAIR_CHUNK_SIZE": {"BYTEPAIR_CHUNK_SIZE", ChunkSize(), "Bytes merged together per encode step (default 4096)"},
		"BYTEPAIR_NORMALIZER": {"BYTEPAIR_NORMALIZER", Normalizer(), "Normalizers applied before encoding, joined with + (default whitespace)"},
		"BYTEPAIR_NO_DOTENV":  {"BYTEPAIR_NO_DOTENV", NoDotenv(), "Do not load ~/.bytepair/.env"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Var returns an environment variable stripped of leading and trailing
// quotes or spaces.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
