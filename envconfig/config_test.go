package envconfig

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestHost(t *testing.T) {
	cases := map[string]struct {
		value  string
		expect string
	}{
		"empty":               {"", "http://127.0.0.1:11535"},
		"only address":        {"1.2.3.4", "http://1.2.3.4:11535"},
		"only port":           {":1234", "http://:1234"},
		"address and port":    {"1.2.3.4:1234", "http://1.2.3.4:1234"},
		"hostname":            {"example.com", "http://example.com:11535"},
		"hostname and port":   {"example.com:1234", "http://example.com:1234"},
		"zero port":           {":0", "http://:0"},
		"too large port":      {":66000", "http://:11535"},
		"too small port":      {":-1", "http://:11535"},
		"ipv6 localhost":      {"[::1]", "http://[::1]:11535"},
		"ipv6 world open":     {"[::]", "http://[::]:11535"},
		"ipv6 no brackets":    {"::1", "http://[::1]:11535"},
		"ipv6 + port":         {"[::1]:1337", "http://[::1]:1337"},
		"extra space":         {" 1.2.3.4 ", "http://1.2.3.4:11535"},
		"extra quotes":        {"\"1.2.3.4\"", "http://1.2.3.4:11535"},
		"extra space+quotes":  {" \" 1.2.3.4 \" ", "http://1.2.3.4:11535"},
		"extra single quotes": {"'1.2.3.4'", "http://1.2.3.4:11535"},
		"http":                {"http://1.2.3.4", "http://1.2.3.4:80"},
		"http port":           {"http://1.2.3.4:4321", "http://1.2.3.4:4321"},
		"https":               {"https://1.2.3.4", "https://1.2.3.4:443"},
		"https port":          {"https://1.2.3.4:4321", "https://1.2.3.4:4321"},
		"proxy path":          {"https://example.com/bytepair", "https://example.com:443/bytepair"},
	}

	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("BYTEPAIR_HOST", tt.value)
			if host := Host(); host.String() != tt.expect {
				t.Errorf("%s: expected %s, got %s", name, tt.expect, host.String())
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	t.Setenv("BYTEPAIR_ORIGINS", "http://10.0.0.1,https://example.com")

	want := []string{
		"http://10.0.0.1",
		"https://example.com",
		"http://localhost",
		"https://localhost",
		"http://localhost:*",
		"https://localhost:*",
		"http://127.0.0.1",
		"https://127.0.0.1",
		"http://127.0.0.1:*",
		"https://127.0.0.1:*",
		"http://0.0.0.0",
		"https://0.0.0.0",
		"http://0.0.0.0:*",
		"https://0.0.0.0:*",
	}

	if diff := cmp.Diff(want, AllowedOrigins()); diff != "" {
		t.Errorf("origins mismatch (-want +got):\n%s", diff)
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"0":     slog.LevelInfo,
		"true":  slog.LevelDebug,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for value, want := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("BYTEPAIR_DEBUG", value)
			assert.Equal(t, want, LogLevel())
		})
	}
}

func TestChunkSize(t *testing.T) {
	cases := map[string]uint{
		"":      4096,
		"128":   128,
		"0":     4096,
		"-1":    4096,
		"large": 4096,
	}

	for value, want := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("BYTEPAIR_CHUNK_SIZE", value)
			assert.Equal(t, want, ChunkSize())
		})
	}
}

func TestVocabulary(t *testing.T) {
	t.Setenv("BYTEPAIR_VOCAB", "")
	t.Setenv("HOME", "/home/test")
	assert.Equal(t, filepath.Join("/home/test", ".bytepair", "vocab.json"), Vocabulary())

	t.Setenv("BYTEPAIR_VOCAB", "'/tmp/vocab.json'")
	assert.Equal(t, "/tmp/vocab.json", Vocabulary())
}

func TestNormalizer(t *testing.T) {
	t.Setenv("BYTEPAIR_NORMALIZER", "")
	assert.Equal(t, "whitespace", Normalizer())

	t.Setenv("BYTEPAIR_NORMALIZER", "nfc+whitespace")
	assert.Equal(t, "nfc+whitespace", Normalizer())
}

func TestValues(t *testing.T) {
	t.Setenv("BYTEPAIR_CHUNK_SIZE", "64")
	t.Setenv("BYTEPAIR_NO_DOTENV", "yes")

	values := Values()
	assert.Equal(t, "64", values["BYTEPAIR_CHUNK_SIZE"])
	assert.Equal(t, "true", values["BYTEPAIR_NO_DOTENV"], "unparseable booleans are treated as set")
	assert.Len(t, values, len(AsMap()))
}
