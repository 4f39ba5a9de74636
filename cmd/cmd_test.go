package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/bytepair/server"
	"github.com/ollama/bytepair/tokenizer"
)

const corpus = "the lazy dog sleeps while the quick brown fox jumps over the lazy dog\n"

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewCLI()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTrainEncodeDecode(t *testing.T) {
	dir := t.TempDir()
	vocab := filepath.Join(dir, "vocab.json")
	corpusPath := writeFile(t, dir, "corpus.txt", corpus)

	out, err := run(t, "", "train", "--vocab", vocab, "--size", "270", corpusPath)
	require.NoError(t, err)
	assert.Contains(t, out, "learned 14 merges")

	tok := tokenizer.New()
	require.NoError(t, tok.LoadFile(vocab))
	assert.Equal(t, 270, tok.Size())

	a := writeFile(t, dir, "a.txt", "the lazy dog")
	b := writeFile(t, dir, "b.txt", "the quick fox")

	out, err = run(t, "", "encode", "--vocab", vocab, a, b)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, formatSymbols(tok.Encode("the lazy dog")), lines[0])
	assert.Equal(t, formatSymbols(tok.Encode("the quick fox")), lines[1])

	_, err = run(t, "", "decode", "--vocab", vocab, lines[1])
	require.Error(t, err, "a single argument with spaces is not a symbol")

	out, err = run(t, lines[1], "decode", "--vocab", vocab)
	require.NoError(t, err)
	assert.Equal(t, "the quick fox\n", out)

	out, err = run(t, "", append([]string{"decode", "--vocab", vocab}, strings.Fields(lines[0])...)...)
	require.NoError(t, err)
	assert.Equal(t, "the lazy dog\n", out)
}

func TestTrainMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	vocab := filepath.Join(dir, "vocab.json")
	first := writeFile(t, dir, "1.txt", "abab")
	second := writeFile(t, dir, "2.txt", "cdcd")

	_, err := run(t, "", "train", "--vocab", vocab, "--size", "257", first, second)
	require.NoError(t, err)

	direct := tokenizer.New()
	_, err = direct.Train([]byte("ababcdcd"), 257)
	require.NoError(t, err)

	tok := tokenizer.New()
	require.NoError(t, tok.LoadFile(vocab))
	assert.Equal(t, direct.Vocabulary().Entries(), tok.Vocabulary().Entries())
}

func TestTrainErrors(t *testing.T) {
	dir := t.TempDir()
	vocab := filepath.Join(dir, "vocab.json")
	corpusPath := writeFile(t, dir, "corpus.txt", corpus)

	_, err := run(t, "", "train", "--vocab", vocab, "--size", "100", corpusPath)
	assert.ErrorIs(t, err, tokenizer.ErrInvalidTrainingTarget)

	_, err = run(t, "", "train", "--vocab", vocab, "--size", "300", filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(vocab)
	assert.ErrorIs(t, err, os.ErrNotExist, "failed training must not write a vocabulary")

	writeFile(t, dir, "broken.json", `{"256": [1]}`)
	_, err = run(t, "", "encode", "--vocab", filepath.Join(dir, "broken.json"), corpusPath)
	assert.ErrorIs(t, err, tokenizer.ErrVocabularyParse)
}

func TestEncodeStdin(t *testing.T) {
	vocab := filepath.Join(t.TempDir(), "vocab.json")

	out, err := run(t, "a  b", "encode", "--vocab", vocab)
	require.NoError(t, err)
	assert.Equal(t, "97 32 98\n", out)

	out, err = run(t, "a  b", "encode", "--vocab", vocab, "--raw")
	require.NoError(t, err)
	assert.Equal(t, "97 32 32 98\n", out)

	out, err = run(t, "a  b", "encode", "--vocab", vocab, "--normalizer", "none")
	require.NoError(t, err)
	assert.Equal(t, "97 32 32 98\n", out)

	_, err = run(t, "a", "encode", "--vocab", vocab, "--normalizer", "bogus")
	assert.Error(t, err)
}

func TestEncodeManyFiles(t *testing.T) {
	dir := t.TempDir()
	vocab := filepath.Join(dir, "vocab.json")
	_, err := run(t, "", "train", "--vocab", vocab, "--size", "270", writeFile(t, dir, "corpus.txt", corpus))
	require.NoError(t, err)

	tok := tokenizer.New()
	require.NoError(t, tok.LoadFile(vocab))

	words := strings.Fields(corpus)
	args := []string{"encode", "--vocab", vocab}
	for i, word := range words {
		args = append(args, writeFile(t, dir, fmt.Sprintf("%02d.txt", i), word))
	}

	out, err := run(t, "", args...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, len(words))
	for i, word := range words {
		assert.Equal(t, formatSymbols(tok.Encode(word)), lines[i], word)
	}
}

func TestDecodeErrors(t *testing.T) {
	vocab := filepath.Join(t.TempDir(), "vocab.json")

	_, err := run(t, "", "decode", "--vocab", vocab, "999")
	assert.ErrorIs(t, err, tokenizer.ErrUnknownSymbol)

	_, err = run(t, "", "decode", "--vocab", vocab, "255")
	assert.ErrorIs(t, err, tokenizer.ErrInvalidTextEncoding)

	_, err = run(t, "", "decode", "--vocab", vocab, "x")
	assert.ErrorContains(t, err, `invalid symbol "x"`)
}

func TestSpecial(t *testing.T) {
	vocab := filepath.Join(t.TempDir(), "vocab.json")

	out, err := run(t, "", "special", "--vocab", vocab, "<|endoftext|>", "<|pad|>")
	require.NoError(t, err)

	tok := tokenizer.New()
	require.NoError(t, tok.LoadFile(vocab))

	for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		literal, symbol, ok := strings.Cut(line, "\t")
		require.True(t, ok, line)
		assert.Equal(t, symbol, formatSymbols(tok.Encode(literal)))
	}

	_, err = run(t, "", "special", "--vocab", vocab, "")
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	vocab := filepath.Join(dir, "vocab.json")
	corpusPath := writeFile(t, dir, "corpus.txt", corpus)

	_, err := run(t, "", "train", "--vocab", vocab, "--size", "260", corpusPath)
	require.NoError(t, err)

	out, err := run(t, "", "info", "--vocab", vocab, "--entries", "--chunk-size", "128")
	require.NoError(t, err)

	assert.Contains(t, out, vocab)
	assert.Contains(t, out, "Merges:")
	assert.Contains(t, out, "128")
	assert.Contains(t, out, "BYTEPAIR_CHUNK_SIZE")
	assert.Contains(t, out, "SYMBOL")
	assert.Contains(t, out, "259")
}

func TestRemote(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tok := tokenizer.New()
	_, err := tok.Train([]byte(corpus), 270)
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(tok, "").GenerateRoutes())
	defer ts.Close()

	t.Setenv("BYTEPAIR_HOST", ts.URL)

	out, err := run(t, "the lazy dog", "encode", "--remote")
	require.NoError(t, err)
	assert.Equal(t, formatSymbols(tok.Encode("the lazy dog"))+"\n", out)

	out, err = run(t, out, "decode", "--remote")
	require.NoError(t, err)
	assert.Equal(t, "the lazy dog\n", out)

	_, err = run(t, "", "decode", "--remote", "4000")
	assert.ErrorContains(t, err, "unknown symbol 4000")
}

func TestLoadDotEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BYTEPAIR_NO_DOTENV", "false")

	// no file is fine
	require.NoError(t, LoadDotEnv())

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".bytepair"), 0o755))
	writeFile(t, filepath.Join(home, ".bytepair"), ".env", "BYTEPAIR_TEST_DOTENV=loaded\n")
	t.Cleanup(func() { os.Unsetenv("BYTEPAIR_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "loaded", os.Getenv("BYTEPAIR_TEST_DOTENV"))
}
