package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ollama/bytepair/api"
	"github.com/ollama/bytepair/envconfig"
	"github.com/ollama/bytepair/format"
	"github.com/ollama/bytepair/logutil"
	"github.com/ollama/bytepair/normalize"
	"github.com/ollama/bytepair/progress"
	"github.com/ollama/bytepair/server"
	"github.com/ollama/bytepair/tokenizer"
	"github.com/ollama/bytepair/version"
)

// loadTokenizer builds a tokenizer from the persistent flags. A missing
// vocabulary file yields an empty vocabulary.
func loadTokenizer(cmd *cobra.Command) (*tokenizer.Tokenizer, string, error) {
	path, err := cmd.Flags().GetString("vocab")
	if err != nil {
		return nil, "", err
	}

	chunkSize, err := cmd.Flags().GetInt("chunk-size")
	if err != nil {
		return nil, "", err
	}

	name, err := cmd.Flags().GetString("normalizer")
	if err != nil {
		return nil, "", err
	}

	n, err := normalize.Parse(name)
	if err != nil {
		return nil, "", err
	}

	tok := tokenizer.New(tokenizer.WithChunkSize(chunkSize), tokenizer.WithNormalizer(n))
	if err := tok.LoadFile(path); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no vocabulary found, starting empty", "path", path)
	} else if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}

	return tok, path, nil
}

// readFiles reads every named file concurrently and returns their contents
// in argument order. "-" reads standard input.
func readFiles(cmd *cobra.Command, names []string) ([][]byte, error) {
	contents := make([][]byte, len(names))

	g, _ := errgroup.WithContext(cmd.Context())
	for i, name := range names {
		g.Go(func() (err error) {
			if name == "-" {
				contents[i], err = io.ReadAll(cmd.InOrStdin())
			} else {
				contents[i], err = os.ReadFile(name)
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return contents, nil
}

func formatSymbols(symbols []tokenizer.Symbol) string {
	var sb strings.Builder
	for i, s := range symbols {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatUint(uint64(s), 10))
	}
	return sb.String()
}

func parseSymbols(fields []string) ([]tokenizer.Symbol, error) {
	symbols := make([]tokenizer.Symbol, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid symbol %q", f)
		}
		symbols[i] = tokenizer.Symbol(n)
	}
	return symbols, nil
}

func TrainHandler(cmd *cobra.Command, args []string) error {
	size, err := cmd.Flags().GetInt("size")
	if err != nil {
		return err
	}

	tok, path, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	var fn tokenizer.TrainProgressFunc
	if progress.IsTerminal(os.Stderr) {
		p := progress.NewProgress(os.Stderr)
		defer p.Stop()

		spinner := progress.NewSpinner("reading corpus")
		p.Add(spinner)
		defer spinner.Stop()

		var bar *progress.Bar
		fn = func(done, total int) {
			if bar == nil {
				spinner.Stop()
				bar = progress.NewBar("merging", int64(total))
				p.Add(bar)
			}
			bar.Set(int64(done))
		}
	}

	contents, err := readFiles(cmd, args)
	if err != nil {
		return err
	}

	corpus := slices.Concat(contents...)
	before := tok.Size()

	pieces, err := tok.TrainFunc(corpus, size, fn)
	if err != nil {
		return err
	}

	if err := tok.SaveFile(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "learned %s merges from %s, vocabulary size %s, %s bytes per symbol\n",
		format.HumanNumber(uint64(tok.Size()-before)),
		format.HumanBytes(int64(len(corpus))),
		format.HumanNumber(uint64(tok.Size())),
		format.Ratio(len(corpus), len(pieces)))
	return nil
}

func EncodeHandler(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"-"}
	}

	contents, err := readFiles(cmd, args)
	if err != nil {
		return err
	}

	raw, err := cmd.Flags().GetBool("raw")
	if err != nil {
		return err
	}

	results := make([][]tokenizer.Symbol, len(contents))

	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		for i, b := range contents {
			g.Go(func() (err error) {
				results[i], err = client.Encode(ctx, &api.EncodeRequest{Text: string(b), Raw: raw})
				return err
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		tok, _, err := loadTokenizer(cmd)
		if err != nil {
			return err
		}

		var wg sync.WaitGroup
		for i, b := range contents {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if raw {
					results[i] = tok.EncodeBytes(b)
				} else {
					results[i] = tok.Encode(string(b))
				}
			}()
		}
		wg.Wait()
	}

	for _, symbols := range results {
		fmt.Fprintln(cmd.OutOrStdout(), formatSymbols(symbols))
	}

	return nil
}

func DecodeHandler(cmd *cobra.Command, args []string) error {
	fields := args
	if len(fields) == 0 {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Split(bufio.ScanWords)
		for scanner.Scan() {
			fields = append(fields, scanner.Text())
		}

		if err := scanner.Err(); err != nil {
			return err
		}
	}

	symbols, err := parseSymbols(fields)
	if err != nil {
		return err
	}

	var text string
	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return err
		}

		text, err = client.Decode(cmd.Context(), &api.DecodeRequest{Symbols: symbols})
		if err != nil {
			return err
		}
	} else {
		tok, _, err := loadTokenizer(cmd)
		if err != nil {
			return err
		}

		text, err = tok.Decode(symbols)
		if err != nil {
			return err
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func SpecialHandler(cmd *cobra.Command, args []string) error {
	tok, path, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	before := tok.Size()
	for _, literal := range args {
		symbol, ok := tok.AddSpecial(literal)
		if !ok {
			return fmt.Errorf("special token %q is empty after normalization", literal)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", literal, symbol)
	}

	if tok.Size() == before {
		return nil
	}

	return tok.SaveFile(path)
}

func RunServer(cmd *cobra.Command, _ []string) error {
	tok, path, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	return server.Serve(ln, tok, path)
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bytepair",
		Short:   "Byte pair encoding tokenizer",
		Version: version.Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
	}

	rootCmd.PersistentFlags().String("vocab", envconfig.Vocabulary(), "Vocabulary file")
	rootCmd.PersistentFlags().Int("chunk-size", int(envconfig.ChunkSize()), "Bytes merged together per encode step")
	rootCmd.PersistentFlags().String("normalizer", envconfig.Normalizer(), "Normalizers applied before encoding, joined with +")

	cobra.EnableCommandSorting = false

	trainCmd := &cobra.Command{
		Use:   "train CORPUS...",
		Short: "Learn merges from corpus files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  TrainHandler,
	}

	trainCmd.Flags().Int("size", 0, "Target vocabulary size, including the 256 byte symbols")
	trainCmd.MarkFlagRequired("size")

	encodeCmd := &cobra.Command{
		Use:   "encode [FILE...]",
		Short: "Encode files or standard input",
		RunE:  EncodeHandler,
	}

	encodeCmd.Flags().Bool("raw", false, "Skip normalization")
	encodeCmd.Flags().Bool("remote", false, "Encode with the server at BYTEPAIR_HOST")

	decodeCmd := &cobra.Command{
		Use:   "decode [SYMBOL...]",
		Short: "Decode symbols from arguments or standard input",
		RunE:  DecodeHandler,
	}

	decodeCmd.Flags().Bool("remote", false, "Decode with the server at BYTEPAIR_HOST")

	specialCmd := &cobra.Command{
		Use:   "special LITERAL...",
		Short: "Give each literal its own symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE:  SpecialHandler,
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show vocabulary and configuration details",
		Args:  cobra.NoArgs,
		RunE:  InfoHandler,
	}

	infoCmd.Flags().Bool("entries", false, "List every merge")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the tokenizer server",
		Args:    cobra.NoArgs,
		RunE:    RunServer,
	}

	serveCmd.SetUsageTemplate(serveCmd.UsageTemplate() + `
Environment Variables:
      BYTEPAIR_HOST         IP Address for the bytepair server (default 127.0.0.1:11535)
      BYTEPAIR_ORIGINS      A comma separated list of allowed origins
      BYTEPAIR_VOCAB        The path to the vocabulary file
      BYTEPAIR_DEBUG        Set to 1 to enable additional debug logging
`)

	rootCmd.AddCommand(
		trainCmd,
		encodeCmd,
		decodeCmd,
		specialCmd,
		infoCmd,
		serveCmd,
	)

	return rootCmd
}
