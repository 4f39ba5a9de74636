package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ollama/bytepair/envconfig"
	"github.com/ollama/bytepair/format"
	"github.com/ollama/bytepair/tokenizer"
	"github.com/ollama/bytepair/version"
)

func InfoHandler(cmd *cobra.Command, args []string) error {
	tok, path, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	normalizer, err := cmd.Flags().GetString("normalizer")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	fileSize := "-"
	if fi, err := os.Stat(path); err == nil {
		fileSize = format.HumanBytes(fi.Size())
	}

	fmt.Fprint(out, "Vocabulary:\n")
	prettyPrint(out, [][]string{
		{"", "Path:", path},
		{"", "File size:", fileSize},
		{"", "Size:", format.HumanNumber(uint64(tok.Size()))},
		{"", "Merges:", strconv.Itoa(tok.Vocabulary().Len())},
		{"", "Chunk size:", strconv.Itoa(tok.ChunkSize())},
		{"", "Normalizer:", normalizer},
		{"", "Version:", version.Version},
	})

	if entries, _ := cmd.Flags().GetBool("entries"); entries {
		fmt.Fprint(out, "\nMerges:\n")
		prettyPrintEntries(out, tok)
	}

	env := envconfig.AsMap()
	data := make([][]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		data = append(data, []string{"", k, fmt.Sprintf("%v", env[k].Value)})
	}

	fmt.Fprint(out, "\nEnvironment:\n")
	prettyPrint(out, data)
	return nil
}

func prettyPrint(out io.Writer, data [][]string) {
	table := tablewriter.NewWriter(out)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding(" ")
	table.AppendBulk(data)
	table.Render()
}

func prettyPrintEntries(out io.Writer, tok *tokenizer.Tokenizer) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"SYMBOL", "LEFT", "RIGHT", "TEXT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("\t")

	for _, e := range tok.Vocabulary().Entries() {
		text := "-"
		if b, err := tok.DecodeBytes([]tokenizer.Symbol{e.Merged}); err == nil {
			text = strconv.Quote(string(b))
		}

		table.Append([]string{
			strconv.Itoa(int(e.Merged)),
			strconv.Itoa(int(e.Pair.Left)),
			strconv.Itoa(int(e.Pair.Right)),
			text,
		})
	}

	table.Render()
}
