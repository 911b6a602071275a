package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgallion1/codechunk/internal/doctree"
	"github.com/dgallion1/codechunk/internal/inspect"
	"github.com/dgallion1/codechunk/internal/pipeline"
	"github.com/spf13/cobra"
)

func (a *app) loadIndex(cmd *cobra.Command) (*inspect.Index, error) {
	file, _ := cmd.Flags().GetString("file")
	chunks, err := pipeline.LoadChunks(file)
	if err != nil {
		return nil, err
	}
	return inspect.NewIndex(chunks), nil
}

func (a *app) inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect an emitted chunk file",
		Long: `Count, look up and summarize chunks.

With no selection flags the first --summary chunks are printed.

Example:
  codechunk inspect --count --chapters
  codechunk inspect --doc-id sf_municipal_code_charter_article_i --refs
  codechunk inspect --sizes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetBool("count")
			chapters, _ := cmd.Flags().GetBool("chapters")
			sizes, _ := cmd.Flags().GetBool("sizes")
			refs, _ := cmd.Flags().GetBool("refs")
			asJSON, _ := cmd.Flags().GetBool("json")
			verbose, _ := cmd.Flags().GetBool("verbose")
			summary, _ := cmd.Flags().GetInt("summary")
			var q inspect.Query
			q.DocID, _ = cmd.Flags().GetString("doc-id")
			q.SectionID, _ = cmd.Flags().GetString("section-id")
			q.UUID, _ = cmd.Flags().GetString("uuid")

			ix, err := a.loadIndex(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			selected := false

			if count {
				selected = true
				fmt.Fprintf(out, "Total chunks: %d\n", ix.Len())
			}
			if !q.Empty() {
				selected = true
				if err := printLookup(out, ix, q, refs, asJSON, verbose); err != nil {
					return err
				}
			}
			if chapters {
				selected = true
				inspect.FprintChapterStats(out, ix.ChapterStats())
			}
			if sizes {
				selected = true
				ix.SizeStats(a.cfg.MaxChunkSize).Fprint(out)
			}
			if !selected {
				n := min(summary, ix.Len())
				fmt.Fprintf(out, "Total chunks: %d\n\nInspecting first %d chunks:\n\n", ix.Len(), n)
				for i := 0; i < n; i++ {
					c, _ := ix.At(i)
					inspect.FprintDetail(out, i+1, c, verbose)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", a.cfg.OutputPath, "Chunk JSON file")
	cmd.Flags().Bool("count", false, "Print the number of chunks")
	cmd.Flags().String("doc-id", "", "Find the first chunk with this doc_id")
	cmd.Flags().String("section-id", "", "Find the first chunk with this section_id")
	cmd.Flags().String("uuid", "", "Find the chunk with this uuid")
	cmd.Flags().Bool("refs", false, "With a lookup, also print the chunks it references")
	cmd.Flags().Bool("json", false, "Print looked-up chunks as JSON")
	cmd.Flags().Bool("chapters", false, "Count sections, articles and divisions per chapter")
	cmd.Flags().Bool("sizes", false, "Print chunk size and token statistics")
	cmd.Flags().Int("summary", 5, "Number of chunks to summarize when nothing else is selected")
	cmd.Flags().BoolP("verbose", "v", false, "Print full content")
	return cmd
}

func printLookup(out io.Writer, ix *inspect.Index, q inspect.Query, refs, asJSON, verbose bool) error {
	i, ok := ix.Find(q)
	if !ok {
		return fmt.Errorf("no chunk matches %+v", q)
	}
	c, _ := ix.At(i)
	emit := func(n int, c doctree.Chunk) error {
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		}
		inspect.FprintDetail(out, n, c, verbose)
		return nil
	}
	if err := emit(i+1, c); err != nil {
		return err
	}
	if !refs {
		return nil
	}
	found, missing := ix.Referenced(c)
	if len(c.References) == 0 {
		fmt.Fprintf(out, "No references found in chunk: %s\n", c.DocID)
	}
	for _, h := range missing {
		fmt.Fprintf(out, "Warning: referenced chunk not found for hash: %s\n", h)
	}
	for _, rc := range found {
		if err := emit(rc.ChunkNumber, rc); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze chunk sizes, neighbors and duplicated text",
		Long: `Analyze an emitted chunk file.

Example:
  codechunk analyze -s 10
  codechunk analyze -n 1234
  codechunk analyze --neighbors 1234 --radius 2
  codechunk analyze --chunks 25657,25658
  codechunk analyze --duplicates`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			short, _ := cmd.Flags().GetInt("short")
			number, _ := cmd.Flags().GetInt("number")
			around, _ := cmd.Flags().GetInt("neighbors")
			radius, _ := cmd.Flags().GetInt("radius")
			details, _ := cmd.Flags().GetIntSlice("chunks")
			dups, _ := cmd.Flags().GetBool("duplicates")

			ix, err := a.loadIndex(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case cmd.Flags().Changed("short"):
				printShort(out, ix.Short(short), short)
			case cmd.Flags().Changed("number"):
				return printWithNeighbors(out, ix, number)
			case cmd.Flags().Changed("neighbors"):
				nbs, err := ix.Neighbors(around, radius)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "=== %d-CHUNK ANALYSIS AROUND #%d (radius=%d) ===\n", len(nbs), around, radius)
				inspect.FprintHeader(out)
				for _, nb := range nbs {
					inspect.FprintRow(out, nb.Chunk, nb.Offset == 0)
				}
			case len(details) > 0:
				want := make(map[int]bool, len(details))
				for _, n := range details {
					want[n] = true
				}
				for _, c := range ix.Chunks() {
					if want[c.ChunkNumber] {
						fmt.Fprintf(out, "=== Chunk %d ===\nChapter: %s\nContent: %s\nLength: %d\n\n",
							c.ChunkNumber, doctree.Str(c.Chapter), c.Content, len([]rune(c.Content)))
					}
				}
			case dups:
				fmt.Fprintf(out, "Total chunks: %d\n\n", ix.Len())
				ix.Duplicates().Fprint(out)
			default:
				return cmd.Help()
			}
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", a.cfg.OutputPath, "Chunk JSON file")
	cmd.Flags().IntP("short", "s", 0, "List chunks with at most N characters")
	cmd.Flags().IntP("number", "n", 0, "Show a chunk with its predecessor and successor")
	cmd.Flags().Int("neighbors", 0, "Show a table of chunks around this chunk number")
	cmd.Flags().Int("radius", 2, "Neighbor radius for --neighbors")
	cmd.Flags().IntSlice("chunks", nil, "Print full details for these chunk numbers")
	cmd.Flags().Bool("duplicates", false, "Report duplicated and overlapping text")
	return cmd
}

func printShort(out io.Writer, short []inspect.ShortChunk, limit int) {
	fmt.Fprintf(out, "Found %d chunks with <= %d characters:\n", len(short), limit)
	fmt.Fprintln(out, "--------------------------------------------------------------------------------")
	for _, s := range short {
		pred := "N/A"
		if s.PredecessorLength != nil {
			pred = fmt.Sprint(*s.PredecessorLength)
		}
		fmt.Fprintf(out, "Chunk #%d (array index %d)\n", s.ChunkNumber, s.Index)
		fmt.Fprintf(out, "Length: %d | Predecessor length: %s\n", s.CharacterCount, pred)
		fmt.Fprintf(out, "Content: '%s'\n", s.Content)
		fmt.Fprintf(out, "Title: %s\n", s.Title)
		fmt.Fprintln(out, "----------------------------------------")
	}
}

func printWithNeighbors(out io.Writer, ix *inspect.Index, n int) error {
	i, ok := ix.ByNumber(n)
	if !ok {
		return fmt.Errorf("chunk #%d not found", n)
	}
	fmt.Fprintf(out, "=== CHUNK #%d ANALYSIS ===\nArray index: %d\n\n", n, i)
	if c, ok := ix.At(i - 1); ok {
		inspect.FprintSummary(out, "PREDECESSOR", inspect.Summarize(c))
	}
	c, _ := ix.At(i)
	inspect.FprintSummary(out, "TARGET CHUNK", inspect.Summarize(c))
	if c, ok := ix.At(i + 1); ok {
		inspect.FprintSummary(out, "SUCCESSOR", inspect.Summarize(c))
	}
	return nil
}
