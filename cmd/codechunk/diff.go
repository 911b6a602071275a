package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/codechunk/internal/diff"
	"github.com/dgallion1/codechunk/internal/pipeline"
	"github.com/dgallion1/codechunk/internal/rawtext"
	"github.com/spf13/cobra"
)

func (a *app) diffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare text reconstructed from chunks against the raw source",
		Long: `Reconstruct the document text from a chunk file and compare it with the
raw source, article by article, then by image URLs and whole normalized text.

The raw source may be .txt, .md, .html, .pdf or .docx.

Example:
  codechunk diff -f sf_code_chunks.json --raw rawcodes/san_francisco-ca-unstructuredtext.txt
  codechunk diff --min-diff 50 --patch recon.patch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			rawPath, _ := cmd.Flags().GetString("raw")
			minDiff, _ := cmd.Flags().GetInt("min-diff")
			maxCompare, _ := cmd.Flags().GetInt("max-compare")
			reconOut, _ := cmd.Flags().GetString("reconstructed-out")
			patchPath, _ := cmd.Flags().GetString("patch")
			limit, _ := cmd.Flags().GetInt("limit")
			log := a.logger()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Loading JSON from: %s\n", file)
			chunks, err := pipeline.LoadChunks(file)
			if err != nil {
				return err
			}
			recon := diff.Reconstruct(chunks)
			if reconOut != "" {
				if err := os.WriteFile(reconOut, []byte(recon), 0o644); err != nil {
					return fmt.Errorf("write reconstructed text: %w", err)
				}
				fmt.Fprintf(out, "Saved reconstructed text to: %s\n", reconOut)
			}

			raw, err := rawtext.LoadFileWith(rawPath, a.cfg.PDFFallbackPdftotext)
			if err != nil {
				return err
			}
			log.Info("loaded raw source", "path", rawPath, "chars", len(raw))

			report := diff.CompareArticles(raw, recon, diff.Options{MinDiffSize: minDiff, MaxCompare: maxCompare})
			report.Fprint(out)
			diff.CompareImageURLs(raw, chunks).Fprint(out)
			diff.CompareText(raw, chunks, limit).Fprint(out)

			if patchPath != "" {
				body, oversize := diff.Unified(rawPath, "reconstructed", raw, recon, diff.PatchOptions{MaxBytes: 64 << 20})
				if oversize {
					log.Warn("patch inputs too large, wrote placeholder", "path", patchPath)
				}
				if err := os.WriteFile(patchPath, []byte(body), 0o644); err != nil {
					return fmt.Errorf("write patch: %w", err)
				}
				fmt.Fprintf(out, "Saved unified patch to: %s\n", patchPath)
			}
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", a.cfg.OutputPath, "Chunk JSON file")
	cmd.Flags().String("raw", "rawcodes/san_francisco-ca-unstructuredtext.txt", "Raw source document")
	cmd.Flags().Int("min-diff", 200, "Minimum difference size to report")
	cmd.Flags().Int("max-compare", 1_000_000, "Articles larger than this are only checked for equality")
	cmd.Flags().String("reconstructed-out", "reconstructed_raw.txt", "Write the reconstructed text here (empty to skip)")
	cmd.Flags().String("patch", "", "Also write a unified patch from raw to reconstructed text")
	cmd.Flags().Int("limit", 0, "Maximum detailed text mismatches to print (0 for all)")
	return cmd
}
