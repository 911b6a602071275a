package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/codechunk/internal/pipeline"
	"github.com/spf13/cobra"
)

func (a *app) extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract chunks from a municipal code HTML export",
		Long: `Parse the HTML export in one pass and write the chunk list as JSON.

Example:
  codechunk extract -i rawcodes/san_francisco-ca-complete.html -o sf_code_chunks.json
  codechunk extract -s 1500 --audit audit.md --text-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")
			size, _ := cmd.Flags().GetInt("chunk-size")
			rules, _ := cmd.Flags().GetString("rules")
			auditPath, _ := cmd.Flags().GetString("audit")
			textOnly, _ := cmd.Flags().GetBool("text-only")

			cfg := a.cfg
			cfg.InputPath, cfg.OutputPath, cfg.MaxChunkSize = input, output, size
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Parsing %s...\n", input)
			res, err := pipeline.Run(ctx, pipeline.Options{
				InputPath:  input,
				OutputPath: output,
				AuditPath:  auditPath,
				RulesPath:  rules,
				TextOnly:   textOnly,
				Chunker:    a.chunkerConfig(size),
			}, a.logger())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved %d chunks to %s\n", len(res.Chunks), output)
			if !res.Audit.Clean() {
				fmt.Fprintf(out, "Audit: %d fallback blocks, %d unresolved links\n",
					res.Audit.FallbackBlocks, res.Audit.UnresolvedLinks)
			}
			return nil
		},
	}
	cmd.Flags().StringP("input", "i", a.cfg.InputPath, "Input HTML file")
	cmd.Flags().StringP("output", "o", a.cfg.OutputPath, "Output JSON file")
	cmd.Flags().IntP("chunk-size", "s", a.cfg.MaxChunkSize, "Maximum chunk size in characters")
	cmd.Flags().String("rules", a.cfg.RulesPath, "YAML hierarchy rules (default: built-in table)")
	cmd.Flags().String("audit", a.cfg.AuditPath, "Write the audit report here (.json, .md or .html)")
	cmd.Flags().Bool("text-only", a.cfg.TextOnly, "Skip link, reference and history extraction")
	return cmd
}

// commandContext falls back to Background for commands executed without
// ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
