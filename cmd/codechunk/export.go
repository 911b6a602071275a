package main

import (
	"fmt"

	"github.com/dgallion1/codechunk/internal/audit"
	"github.com/dgallion1/codechunk/internal/export"
	"github.com/dgallion1/codechunk/internal/pipeline"
	"github.com/spf13/cobra"
)

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a chunk file as an xlsx workbook",
		Long: `Write the chunk list to a Chunks sheet and, when an audit JSON file is
given, the audit summary to an Audit sheet.

Example:
  codechunk export -f sf_code_chunks.json -o sf_code_chunks.xlsx --audit audit.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			output, _ := cmd.Flags().GetString("output")
			auditPath, _ := cmd.Flags().GetString("audit")

			chunks, err := pipeline.LoadChunks(file)
			if err != nil {
				return err
			}
			var report *audit.Report
			if auditPath != "" {
				if report, err = audit.Load(auditPath); err != nil {
					return err
				}
			}
			if err := export.WriteXLSX(output, chunks, report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d chunks to %s\n", len(chunks), output)
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", a.cfg.OutputPath, "Chunk JSON file")
	cmd.Flags().StringP("output", "o", "sf_code_chunks.xlsx", "Output xlsx file")
	cmd.Flags().String("audit", "", "Audit report JSON to include")
	return cmd
}
