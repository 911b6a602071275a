package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/codechunk/internal/api"
	"github.com/dgallion1/codechunk/internal/audit"
	"github.com/dgallion1/codechunk/internal/pipeline"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a chunk file over a read-only HTTP API",
		Long: `Load a chunk file and serve it over HTTP. POST /api/extract re-runs the
extraction of the configured input in the background and swaps the served
chunks when it completes.

Example:
  codechunk serve -f sf_code_chunks.json --addr :8090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			addr, _ := cmd.Flags().GetString("addr")
			auditPath, _ := cmd.Flags().GetString("audit")
			log := a.logger()

			ctx, cancel := context.WithCancel(commandContext(cmd))
			defer cancel()

			// Initialize pipeline.
			var srv *api.Server
			orch := pipeline.NewOrchestrator(a.cfg.JobQueueSize, a.cfg.JobTTL, log, func(r *pipeline.Result) {
				srv.OnResult(r)
			})
			srv = api.NewServer(orch, pipeline.Options{
				InputPath:  a.cfg.InputPath,
				OutputPath: file,
				AuditPath:  a.cfg.AuditPath,
				RulesPath:  a.cfg.RulesPath,
				TextOnly:   a.cfg.TextOnly,
				Chunker:    a.chunkerConfig(a.cfg.MaxChunkSize),
			}, log, a.cfg)

			chunks, err := pipeline.LoadChunks(file)
			switch {
			case errors.Is(err, pipeline.ErrInputNotFound):
				log.Warn("chunk file missing, serving empty list until an extraction completes", "file", file)
			case err != nil:
				return err
			default:
				var report *audit.Report
				if auditPath != "" {
					if report, err = audit.Load(auditPath); err != nil {
						return err
					}
				}
				srv.Replace(chunks, report)
			}

			orch.Start(ctx)

			httpServer := &http.Server{
				Addr:         addr,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Graceful shutdown.
			errCh := make(chan error, 1)
			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				defer signal.Stop(sigCh)
				select {
				case <-sigCh:
				case <-ctx.Done():
				}
				log.Info("shutting down...")

				orch.Stop()

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
				defer shutdownCancel()
				errCh <- httpServer.Shutdown(shutdownCtx)
			}()

			log.Info("starting codechunk", "addr", addr, "chunks", len(chunks), "auth", a.cfg.APIKey != "")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringP("file", "f", a.cfg.OutputPath, "Chunk JSON file")
	cmd.Flags().String("addr", a.cfg.Addr, "Listen address")
	cmd.Flags().String("audit", "", "Audit report JSON to serve at /report")
	return cmd
}
