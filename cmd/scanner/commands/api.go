package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Honey-Rajput/Stocks/internal/api"
	"github.com/Honey-Rajput/Stocks/internal/api/handlers"
)

var apiPort string

// apiCmd starts the read-only HTTP API.
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the read-only HTTP API over scan results.

Endpoints:
  GET /health                  - Health check
  GET /api/results/{scanner}   - Latest ranked result set
  GET /api/history/{scanner}   - Archived outcomes
  GET /api/stats/{scanner}     - Aggregate statistics and change report
  GET /api/jobs                - Scheduler job statistics

Example:
  go run ./cmd/scanner api
  go run ./cmd/scanner api --port 8090`,
	RunE: runAPIServer,
}

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	if apiPort != "" {
		p.cfg.Port = apiPort
	}

	// The API process has no scheduler of its own; /api/jobs reports
	// empty until the worker and API share a process.
	scannerHandler := handlers.NewScannerHandler(p.sink, p.history, nil, p.log)
	router := api.NewRouter(scannerHandler, p.log)
	server := api.New(p.cfg, p.log, router)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		p.log.Info("Shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
