package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/restmock/pkg/config"
	"github.com/getmockd/restmock/pkg/engine"
	"github.com/getmockd/restmock/pkg/logging"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

type serveFlags struct {
	definitions []string
	port        int
	host        string
	delayMs     int
	passThrough bool
	storageDir  string
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock server (foreground)",
	Long: `Start the mock REST server from one or more definition files.

Each --definitions value may be a file, a directory (scanned recursively for
.json/.yaml/.yml files), or a glob pattern with ** support. Routes from all
sources merge into one tree; server and engine settings come from the first
file declaring them. Flags override file settings.`,
	Example: `  # Serve a single definition file
  restmock serve -f mocks.yaml

  # Serve every definition under ./mocks on port 3000
  restmock serve -f ./mocks --port 3000

  # Persist collections across restarts
  restmock serve -f mocks.yaml --storage-dir ./state

  # Disable the simulated latency
  restmock serve -f mocks.yaml --delay-ms 0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(&serveFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringSliceVarP(&f.definitions, "definitions", "f", nil, "Definition file, directory, or glob (repeatable)")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", 0, "HTTP server port (overrides file setting)")
	serveCmd.Flags().StringVar(&f.host, "host", "", "Listen address (overrides file setting)")
	serveCmd.Flags().IntVar(&f.delayMs, "delay-ms", -1, "Simulated response latency in milliseconds (overrides file setting)")
	serveCmd.Flags().BoolVar(&f.passThrough, "pass-through", false, "Mark unmatched requests for pass-through instead of answering 404")
	serveCmd.Flags().StringVar(&f.storageDir, "storage-dir", "", "Persist collections as files under this directory")

	_ = serveCmd.MarkFlagRequired("definitions")
}

func runServe(f *serveFlags) error {
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(logLevel),
		Format: logging.ParseFormat(logFormat),
	})

	doc, err := loadDefinitions(f.definitions)
	if err != nil {
		return err
	}
	if len(doc.Routes) == 0 {
		return errors.New("no routes declared in the loaded definitions")
	}

	if f.delayMs >= 0 {
		doc.Engine.ResponseDelayMs = &f.delayMs
	}
	if f.passThrough {
		doc.Engine.PassThroughUnknownURL = true
	}
	if f.storageDir != "" {
		doc.Engine.StorageDir = f.storageDir
	}
	if f.port > 0 {
		doc.Server.Port = f.port
	}
	if f.host != "" {
		doc.Server.Host = f.host
	}

	routes, err := doc.BuildRoutes()
	if err != nil {
		return fmt.Errorf("building routes: %w", err)
	}
	cfg, err := doc.Engine.ToEngineConfig()
	if err != nil {
		return fmt.Errorf("configuring engine: %w", err)
	}

	eng, err := engine.New(routes, cfg, log)
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	server := &http.Server{
		Addr:    doc.Server.Addr(),
		Handler: engine.NewHandler(eng),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("mock server listening", "addr", server.Addr, "routes", len(doc.Routes))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// loadDefinitions merges every definition source into one document. A source
// may be a file, a directory, or a glob pattern.
func loadDefinitions(sources []string) (*config.Document, error) {
	merged := &config.Document{}
	haveServer, haveEngine := false, false

	for _, source := range sources {
		doc, err := loadOne(source)
		if err != nil {
			return nil, err
		}
		merged.Routes = append(merged.Routes, doc.Routes...)
		if !haveServer && doc.Server != (config.ServerConfig{}) {
			merged.Server = doc.Server
			haveServer = true
		}
		if !haveEngine && doc.Engine != (config.EngineSettings{}) {
			merged.Engine = doc.Engine
			haveEngine = true
		}
	}
	return merged, nil
}

func loadOne(source string) (*config.Document, error) {
	if info, err := os.Stat(source); err == nil {
		if info.IsDir() {
			return config.LoadDir(source)
		}
		return config.Load(source)
	}
	return config.LoadGlob(source)
}
