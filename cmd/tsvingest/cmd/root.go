package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tsvingest/internal/config"
	"github.com/JonMunkholm/tsvingest/internal/core"
	"github.com/JonMunkholm/tsvingest/internal/logging"
	"github.com/JonMunkholm/tsvingest/internal/store"
)

// App carries what the subcommands share. It is filled in by the root command's
// PersistentPreRunE; the store and mapping are opened only by commands that need them.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	envFiles    []string
	mappingFile string
	backend     string

	store    store.Backend
	ingestor *core.Ingestor
}

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands are registered here.
func RootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:   "tsvingest",
		Short: "tsvingest loads the TSV output of forensic extraction tools into an artifact store.",
		Long: `tsvingest loads the TSV output of forensic extraction tools into an artifact store.

A mapping document binds each known output file to a record type and each column
to an attribute type. Configuration comes from the environment; a .env file in the
working directory is loaded first.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	cmd.PersistentFlags().StringSliceVar(&app.envFiles, "env-file", nil, "env files to load (default .env)")
	cmd.PersistentFlags().StringVar(&app.mappingFile, "mapping", "", "mapping document, overrides INGEST_MAPPING_FILE")
	cmd.PersistentFlags().StringVar(&app.backend, "store", "", "store backend, overrides STORE_BACKEND")

	cmd.AddCommand(
		serveCmd(app),
		ingestCmd(app),
		mappingsCmd(app),
		extractMappingCmd(app),
	)

	return cmd
}

// setup loads env files and configuration and sets up logging.
func (a *App) setup() error {
	if err := godotenv.Overload(a.envFiles...); err != nil {
		if len(a.envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if a.mappingFile != "" {
		os.Setenv("INGEST_MAPPING_FILE", a.mappingFile)
	}
	if a.backend != "" {
		os.Setenv("STORE_BACKEND", a.backend)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.Config = cfg
	a.Logger = logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	a.Logger.Debug("configuration loaded", "config", cfg.String())
	return nil
}

// Ingestor opens the store and loads the mapping on first use.
func (a *App) Ingestor(ctx context.Context) (*core.Ingestor, error) {
	if a.ingestor != nil {
		return a.ingestor, nil
	}

	st := a.Config.Store
	backend, err := store.Open(ctx, store.Config{
		Backend:         st.Backend,
		DatabaseURL:     st.DatabaseURL,
		MaxConns:        st.MaxConns,
		MinConns:        st.MinConns,
		MaxConnLifetime: st.MaxConnLifetime,
		MaxConnIdleTime: st.MaxConnIdleTime,
		BadgerDir:       st.BadgerDir,
		TypeCacheSize:   st.TypeCacheSize,
	}, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", st.Backend, err)
	}
	a.store = backend

	opts := core.LoadOptions{Logger: a.Logger}
	var mapping *core.Mapping
	if path := a.Config.Ingest.MappingFile; path != "" {
		mapping, err = core.LoadMappingFile(ctx, path, backend, opts)
	} else {
		mapping, err = core.LoadDefaultMapping(ctx, backend, opts)
	}
	if err != nil {
		return nil, err
	}

	ic := a.Config.Ingest
	a.ingestor = core.NewIngestor(mapping, backend, core.IngestOptions{
		ModuleName:           ic.ModuleName,
		FileExtension:        ic.FileExtension,
		MaxBatchRecords:      ic.MaxBatchRecords,
		EnforceRequired:      ic.EnforceRequired,
		ContextCheckInterval: ic.ContextCheckInterval,
		Logger:               a.Logger,
	})
	return a.ingestor, nil
}

// Close releases the store if one was opened.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
