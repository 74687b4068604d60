package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/realmforge/internal/infrastructure/config"
	"github.com/ersonp/realmforge/internal/infrastructure/logging"
	"github.com/ersonp/realmforge/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/realmforge/internal/infrastructure/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the content service",
		Long: "Serves the REST content API under /api and the change stream at /api/events, " +
			"backed by a SQLite database.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath != "" {
				cfg.Server.DBPath = dbPath
			}
			logger := logging.New(cfg.Log)

			path := config.ResolvePath(cwd, cfg.Server.DBPath)
			repo, err := sqlite.Open(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("opening database %s: %w", path, err)
			}
			defer repo.Close()

			srv, err := server.NewHTTPServer(sqlite.NewContentStore(repo), server.NewHub(logger), logger)
			if err != nil {
				return err
			}

			logger.WithField("db", path).Info("content store ready")
			fmt.Printf("Serving on %s (Ctrl+C to stop)\n", cfg.Server.Addr)
			return srv.Run(cmd.Context(), cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path (default from config)")

	return cmd
}
