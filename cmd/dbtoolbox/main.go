package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/config"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/registry"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/logger"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/mcpserver"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/router"

	// Import all available connectors to register their capabilities
	_ "github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/mongodb"
	_ "github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/postgres"
	_ "github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/redis"
)

var version = "0.1.0"

func main() {
	// Load .env if present; credentials may also come from the real environment
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DBTOOLBOX")
	v.AutomaticEnv()
	v.SetDefault("config", "config.yaml")
	v.SetDefault("log_level", "info")
	v.SetDefault("pool_size", 10)
	v.SetDefault("acquire_timeout", 5*time.Second)
	v.SetDefault("call_timeout", 30*time.Second)

	root := &cobra.Command{
		Use:   "dbtoolbox",
		Short: "Multi-database MCP toolbox",
		Long: `dbtoolbox is an MCP server that exposes query tools for the PostgreSQL,
MongoDB, and Redis instances declared in its YAML configuration.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", v.GetString("config"), "Path to the database configuration file")
	root.PersistentFlags().String("log-level", v.GetString("log_level"), "Log level (debug, info, warn, error)")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dbtoolbox v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List supported backend types and their operations",
		Run: func(cmd *cobra.Command, args []string) {
			for _, cap := range registry.List() {
				fmt.Printf("%s — %s\n", cap.Type, cap.Description)
				for _, op := range cap.Operations {
					fmt.Printf("  %s_%s", cap.Type, op.Name)
					for _, arg := range op.Args {
						if arg.Required {
							fmt.Printf(" <%s>", arg.Name)
						} else {
							fmt.Printf(" [%s]", arg.Name)
						}
					}
					fmt.Println()
				}
			}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file without connecting",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbs, err := config.Load(v.GetString("config"), config.EnvMap(), registry.GetRegistry())
			if err != nil {
				return err
			}
			fmt.Printf("configuration OK: %d database(s) declared\n", len(dbs))
			for _, db := range dbs {
				fmt.Printf("  %s (%s)\n", db.ID, db.Type)
			}
			return nil
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP toolbox over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(v)
		},
	}
	serveCmd.Flags().Int("pool-size", v.GetInt("pool_size"), "Max concurrent connections per database")
	serveCmd.Flags().Duration("acquire-timeout", v.GetDuration("acquire_timeout"), "Max wait for a free connection")
	serveCmd.Flags().Duration("call-timeout", v.GetDuration("call_timeout"), "Max backend execution time per call")
	_ = v.BindPFlag("pool_size", serveCmd.Flags().Lookup("pool-size"))
	_ = v.BindPFlag("acquire_timeout", serveCmd.Flags().Lookup("acquire-timeout"))
	_ = v.BindPFlag("call_timeout", serveCmd.Flags().Lookup("call-timeout"))
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(v *viper.Viper) error {
	if err := logger.Init(logger.Config{
		Level:    v.GetString("log_level"),
		Encoding: "json",
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	dbs, err := config.Load(v.GetString("config"), config.EnvMap(), registry.GetRegistry())
	if err != nil {
		// The one fatal condition: refuse to start on a bad configuration
		log.Error("configuration load failed", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := router.Build(ctx, dbs, registry.GetRegistry(), router.Options{
		PoolSize:       v.GetInt("pool_size"),
		AcquireTimeout: v.GetDuration("acquire_timeout"),
		CallTimeout:    v.GetDuration("call_timeout"),
	})
	if err != nil {
		return err
	}

	log.Info("starting MCP server",
		zap.Int("databases", len(dbs)),
		zap.Strings("backend_types", registry.Types()),
		zap.String("version", version))

	srv := mcpserver.NewServer(rt, registry.GetRegistry())
	serveErr := srv.ServeStdio(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Close(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	log.Info("server stopped")
	return nil
}
