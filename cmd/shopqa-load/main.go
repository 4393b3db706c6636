package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/shopqa/shopqa/internal/config"
	"github.com/shopqa/shopqa/internal/demo"
	"github.com/shopqa/shopqa/internal/loader"
	"github.com/shopqa/shopqa/internal/observability"
	"github.com/shopqa/shopqa/internal/query/sqldb"
	s3store "github.com/shopqa/shopqa/internal/storage/s3"
)

type loadFlags struct {
	driver        string
	dsn           string
	exportParquet bool
	parquetOnly   bool
	snapshot      string
}

func main() {
	cfg, err := config.LoadFromEnv("shopqa-load")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(cfg, logger).ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	flags := loadFlags{
		driver:   cfg.Store.Driver,
		dsn:      cfg.Store.DSN,
		snapshot: cfg.Store.Snapshot,
	}

	root := &cobra.Command{
		Use:           "shopqa-load",
		Short:         "Create the shop tables and fill them from CSV files or generated data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.driver, "driver", flags.driver, "store driver: sqlite, pgx or mysql")
	root.PersistentFlags().StringVar(&flags.dsn, "dsn", flags.dsn, "store DSN (a file path for sqlite)")
	root.PersistentFlags().BoolVar(&flags.exportParquet, "export-parquet", false, "also write every table as Parquet to the object store")
	root.PersistentFlags().BoolVar(&flags.parquetOnly, "parquet-only", false, "write Parquet only and leave the SQL store untouched")
	root.PersistentFlags().StringVar(&flags.snapshot, "snapshot", flags.snapshot, "object store snapshot name for Parquet export")

	var dataDir string
	load := &cobra.Command{
		Use:   "load",
		Short: "Load <table>.csv files from a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := loader.ReadDir(dataDir)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, flags, logger, data)
		},
	}
	load.Flags().StringVar(&dataDir, "data", "data", "directory holding the CSV files")

	opts := demo.DefaultOptions()
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Load a deterministic synthetic dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			generator, err := demo.NewGenerator(opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, flags, logger, generator.Dataset())
		},
	}
	demoCmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	demoCmd.Flags().IntVar(&opts.Customers, "customers", opts.Customers, "number of customers")
	demoCmd.Flags().IntVar(&opts.Sellers, "sellers", opts.Sellers, "number of sellers")
	demoCmd.Flags().IntVar(&opts.Products, "products", opts.Products, "number of products")
	demoCmd.Flags().IntVar(&opts.Orders, "orders", opts.Orders, "number of orders")

	root.AddCommand(load, demoCmd)
	return root
}

func run(ctx context.Context, cfg config.Config, flags loadFlags, logger *slog.Logger, data loader.Dataset) error {
	if !flags.parquetOnly {
		dialect, err := sqldb.DialectFor(flags.driver)
		if err != nil {
			return err
		}
		db, err := dialect.Open(flags.dsn, cfg.Store.ConnectTimeout, false)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = db.Close() }()

		counts, err := (&loader.Loader{DB: db, Dialect: dialect, Logger: logger}).Load(ctx, data)
		if err != nil {
			return err
		}
		rows := pterm.TableData{{"table", "rows"}}
		for _, count := range counts {
			rows = append(rows, []string{count.Table, fmt.Sprint(count.Rows)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
		pterm.Success.Printfln("loaded %d tables into %s store", len(counts), dialect.Driver)
	}

	if flags.exportParquet || flags.parquetOnly {
		store, err := s3store.New(ctx, cfg.ObjectStore)
		if err != nil {
			return fmt.Errorf("initialize object store: %w", err)
		}
		exporter := &loader.ParquetExporter{Store: store, Snapshot: flags.snapshot, Logger: logger}
		written, err := exporter.Export(ctx, data)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("exported %d tables to snapshot %q", len(written), flags.snapshot)
	}
	return nil
}
