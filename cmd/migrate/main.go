package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up        apply all pending migrations
  down      roll back the latest migration
  status    list migrations and whether they are applied
  version   print the current schema version
  to        migrate up or down to -version
  create    write a new empty migration named -name into -dir
  validate  check migration filenames and goose sections
`

func main() {
	dir := flag.String("dir", "", "migrations directory on disk (default: migrations embedded in the binary)")
	name := flag.String("name", "", "migration name, for create")
	target := flag.String("version", "", "target version YYYYMMDDHHMMSS, for to")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		flag.Usage()
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	// offline commands never touch the database or config
	switch cmd {
	case "create":
		outDir := *dir
		if outDir == "" {
			outDir = migrate.SourceDir
		}
		path, err := migrate.CreateSQLMigration(outDir, *name, time.Now())
		exitOnErr(logg, "create migration", err)
		fmt.Println("created", path)
		return
	case "validate":
		exitOnErr(logg, "validate migrations", migrate.Validate(migrate.Source(*dir)))
		fmt.Println("migrations valid")
		return
	}

	cfg, err := config.Load()
	exitOnErr(logg, "load config", err)
	exitOnErr(logg, "invalid config", cfg.Validate(config.ServiceKindMigrate))
	if cfg.FeatureFlags.UseSQLite {
		exitOnErr(logg, "migrate", fmt.Errorf("sqlite databases are created from the models; unset STOREFRONT_USE_SQLITE"))
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOnErr(logg, "connect database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	exitOnErr(logg, "extract sql.DB", err)
	runner, err := migrate.NewRunner(sqlDB, migrate.Source(*dir), logg)
	exitOnErr(logg, "build migration runner", err)

	switch cmd {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "to":
		var version int64
		if version, err = migrate.ParseVersion(*target); err == nil {
			err = runner.MigrateTo(ctx, version)
		}
	case "version":
		var version int64
		if version, err = runner.Version(ctx); err == nil {
			fmt.Println(version)
		}
	case "status":
		var rows []migrate.Status
		if rows, err = runner.Status(ctx); err == nil {
			printStatus(rows)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logg.Error(ctx, "migration command failed", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
}

func printStatus(rows []migrate.Status) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED AT\tFILE")
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", row.Version, applied, row.Name)
	}
	_ = tw.Flush()
}

func exitOnErr(logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), step, err)
	os.Exit(1)
}
