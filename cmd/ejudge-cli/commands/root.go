package commands

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ejudge-client/internal/components/chrono"
	"ejudge-client/internal/components/telemetry"
	"ejudge-client/internal/scrapers/ejudge"
	"ejudge-client/internal/sessionstore"

	"github.com/spf13/cobra"
)

var (
	configName *string
	profile    *string
	debug      *bool
	dumpDir    *string
)

func init() {
	configName = rootCmd.PersistentFlags().String("config", "ejudge.json5", "The config file, looked up from the cwd upwards.")
	profile = rootCmd.PersistentFlags().String("profile", "default", "The name the session cookies are saved under.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logs.")
	dumpDir = rootCmd.PersistentFlags().String("dump-dir", "", "Write every http exchange to this directory.")
}

// app is everything a command needs, built once per run.
type app struct {
	config Config
	clock  chrono.StandardImpl
	tel    telemetry.API
	db     *sql.DB
	store  *sessionstore.Store
	client *ejudge.Client
	otel   telemetry.Otel
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "ejudge-cli",
	Short: "ejudge-cli is a command line client for the e-judge grader.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.close()
		}
	},
	SilenceUsage: true,
}

func newApp(ctx context.Context) (*app, error) {
	config, err := loadConfig(*configName)
	if err != nil {
		return nil, err
	}

	telemetry.InitSlog(*debug || config.Debug)
	tel := telemetry.NewSlogAPI(nil)

	otel, err := telemetry.SetupOtel(ctx, "ejudge-cli", config.Otlp)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	clock, err := config.clock()
	if err != nil {
		return nil, err
	}

	db, err := config.Session.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	store, err := sessionstore.NewStore(ctx, db, *profile, tel)
	if err != nil {
		db.Close()
		return nil, err
	}
	cookies, err := store.Load(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := config.clientOptions(clock.Location())
	opts.Cookies = cookies
	opts.Credentials = newPromptProvider(config)
	opts.Sessions = store
	opts.Observer = store
	if *dumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(*dumpDir)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("dump dir: %w", err)
		}
		opts.Dump = output
	}

	client, err := ejudge.NewClient(opts, tel)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		config: config,
		clock:  clock,
		tel:    tel,
		db:     db,
		store:  store,
		client: client,
		otel:   otel,
	}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.otel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
	a.db.Close()
}

// fatal closes the app, logs and exits.
func fatal(message string, err error) {
	if current != nil {
		current.close()
	}
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
