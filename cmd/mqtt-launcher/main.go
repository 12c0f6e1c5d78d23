// mqtt-launcher runs local commands in response to MQTT messages.
//
// Each configured topic maps payloads to argument vectors. The payload
// selects an exact variant or fills the @!@ placeholder of the default
// variant; the command's output is published to <topic>/report.
//
// Configuration is read from --config, then $MQTTLAUNCHERCONFIG, then
// ./launcher.conf. With the audit section enabled, --history N prints the
// last N executions instead of starting the bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/mqtt-launcher/internal/audit"
	"github.com/nerrad567/mqtt-launcher/internal/dispatch"
	"github.com/nerrad567/mqtt-launcher/internal/executor"
	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/config"
	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/database"
	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/influxdb"
	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-launcher/internal/lifecycle"
	"github.com/nerrad567/mqtt-launcher/internal/routes"
	"github.com/nerrad567/mqtt-launcher/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Process exit codes.
const (
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(exitCode(err))
	}
}

// exitError attaches a process exit code to a startup error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// ExitCode returns the process exit code for the error.
func (e *exitError) ExitCode() int { return e.code }

func configError(err error) error { return &exitError{code: exitConfig, err: err} }

// exitCode returns the code carried by err, or exitFailure.
func exitCode(err error) int {
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return exitFailure
}

// run is the application body, separated from main for testability.
// It returns nil on --help, --version and clean shutdown.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("mqtt-launcher", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	configFlag := flags.StringP("config", "c", "", "path to the configuration file (default $"+config.EnvConfigPath+" or "+config.DefaultConfigPath+")")
	showVersion := flags.Bool("version", false, "print version and exit")
	history := flags.Int("history", 0, "print the last N recorded executions from the audit trail and exit")
	historyTopic := flags.String("history-topic", "", "limit --history to one topic")
	historyFailed := flags.Bool("history-failed", false, "limit --history to failed executions")
	flags.BoolP("help", "h", false, "show help")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stdout, flags)
			return nil
		}
		return configError(err)
	}
	if help, _ := flags.GetBool("help"); help {
		printUsage(stdout, flags)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "mqtt-launcher %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = config.Path()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return configError(fmt.Errorf("loading config %s: %w", configPath, err))
	}

	if *history > 0 {
		return printHistory(ctx, stdout, cfg, audit.Filter{
			Topic:      *historyTopic,
			FailedOnly: *historyFailed,
			Limit:      *history,
		})
	}

	table, err := routes.New(cfg.TopicList)
	if err != nil {
		return configError(fmt.Errorf("building routes: %w", err))
	}

	log, err := logging.New(cfg.Logging(), version)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Close() //nolint:errcheck // Nothing left to report to

	log.Info("starting mqtt-launcher",
		"version", version,
		"commit", commit,
		"config", configPath,
		"topics", table.Len(),
	)
	for _, topic := range table.Topics() {
		route, _ := table.Lookup(topic)
		log.Debug("route configured", "topic", route.Topic(), "default_variant", route.HasDefault())
	}

	exec := executor.New(executor.Config{
		WorkDir: cfg.WorkDir,
		Timeout: cfg.ExecTimeout,
	})
	exec.SetLogger(log.With("component", "executor"))

	recorders, closeStores, err := openRecorders(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	mqttClient := mqtt.New(cfg.MQTT())
	mqttClient.SetLogger(log.With("component", "mqtt"))

	dispatcher, err := dispatch.New(dispatch.Options{
		Routes:    table,
		Runner:    exec,
		Publisher: mqttClient,
		QoS:       config.DefaultQoS,
		Recorders: recorders,
		Logger:    log.With("component", "dispatch"),
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	manager, err := lifecycle.New(lifecycle.Options{
		Session:        sessionAdapter{client: mqttClient},
		Handler:        dispatcher,
		Topics:         table.Topics(),
		QoS:            config.DefaultQoS,
		ReconnectDelay: cfg.ReconnectDelay,
		RetryDelay:     cfg.RetryDelay,
		Logger:         log.With("component", "lifecycle"),
	})
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	log.Info("connecting",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker, int(cfg.Port)),
		"client_id", cfg.ClientID,
		"tls", bool(cfg.TLS),
	)

	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("running: %w", err)
	}

	log.Info("mqtt-launcher stopped", "state", manager.State().String())
	return nil
}

// openRecorders opens the optional audit and metrics stores. The returned
// close function releases whatever was opened, in reverse order.
func openRecorders(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]dispatch.Recorder, func(), error) {
	var (
		recorders []dispatch.Recorder
		closers   []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) ([]dispatch.Recorder, func(), error) {
		closeAll()
		return nil, nil, err
	}

	if cfg.Audit.Enabled {
		db, err := database.Open(database.Config{
			Path:        cfg.Audit.Path,
			WALMode:     cfg.Audit.WALMode,
			BusyTimeout: cfg.Audit.BusyTimeout,
		})
		if err != nil {
			return fail(fmt.Errorf("opening audit database: %w", err))
		}
		closers = append(closers, func() {
			log.Info("closing audit database")
			if err := db.Close(); err != nil {
				log.Error("error closing audit database", "error", err)
			}
		})

		applied, err := db.Migrate(ctx, migrations.FS)
		if err != nil {
			return fail(fmt.Errorf("migrating audit database: %w", err))
		}
		if err := db.HealthCheck(ctx); err != nil {
			return fail(err)
		}

		repo, err := audit.NewSQLiteRepository(db)
		if err != nil {
			return fail(err)
		}
		recorders = append(recorders, repo)
		log.Info("audit trail enabled", "path", db.Path(), "migrations_applied", applied)
	}

	if cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fail(fmt.Errorf("connecting to InfluxDB: %w", err))
		}
		client.SetLogger(log.With("component", "influxdb"))
		closers = append(closers, func() {
			log.Info("closing InfluxDB connection")
			if err := client.Close(); err != nil {
				log.Error("error closing InfluxDB", "error", err)
			}
		})
		recorders = append(recorders, metricsRecorder{client: client})
		log.Info("execution metrics enabled",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	return recorders, closeAll, nil
}

// printHistory lists recorded executions, newest first.
func printHistory(ctx context.Context, w io.Writer, cfg *config.Config, filter audit.Filter) error {
	if !cfg.Audit.Enabled {
		return configError(errors.New("--history needs the audit section enabled"))
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Audit.Path,
		WALMode:     cfg.Audit.WALMode,
		BusyTimeout: cfg.Audit.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening audit database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-only use

	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrating audit database: %w", err)
	}

	repo, err := audit.NewSQLiteRepository(db)
	if err != nil {
		return err
	}
	records, err := repo.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing executions: %w", err)
	}

	for _, rec := range records {
		status := "ok"
		if !rec.Success {
			status = fmt.Sprintf("exit %d", rec.ExitCode)
		}
		param := "-"
		if rec.Parameter != nil {
			param = strconv.Quote(*rec.Parameter)
		}
		fmt.Fprintf(w, "%s  %-8s %s  param=%s  %s  (%v)\n",
			rec.ExecutedAt.Local().Format(time.RFC3339),
			status,
			rec.Topic,
			param,
			strings.Join(rec.Command, " "),
			rec.Duration,
		)
	}
	return nil
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: mqtt-launcher [flags]\n\nRuns local commands in response to MQTT messages.\n\nFlags:\n")
	fmt.Fprint(w, flags.FlagUsages())
}
