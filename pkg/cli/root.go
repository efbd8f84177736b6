package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vigilantes/alertmail/pkg/config"
	"github.com/vigilantes/alertmail/pkg/delivery"
	"github.com/vigilantes/alertmail/pkg/mail"
	"github.com/vigilantes/alertmail/pkg/vault"
)

const journalFile = "delivery_journal.json"

// Config carries the injectable pieces of the CLI, used by tests to point
// commands at a scratch directory and capture output.
type Config struct {
	DataDir      string
	OutputWriter io.Writer
}

type runtimeState struct {
	dataDir    string
	useKeyring bool
	verbose    bool
	writer     io.Writer
	settings   Settings

	store   *config.Store
	tracker *delivery.Tracker
	manager *mail.Manager
	log     *zap.SugaredLogger
}

type runtimeKey struct{}

// DefaultDataDir returns the directory holding configuration, credentials and
// backups. ALERTMAIL_DATA_DIR overrides it.
func DefaultDataDir() string {
	if env := os.Getenv("ALERTMAIL_DATA_DIR"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, "alertmail")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".alertmail")
}

func DefaultConfig() Config {
	return Config{
		DataDir:      DefaultDataDir(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{dataDir: cfg.DataDir, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:           "alertmailctl",
		Short:         "Manage driver assistant email alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.dataDir == "" {
				rt.dataDir = DefaultDataDir()
			}
			settings, err := LoadSettings(rt.dataDir)
			if err != nil {
				return err
			}
			rt.settings = settings
			if !rt.useKeyring {
				rt.useKeyring = strings.EqualFold(os.Getenv("ALERTMAIL_KEYRING"), "true") || settings.Keyring
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("ALERTMAIL_VERBOSE"), "true") || settings.Verbose
			}
			rt.log = newLogger(rt.verbose)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.dataDir, "data-dir", rt.dataDir, "Directory holding configuration and backups")
	root.PersistentFlags().BoolVar(&rt.useKeyring, "keyring", false, "Store the master key in the OS keyring instead of on disk")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose output")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewConfigCommand(),
		NewBackupCommand(),
		NewSendTestCommand(),
		NewCheckCommand(),
		NewStatusCommand(),
		NewPasswordCommand(),
		NewMetricsCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func newLogger(verbose bool) *zap.SugaredLogger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger.Sugar()
		}
	}
	return zap.NewNop().Sugar()
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

// Store lazily opens the configuration store under the data directory.
func (rt *runtimeState) Store() (*config.Store, error) {
	if rt.store != nil {
		return rt.store, nil
	}
	var opts []vault.Option
	if rt.useKeyring {
		opts = append(opts, vault.WithKeyring())
	}
	v, err := vault.New(rt.dataDir, rt.log, opts...)
	if err != nil {
		return nil, err
	}
	store, err := config.NewStore(rt.dataDir, v, rt.log)
	if err != nil {
		return nil, err
	}
	rt.store = store
	return store, nil
}

// Manager lazily builds the delivery manager with a journal-backed tracker.
func (rt *runtimeState) Manager() (*mail.Manager, error) {
	if rt.manager != nil {
		return rt.manager, nil
	}
	store, err := rt.Store()
	if err != nil {
		return nil, err
	}
	rt.tracker = delivery.NewTracker(rt.log,
		delivery.WithPersistence(filepath.Join(rt.dataDir, journalFile)))
	rt.manager = mail.NewManager(store, rt.tracker, rt.log)
	return rt.manager, nil
}

// Tracker exposes the journal-backed delivery tracker.
func (rt *runtimeState) Tracker() (*delivery.Tracker, error) {
	if _, err := rt.Manager(); err != nil {
		return nil, err
	}
	return rt.tracker, nil
}
