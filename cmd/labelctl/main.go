package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/config"
	"github.com/JohnDeved/labelctl/internal/journal"
	"github.com/JohnDeved/labelctl/internal/logging"
	"github.com/JohnDeved/labelctl/internal/output"
	"github.com/JohnDeved/labelctl/internal/recent"
	"github.com/JohnDeved/labelctl/internal/tui"
)

// Set by the release build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every command needs once flags are parsed.
type app struct {
	out     output.Options
	verbose bool
	logJSON bool

	cfg      *config.Config
	log      *zap.Logger
	closeLog func() error
	client   *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "labelctl",
		Short: "Manage product labels from the terminal",
		Long: `labelctl - Search products, browse the external catalogue, edit product
attributes and upload, download or delete label files in the Label Manager.

Without a subcommand it opens the interactive UI.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
		RunE:              a.runTUI,
	}
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr.")
	rootCmd.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Write logs as JSON.")
	output.AddFlags(rootCmd, &a.out)

	tuiCmd := &cobra.Command{
		Use:   "tui [route]",
		Short: "Launch the interactive UI at a route (/ or /product/<sku>)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runTUI,
	}

	rootCmd.AddCommand(
		tuiCmd,
		a.helloCmd(),
		a.searchCmd(),
		a.catalogueCmd(),
		a.importCmd(),
		a.productCmd(),
		a.labelsCmd(),
		a.uploadCmd(),
		a.uploadsCmd(),
		a.statsCmd(),
		a.recentCmd(),
		a.versionCmd(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.out.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	if isTUI(cmd) {
		// The screen belongs to the UI, so logs go to a file.
		log, closeLog, err := logging.NewFile(cfg.LogLevel, config.LogPath())
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		a.log, a.closeLog = log, closeLog
	} else {
		level := "warn"
		if a.verbose {
			level = "debug"
		}
		var log *zap.Logger
		if a.logJSON {
			log, err = logging.NewJSON(level, cmd.ErrOrStderr())
		} else {
			log, err = logging.NewConsole(level, cmd.ErrOrStderr())
		}
		if err != nil {
			return err
		}
		a.log = log
	}

	a.client = client.New(client.Options{
		BaseURL:           cfg.BaseURL,
		CatalogueURL:      cfg.CatalogueURL,
		Token:             cfg.CatalogueToken,
		Organisation:      cfg.Organisation,
		ImageCDNHost:      cfg.ImageCDNHost,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.RequestTimeout(),
		Logger:            a.log,
	})
	return nil
}

func (a *app) teardown() {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

func isTUI(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

// fail routes err through the --json error envelope.
func (a *app) fail(cmd *cobra.Command, err error) error {
	return a.out.HandleError(cmd.OutOrStdout(), err)
}

func (a *app) printer(cmd *cobra.Command) *output.Printer {
	return a.out.NewPrinter(cmd.OutOrStdout())
}

func (a *app) openRecent() *recent.Store {
	return recent.Open(config.StoreDir())
}

// openJournal opens the upload journal. The journal is optional, so a
// failure is logged and nil returned.
func (a *app) openJournal() *journal.DB {
	db, err := journal.OpenDB(config.JournalPath())
	if err != nil {
		a.log.Warn("could not open upload journal", zap.Error(err))
		return nil
	}
	return db
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	route := "/"
	if len(args) > 0 {
		route = args[0]
	}
	if !isInteractiveTerminal() {
		return fmt.Errorf("the interactive UI needs a terminal; see 'labelctl --help' for plain commands")
	}

	deps := tui.Deps{
		Client: a.client,
		Recent: a.openRecent(),
		Config: a.cfg,
		Logger: a.log,
	}
	if db := a.openJournal(); db != nil {
		defer db.Close()
		deps.Journal = db
	}
	return tui.Run(cmd.Context(), deps, route)
}

func isInteractiveTerminal() bool {
	inInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	outInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (inInfo.Mode()&os.ModeCharDevice) != 0 && (outInfo.Mode()&os.ModeCharDevice) != 0
}

// confirm asks a yes/no question on the command's streams.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", question)
	var answer string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil && err != io.EOF {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}
