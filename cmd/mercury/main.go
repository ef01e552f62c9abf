// Command mercury browses and manages research data on a Fairspace
// platform or a configured storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Ning0612/mercury/internal/config"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
	"github.com/Ning0612/mercury/internal/logger"
	"github.com/Ning0612/mercury/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cli is the state shared by all commands of one invocation
type cli struct {
	configPath string
	output     string
	logLevel   string
	storage    string
	include    []string
	exclude    []string

	cfg *config.Config
	app *service.App

	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "mercury",
		Short:         "Browse and manage research data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "config file (default: config.yaml in the standard locations)")
	flags.StringVarP(&c.output, "output", "o", formatText, "output format: text, json or yaml")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVarP(&c.storage, "storage", "s", "", "storage to work on (default: the first configured)")
	flags.StringSliceVar(&c.include, "include", nil, "only list entries matching these glob patterns")
	flags.StringSliceVar(&c.exclude, "exclude", nil, "hide entries matching these glob patterns")

	root.AddCommand(
		newLsCmd(c),
		newStatCmd(c),
		newInfoCmd(c),
		newMkdirCmd(c),
		newRenameCmd(c),
		newRmCmd(c),
		newUndeleteCmd(c),
		newPasteCmd(c, "cp", domain.MethodCopy),
		newPasteCmd(c, "mv", domain.MethodCut),
		newUploadCmd(c),
		newLinkCmd(c),
		newTemplateCmd(c),
		newUploadMetadataCmd(c),
		newHierarchyCmd(c),
		newViewCmd(c),
		newUsersCmd(c),
		newHistoryCmd(c),
		newUnlockCmd(c),
		newAuthCmd(c),
	)
	return root
}

// setup loads the configuration and starts logging
func (c *cli) setup() error {
	if !validFormat(c.output) {
		return fmt.Errorf("unknown output format %q", c.output)
	}

	cfg, err := config.Load(c.configPath)
	if errors.Is(err, domain.ErrConfigNotFound) && c.configPath == "" {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.cfg = cfg

	level := cfg.Logging.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	logger.Shutdown()
	if err := logger.Init(logger.CLIConfig(level, cfg.Logging.Format, config.ExpandPath(cfg.Logging.File))); err != nil {
		return err
	}
	logger.Get().Debug("config loaded", "storages", len(cfg.Storages), "platform", cfg.Server.BaseURL)
	return nil
}

func (c *cli) teardown() error {
	var err error
	if c.app != nil {
		err = c.app.Close()
		c.app = nil
	}
	logger.Shutdown()
	return err
}

// session returns the App for the selected storage, creating it on first use
func (c *cli) session(ctx context.Context) (*service.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	filter := fileutil.Filter{Include: c.include, Exclude: c.exclude}
	app, err := service.New(ctx, c.cfg, c.storage, service.WithFilter(filter))
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}
