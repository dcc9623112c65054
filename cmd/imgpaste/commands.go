package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Beijizb/obsidian-image-beiji/internal/config"
	"github.com/Beijizb/obsidian-image-beiji/internal/imaging"
	"github.com/Beijizb/obsidian-image-beiji/internal/logging"
	"github.com/Beijizb/obsidian-image-beiji/internal/metrics"
	"github.com/Beijizb/obsidian-image-beiji/internal/plugin"
	"github.com/Beijizb/obsidian-image-beiji/internal/server"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

const deactivateTimeout = 10 * time.Second

// cli holds the global flags.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand creates the imgpaste command tree.
func NewRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "imgpaste",
		Short: "Paste-to-publish image uploader for editor hosts",
		Long: `imgpaste turns pasted images into links on a remote image store.

Without a subcommand it serves the stdio host protocol: JSON-RPC requests on
stdin, responses and notifications on stdout, logs on stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "settings file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (env IMGPASTE_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		c.serveCommand(),
		c.httpCommand(),
		c.uploadCommand(),
		c.configCommand(),
		versionCommand(),
	)
	return root
}

func (c *cli) setupLogging() {
	logging.SetFormat(c.logFormat)
	level := c.logLevel
	if level == "" {
		level = os.Getenv(config.EnvPrefix + "_LOG_LEVEL")
	}
	if level != "" && !logging.SetLevel(level) {
		logging.For("cli").Warnf("unknown log level %q, keeping info", level)
	}
}

func (c *cli) store() *config.FileStore {
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.NewFileStore(path)
}

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the stdio host protocol (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd)
		},
	}
}

func (c *cli) runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.For("cli").WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("starting stdio server")

	p := plugin.New(c.store())
	defer deactivate(p)
	srv := server.New(p, server.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()), server.WithVersion(Version))
	return srv.Run(ctx)
}

func (c *cli) httpCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the plugin over HTTP with Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			obs, err := metrics.NewPrometheusObserver("imgpaste", reg)
			if err != nil {
				return err
			}

			if !logging.Logger.IsLevelEnabled(logrus.DebugLevel) {
				gin.SetMode(gin.ReleaseMode)
			}

			p := plugin.New(c.store(), plugin.WithObserver(obs))
			if err := p.OnActivate(ctx); err != nil {
				return err
			}
			defer deactivate(p)

			fmt.Fprintf(cmd.ErrOrStderr(), "%s listening on %s\n", green("imgpaste"), cyan(addr))
			return server.NewHTTP(p, reg).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "listen address")
	return cmd
}

func (c *cli) uploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload one image and print its Markdown reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p := plugin.New(c.store())
			if err := p.OnActivate(ctx); err != nil {
				return err
			}
			defer deactivate(p)

			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", gray("Uploading"), args[0])
			md, err := p.Publish(ctx, imaging.FromPath(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), md)
			return nil
		},
	}
}

func (c *cli) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := c.store()
			p := plugin.New(store)
			if err := p.Reload(); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), store.Path(), p.Settings())
			if err := p.Config().Validate(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s %v\n", yellow("warning:"), err)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long:  "Change one setting. Keys: " + strings.Join(config.Keys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.updateSetting(cmd, args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "auth",
		Short: "Prompt for the auth code without echoing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSecret(cmd, "Auth code: ")
			if err != nil {
				return err
			}
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("auth code is empty")
			}
			return c.updateSetting(cmd, config.KeyAuthCode, code)
		},
	})
	return cmd
}

func (c *cli) updateSetting(cmd *cobra.Command, key, value string) error {
	p := plugin.New(c.store())
	if err := p.Reload(); err != nil {
		return err
	}
	if err := p.UpdateSetting(key, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("saved"), key)
	return nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imgpaste %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}

func printSettings(w io.Writer, path string, fields []plugin.Field) {
	fmt.Fprintf(w, "%s %s\n\n", bold("Settings file:"), path)
	width := 0
	for _, f := range fields {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}
	for _, f := range fields {
		fmt.Fprintf(w, "  %-*s  %v\n", width, f.Key, cyan(fmt.Sprint(f.Value)))
	}
}

// readSecret reads a line without echo when stdin is a terminal, and a
// plain line otherwise so the command also works in scripts.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read auth code: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read auth code: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func deactivate(p *plugin.Plugin) {
	ctx, cancel := context.WithTimeout(context.Background(), deactivateTimeout)
	defer cancel()
	if err := p.OnDeactivate(ctx); err != nil {
		logging.For("cli").WithError(err).Warn("deactivate")
	}
}
