package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/qrpop/api"
	"github.com/openclaw/qrpop/config"
	"github.com/openclaw/qrpop/qr"
	"github.com/openclaw/qrpop/session"
	"github.com/openclaw/qrpop/store"
	"github.com/openclaw/qrpop/studio"
	"github.com/openclaw/qrpop/tui"
	"github.com/openclaw/qrpop/viewer"
)

var version = "v0.1.0"

// openOptions are the flags of the open command.
type openOptions struct {
	out    string
	keep   bool
	noOpen bool
	ascii  bool
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "qrpop",
		Short:        "Turn text into a QR code and open it in an image viewer",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")

	// --- open command --------------------------------------------------------
	var opts openOptions
	openCmd := &cobra.Command{
		Use:     "open [text...]",
		Aliases: []string{"generate"},
		Short:   "Generate a QR code and open it (text from args or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd.Context(), configPath, args, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	openCmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the PNG to this file instead of a temp file")
	openCmd.Flags().BoolVar(&opts.keep, "keep", false, "Keep the temp file after exit")
	openCmd.Flags().BoolVar(&opts.noOpen, "no-open", false, "Do not launch an image viewer (with stdin input the file is kept and the command exits)")
	openCmd.Flags().BoolVar(&opts.ascii, "ascii", false, "Print the code to the terminal instead")
	root.AddCommand(openCmd)

	// --- ui command ----------------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "ui",
		Short: "Interactive editor: type text, press ctrl+s to generate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd.Context(), configPath)
		},
	})

	// --- serve command -------------------------------------------------------
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the QR generator over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	root.AddCommand(serveCmd)

	// --- history command -----------------------------------------------------
	var (
		historySearch string
		historyLimit  int
	)
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List previously generated codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(configPath, historySearch, historyLimit, cmd.OutOrStdout())
		},
	}
	historyCmd.Flags().StringVarP(&historySearch, "search", "s", "", "Full-text search query")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries")
	root.AddCommand(historyCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrpop %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the slog logger for the configured level.
func newLogger(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// openHistory opens the history database, or returns nil when history is
// disabled.
func openHistory(cfg *config.Config) (*store.HistoryStore, error) {
	if !cfg.History {
		return nil, nil
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	h, err := store.NewHistoryStore(cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return h, nil
}

// newStudio wires a Studio around file from the loaded configuration. The
// returned cleanup closes the history store; the caller closes the studio.
func newStudio(cfg *config.Config, file *session.File, source string, noOpen bool, log *slog.Logger) (*studio.Studio, func(), error) {
	history, err := openHistory(cfg)
	if err != nil {
		return nil, nil, err
	}

	var opener viewer.Opener = viewer.Noop{}
	if !noOpen {
		opener = viewer.New(cfg.Viewer.Command, cfg.Viewer.Timeout.Duration, log)
	}

	opts := studio.Options{
		Generator: &qr.Generator{Border: cfg.Render.Border, Scale: cfg.Render.Scale},
		File:      file,
		Opener:    opener,
		Source:    source,
		Log:       log,
	}
	cleanup := func() {}
	if history != nil {
		opts.History = history
		cleanup = func() { history.Close() }
	}

	st, err := studio.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return st, cleanup, nil
}

// readInput joins args, or reads stdin when there are none. A single
// trailing line break from stdin is dropped. Oversized input is cut just
// past the payload limit so it still fails validation.
func readInput(args []string, stdin io.Reader) (text string, fromStdin bool, err error) {
	if len(args) > 0 {
		return strings.Join(args, " "), false, nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, qr.MaxPayload+3))
	if err != nil {
		return "", true, fmt.Errorf("read stdin: %w", err)
	}
	text = strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), true, nil
}

// runOpen generates one code, opens it and, for temp files, waits for the
// user before removing the image.
func runOpen(ctx context.Context, configPath string, args []string, stdin io.Reader, stdout io.Writer, opts openOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.LogLevel, os.Stderr)

	text, fromStdin, err := readInput(args, stdin)
	if err != nil {
		return err
	}

	if opts.ascii {
		out, err := qr.Terminal(text)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, out)
		return nil
	}

	var file *session.File
	if opts.out != "" {
		abs, err := filepath.Abs(opts.out)
		if err != nil {
			return fmt.Errorf("resolve output path: %w", err)
		}
		file = session.At(abs)
	} else {
		file, err = session.New(cfg.TempDir, cfg.TempPrefix)
		if err != nil {
			return err
		}
	}

	st, cleanup, err := newStudio(cfg, file, "cli", opts.noOpen, log)
	if err != nil {
		file.Close()
		return err
	}
	defer cleanup()
	defer st.Close()

	res, err := st.Generate(ctx, text)
	if err != nil {
		fmt.Fprintln(stdout, studio.StatusFailed)
		return err
	}
	fmt.Fprintln(stdout, studio.StatusDone(res))

	// Piped input with no viewer has nobody to wait for: keep the image and
	// exit so scripts do not block.
	if opts.out != "" || opts.keep || (opts.noOpen && fromStdin) {
		file.Keep()
		return nil
	}

	if fromStdin {
		// stdin is spent; only a signal can end the session.
		fmt.Fprintln(stdout, "Press Ctrl+C to finish; the image will be removed.")
		waitForDone(ctx, nil)
	} else {
		fmt.Fprintln(stdout, "Press Enter to finish; the image will be removed.")
		waitForDone(ctx, stdin)
	}
	return nil
}

// waitForDone blocks until a line is read from in, a termination signal
// arrives or ctx is done. A nil in waits for the signal only.
func waitForDone(ctx context.Context, in io.Reader) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	if in != nil {
		go func() {
			bufio.NewReader(in).ReadString('\n')
			close(done)
		}()
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// runUI runs the interactive editor against a session temp file that is
// removed on exit.
func runUI(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "qrpop.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log := newLogger(cfg.LogLevel, logFile)

	file, err := session.New(cfg.TempDir, cfg.TempPrefix)
	if err != nil {
		return fmt.Errorf("initialise temp file: %w", err)
	}

	st, cleanup, err := newStudio(cfg, file, "ui", false, log)
	if err != nil {
		file.Close()
		return err
	}
	defer cleanup()
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("remove temp file failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	log.Info("ui started", "temp_file", st.Path())
	return tui.Run(ctx, st)
}

// runServe is the HTTP service entrypoint.
func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)

	log.Info("starting qrpop", "version", version, "port", cfg.Port, "data_dir", cfg.DataDir)

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(&api.Server{
			Generator: &qr.Generator{Border: cfg.Render.Border, Scale: cfg.Render.Scale},
			History:   history,
			Log:       log,
			Version:   version,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr, "url", fmt.Sprintf("http://localhost:%d/", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

// runHistory prints recent or matching generations.
func runHistory(configPath, search string, limit int, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.History {
		return errors.New("history is disabled in the configuration")
	}
	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	var gens []store.Generation
	if search != "" {
		gens, err = history.Search(search, limit)
	} else {
		gens, err = history.Recent(limit, 0)
	}
	if err != nil {
		return err
	}

	return printHistory(out, gens)
}

func printHistory(out io.Writer, gens []store.Generation) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSOURCE\tLEVEL\tVERSION\tTEXT")
	for _, g := range gens {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			time.UnixMilli(g.CreatedAt).Format("2006-01-02 15:04:05"),
			g.Source, g.Level, g.Version, summarize(g.Text, 48))
	}
	return tw.Flush()
}

// summarize flattens text to one line of at most n runes.
func summarize(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n-1]) + "…"
}
