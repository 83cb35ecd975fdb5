package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/mpv-danmaku/internal/config"
	"github.com/zjrosen/mpv-danmaku/internal/dandanplay"
	"github.com/zjrosen/mpv-danmaku/internal/host/mpvipc"
	"github.com/zjrosen/mpv-danmaku/internal/log"
	"github.com/zjrosen/mpv-danmaku/internal/session"
	"github.com/zjrosen/mpv-danmaku/internal/tracing"
	"github.com/zjrosen/mpv-danmaku/internal/watcher"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 reply cannot race the preview's input loop.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// localConfigPath is checked before the user config directory.
const localConfigPath = ".mpv-danmaku/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debug     bool
	cfg       config.Config
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "mpv-danmaku",
	Short: "Scrolling danmaku comments for mpv",
	Long: `mpv-danmaku attaches to a running mpv through its JSON IPC socket and draws
dandanplay comments across the video. Start mpv with
--input-ipc-server=<socket> and toggle comments with
"script-message toggle-danmaku".`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runAttach,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./"+localConfigPath+" or ~/.config/mpv-danmaku/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"write a debug log (also MPV_DANMAKU_DEBUG=1)")
	rootCmd.Flags().StringP("socket", "s", "",
		"mpv IPC socket (default: "+config.DefaultSocket()+")")

	_ = viper.BindPFlag("socket", rootCmd.Flags().Lookup("socket"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("MPV_DANMAKU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .mpv-danmaku/config.yaml (current directory)
		// 2. ~/.config/mpv-danmaku/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			if dir := config.Dir(); dir != "" {
				viper.AddConfigPath(dir)
			}
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	configErr = nil
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config: %w", err)
			return
		}
	}

	cfg, configErr = config.Load(viper.GetViper())
}

// configFilePath is the file config writes go to.
func configFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	if cfgFile != "" {
		return cfgFile
	}
	if dir := config.Dir(); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return localConfigPath
}

func debugEnabled() bool {
	return debug || os.Getenv("MPV_DANMAKU_DEBUG") != ""
}

// setupLogging opens the debug log when requested. The returned func closes it.
func setupLogging(forTUI bool) (func(), error) {
	if !debugEnabled() && cfg.Log.File == "" {
		return func() {}, nil
	}
	path := cfg.Log.File
	if path == "" {
		path = "debug.log"
		if dir := config.Dir(); dir != "" {
			path = filepath.Join(dir, "debug.log")
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	open := log.Init
	if forTUI {
		open = func(p string) (func(), error) { return log.InitWithTeaLog(p, "mpv-danmaku") }
	}
	cleanup, err := open(path)
	if err != nil {
		return nil, err
	}
	log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
	log.Info(log.CatConfig, "logging started", "version", version, "config", viper.ConfigFileUsed())
	return cleanup, nil
}

// newFetcher builds the dandanplay client with tracing. Shut the provider
// down when done.
func newFetcher(ctx context.Context) (*dandanplay.Client, *tracing.Provider, error) {
	provider, err := tracing.NewProvider(ctx, cfg.TracingProvider())
	if err != nil {
		return nil, nil, fmt.Errorf("starting tracing: %w", err)
	}
	return dandanplay.New(cfg.Dandanplay(), dandanplay.WithTracer(provider.Tracer())), provider, nil
}

func runAttach(cmd *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}
	closeLog, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, provider, err := newFetcher(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	client, err := mpvipc.Dial(ctx, cfg.Socket, mpvipc.DefaultConfig())
	if err != nil {
		return fmt.Errorf("connecting to mpv (start it with --input-ipc-server=%s): %w", cfg.Socket, err)
	}
	defer func() { _ = client.Close() }()

	optsPath := ""
	if cfg.ScriptOpts != "" {
		optsPath, err = client.ExpandPath(ctx, cfg.ScriptOpts)
		if err != nil {
			log.ErrorErr(log.CatConfig, "expanding script-opts path", err, "path", cfg.ScriptOpts)
			optsPath = ""
		}
	}
	baseFontSize := cfg.FontSize
	if optsPath != "" {
		opts, err := config.ReadOptions(optsPath)
		if err != nil {
			log.ErrorErr(log.CatConfig, "reading script-opts", err, "path", optsPath)
		} else {
			opts.Apply(&cfg)
		}
	}

	s := session.New(client, fetcher, session.Config{
		Layout:       cfg.Layout(),
		SkipPatterns: cfg.SkipPatterns,
	})
	defer s.Close()

	if optsPath != "" {
		w, err := watcher.New(watcher.DefaultConfig(optsPath))
		if err == nil {
			var changes <-chan string
			changes, err = w.Start()
			if err == nil {
				go watchOptions(ctx, changes, s, baseFontSize)
			}
			defer func() { _ = w.Stop() }()
		}
		if err != nil {
			log.ErrorErr(log.CatWatcher, "option hot reload disabled", err, "path", optsPath)
		}
	}

	log.Info(log.CatSession, "attached to mpv", "socket", cfg.Socket)
	return s.Run(ctx)
}

// watchOptions applies font_size from the option file each time it changes.
// Removing the option restores fallback.
func watchOptions(ctx context.Context, changes <-chan string, s *session.Session, fallback float64) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-changes:
			opts, err := config.ReadOptions(path)
			if err != nil {
				log.ErrorErr(log.CatConfig, "reloading script-opts", err, "path", path)
				continue
			}
			size, ok := opts.FontSize()
			if !ok {
				size = fallback
			}
			s.SetFontSize(size)
		}
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
