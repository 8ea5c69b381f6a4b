package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"agentchat/internal/agent"
	"agentchat/internal/chat"
	"agentchat/internal/config"
	"agentchat/internal/repl"
	"agentchat/internal/session"
	"agentchat/internal/tui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type flagValues struct {
	configPath   string
	backend      string
	baseURL      string
	model        string
	apiKey       string
	threadID     string
	temperature  float64
	systemPrompt string
	exportDir    string
	plain        bool
	noAltScreen  bool
	logLevel     string
	logFile      string
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var flags flagValues
	cmd := &cobra.Command{
		Use:           "agentchat",
		Short:         "Chat with a conversational agent from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, in, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "YAML config file (default "+config.DefaultPath()+")")
	f.StringVar(&flags.backend, "backend", "", "agent backend: openai, ollama, graph or echo")
	f.StringVar(&flags.baseURL, "base-url", "", "agent base URL")
	f.StringVar(&flags.model, "model", "", "model name for the openai and ollama backends")
	f.StringVar(&flags.apiKey, "api-key", "", "API key sent to the agent")
	f.StringVar(&flags.threadID, "thread-id", "", "conversation thread id sent with every call")
	f.Float64Var(&flags.temperature, "temperature", 0, "initial temperature between 0 and 1")
	f.StringVar(&flags.systemPrompt, "system-prompt", "", "system prompt for the openai and ollama backends")
	f.StringVar(&flags.exportDir, "export-dir", "", "directory receiving chat_history.json")
	f.BoolVar(&flags.plain, "plain", false, "use the line oriented front end")
	f.BoolVar(&flags.noAltScreen, "no-alt-screen", false, "keep the terminal scrollback instead of the alternate screen")
	f.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error or disabled")
	f.StringVar(&flags.logFile, "log-file", "", "log file path")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "agentchat "+version)
		},
	})
	return cmd
}

// loadConfig layers the command line over the file and environment.
func loadConfig(cmd *cobra.Command, flags flagValues) (config.Config, error) {
	path, optional := flags.configPath, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("backend") {
		cfg.Agent.Backend = flags.backend
	}
	if changed("base-url") {
		cfg.Agent.BaseURL = flags.baseURL
	}
	if changed("model") {
		cfg.Agent.Model = flags.model
	}
	if changed("api-key") {
		cfg.Agent.APIKey = flags.apiKey
	}
	if changed("system-prompt") {
		cfg.Agent.SystemPrompt = flags.systemPrompt
	}
	if changed("thread-id") {
		cfg.Chat.ThreadID = flags.threadID
	}
	if changed("temperature") {
		cfg.Chat.Temperature = flags.temperature
	}
	if changed("export-dir") {
		cfg.Chat.ExportDir = flags.exportDir
	}
	if changed("plain") {
		cfg.UI.Plain = flags.plain
	}
	if changed("no-alt-screen") {
		cfg.UI.AltScreen = !flags.noAltScreen
	}
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = flags.logFile
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runChat(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	closer, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	gateway, err := agent.New(cfg.AgentOptions())
	if err != nil {
		return err
	}
	sess := session.New()
	defer sess.Close()
	loop := chat.New(sess, gateway, cfg.Chat.ThreadID, cfg.Chat.Temperature)

	plain := cfg.UI.Plain || !isTerminal(in) || !isTerminal(out)
	log.Info().
		Str("backend", cfg.Agent.Backend).
		Str("base_url", cfg.Agent.BaseURL).
		Str("thread_id", loop.ThreadID()).
		Str("session_id", sess.ID).
		Bool("plain", plain).
		Msg("agentchat started")
	defer func() {
		log.Info().Str("session_id", sess.ID).Int("messages", sess.Len()).Msg("agentchat stopped")
	}()

	if plain {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(out, "%s (%s backend, thread %s). Type /help for commands.\n",
			cfg.UI.Title, cfg.Agent.Backend, loop.ThreadID())
		return repl.New(loop, in, out, repl.Options{ExportDir: cfg.Chat.ExportDir}).Run(ctx)
	}

	model := tui.New(ctx, loop, tui.Options{
		Title:     cfg.UI.Title,
		ExportDir: cfg.Chat.ExportDir,
		Backend:   cfg.Agent.Backend,
		Markdown:  true,
	})
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithMouseCellMotion()}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return err
	}
	return nil
}

func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	cmd := newRootCmd(os.Stdin, os.Stdout)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "agentchat fatal error: %v\n", err)
		os.Exit(1)
	}
}
