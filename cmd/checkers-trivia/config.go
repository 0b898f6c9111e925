package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jaminalder/trivia-checkers/internal/domain"
	"github.com/jaminalder/trivia-checkers/internal/trivia"
)

type Config struct {
	bind             string
	port             int
	challengeTimeout time.Duration
	questions        string
	opentdb          bool
	opentdbURL       string
	opentdbAmount    int
	opentdbCategory  int
	backwardCaptures bool
	restoreInPlace   bool
	sessionTimeout   time.Duration
	logLevel         string
	logFormat        string
	logFile          string
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.challengeTimeout <= 0 {
		return fmt.Errorf("invalid challenge timeout (must be positive): %s", c.challengeTimeout)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must not be negative): %s", c.sessionTimeout)
	}
	if c.opentdb && (c.opentdbAmount < 1 || c.opentdbAmount > 50) {
		return fmt.Errorf("invalid opentdb amount (must be between 1-50 inclusive): %d", c.opentdbAmount)
	}
	if c.opentdb && (c.opentdbCategory < 9 || c.opentdbCategory > 32) {
		return fmt.Errorf("invalid opentdb category (must be between 9-32 inclusive): %d", c.opentdbCategory)
	}
	if c.opentdb && c.opentdbURL == "" {
		return errors.New("--opentdb-url must be set when --opentdb is enabled")
	}
	switch strings.ToLower(c.logFormat) {
	case "legacy", "console", "json":
	default:
		return fmt.Errorf("invalid log format (must be legacy, console or json): %q", c.logFormat)
	}
	return nil
}

func (c *Config) rules() domain.Rules {
	return domain.Rules{
		BackwardCaptures:      c.backwardCaptures,
		RestoreCaptureInPlace: c.restoreInPlace,
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CHECKERS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "checkers-trivia",
		Short:         "Two-player checkers where every move is earned with a trivia answer.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CHECKERS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CHECKERS_PORT)")
	fs.DurationVar(&cfg.challengeTimeout, "challenge-timeout", 10*time.Second, "time allowed to answer a question (env: CHECKERS_CHALLENGE_TIMEOUT)")
	fs.StringVar(&cfg.questions, "questions", "", "path to a YAML question bank; built-in questions when empty (env: CHECKERS_QUESTIONS)")
	fs.BoolVar(&cfg.opentdb, "opentdb", false, "fetch questions from the Open Trivia DB at startup (env: CHECKERS_OPENTDB)")
	fs.StringVar(&cfg.opentdbURL, "opentdb-url", trivia.DefaultOpenTDBURL, "Open Trivia DB endpoint (env: CHECKERS_OPENTDB_URL)")
	fs.IntVar(&cfg.opentdbAmount, "opentdb-amount", 20, "questions to fetch from the Open Trivia DB (env: CHECKERS_OPENTDB_AMOUNT)")
	fs.IntVar(&cfg.opentdbCategory, "opentdb-category", 9, "Open Trivia DB category id (env: CHECKERS_OPENTDB_CATEGORY)")
	fs.BoolVar(&cfg.backwardCaptures, "backward-captures", true, "let uncrowned men capture backwards (env: CHECKERS_BACKWARD_CAPTURES)")
	fs.BoolVar(&cfg.restoreInPlace, "restore-captures-in-place", false, "undo puts a captured piece back where it was taken (env: CHECKERS_RESTORE_CAPTURES_IN_PLACE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle games are removed; 0 keeps them (env: CHECKERS_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "debug, info, warn or error (env: CHECKERS_LOG_LEVEL)")
	fs.StringVar(&cfg.logFormat, "log-format", "console", "legacy, console or json (env: CHECKERS_LOG_FORMAT)")
	fs.StringVar(&cfg.logFile, "log-file", "", "also write logs to this file (env: CHECKERS_LOG_FILE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("checkers-trivia v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
