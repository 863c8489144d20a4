// Command quizctl is the terminal client for a quizdesk server: students take
// the exam with it and teachers manage the bank, settings and results.
package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stemsi/quizdesk/internal/client"
	"github.com/stemsi/quizdesk/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizctl",
		Short:         "Take quizzes and manage a quizdesk server",
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringP("server", "s", "http://localhost:3001", "quizdesk server base URL")
	pf.String("token", "", "teacher token from 'quizctl unlock' (or set QUIZCTL_TOKEN)")
	pf.Duration("timeout", 15*time.Second, "HTTP request timeout")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		takeCmd(),
		importCmd(),
		exportCmd(),
		settingsCmd(),
		resultsCmd(),
		questionsCmd(),
		unlockCmd(),
		hashPINCmd(),
	)
	return root
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	v.SetEnvPrefix("QUIZCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizctl")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizctl")
	_ = v.ReadInConfig()

	return v
}

func newLogger(v *viper.Viper) zerolog.Logger {
	// Console output only, so the closer is a no-op.
	log, _, _ := logger.Setup(v.GetString("log-level"), "pretty", "")
	return log
}

// newClient builds an API client from the command's flags and environment.
func newClient(cmd *cobra.Command) (*client.Client, *viper.Viper, zerolog.Logger) {
	v := viperForCmd(cmd)
	log := newLogger(v)
	c := client.New(
		v.GetString("server"),
		client.WithToken(v.GetString("token")),
		client.WithLogger(log),
		client.WithHTTPClient(newHTTPClient(v.GetDuration("timeout"))),
	)
	return c, v, log
}
