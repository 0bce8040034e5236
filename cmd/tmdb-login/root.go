package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "GOTMDB"

// app is shared by every subcommand of one root command.
type app struct {
	v   *viper.Viper
	in  io.Reader
	out io.Writer
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	return newApp(in, out).rootCmd()
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{v: viper.New(), in: in, out: out}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tmdb-login",
		Short:         "Log in to The Movie Database and manage the stored session",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.readConfigFile()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "Config file (yaml, json or toml)")
	flags.String("api-key", "", "TMDB API key")
	flags.String("base-url", "", "TMDB API base URL")
	flags.Duration("timeout", 0, "Per-request timeout")
	flags.String("store", "memory", "Session store: memory, redis or postgres")
	flags.String("redis-addr", "127.0.0.1:6379", "Redis address")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.String("postgres-dsn", "", "Postgres connection string")
	flags.Duration("connect-timeout", 0, "Give up connecting to the store after this long")
	flags.String("handle-file", ".gotmdb-handle", "File holding the handle of the last login")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", "console", "Log format: console or json")
	flags.Bool("audit", false, "Write audit events to the log")

	a.bindFlags(root)

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newPurgeCmd(a),
	)
	return root
}

// bindFlags maps each flag to a viper key; "api-key" becomes api_key and
// GOTMDB_API_KEY.
func (a *app) bindFlags(root *cobra.Command) {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = a.v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

func (a *app) readConfigFile() error {
	path := a.v.GetString("config")
	if path == "" {
		return nil
	}
	a.v.SetConfigFile(path)
	return a.v.ReadInConfig()
}
