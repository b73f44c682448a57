// Command expenseflowctl administers an expenseflow store from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"expenseflow/internal/backend"
	"expenseflow/internal/log"
)

// app carries the settings resolved for one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "expenseflowctl",
		Short: "Administer an expenseflow store",
		Long: `expenseflowctl reads and changes the data of an expenseflow store
directly: run migrations, load seed data, review and approve expenses.

Every flag can also be set through an EXPENSEFLOW_ variable, for example
EXPENSEFLOW_BACKEND=sqlite or EXPENSEFLOW_SQLITE_PATH=./data/expenseflow.db.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml)")
	flags.String("backend", string(backend.KindSQLite), "store backend ("+strings.Join(backend.KindNames(), ", ")+")")
	flags.String("sqlite-path", "./data/expenseflow.db", "SQLite database path")
	flags.String("redis-url", "redis://localhost:6379/0", "Redis URL")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(a.migrateCmd())
	root.AddCommand(a.seedCmd())
	root.AddCommand(a.expensesCmd())
	root.AddCommand(a.usersCmd())
	return root
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	a.v.SetEnvPrefix("EXPENSEFLOW")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	a.logger = log.NewText(log.ParseLevel(a.v.GetString("log-level")), log.ComponentCLI)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
