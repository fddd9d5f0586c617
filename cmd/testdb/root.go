package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/phrazzld/testkit/internal/ciutil"
	"github.com/phrazzld/testkit/internal/platform/logger"
	"github.com/phrazzld/testkit/internal/testdb"
)

// app carries the state shared by the subcommands.
type app struct {
	envFile   string
	logLevel  string
	logFormat string

	logger *slog.Logger
	// managerOptions are appended to the defaults, for tests.
	managerOptions []testdb.Option
}

func (a *app) newManager() *testdb.Manager {
	opts := append([]testdb.Option{testdb.WithLogger(a.logger)}, a.managerOptions...)
	return testdb.NewManager(opts...)
}

func newRootCommand(managerOptions ...testdb.Option) *cobra.Command {
	a := &app{managerOptions: managerOptions}

	root := &cobra.Command{
		Use:   "testdb",
		Short: "Manage the database used by integration tests",
		Long: `testdb creates, clears, migrates and drops the test database configured
through the TEST_DB_DRIVER, TEST_DB_HOST, TEST_DB_USER, TEST_DB_PASSWORD,
TEST_DB_DATABASE and TEST_DB_PREFIX environment variables.

Examples:
  testdb create
  testdb --env-file .env.test migrate ./migrations
  testdb clear
  testdb drop`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.envFile != "" {
				if err := godotenv.Load(a.envFile); err != nil {
					return fmt.Errorf("failed to load env file %s: %w", a.envFile, err)
				}
			}

			l, err := logger.Setup(logger.Config{
				Level:  a.logLevel,
				Format: a.logFormat,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}
			a.logger = l

			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load variables from a dotenv file (existing variables win)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", ciutil.GetEnvWithFallbacks([]string{"TESTDB_LOG_LEVEL", "LOG_LEVEL"}, "info", nil), "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newCreateCommand(a),
		newDropCommand(a),
		newClearCommand(a),
		newMigrateCommand(a),
		newParamsCommand(a),
	)

	return root
}
