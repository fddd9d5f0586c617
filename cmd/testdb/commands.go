package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phrazzld/testkit/internal/ciutil"
	"github.com/phrazzld/testkit/internal/testdb"
)

// withConnection runs fn with a connected manager and closes it afterwards.
func withConnection(cmd *cobra.Command, a *app, fn func(m *testdb.Manager) error) error {
	m := a.newManager()
	defer func() {
		if err := m.Close(); err != nil {
			a.logger.Warn("failed to close connection", "error", err)
		}
	}()

	if _, err := m.Connection(cmd.Context()); err != nil {
		return err
	}

	return fn(m)
}

func newCreateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the test database if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withConnection(cmd, a, func(m *testdb.Manager) error {
				if err := m.CreateDatabase(cmd.Context()); err != nil {
					return err
				}
				name, _ := m.DBName()
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
				return nil
			})
		},
	}
}

func newDropCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop the test database if it exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withConnection(cmd, a, func(m *testdb.Manager) error {
				if err := m.DropDatabase(cmd.Context()); err != nil {
					return err
				}
				name, _ := m.DBName()
				fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", name)
				return nil
			})
		},
	}
}

func newClearCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty every table of the test database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withConnection(cmd, a, func(m *testdb.Manager) error {
				if err := m.SelectDatabase(cmd.Context()); err != nil {
					return err
				}
				if err := m.ClearTables(cmd.Context()); err != nil {
					return err
				}
				name, _ := m.DBName()
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", name)
				return nil
			})
		},
	}
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [DIR]",
		Short: "Apply goose migrations to the test database",
		Long: `Apply the goose migrations in DIR to the test database. Without DIR the
migrations directory below the project root is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				found, err := ciutil.FindMigrationsDir(a.logger)
				if err != nil {
					return err
				}
				dir = found
			}

			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("migrations directory %s not found", dir)
			}

			return withConnection(cmd, a, func(m *testdb.Manager) error {
				if err := m.SelectDatabase(cmd.Context()); err != nil {
					return err
				}
				if err := m.Migrate(cmd.Context(), os.DirFS(dir), "."); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated from %s\n", dir)
				return nil
			})
		},
	}
}

func newParamsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Print the resolved parameters with the password masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := a.newManager()
			if err := m.ResolveParameters(); err != nil {
				return err
			}
			p, err := m.Params()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s=%s\n", ciutil.EnvTestDBDriver, p.Driver)
			fmt.Fprintf(out, "%s=%s\n", ciutil.EnvTestDBHost, p.Host)
			fmt.Fprintf(out, "%s=%s\n", ciutil.EnvTestDBUser, p.User)
			fmt.Fprintf(out, "%s=%s\n", ciutil.EnvTestDBPassword, ciutil.MaskPassword(p.Password))
			fmt.Fprintf(out, "%s=%s\n", ciutil.EnvTestDBDatabase, p.Database)
			fmt.Fprintf(out, "%s=%s\n", ciutil.EnvTestDBTablePrefix, p.Prefix)
			return nil
		},
	}
}
