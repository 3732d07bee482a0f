package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m3rciful/accessbot/core/buildinfo"
	corecmd "github.com/m3rciful/accessbot/core/cmd"
	"github.com/m3rciful/accessbot/internal/app"
	"github.com/m3rciful/accessbot/internal/config"
	"github.com/m3rciful/accessbot/internal/store"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "accessbot",
		Short:         "Telegram bot managing access to a private channel",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config (default $CONFIG_PATH or config.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the bot",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd.Context(), configPath, func(*store.Store) error {
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
			},
		},
		newAdminCmd(&configPath),
		newUsersCmd(&configPath),
	)
	return root
}

func newAdminCmd(configPath *string) *cobra.Command {
	admin := &cobra.Command{Use: "admin", Short: "Manage the admin credential"}
	admin.AddCommand(&cobra.Command{
		Use:   "set-password [password]",
		Short: "Set the admin password, reading stdin when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := readLine(cmd)
				if err != nil {
					return err
				}
				password = line
			}
			return withStore(cmd.Context(), *configPath, func(st *store.Store) error {
				if err := st.SetAdminPassword(cmd.Context(), password); err != nil {
					return err
				}
				if password == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "admin password cleared")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "admin password updated")
				return nil
			})
		},
	})
	return admin
}

func newUsersCmd(configPath *string) *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Inspect and approve registered users"}
	users.AddCommand(
		&cobra.Command{
			Use:   "pending",
			Short: "List users waiting for approval",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd.Context(), *configPath, func(st *store.Store) error {
					pending, err := st.ListPendingUsers(cmd.Context())
					if err != nil {
						return err
					}
					if len(pending) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "no pending users")
						return nil
					}
					for _, u := range pending {
						fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", u.UserID, u.Email)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "approve <user-id>",
			Short: "Approve a registered user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid user id %q: %w", args[0], err)
				}
				return withStore(cmd.Context(), *configPath, func(st *store.Store) error {
					if _, err := st.GetUser(cmd.Context(), id); err != nil {
						return err
					}
					if err := st.ApproveUser(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "user %d approved\n", id)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Count approved and pending users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd.Context(), *configPath, func(st *store.Store) error {
					s, err := st.Stats(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "approved: %d\npending: %d\n", s.Approved, s.Pending)
					return nil
				})
			},
		},
	)
	return users
}

func serve(ctx context.Context, configPath string) error {
	return corecmd.Run(ctx, corecmd.Options{
		ConfigPath:        configPath,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			appCfg, ok := cfg.(*config.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cfg)
			}
			return app.Bootstrap(ctx, appCfg)
		},
	})
}

// withStore loads the storage config without Telegram checks, opens and
// migrates the store, and closes it after fn.
func withStore(ctx context.Context, configPath string, fn func(*store.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path, err := corecmd.ResolveConfigPath(configPath, configEnvVar, defaultConfigPath)
	if err != nil {
		return err
	}
	cfg, err := config.LoadStorage(path)
	if err != nil {
		return err
	}
	st, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func readLine(cmd *cobra.Command) (string, error) {
	sc := bufio.NewScanner(cmd.InOrStdin())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no password on stdin")
	}
	return strings.TrimRight(sc.Text(), "\r\n"), nil
}
