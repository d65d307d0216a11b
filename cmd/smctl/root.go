package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/export"
	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/service"
	"github.com/ninnin76-design/sm-manager/internal/store"
)

type app struct {
	configFile string
	store      store.Store
	schedules  *service.ScheduleService
	members    *service.MemberService
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "smctl",
		Short:         "SM manager operator tool",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "hash-code" {
				return nil
			}
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file path (e.g. etc/config-dev.yaml)")

	root.AddCommand(
		a.membersCmd(),
		a.schedulesCmd(),
		a.exportCmd(),
		a.clearCmd(),
		a.resetCmd(),
		hashCodeCmd(),
	)
	return root
}

func (a *app) open() error {
	cfg := config.Load(a.configFile)
	slog.SetDefault(logger.New(os.Stderr, "warn"))
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.schedules = service.NewScheduleService(st, service.NewAIService(cfg), nil)
	a.members = service.NewMemberService(st, nil)
	return nil
}

var admin = model.AdminSession()

func (a *app) membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.members.List(cmd.Context(), admin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatMembers(list))
			return nil
		},
	}
}

func (a *app) schedulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "List schedule summaries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.schedules.List(cmd.Context(), admin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSummaries(list))
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every summary to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.schedules.List(cmd.Context(), admin)
			if err != nil {
				return err
			}
			data, err := export.Workbook(list)
			if err != nil {
				return err
			}
			if out == "" {
				out = export.FileName(time.Now())
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d schedules to %s\n", len(list), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file")
	return cmd
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every schedule entry, keeping the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if !confirm(in, cmd.OutOrStdout(), "Delete ALL schedules? This cannot be undone.") {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			if err := a.schedules.ClearSchedules(cmd.Context(), admin); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all schedules deleted")
			return nil
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Factory reset: delete every schedule and restore the default roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			if !confirm(in, out, "Reset the application? Every schedule and roster change will be lost.") {
				fmt.Fprintln(out, "aborted")
				return nil
			}
			if !confirmPhrase(in, out, model.ResetPhrase) {
				fmt.Fprintln(out, "phrase did not match, aborted")
				return nil
			}
			if err := a.schedules.Reset(cmd.Context(), admin); err != nil {
				return err
			}
			fmt.Fprintln(out, "application reset")
			return nil
		},
	}
}

func hashCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-code CODE",
		Short: "Print a bcrypt hash for auth.admin_code_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.HashAdminCode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func confirm(in *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer := readLine(in)
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}

func confirmPhrase(in *bufio.Reader, out io.Writer, phrase string) bool {
	fmt.Fprintf(out, "Type %q to continue: ", phrase)
	return readLine(in) == phrase
}

func readLine(in *bufio.Reader) string {
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
