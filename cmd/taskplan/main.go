package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"taskplan/internal/app"
	"taskplan/internal/calendar"
	"taskplan/internal/config"
	"taskplan/internal/schedule"
)

const defaultConfigPath = "./taskplan.yaml"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "taskplan",
		Short:        "taskplan - project and task scheduling service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath, "path to config file (yaml, toml or json)")
	root.SetOut(out)
	root.SetErr(out)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notifier and digest until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check-config",
		Short: "Parse and validate the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfigManager(cfgPath).Parse()
			if err != nil {
				return err
			}
			sections, _ := config.SummarizeConfigChange(nil, cfg)
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: %s (sections: %s)\n", cfgPath, strings.Join(sections, ", "))
			return nil
		},
	}

	var start string
	autoCmd := &cobra.Command{
		Use:   "autoschedule <project-id>",
		Short: "Lay out a project's tasks back to back from its start date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project-id", args[0])
			if err != nil {
				return err
			}
			var from calendar.Date
			if start != "" {
				if from, err = calendar.Parse(start); err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}
			return withApp(cfgPath, func(a *app.App) error {
				res, err := a.Planner().AutoSchedule(cmd.Context(), id, from)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s rescheduled from %s\n",
					res.Project.Title, english.Plural(res.Touched, "task", ""), res.Project.Start)
				printTasks(cmd.OutOrStdout(), res.Tasks)
				return nil
			})
		},
	}
	autoCmd.Flags().StringVar(&start, "start", "", "override the project start date (YYYY-MM-DD)")

	shiftCmd := &cobra.Command{
		Use:   "shift <task-id> <days>",
		Short: "Move a task and every later task by a number of calendar days",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task-id", args[0])
			if err != nil {
				return err
			}
			days, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("days: %w", err)
			}
			return withApp(cfgPath, func(a *app.App) error {
				res, err := a.Planner().ShiftTask(cmd.Context(), id, days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s moved %s\n",
					res.Project.Title, english.Plural(res.Touched, "task", ""), english.Plural(res.DeltaDays, "day", ""))
				printTasks(cmd.OutOrStdout(), res.Tasks)
				return nil
			})
		},
	}

	digestCmd := &cobra.Command{
		Use:   "digest",
		Short: "Print today's digest without sending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cfgPath, func(a *app.App) error {
				d, err := a.DigestNow(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), d.Render())
				return nil
			})
		},
	}

	root.AddCommand(serveCmd, checkCmd, autoCmd, shiftCmd, digestCmd)
	return root
}

func runServe(ctx context.Context, cfgPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

// withApp opens storage for a one-shot command without starting servers.
func withApp(cfgPath string, fn func(a *app.App) error) error {
	a, err := app.New(cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func printTasks(w io.Writer, tasks []schedule.Task) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tID\tNAME\tSTART\tEND\tDAYS\tSTATUS")
	for _, t := range tasks {
		days := "-"
		if t.DurationDays > 0 {
			days = strconv.Itoa(t.DurationDays)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n", t.Order, t.ID, t.Name, dateOrDash(t.Start), dateOrDash(t.End), days, t.Status)
	}
	_ = tw.Flush()
}

func dateOrDash(d calendar.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}
