package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"shelfsync/internal/api"
	"shelfsync/internal/client"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the sync queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sync tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				tasks, err := cl.ListQueue(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(tasks))
				for _, task := range tasks {
					rows = append(rows, []string{
						strconv.FormatInt(task.ID, 10),
						strconv.FormatInt(task.MessageID, 10),
						formatBookID(task.BookID),
						task.FileName,
						task.Status,
						strconv.Itoa(task.RetryCount),
						task.ScheduledFor,
					})
				}
				table := renderTable(
					[]column{
						{name: "ID", right: true},
						{name: "Message", right: true},
						{name: "Book", right: true},
						{name: "File", maxWidth: 48},
						{name: "Status"},
						{name: "Retries", right: true},
						{name: "Scheduled"},
					},
					rows,
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by task status (repeatable)")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				counts, err := cl.QueueStats(cmd.Context())
				if err != nil {
					return err
				}
				names := make([]string, 0, len(counts))
				total := 0
				for name, count := range counts {
					names = append(names, name)
					total += count
				}
				sort.Strings(names)
				rows := make([][]string, 0, len(names)+1)
				for _, name := range names {
					rows = append(rows, []string{name, strconv.Itoa(counts[name])})
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})
				table := renderTable([]column{{name: "Status"}, {name: "Count", right: true}}, rows)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <taskID>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			return ctx.withClient(func(cl *client.Client) error {
				task, err := cl.DescribeTask(cmd.Context(), id)
				if err != nil {
					return err
				}
				printTask(cmd, task)
				return nil
			})
		},
	}
}

func printTask(cmd *cobra.Command, task *api.Task) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task %d\n", task.ID)
	fmt.Fprintf(out, "  Message:    %d (channel %d)\n", task.MessageID, task.ChannelID)
	fmt.Fprintf(out, "  Book:       %s\n", formatBookID(task.BookID))
	if task.FileName != "" {
		fmt.Fprintf(out, "  File:       %s\n", task.FileName)
	}
	fmt.Fprintf(out, "  Status:     %s\n", task.Status)
	fmt.Fprintf(out, "  Retries:    %d\n", task.RetryCount)
	if task.ScheduledFor != "" {
		fmt.Fprintf(out, "  Scheduled:  %s\n", task.ScheduledFor)
	}
	if task.StartedAt != "" {
		fmt.Fprintf(out, "  Started:    %s\n", task.StartedAt)
	}
	if task.CompletedAt != "" {
		fmt.Fprintf(out, "  Completed:  %s\n", task.CompletedAt)
	}
	if task.Progress.Stage != "" {
		fmt.Fprintf(out, "  Progress:   %s (%.0f%%)\n", task.Progress.Stage, task.Progress.Percent)
	}
	if task.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:      %s\n", task.ErrorMessage)
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [taskID...]",
		Short: "Retry failed tasks",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid task id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withClient(func(cl *client.Client) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					retried, err := cl.RetryAllFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed tasks\n", retried)
					return nil
				}
				for _, id := range ids {
					retried, err := cl.RetryTask(cmd.Context(), id)
					if err != nil {
						fmt.Fprintf(out, "Task %d: %v\n", id, err)
						continue
					}
					if retried > 0 {
						fmt.Fprintf(out, "Task %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Task %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <taskID>",
		Short: "Remove a task from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			return ctx.withClient(func(cl *client.Client) error {
				if err := cl.RemoveTask(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed task %d\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove tasks in bulk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			scope := "all"
			switch {
			case clearCompleted:
				scope = "completed"
			case clearFailed:
				scope = "failed"
			}
			return ctx.withClient(func(cl *client.Client) error {
				removed, err := cl.ClearQueue(cmd.Context(), scope)
				if err != nil {
					return err
				}
				switch scope {
				case "completed":
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed tasks\n", removed)
				case "failed":
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed tasks\n", removed)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d tasks\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed tasks")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed tasks")
	return cmd
}

func formatBookID(id int64) string {
	if id <= 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}
