package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shelfsync/internal/api"
	"shelfsync/internal/client"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var bookID int64
	var channelID int64
	var fileName string
	var priority int

	cmd := &cobra.Command{
		Use:   "enqueue <messageID>",
		Short: "Queue a channel message for binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message id %q", args[0])
			}
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.Enqueue(cmd.Context(), api.EnqueueRequest{
					MessageID: messageID,
					ChannelID: channelID,
					BookID:    bookID,
					FileName:  fileName,
					Priority:  priority,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Created {
					fmt.Fprintf(out, "Queued task %d for message %d\n", resp.Task.ID, resp.Task.MessageID)
				} else {
					fmt.Fprintf(out, "Message %d already queued as task %d (%s)\n", resp.Task.MessageID, resp.Task.ID, resp.Task.Status)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&bookID, "book", 0, "Catalog book to bind the file to")
	cmd.Flags().Int64Var(&channelID, "channel", 0, "Channel the message belongs to (defaults to the configured channel)")
	cmd.Flags().StringVar(&fileName, "file", "", "Expected file name, for display before the fetch")
	cmd.Flags().IntVar(&priority, "priority", 0, "Scheduling priority; higher runs first")
	return cmd
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Scan the channel and reconcile unbound files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				report, err := cl.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scanned %d files (%d already bound), %d unbound books, %d auto-enqueued\n",
					report.ScannedFiles, report.BoundSkipped, report.UnboundBooks, report.AutoEnqueued)
				if !verbose {
					return nil
				}
				for _, file := range report.Files {
					fmt.Fprintf(out, "  %s (message %d)\n", displayFileName(file.FileName), file.MessageID)
					switch {
					case file.AutoEnqueued:
						fmt.Fprintf(out, "    queued as task %d\n", file.TaskID)
					case file.AlreadyQueued:
						fmt.Fprintf(out, "    already queued as task %d\n", file.TaskID)
					}
					for _, match := range file.Candidates {
						fmt.Fprintf(out, "    %3d  %s\n", match.Score, describeMatch(match))
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show per-file candidates")
	return cmd
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <fileName>",
		Short: "Rank a file name against unbound catalog books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.Match(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Matches) == 0 {
					fmt.Fprintf(out, "No candidates for %s\n", resp.FileName)
					return nil
				}
				rows := make([][]string, 0, len(resp.Matches))
				for _, match := range resp.Matches {
					rows = append(rows, []string{
						strconv.FormatInt(match.BookID, 10),
						strconv.Itoa(match.Score),
						match.Title,
						match.Author,
						strings.Join(match.MatchedWords, " "),
					})
				}
				table := renderTable(
					[]column{
						{name: "Book", right: true},
						{name: "Score", right: true},
						{name: "Title", maxWidth: 40},
						{name: "Author", maxWidth: 32},
						{name: "Matched"},
					},
					rows,
				)
				fmt.Fprint(out, table)
				return nil
			})
		},
	}
}

func describeMatch(match api.Match) string {
	if match.Author == "" {
		return match.Title
	}
	return match.Title + " / " + match.Author
}

func displayFileName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(unnamed)"
	}
	return name
}
