package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"postgate/internal/api"
	"postgate/internal/queue"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFlags []string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items, newest first",
		Long: `List queue items, newest first.

Publishers read approved items with:

  postgate list --status approved --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFlags(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withService(func(env serviceEnv) error {
				items, err := env.svc.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.FromQueueItems(items))
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprintln(out, renderItemTable(items, env.svc.Now(), shouldColorize(out)))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (pending, approved, rejected); repeatable")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print items as JSON")
	return cmd
}

func parseStatusFlags(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q (want pending, approved, or rejected)", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one queue item with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withService(func(env serviceEnv) error {
				item, err := env.svc.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %s not found", id)
				}
				if jsonOut {
					return writeJSON(cmd, api.FromQueueItem(item))
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderItemDetail(item, env.svc.Now()))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the item as JSON")
	return cmd
}

type decisionKind struct {
	use    string
	short  string
	past   string
	status queue.Status
}

var (
	decisionApprove = decisionKind{use: "approve", short: "Approve pending items", past: "Approved", status: queue.StatusApproved}
	decisionReject  = decisionKind{use: "reject", short: "Reject pending items", past: "Rejected", status: queue.StatusRejected}
)

func newDecisionCommand(ctx *commandContext, kind decisionKind) *cobra.Command {
	var (
		as      string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   kind.use + " <id> [id...]",
		Short: kind.short,
		Long: fmt.Sprintf(`%s one or more pending items that have not expired.

An item that is missing, already decided, or past its deadline is reported
and left unchanged; the command then exits non-zero.`, kind.short),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]string, 0, len(args))
			for _, arg := range args {
				if id := strings.TrimSpace(arg); id != "" {
					ids = append(ids, id)
				}
			}
			return ctx.withService(func(env serviceEnv) error {
				actor := strings.TrimSpace(as)
				if actor == "" {
					actor = env.cfg.Reviewer.Name
				}
				result, err := api.DecideItems(cmd.Context(), env.svc, ids, kind.status, actor)
				if err != nil {
					return err
				}
				if jsonOut {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
				} else {
					printDecisionResult(cmd, kind, result)
				}
				if missed := len(result.Items) - result.AppliedCount; missed > 0 {
					return fmt.Errorf("%d of %d items could not be %s", missed, len(result.Items), kind.status)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "Reviewer name recorded on the decision (default reviewer.name)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print per-item outcomes as JSON")
	return cmd
}

func printDecisionResult(cmd *cobra.Command, kind decisionKind, result api.DecisionBatchResult) {
	out := cmd.OutOrStdout()
	for _, item := range result.Items {
		switch item.Outcome {
		case api.DecisionApplied:
			fmt.Fprintf(out, "%s %s\n", kind.past, item.ID)
		case api.DecisionNotFound:
			fmt.Fprintf(out, "Item %s not found\n", item.ID)
		case api.DecisionAlreadyDecided:
			fmt.Fprintf(out, "Item %s was already %s\n", item.ID, item.PriorStatus)
		case api.DecisionExpired:
			fmt.Fprintf(out, "Item %s expired before it could be %s\n", item.ID, kind.status)
		default:
			fmt.Fprintf(out, "Item %s could not be %s (decided elsewhere or expired)\n", item.ID, kind.status)
		}
	}
}
