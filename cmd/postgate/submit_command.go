package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"postgate/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		metaPairs []string
		metaJSON  string
		timeout   time.Duration
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "submit [content|-]",
		Short: "Submit content for review",
		Long: `Submit content to the approval queue.

Content is taken from the argument, or read from stdin when the argument is
"-" or omitted. Metadata is built from --meta-json and then --meta pairs;
--meta keys are dotted paths (thread.position=2) and values that parse as
JSON numbers, booleans, or null are stored typed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			metadata, err := buildMetadata(metaJSON, metaPairs)
			if err != nil {
				return err
			}

			var opts []api.SubmitOption
			if cmd.Flags().Changed("timeout") {
				opts = append(opts, api.WithTimeout(timeout))
			}

			return ctx.withService(func(env serviceEnv) error {
				item, err := env.svc.SubmitRaw(cmd.Context(), content, metadata, opts...)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.FromQueueItem(item))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s (expires %s)\n",
					item.ID, humanize.RelTime(item.ExpiresAt, env.svc.Now(), "ago", "from now"))
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&metaPairs, "meta", "m", nil, "Metadata key=value (repeatable)")
	cmd.Flags().StringVar(&metaJSON, "meta-json", "", "Metadata as a JSON object")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Review window for this item (default queue.default_timeout_seconds)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the created item as JSON")
	return cmd
}

func readContent(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read content from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// buildMetadata merges --meta pairs into the --meta-json object. It returns
// nil when neither is set.
func buildMetadata(base string, pairs []string) ([]byte, error) {
	base = strings.TrimSpace(base)
	if base == "" && len(pairs) == 0 {
		return nil, nil
	}
	raw := []byte("{}")
	if base != "" {
		parsed := gjson.Parse(base)
		if !gjson.Valid(base) || !parsed.IsObject() {
			return nil, fmt.Errorf("--meta-json must be a JSON object")
		}
		raw = []byte(base)
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q: expected key=value", pair)
		}
		var err error
		if isTypedLiteral(value) {
			raw, err = sjson.SetRawBytes(raw, key, []byte(value))
		} else {
			raw, err = sjson.SetBytes(raw, key, value)
		}
		if err != nil {
			return nil, fmt.Errorf("set metadata %q: %w", key, err)
		}
	}
	return raw, nil
}

func isTypedLiteral(value string) bool {
	if !gjson.Valid(value) {
		return false
	}
	switch gjson.Parse(value).Type {
	case gjson.Number, gjson.True, gjson.False, gjson.Null:
		return true
	default:
		return false
	}
}
