package reviewer

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"postgate/internal/api"
	"postgate/internal/queue"
)

// renderCard formats one item for review as a two-column table.
func renderCard(item *queue.Item, now time.Time, position, total int, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(cardTitle(position, total))

	tw.AppendRow(table.Row{"ID", item.ID})
	tw.AppendRow(table.Row{"Content", item.Content})
	for _, pair := range api.MetadataPairs(item.Metadata) {
		tw.AppendRow(table.Row{"meta." + pair.Key, pair.Value})
	}
	tw.AppendRow(table.Row{"Submitted", humanize.RelTime(item.CreatedAt, now, "ago", "from now")})
	tw.AppendRow(table.Row{"Expires", expiryLabel(item.ExpiresAt, now)})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, Colors: labelColors(colorize)},
		{Number: 2, WidthMax: 72},
	})
	return tw.Render()
}

func cardTitle(position, total int) string {
	if total <= 1 {
		return "Pending item"
	}
	return "Pending item " + humanize.Comma(int64(position)) + " of " + humanize.Comma(int64(total))
}

func expiryLabel(expires, now time.Time) string {
	if !now.Before(expires) {
		return "expired " + humanize.RelTime(expires, now, "ago", "from now")
	}
	return humanize.RelTime(expires, now, "ago", "from now") + " (" + expires.Local().Format("2006-01-02 15:04") + ")"
}

func labelColors(colorize bool) text.Colors {
	if !colorize {
		return nil
	}
	return text.Colors{text.Bold, text.FgCyan}
}

func colorizeText(s string, colorize bool, colors ...text.Color) string {
	if !colorize || len(colors) == 0 {
		return s
	}
	return text.Colors(colors).Sprint(s)
}

const promptText = "Approve? [y]es / [n]o / [s]kip / [q]uit: "

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 13 {
		return id
	}
	return id[:13] + "…"
}
