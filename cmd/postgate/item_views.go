package main

import (
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"postgate/internal/api"
	"postgate/internal/queue"
)

const contentColumnWidth = 48

func renderItemTable(items []*queue.Item, now time.Time, colorize bool) string {
	columns := []tableColumn{
		{header: "ID"},
		{header: "Status"},
		{header: "Content", maxWidth: contentColumnWidth},
		{header: "Submitted"},
		{header: "Deadline"},
		{header: "By"},
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			statusColumn(string(item.Status), colorize),
			truncate(singleLine(item.Content), contentColumnWidth),
			relativeTo(item.CreatedAt, now),
			deadlineLabel(item, now),
			dash(item.DecidedBy),
		})
	}
	return renderTable(columns, rows)
}

func renderItemDetail(item *queue.Item, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Item " + item.ID)
	tw.AppendRow(table.Row{"Status", string(item.Status)})
	tw.AppendRow(table.Row{"Content", item.Content})
	tw.AppendRow(table.Row{"Submitted", formatInstant(item.CreatedAt, now)})
	tw.AppendRow(table.Row{"Expires", formatInstant(item.ExpiresAt, now)})
	if item.DecidedAt != nil {
		tw.AppendRow(table.Row{"Decided", formatInstant(*item.DecidedAt, now)})
		tw.AppendRow(table.Row{"Decided by", dash(item.DecidedBy)})
	}
	pairs := api.MetadataPairs(item.Metadata)
	if len(pairs) > 0 {
		tw.AppendSeparator()
		for _, pair := range pairs {
			tw.AppendRow(table.Row{"meta." + pair.Key, pair.Value})
		}
	}
	return tw.Render()
}

func formatInstant(t, now time.Time) string {
	return strings.Join([]string{t.Local().Format("2006-01-02 15:04:05"), "(" + relativeTo(t, now) + ")"}, " ")
}
