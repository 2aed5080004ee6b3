package logs

import (
	"strings"

	"github.com/tidwall/gjson"

	"postgate/internal/logging"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter narrows run log lines. Zero values match everything.
type Filter struct {
	ItemID    string
	Component string
	MinLevel  string
}

func (f Filter) empty() bool {
	return f.ItemID == "" && f.Component == "" && f.MinLevel == ""
}

// Match reports whether line passes the filter. Lines that are not JSON only
// pass an empty filter.
func (f Filter) Match(line string) bool {
	if f.empty() {
		return true
	}
	if !gjson.Valid(line) {
		return false
	}
	fields := gjson.GetMany(line, logging.FieldItemID, logging.FieldComponent, "level")
	if f.ItemID != "" && fields[0].String() != f.ItemID {
		return false
	}
	if f.Component != "" && !strings.EqualFold(fields[1].String(), f.Component) {
		return false
	}
	if f.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(f.MinLevel)]
		if !ok {
			return true
		}
		if levelRank[strings.ToLower(fields[2].String())] < want {
			return false
		}
	}
	return true
}

// Render turns a JSON run log line into the console layout:
//
//	2026-03-01T12:00:00.000Z INFO [sweeper] Item 0190f… – expired items rejected count=2
//
// Anything that is not a JSON object is returned unchanged.
func Render(line string) string {
	parsed := gjson.Parse(line)
	if !parsed.IsObject() {
		return line
	}

	var b strings.Builder
	b.WriteString(parsed.Get("ts").String())
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(parsed.Get("level").String()))
	if component := parsed.Get(logging.FieldComponent).String(); component != "" {
		b.WriteString(" [")
		b.WriteString(component)
		b.WriteByte(']')
	}
	if itemID := parsed.Get(logging.FieldItemID).String(); itemID != "" {
		b.WriteString(" Item ")
		b.WriteString(itemID)
	}
	b.WriteString(" – ")
	b.WriteString(parsed.Get("msg").String())

	parsed.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "ts", "level", "msg", logging.FieldComponent, logging.FieldItemID:
			return true
		}
		b.WriteByte(' ')
		b.WriteString(key.String())
		b.WriteByte('=')
		if value.Type == gjson.String && !strings.ContainsAny(value.Str, " =\"") && value.Str != "" {
			b.WriteString(value.Str)
		} else {
			b.WriteString(value.Raw)
		}
		return true
	})
	return b.String()
}
