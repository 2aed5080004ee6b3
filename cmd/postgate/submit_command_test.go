package main

import (
	"strings"
	"testing"
)

func TestBuildMetadata(t *testing.T) {
	cases := []struct {
		name    string
		base    string
		pairs   []string
		want    string
		wantErr string
	}{
		{name: "nothing set", want: ""},
		{name: "string value", pairs: []string{"channel=ops"}, want: `{"channel":"ops"}`},
		{name: "typed values", pairs: []string{"n=3", "ok=true", "gone=null"}, want: `{"n":3,"ok":true,"gone":null}`},
		{name: "nested path", pairs: []string{"thread.position=2"}, want: `{"thread":{"position":2}}`},
		{name: "value with equals", pairs: []string{"expr=a=b"}, want: `{"expr":"a=b"}`},
		{name: "quoted stays string", pairs: []string{`label="7"`}, want: `{"label":"\"7\""}`},
		{name: "merge onto json", base: `{"source":"agent"}`, pairs: []string{"channel=ops"}, want: `{"source":"agent","channel":"ops"}`},
		{name: "pair overrides json", base: `{"channel":"web"}`, pairs: []string{"channel=ops"}, want: `{"channel":"ops"}`},
		{name: "json only", base: `{"a":[1,2]}`, want: `{"a":[1,2]}`},
		{name: "json array rejected", base: `[1]`, wantErr: "must be a JSON object"},
		{name: "invalid json rejected", base: `{"a":`, wantErr: "must be a JSON object"},
		{name: "missing equals", pairs: []string{"channel"}, wantErr: "expected key=value"},
		{name: "empty key", pairs: []string{"=x"}, wantErr: "expected key=value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := buildMetadata(tc.base, tc.pairs)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("buildMetadata = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestReadContent(t *testing.T) {
	got, err := readContent(strings.NewReader("ignored"), []string{"inline"})
	if err != nil || got != "inline" {
		t.Fatalf("expected inline argument, got %q (err %v)", got, err)
	}
	got, err = readContent(strings.NewReader("line one\nline two\n"), []string{"-"})
	if err != nil || got != "line one\nline two" {
		t.Fatalf("expected stdin content, got %q (err %v)", got, err)
	}
}
