package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

type roadmapRow struct {
	Title  string `json:"title" yaml:"title"`
	Months int    `json:"months" yaml:"months"`
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"json format", "json", false},
		{"yaml format", "yaml", false},
		{"text format", "text", false},
		{"empty format defaults to text", "", false},
		{"unknown format", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormatter(tt.format, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && errors.CodeOf(err) != errors.ErrCodeConfigInvalid {
				t.Errorf("NewFormatter() code = %s, want %s", errors.CodeOf(err), errors.ErrCodeConfigInvalid)
			}
		})
	}
}

func TestStructuredFormatters(t *testing.T) {
	tests := []struct {
		format  string
		compact bool
		want    []string
	}{
		{"json", false, []string{`"title": "Go in 3 months"`, `"months": 3`}},
		{"json", true, []string{`{"title":"Go in 3 months","months":3}`}},
		{"yaml", false, []string{"title: Go in 3 months", "months: 3"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			f, err := NewFormatter(tt.format, &FormatterOptions{Writer: &buf, Compact: tt.compact})
			if err != nil {
				t.Fatalf("NewFormatter() error = %v", err)
			}
			if err := f.Format(roadmapRow{Title: "Go in 3 months", Months: 3}); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q: %s", want, buf.String())
				}
			}
			if tt.compact && strings.Count(buf.String(), "\n") > 1 {
				t.Errorf("compact output should be a single line, got: %s", buf.String())
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		data    interface{}
		want    string
		wantErr bool
	}{
		{
			name: "string data",
			data: "logged in as ada",
			want: "logged in as ada",
		},
		{
			name: "table",
			data: Table{
				Headers: []string{"ID", "TITLE"},
				Rows:    [][]string{{"r1", "Go in 3 months"}},
			},
			want: "ID  TITLE\nr1  Go in 3 months",
		},
		{
			name:    "struct without text rendering",
			data:    roadmapRow{Title: "Go", Months: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter, err := NewFormatter("text", &FormatterOptions{Writer: &buf})
			if err != nil {
				t.Fatalf("NewFormatter() error = %v", err)
			}

			err = formatter.Format(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("Format() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				output := strings.TrimSpace(buf.String())
				if output != tt.want {
					t.Errorf("Format() output = %q, want %q", output, tt.want)
				}
			}
		})
	}
}
