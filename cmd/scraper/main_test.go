package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-detmir/config"
	"github.com/aluiziolira/go-scrape-detmir/pipeline"
	"github.com/aluiziolira/go-scrape-detmir/session"
)

func TestCreateWriter(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		format string
		want   string
	}{
		{format: "csv", want: "*pipeline.CSVWriter"},
		{format: "json", want: "*pipeline.JSONWriter"},
		{format: "dual", want: "*pipeline.DualWriter"},
		{format: "sqlite", want: "*pipeline.SQLiteWriter"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := createWriter(tt.format, filepath.Join(dir, tt.format, "data.csv"))
			if err != nil {
				t.Fatalf("createWriter(%q): %v", tt.format, err)
			}
			defer w.Close()
			var got string
			switch w.(type) {
			case *pipeline.CSVWriter:
				got = "*pipeline.CSVWriter"
			case *pipeline.JSONWriter:
				got = "*pipeline.JSONWriter"
			case *pipeline.DualWriter:
				got = "*pipeline.DualWriter"
			case *pipeline.SQLiteWriter:
				got = "*pipeline.SQLiteWriter"
			}
			if got != tt.want {
				t.Fatalf("writer type=%s, want %s", got, tt.want)
			}
		})
	}

	if _, err := createWriter("xlsx", filepath.Join(dir, "data.xlsx")); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestNewProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	p, err := newProvider(cfg)
	if err != nil {
		t.Fatalf("newProvider: %v", err)
	}
	if _, ok := p.(*session.ChromeProvider); !ok {
		t.Fatalf("provider=%T, want browser provider by default", p)
	}

	cfg.Cookies = "sid=42"
	p, err = newProvider(cfg)
	if err != nil {
		t.Fatalf("newProvider: %v", err)
	}
	cookies, err := p.Cookies(context.Background(), cfg.CatalogURL)
	if err != nil {
		t.Fatalf("cookies: %v", err)
	}
	if cookies["sid"] != "42" {
		t.Fatalf("cookies=%v", cookies)
	}
}
