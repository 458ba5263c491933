package session

import (
	"context"
	"testing"

	"github.com/chromedp/cdproto/network"
)

func TestParseCookies(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "two cookies",
			raw:  "qrator_jsid=abc123; region=RU-MOW",
			want: map[string]string{"qrator_jsid": "abc123", "region": "RU-MOW"},
		},
		{
			name: "trailing separator and spaces",
			raw:  "  a = 1 ;b=2; ",
			want: map[string]string{"a": "1", "b": "2"},
		},
		{
			name: "value with equals sign",
			raw:  "token=a=b",
			want: map[string]string{"token": "a=b"},
		},
		{name: "missing equals", raw: "broken", wantErr: true},
		{name: "empty", raw: " ; ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCookies(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCookies(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Fatalf("cookie %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestStaticProviderReturnsCopy(t *testing.T) {
	p, err := NewStaticProvider("a=1")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	first, err := p.Cookies(context.Background(), "https://example.test/")
	if err != nil {
		t.Fatalf("cookies: %v", err)
	}
	first["a"] = "mutated"

	second, err := p.Cookies(context.Background(), "https://example.test/")
	if err != nil {
		t.Fatalf("cookies: %v", err)
	}
	if second["a"] != "1" {
		t.Fatalf("provider state mutated through returned map: %v", second)
	}
}

func TestStaticProviderCancelled(t *testing.T) {
	p, err := NewStaticProvider("a=1")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Cookies(ctx, "https://example.test/"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestCookieMap(t *testing.T) {
	got := cookieMap([]*network.Cookie{
		{Name: "a", Value: "1"},
		nil,
		{Name: "", Value: "ignored"},
		{Name: "b", Value: "2"},
	})
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("cookieMap = %v", got)
	}
}
