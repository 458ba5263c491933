// Package session supplies the cookies the catalog API requires.
package session

import (
	"context"
	"fmt"
	"strings"
)

// Provider returns a fresh cookie set for pageURL.
type Provider interface {
	Cookies(ctx context.Context, pageURL string) (map[string]string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, pageURL string) (map[string]string, error)

// Cookies calls f.
func (f ProviderFunc) Cookies(ctx context.Context, pageURL string) (map[string]string, error) {
	return f(ctx, pageURL)
}

// StaticProvider replays a fixed cookie set, e.g. copied from a browser.
type StaticProvider struct {
	cookies map[string]string
}

// NewStaticProvider parses a Cookie header style string ("a=1; b=2").
func NewStaticProvider(raw string) (*StaticProvider, error) {
	cookies, err := ParseCookies(raw)
	if err != nil {
		return nil, err
	}
	return &StaticProvider{cookies: cookies}, nil
}

// Cookies returns a copy of the configured cookies.
func (p *StaticProvider) Cookies(ctx context.Context, _ string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(p.cookies))
	for k, v := range p.cookies {
		out[k] = v
	}
	return out, nil
}

// ParseCookies parses "name=value" pairs separated by semicolons.
func ParseCookies(raw string) (map[string]string, error) {
	cookies := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed cookie %q", part)
		}
		cookies[name] = strings.TrimSpace(value)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies in %q", raw)
	}
	return cookies, nil
}
