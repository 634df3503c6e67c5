package logging

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// sensitiveFields are attribute and struct field names whose values never
// reach a log sink. masq matches them exactly.
var sensitiveFields = []string{
	"password", "Password",
	"secret", "token", "auth", "authorization", "bearer", "cookie", "session",
	"apiKey", "apikey", "api_key",
	"accessToken", "access_token",
	"refreshToken", "refresh_token",
	"credential", "credentials",
	"privateKey", "private_key",
	"secretKey", "secret_key",
	"database_url", "dsn", "URL",
}

// sensitiveValues catch secrets that appear under innocent keys.
var sensitiveValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
	regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`),                             // Authorization values
	regexp.MustCompile(`^(postgres|postgresql|redis|rediss)://[^:/@]+:[^@]+@`),   // DSN with password
}

func redactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveFields)+len(sensitiveValues)+2)

	for _, name := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	opts = append(opts, masq.WithFieldPrefix("secret"), masq.WithFieldPrefix("private"))

	for _, re := range sensitiveValues {
		opts = append(opts, masq.WithRegex(re))
	}

	return opts
}

// Redactor returns a slog ReplaceAttr func that masks the built-in sensitive
// fields and values, plus anything matched by extra.
func Redactor(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(redactOptions(), extra...)...)
}

// redacting applies replace to every attribute before delegating. It gives
// handlers without slog.HandlerOptions, like the charm console, the same
// masking as the JSON and text handlers.
type redacting struct {
	next    slog.Handler
	replace func(groups []string, a slog.Attr) slog.Attr
	groups  []string
}

func (h *redacting) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redacting) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler signature
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.replace(h.groups, a))
		return true
	})

	return h.next.Handle(ctx, out)
}

func (h *redacting) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.replace(h.groups, a)
	}

	return &redacting{next: h.next.WithAttrs(masked), replace: h.replace, groups: h.groups}
}

func (h *redacting) WithGroup(name string) slog.Handler {
	groups := append(append([]string(nil), h.groups...), name)
	return &redacting{next: h.next.WithGroup(name), replace: h.replace, groups: groups}
}
