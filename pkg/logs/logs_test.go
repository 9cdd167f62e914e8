package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestRedactAttr(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: redactAttr}))

	log.Info("issued", "token", "s3cr3t", "Phone", "+989121234567", "token_fp", "ab12cd34")

	out := buf.String()
	if strings.Contains(out, "s3cr3t") || strings.Contains(out, "+989121234567") {
		t.Fatalf("sensitive value leaked: %s", out)
	}
	if !strings.Contains(out, "ab12cd34") {
		t.Fatalf("fingerprint should be kept: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLokiPayload(t *testing.T) {
	lw := &lokiWriter{
		labels: map[string]string{"service": "screening", "env": "test"},
		now:    func() time.Time { return time.Unix(0, 42) },
	}
	body, err := lw.payload([]byte(`{"msg":"quote \" here"}` + "\n"))
	if err != nil {
		t.Fatal(err)
	}

	var got lokiPush
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if len(got.Streams) != 1 || got.Streams[0].Stream["service"] != "screening" {
		t.Fatalf("unexpected stream: %+v", got)
	}
	v := got.Streams[0].Values[0]
	if v[0] != "42" || v[1] != `{"msg":"quote \" here"}` {
		t.Fatalf("unexpected value: %q", v)
	}
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	log := slog.New(h).With("k", "v")

	log.Info("only a")
	log.Warn("both")

	if strings.Count(a.String(), "\n") != 2 {
		t.Fatalf("a got %q", a.String())
	}
	if strings.Count(b.String(), "\n") != 1 || !strings.Contains(b.String(), `"k":"v"`) {
		t.Fatalf("b got %q", b.String())
	}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be enabled through a")
	}
}
