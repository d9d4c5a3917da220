package pollinations

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"oktabot/internal/errclass"
)

func jpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestURLEncodesPromptAndDimensions(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://img.example/prompt/", Model: "turbo"}, nil)
	got := client.URL(Request{Prompt: "a misty harbor at dawn", AspectRatio: "9:16", Seed: 7})
	if !strings.HasPrefix(got, "https://img.example/prompt/a%20misty%20harbor%20at%20dawn?") {
		t.Fatalf("unexpected url %q", got)
	}
	for _, want := range []string{"width=1080", "height=1920", "model=turbo", "nologo=true", "seed=7"} {
		if !strings.Contains(got, want) {
			t.Fatalf("url %q missing %s", got, want)
		}
	}
	if fallback := client.URL(Request{Prompt: "x", AspectRatio: "2:1"}); !strings.Contains(fallback, "width=1920") {
		t.Fatalf("expected 16:9 fallback, got %q", fallback)
	}
}

func TestGenerateWritesPNG(t *testing.T) {
	payload := jpegFixture(t, 64, 48)
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "images", "I-P1-S1.png")
	client := NewClient(Config{BaseURL: srv.URL + "/prompt"}, srv.Client())
	if err := client.Generate(context.Background(), Request{Prompt: "lighthouse", AspectRatio: "16:9"}, dst); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotPath != "/prompt/lighthouse" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" || cfg.Width != 64 || cfg.Height != 48 {
		t.Fatalf("unexpected output %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestGenerateErrorsClassify(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   []byte
		want   errclass.ErrorType
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: []byte("slow down"), want: errclass.Quota},
		{name: "bad gateway", status: http.StatusBadGateway, want: errclass.Network},
		{name: "truncated", status: http.StatusOK, body: []byte("oops"), want: errclass.Network},
		{name: "html page", status: http.StatusOK, body: bytes.Repeat([]byte("<html>"), 40), want: errclass.Network},
	}
	classifier := errclass.New(errclass.Keywords{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write(tc.body)
			}))
			defer srv.Close()

			dst := filepath.Join(t.TempDir(), "out.png")
			err := NewClient(Config{BaseURL: srv.URL}, srv.Client()).Generate(context.Background(), Request{Prompt: "p"}, dst)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := classifier.ClassifyError(err); got != tc.want {
				t.Fatalf("classified %q as %s, want %s", err, got, tc.want)
			}
			if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
				t.Fatalf("no file should be written on failure, stat err %v", statErr)
			}
		})
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	client := NewClient(Config{}, nil)
	if err := client.Generate(context.Background(), Request{Prompt: "  "}, filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Fatal("expected empty prompt error")
	}
}

func TestGenerateRejectsOversizedResponse(t *testing.T) {
	previous := maxResponseSize
	maxResponseSize = 1024
	t.Cleanup(func() { maxResponseSize = previous })

	payload := jpegFixture(t, 64, 48)
	if len(payload) <= 1024 {
		payload = append(payload, make([]byte, 2048)...)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "out.png")
	err := NewClient(Config{BaseURL: srv.URL}, srv.Client()).Generate(context.Background(), Request{Prompt: "p"}, dst)
	if err == nil || !strings.Contains(err.Error(), "exceeds 1024 bytes") {
		t.Fatalf("expected size limit error, got %v", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatalf("no file should be written for an oversized body, stat err %v", statErr)
	}
}

func TestStatusErrorTruncatesMultibyteBody(t *testing.T) {
	body := []byte(strings.Repeat("é", 119) + "日本語のエラー")
	err := statusError(http.StatusBadRequest, body)
	msg := err.Error()
	if !utf8.ValidString(msg) {
		t.Fatalf("error message is not valid UTF-8: %q", msg)
	}
	if !strings.HasSuffix(msg, "…") {
		t.Fatalf("expected truncated snippet, got %q", msg)
	}
	if strings.Contains(msg, "エラー") {
		t.Fatalf("snippet was not truncated: %q", msg)
	}
}
