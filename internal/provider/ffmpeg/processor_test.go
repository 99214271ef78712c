package ffmpeg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(path, []byte("raw video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcess_copies_when_ffmpeg_missing(t *testing.T) {
	p := New(t.TempDir(), discardLogger())
	p.lookPath = func(string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	}

	in := writeInput(t)
	out, err := p.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("Process must fall back, not fail: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "raw video bytes" {
		t.Errorf("fallback copy content = %q", data)
	}
}

func TestProcess_prefers_nvenc_when_available(t *testing.T) {
	var commands [][]string
	p := New(t.TempDir(), discardLogger())
	p.lookPath = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	p.runCmd = func(_ context.Context, name string, args ...string) ([]byte, error) {
		commands = append(commands, append([]string{name}, args...))
		if len(args) > 0 && args[len(args)-1] == "-encoders" {
			return []byte("V....D h264_nvenc  NVIDIA NVENC H.264 encoder"), nil
		}
		// Simulate ffmpeg writing its output file.
		return nil, os.WriteFile(args[len(args)-1], []byte("encoded"), 0o644)
	}

	out, err := p.Process(context.Background(), writeInput(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	encode := strings.Join(commands[len(commands)-1], " ")
	if !strings.Contains(encode, "h264_nvenc") {
		t.Errorf("expected nvenc encoder, command: %s", encode)
	}
	if !strings.Contains(encode, "delogo") {
		t.Errorf("expected delogo filter, command: %s", encode)
	}
}

func TestProcess_falls_back_to_libx264(t *testing.T) {
	var encodeCmd string
	p := New(t.TempDir(), discardLogger())
	p.lookPath = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	p.runCmd = func(_ context.Context, name string, args ...string) ([]byte, error) {
		if len(args) > 0 && args[len(args)-1] == "-encoders" {
			return []byte("V....D libx264  H.264 software encoder"), nil
		}
		encodeCmd = strings.Join(args, " ")
		return nil, os.WriteFile(args[len(args)-1], []byte("encoded"), 0o644)
	}

	if _, err := p.Process(context.Background(), writeInput(t)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(encodeCmd, "libx264") {
		t.Errorf("expected libx264 encoder, command: %s", encodeCmd)
	}
}

func TestProcess_crop_fallback_when_delogo_fails(t *testing.T) {
	var filters []string
	p := New(t.TempDir(), discardLogger())
	p.lookPath = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	p.runCmd = func(_ context.Context, name string, args ...string) ([]byte, error) {
		if len(args) > 0 && args[len(args)-1] == "-encoders" {
			return []byte("libx264"), nil
		}
		for i, a := range args {
			if a == "-vf" {
				filters = append(filters, args[i+1])
			}
		}
		if len(filters) > 0 && strings.Contains(filters[len(filters)-1], "delogo") {
			return []byte("Unknown filter 'delogo'"), errors.New("exit status 1")
		}
		return nil, os.WriteFile(args[len(args)-1], []byte("cropped"), 0o644)
	}

	out, err := p.Process(context.Background(), writeInput(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "cropped" {
		t.Errorf("output = %q, want crop pass result", data)
	}
	if len(filters) != 2 || !strings.Contains(filters[1], "crop") {
		t.Errorf("expected delogo then crop attempts, got %v", filters)
	}
}

func TestProcess_copies_when_all_passes_fail(t *testing.T) {
	p := New(t.TempDir(), discardLogger())
	p.lookPath = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	p.runCmd = func(_ context.Context, name string, args ...string) ([]byte, error) {
		if len(args) > 0 && args[len(args)-1] == "-encoders" {
			return []byte("libx264"), nil
		}
		return []byte("boom"), errors.New("exit status 1")
	}

	in := writeInput(t)
	out, err := p.Process(context.Background(), in)
	if err != nil {
		t.Fatalf("Process must degrade to a copy: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "raw video bytes" {
		t.Errorf("expected unmodified copy, got %q", data)
	}
}

func TestProcess_missing_input(t *testing.T) {
	p := New(t.TempDir(), discardLogger())
	if _, err := p.Process(context.Background(), filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Error("expected error for missing input")
	}
}
