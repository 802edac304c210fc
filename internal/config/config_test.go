package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/distwrite/mswriter/internal/mswriter"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	opts, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.BufferSize != mswriter.DefaultBufferSize {
		t.Fatalf("expected default buffer size, got %d", opts.BufferSize)
	}
	if opts.RequestTimeoutMs != mswriter.DefaultRequestTimeoutMs {
		t.Fatalf("expected default request timeout, got %d", opts.RequestTimeoutMs)
	}
	if opts.CompressionCodec != "none" {
		t.Fatalf("expected default codec none, got %q", opts.CompressionCodec)
	}
}

func TestLoadFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mswriter.json")
	data := []byte(`{"streams":["a","b","c"],"buffer_size":4096,"compression_codec":"lz4"}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	opts, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(opts.Streams) != 3 {
		t.Fatalf("expected 3 streams, got %v", opts.Streams)
	}
	if opts.BufferSize != 4096 {
		t.Fatalf("expected overridden buffer size, got %d", opts.BufferSize)
	}
	if opts.CompressionCodec != "lz4" {
		t.Fatalf("expected lz4, got %q", opts.CompressionCodec)
	}
	if opts.RequestTimeoutMs != mswriter.DefaultRequestTimeoutMs {
		t.Fatalf("expected default request timeout untouched, got %d", opts.RequestTimeoutMs)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mswriter.json")
	data := []byte(`{"streams":["a","b"],"request_timeout_ms":500}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	os.Setenv("MSWRITER_REQUEST_TIMEOUT_MS", "750")
	t.Cleanup(func() { os.Unsetenv("MSWRITER_REQUEST_TIMEOUT_MS") })

	opts, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.RequestTimeoutMs != 750 {
		t.Fatalf("expected env override to win, got %d", opts.RequestTimeoutMs)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	opts, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.BufferSize != mswriter.DefaultBufferSize {
		t.Fatalf("expected default buffer size, got %d", opts.BufferSize)
	}
}
