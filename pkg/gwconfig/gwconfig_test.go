package gwconfig

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen != DefaultSocketPath {
		t.Fatalf("got listen %q, want default", cfg.Listen)
	}
	if cfg.Cloud != defaultCloudMode {
		t.Fatalf("got cloud %q, want default", cfg.Cloud)
	}
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knotgw.yaml")
	cfg := Default()
	cfg.Listen = "/tmp/custom.sock"
	cfg.Redis.Addr = "10.0.0.1:6379"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Listen != "/tmp/custom.sock" || loaded.Redis.Addr != "10.0.0.1:6379" {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestValidateRejectsRelativeListenPath(t *testing.T) {
	cfg := Default()
	cfg.Listen = "relative.sock"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for a relative listen path")
	}
}

func TestValidateRejectsUnknownCloudBackend(t *testing.T) {
	cfg := Default()
	cfg.Cloud = "aws-iot"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for an unsupported cloud backend")
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for an unknown log level")
	}
}
