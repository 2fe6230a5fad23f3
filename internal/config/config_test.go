package config

import (
	"path/filepath"
	"testing"
)

func TestNewDefault_Validates(t *testing.T) {
	c := NewDefault()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	c := NewDefault()
	c.Global.LogLevel = "TRACE"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	c := NewDefault()
	c.Storage.MetadataBackend = "redis"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for invalid metadata backend")
	}
}

func TestValidate_S3BackendRequiresBucket(t *testing.T) {
	c := NewDefault()
	c.Storage.BlobBackend = "s3"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for s3 backend with no bucket")
	}
	c.Storage.S3.Bucket = "my-bucket"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid config once bucket is set, got %v", err)
	}
}

func TestValidate_RejectsSamePorts(t *testing.T) {
	c := NewDefault()
	c.Global.HealthPort = c.Global.APIPort
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for identical api/health ports")
	}
}

func TestSaveAndLoadFile_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vfskernel.yaml")
	c := NewDefault()
	c.Storage.S3.Bucket = "round-trip-bucket"

	if err := c.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded := &Configuration{}
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Storage.S3.Bucket != "round-trip-bucket" {
		t.Errorf("expected bucket to round-trip, got %q", loaded.Storage.S3.Bucket)
	}
	if loaded.Cache.MaxEntries != c.Cache.MaxEntries {
		t.Errorf("expected cache settings to round-trip")
	}
}

func TestLoadFromEnv_Overlays(t *testing.T) {
	t.Setenv("VFSKERNEL_LOG_LEVEL", "DEBUG")
	t.Setenv("VFSKERNEL_BLOB_BACKEND", "s3")
	t.Setenv("VFSKERNEL_S3_BUCKET", "env-bucket")
	t.Setenv("VFSKERNEL_CACHE_ENABLED", "false")

	c := NewDefault()
	c.LoadFromEnv()

	if c.Global.LogLevel != "DEBUG" {
		t.Errorf("expected log level overlay, got %q", c.Global.LogLevel)
	}
	if c.Storage.BlobBackend != "s3" || c.Storage.S3.Bucket != "env-bucket" {
		t.Errorf("expected storage overlay, got %+v", c.Storage)
	}
	if c.Cache.Enabled {
		t.Errorf("expected cache.enabled overlay to false")
	}
}
