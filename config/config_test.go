package config

import (
	"os"
	"path/filepath"
	"testing"
)

func resetConfig() {
	configInstance = &Config{
		Batch: batchConfig{
			Size:                 1024 * 8,
			EnableParallelRead:   true,
			MaxMemoryBeforeSpill: uint64(gigaByte) * 2,
			MaxFileSizeMB:        500,
			ShouldDownload:       true,
			MaxDownloadSizeMB:    10,
		},
		Eval: evalConfig{
			MaxGroups: 0,
		},
	}
}

func writeTempYaml(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	resetConfig()
	cfg := GetConfig()
	if cfg.Batch.Size != 8192 {
		t.Errorf("expected default batch size 8192, got %d", cfg.Batch.Size)
	}
	if !cfg.Batch.EnableParallelRead {
		t.Error("parallel read should default on")
	}
	if cfg.Batch.MaxMemoryBeforeSpill != 2147483648 {
		t.Errorf("expected 2GB spill threshold, got %d", cfg.Batch.MaxMemoryBeforeSpill)
	}
	if cfg.Batch.MaxFileSizeMB != 500 {
		t.Errorf("expected 500MB file cap, got %d", cfg.Batch.MaxFileSizeMB)
	}
	if !cfg.Batch.ShouldDownload || cfg.Batch.MaxDownloadSizeMB != 10 {
		t.Errorf("unexpected download defaults: %v %d", cfg.Batch.ShouldDownload, cfg.Batch.MaxDownloadSizeMB)
	}
	if cfg.Eval.MaxGroups != 0 {
		t.Errorf("group cap should default unbounded, got %d", cfg.Eval.MaxGroups)
	}
}

func TestGetConfigSingleton(t *testing.T) {
	resetConfig()
	if GetConfig() != GetConfig() {
		t.Error("GetConfig should hand out the same instance")
	}
}

func TestDecodeRejectsNonYaml(t *testing.T) {
	resetConfig()
	err := Decode("config.json")
	if err == nil {
		t.Fatal("expected an error for a non-yaml extension")
	}
	if err.Error() != "file must be a .yaml or .yml file" {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestDecodeMissingFile(t *testing.T) {
	resetConfig()
	if err := Decode("does-not-exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestDecodeMergesBatchSection(t *testing.T) {
	resetConfig()
	path := writeTempYaml(t, `
batch:
  size: 256
  enable_parallel_read: false
  max_download_size_mb: 50
`)
	if err := Decode(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := GetConfig()
	if cfg.Batch.Size != 256 {
		t.Errorf("expected batch size 256, got %d", cfg.Batch.Size)
	}
	if cfg.Batch.EnableParallelRead {
		t.Error("parallel read should be off")
	}
	if cfg.Batch.MaxDownloadSizeMB != 50 {
		t.Errorf("expected 50MB download cap, got %d", cfg.Batch.MaxDownloadSizeMB)
	}
	// untouched keys keep their defaults
	if cfg.Batch.MaxFileSizeMB != 500 {
		t.Errorf("unrelated key changed: %d", cfg.Batch.MaxFileSizeMB)
	}
}

func TestDecodeMergesEvalSection(t *testing.T) {
	resetConfig()
	path := writeTempYaml(t, `
eval:
  max_groups: 1000
`)
	if err := Decode(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if GetConfig().Eval.MaxGroups != 1000 {
		t.Errorf("expected group cap 1000, got %d", GetConfig().Eval.MaxGroups)
	}
	if GetConfig().Batch.Size != 8192 {
		t.Error("batch section should be untouched")
	}
}

func TestDecodePartialOverridesKeepDefaults(t *testing.T) {
	resetConfig()
	path := writeTempYaml(t, `
batch:
  size: 1
`)
	if err := Decode(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := GetConfig()
	if cfg.Batch.Size != 1 {
		t.Errorf("expected batch size 1, got %d", cfg.Batch.Size)
	}
	if !cfg.Batch.ShouldDownload || cfg.Batch.MaxDownloadSizeMB != 10 || cfg.Eval.MaxGroups != 0 {
		t.Error("everything outside batch.size should keep its default")
	}
}

func TestLoadSecretesFromEnvironment(t *testing.T) {
	resetConfig()
	t.Setenv("S3_ENDPOINT_URL", "s3.example.com")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_BUCKET_NAME", "frames")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")

	LoadSecretes()
	s := GetConfig().Secretes
	if s.EndpointURL != "s3.example.com" || s.Region != "us-east-1" ||
		s.BucketName != "frames" || s.AccessKey != "ak" || s.SecretKey != "sk" {
		t.Errorf("secretes not loaded from environment: %+v", s)
	}
}
