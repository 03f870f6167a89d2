package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	kiloByte = 1024
	megaByte = 1024 * kiloByte
	gigaByte = 1024 * megaByte
)

type Config struct {
	Batch    batchConfig    `yaml:"batch"`
	Eval     evalConfig     `yaml:"eval"`
	Secretes secretesConfig `yaml:"-"`
}

type batchConfig struct {
	Size                 int    `yaml:"size"`
	EnableParallelRead   bool   `yaml:"enable_parallel_read"`
	MaxMemoryBeforeSpill uint64 `yaml:"max_memory_before_spill"`
	MaxFileSizeMB        int    `yaml:"max_file_size_mb"` // max size of a single file
	ShouldDownload       bool   `yaml:"should_download"`
	MaxDownloadSizeMB    int    `yaml:"max_download_size_mb"` // max size to pull from external sources like S3
}

type evalConfig struct {
	// cap on groups materialized by the per-group aggregation path; 0 means unbounded
	MaxGroups int `yaml:"max_groups"`
}

// secretesConfig never comes from yaml; it is filled from the environment so
// credentials stay out of checked-in config files.
type secretesConfig struct {
	EndpointURL string
	Region      string
	BucketName  string
	AccessKey   string
	SecretKey   string
}

var configInstance *Config = &Config{
	Batch: batchConfig{
		Size:                 1024 * 8, // rows per batch
		EnableParallelRead:   true,
		MaxMemoryBeforeSpill: uint64(gigaByte) * 2, // 2GB
		MaxFileSizeMB:        500,                  // 500MB
		// should we download files from external sources like S3
		// if so whats the max size to download, if its greater than dont download the file locally
		ShouldDownload:    true,
		MaxDownloadSizeMB: 10, // 10MB
	},
	Eval: evalConfig{
		MaxGroups: 0,
	},
}

func GetConfig() *Config {
	return configInstance
}

// overwrite global instance with loaded config
func Decode(filePath string) error {
	suffix := strings.Split(filePath, ".")[len(strings.Split(filePath, "."))-1]
	if suffix != "yaml" && suffix != "yml" {
		return errors.New("file must be a .yaml or .yml file")
	}
	r, err := os.Open(filePath)
	if err != nil {
		return err
	}
	config := make(map[string]interface{})
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	mergeConfig(configInstance, config)
	return nil
}

// LoadSecretes pulls the S3 credential block from the environment. A .env
// file in the working directory is honored when present; missing files are
// fine since production sets real environment variables.
func LoadSecretes() {
	_ = godotenv.Load()
	configInstance.Secretes = secretesConfig{
		EndpointURL: os.Getenv("S3_ENDPOINT_URL"),
		Region:      os.Getenv("S3_REGION"),
		BucketName:  os.Getenv("S3_BUCKET_NAME"),
		AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		SecretKey:   os.Getenv("S3_SECRET_KEY"),
	}
}

func mergeConfig(dst *Config, src map[string]interface{}) {
	// =============================
	// BATCH
	// =============================
	if batch, ok := src["batch"].(map[string]interface{}); ok {
		if v, ok := batch["size"].(int); ok {
			dst.Batch.Size = v
		}
		if v, ok := batch["enable_parallel_read"].(bool); ok {
			dst.Batch.EnableParallelRead = v
		}
		if v, ok := batch["max_memory_before_spill"].(int); ok {
			dst.Batch.MaxMemoryBeforeSpill = uint64(v)
		}
		if v, ok := batch["max_file_size_mb"].(int); ok {
			dst.Batch.MaxFileSizeMB = v
		}
		if v, ok := batch["should_download"].(bool); ok {
			dst.Batch.ShouldDownload = v
		}
		if v, ok := batch["max_download_size_mb"].(int); ok {
			dst.Batch.MaxDownloadSizeMB = v
		}
	}

	// =============================
	// EVAL
	// =============================
	if eval, ok := src["eval"].(map[string]interface{}); ok {
		if v, ok := eval["max_groups"].(int); ok {
			dst.Eval.MaxGroups = v
		}
	}
}
