// Package config holds the tunables of a sealed segment and reads them from
// YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

var validate = validator.New()

// Config is the full segment configuration.
type Config struct {
	// ChunkRows is the number of rows per column chunk.
	ChunkRows int `yaml:"chunk_rows" validate:"min=1"`

	Mmap         Mmap         `yaml:"mmap"`
	Load         Load         `yaml:"load"`
	InterimIndex InterimIndex `yaml:"interim_index"`
	Resource     Resource     `yaml:"resource"`

	// AllowDropRawWithoutIndex lets vector raw data be dropped even when no
	// index could serve the field afterwards.
	AllowDropRawWithoutIndex bool `yaml:"allow_drop_raw_without_index"`
}

// Mmap controls file backed column chunks.
type Mmap struct {
	Enabled bool `yaml:"enabled"`
	// Dir holds the chunk files. Empty means the OS temp dir.
	Dir string `yaml:"dir"`
	// MinBytes is the smallest column that gets mapped.
	MinBytes int64 `yaml:"min_bytes" validate:"min=0"`
}

// Load bounds remote fetches.
type Load struct {
	FieldMaxMemoryLimit int64 `yaml:"field_max_memory_limit" validate:"min=1"`
	FileSliceSize       int64 `yaml:"file_slice_size" validate:"min=1"`
	// Workers sizes the shared executor. Zero means GOMAXPROCS.
	Workers int `yaml:"workers" validate:"min=0"`
}

// InterimIndex configures the IVF index built from raw vectors on load.
type InterimIndex struct {
	Enabled bool  `yaml:"enabled"`
	NList   int   `yaml:"nlist" validate:"min=1"`
	// NProbe is the number of lists a search visits. Zero visits every
	// list, which answers exactly like brute force.
	NProbe  int   `yaml:"nprobe" validate:"min=0,ltefield=NList"`
	MinRows int64 `yaml:"min_rows" validate:"min=1"`
	MaxIter int   `yaml:"max_iter" validate:"min=1"`
}

// Resource caps memory and IO. Zero disables a cap.
type Resource struct {
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes" validate:"min=0"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec" validate:"min=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ChunkRows: 8192,
		Mmap:      Mmap{MinBytes: 4 << 20},
		Load: Load{
			FieldMaxMemoryLimit: 128 << 20,
			FileSliceSize:       16 << 20,
		},
		InterimIndex: InterimIndex{
			NList:   128,
			MinRows: 4096,
			MaxIter: 25,
		},
	}
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Parse decodes YAML over Default and validates the result. Keys that are
// absent keep their default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads and parses the YAML file at path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
