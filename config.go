package kvs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/kvs/codec"
	"github.com/hupe1980/kvs/layout"
	"github.com/hupe1980/kvs/snapshot"
	"gopkg.in/yaml.v3"
)

// DefaultSnapshotMaxCount is the number of history slots kept by default.
const DefaultSnapshotMaxCount = 3

// MaxSnapshotMaxCount bounds Config.SnapshotMaxCount.
const MaxSnapshotMaxCount = 1000

// Need tells Open whether a file must exist.
type Need int

const (
	// Optional loads the file if present.
	Optional Need = iota
	// Required fails Open with ErrFileRead if the file is missing.
	Required
)

func (n Need) String() string {
	switch n {
	case Optional:
		return "optional"
	case Required:
		return "required"
	default:
		return fmt.Sprintf("need(%d)", int(n))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (n Need) MarshalText() ([]byte, error) {
	switch n {
	case Optional, Required:
		return []byte(n.String()), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, n)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts "optional"
// and "required" in any case; the empty string is Optional.
func (n *Need) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "optional":
		*n = Optional
	case "required":
		*n = Required
	default:
		return fmt.Errorf("%w: need must be optional or required, got %q", ErrInvalidConfig, text)
	}
	return nil
}

// Config describes one store instance.
type Config struct {
	// Dir is the working directory holding the instance's files.
	Dir string `yaml:"dir"`
	// Instance selects the files inside Dir.
	Instance layout.InstanceID `yaml:"instance"`
	// NeedDefaults controls whether the defaults file must exist.
	NeedDefaults Need `yaml:"need_defaults"`
	// NeedKVS controls whether the current data file must exist.
	NeedKVS Need `yaml:"need_kvs"`
	// SnapshotMaxCount is the number of previous flushes kept.
	SnapshotMaxCount int `yaml:"snapshot_max_count"`
	// Format is the payload format of written data files: json or binary.
	Format string `yaml:"format,omitempty"`
	// Compression of written data files: none, lz4 or zstd.
	Compression string `yaml:"compression,omitempty"`
	// HashAlgorithm for written hash files: sha256 or crc32c.
	HashAlgorithm string `yaml:"hash_algorithm,omitempty"`
	// Codec encodes JSON payloads: json or go-json.
	Codec string `yaml:"codec,omitempty"`
	// ResetOnCorruption opens an empty store instead of failing when the
	// current data file is corrupt or undecodable.
	ResetOnCorruption bool `yaml:"reset_on_corruption,omitempty"`
}

// DefaultConfig returns the configuration used for unset fields.
func DefaultConfig() Config {
	return Config{
		Dir:              ".",
		NeedDefaults:     Optional,
		NeedKVS:          Optional,
		SnapshotMaxCount: DefaultSnapshotMaxCount,
	}
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("kvs: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates it.
// Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	_, err := c.resolve()
	return err
}

// settings are the parsed encoding choices of a Config.
type settings struct {
	encode snapshot.EncodeOptions
	hash   snapshot.Algorithm
	codec  codec.Codec
}

func (c Config) resolve() (settings, error) {
	var s settings
	if c.NeedDefaults != Optional && c.NeedDefaults != Required {
		return s, fmt.Errorf("%w: need_defaults %s", ErrInvalidConfig, c.NeedDefaults)
	}
	if c.NeedKVS != Optional && c.NeedKVS != Required {
		return s, fmt.Errorf("%w: need_kvs %s", ErrInvalidConfig, c.NeedKVS)
	}
	if c.SnapshotMaxCount < 0 || c.SnapshotMaxCount > MaxSnapshotMaxCount {
		return s, fmt.Errorf("%w: snapshot_max_count must be in [0, %d], got %d", ErrInvalidConfig, MaxSnapshotMaxCount, c.SnapshotMaxCount)
	}

	var err error
	if s.encode.Format, err = snapshot.ParseFormat(c.Format); err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if s.encode.Compression, err = snapshot.ParseCompression(c.Compression); err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if s.hash, err = snapshot.ParseAlgorithm(c.HashAlgorithm); err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	var ok bool
	if s.codec, ok = codec.ByName(c.Codec); !ok {
		return s, fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, c.Codec)
	}
	s.encode.Codec = s.codec
	return s, nil
}
