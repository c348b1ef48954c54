package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Duration is a JSON and YAML friendly wrapper around time.Duration that
// accepts human readable strings such as "150ms" in configuration files while
// still allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration as its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", value.Kind)
	}
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	return d.parse(value.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the tunable parameters of terrain generation.
type Config struct {
	World    WorldConfig    `json:"world" yaml:"world"`
	Terrain  TerrainConfig  `json:"terrain" yaml:"terrain"`
	Relax    RelaxConfig    `json:"relax" yaml:"relax"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Trace    TraceConfig    `json:"trace" yaml:"trace"`
}

type WorldConfig struct {
	Seed      uint64  `json:"seed" yaml:"seed"`
	ChunkSize int     `json:"chunkSize" yaml:"chunkSize"` // hexagon side in lattice steps
	CellSize  float64 `json:"cellSize" yaml:"cellSize"`   // target quad side in world units
}

// Noise kinds understood by the height field.
const (
	NoiseSimplex = "simplex"
	NoiseValue   = "value"
)

type TerrainConfig struct {
	Noise       string  `json:"noise" yaml:"noise"`
	Frequency   float64 `json:"frequency" yaml:"frequency"`
	Amplitude   float64 `json:"amplitude" yaml:"amplitude"`
	Octaves     int     `json:"octaves" yaml:"octaves"`
	Persistence float64 `json:"persistence" yaml:"persistence"`
	Lacunarity  float64 `json:"lacunarity" yaml:"lacunarity"`
	HeightStep  float64 `json:"heightStep" yaml:"heightStep"` // quantization step
	WaterLevel  float64 `json:"waterLevel" yaml:"waterLevel"`
}

type RelaxConfig struct {
	Iterations int     `json:"iterations" yaml:"iterations"`
	Step       float64 `json:"step" yaml:"step"`
}

type PipelineConfig struct {
	QueueCapacity int      `json:"queueCapacity" yaml:"queueCapacity"`
	FrameInterval Duration `json:"frameInterval" yaml:"frameInterval"` // e.g. "16ms"
	RelaxWorkers  int      `json:"relaxWorkers" yaml:"relaxWorkers"`   // 0 runs every relaxation job concurrently
}

type TraceConfig struct {
	Dir string `json:"dir" yaml:"dir"` // empty disables tracing
}

// MaxChunkSize keeps the per-chunk cell count inside a 16-bit id space.
const MaxChunkSize = 32

// Load reads configuration from a JSON or YAML file if provided. An empty path
// returns defaults.
// Format selects the decoder used by Parse.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatOf picks the format from a file extension; anything that is not
// .yaml or .yml is JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads the configuration at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, FormatOf(path))
}

// Parse decodes data over the defaults and validates the result. JSON
// documents are checked against the embedded schema first.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := Default()
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	default:
		if err := validateSchema(data); err != nil {
			return nil, fmt.Errorf("config schema: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:      42,
			ChunkSize: 4,
			CellSize:  1.0,
		},
		Terrain: TerrainConfig{
			Noise:       NoiseSimplex,
			Frequency:   0.02,
			Amplitude:   12,
			Octaves:     4,
			Persistence: 0.45,
			Lacunarity:  2.0,
			HeightStep:  0.5,
			WaterLevel:  0,
		},
		Relax: RelaxConfig{
			Iterations: 16,
			Step:       1.0,
		},
		Pipeline: PipelineConfig{
			QueueCapacity: 100,
			FrameInterval: Duration(16 * time.Millisecond),
			RelaxWorkers:  0,
		},
	}
}

func (c *Config) Validate() error {
	if c.World.ChunkSize <= 0 || c.World.ChunkSize > MaxChunkSize {
		return fmt.Errorf("world.chunkSize must be between 1 and %d", MaxChunkSize)
	}
	if c.World.CellSize <= 0 {
		return errors.New("world.cellSize must be positive")
	}
	switch c.Terrain.Noise {
	case NoiseSimplex, NoiseValue:
	default:
		return fmt.Errorf("terrain.noise %q is not one of %q, %q", c.Terrain.Noise, NoiseSimplex, NoiseValue)
	}
	if c.Terrain.Octaves <= 0 {
		return errors.New("terrain.octaves must be positive")
	}
	if c.Terrain.Frequency <= 0 || c.Terrain.Lacunarity <= 0 {
		return errors.New("terrain frequency and lacunarity must be positive")
	}
	if c.Terrain.Persistence < 0 {
		return errors.New("terrain.persistence cannot be negative")
	}
	if c.Terrain.HeightStep <= 0 {
		return errors.New("terrain.heightStep must be positive")
	}
	if c.Relax.Iterations < 0 {
		return errors.New("relax.iterations cannot be negative")
	}
	if c.Relax.Step < 0 {
		return errors.New("relax.step cannot be negative")
	}
	if c.Pipeline.QueueCapacity <= 0 {
		return errors.New("pipeline.queueCapacity must be positive")
	}
	if c.Pipeline.FrameInterval <= 0 {
		return errors.New("pipeline.frameInterval must be positive")
	}
	if c.Pipeline.RelaxWorkers < 0 {
		return errors.New("pipeline.relaxWorkers cannot be negative")
	}
	return nil
}

//go:embed config.schema.json
var schemaSource string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("config.schema.json", schemaSource)
	})
	return schema, schemaErr
}

// validateSchema checks the shape of a JSON document before it is decoded
// over the defaults, so misspelled sections are reported instead of ignored.
func validateSchema(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return s.Validate(doc)
}
