// Package config assembles build-pipeline and server configuration from
// environment variables and an optional YAML override file, following the
// inputs table in spec.md §6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/petals/internal/build"
	"github.com/dreamware/petals/internal/filter"
)

// BuildConfig holds the environment-sourced inputs to a build invocation,
// before any per-column overrides from a config file are merged in.
type BuildConfig struct {
	DataDir          string
	StoreName        string
	IndexDir         string
	IncludedColumns  []string
	BloomThreshold   int
	SetThreshold     int
	DefaultChunkSize int
	ConfigFile       string
}

// BuildConfigFromEnv reads PETALS_* environment variables: required
// settings terminate the process when missing, optional ones fall back
// to a documented default.
func BuildConfigFromEnv() BuildConfig {
	return BuildConfig{
		DataDir:          mustGetenv("PETALS_DATA_DIR"),
		StoreName:        mustGetenv("PETALS_STORE_NAME"),
		IndexDir:         getenv("PETALS_INDEX_DIR", "./index"),
		IncludedColumns:  splitCSV(getenv("PETALS_INCLUDED_COLUMNS", "")),
		BloomThreshold:   getenvInt("PETALS_BLOOM_THRESHOLD", 10000),
		SetThreshold:     getenvInt("PETALS_SET_THRESHOLD", 1000),
		DefaultChunkSize: getenvInt("PETALS_DEFAULT_CHUNK_SIZE", 4096),
		ConfigFile:       getenv("PETALS_CONFIG_FILE", ""),
	}
}

// ColumnOverride is one column's entry in a YAML config file. FilterType
// and Type apply to that column only. BloomErrorRate, KDTreeRadius and
// FuzzyThreshold are merged by ToPipelineConfig into the single
// pipeline-wide build.Params and so apply to every column; when several
// columns set the same parameter, which value wins is not defined.
type ColumnOverride struct {
	FilterType     string  `yaml:"filter_type"`
	Type           string  `yaml:"type"`
	BloomErrorRate float64 `yaml:"bloom_error_rate"`
	KDTreeRadius   float64 `yaml:"kdtree_radius"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// FileOverrides is the top-level shape of a PETALS_CONFIG_FILE document.
type FileOverrides struct {
	Columns map[string]ColumnOverride `yaml:"columns"`
}

// LoadFileOverrides reads and parses a YAML override file. A blank path
// returns an empty FileOverrides, not an error: the config file is
// optional per spec.md §6.
func LoadFileOverrides(path string) (*FileOverrides, error) {
	if path == "" {
		return &FileOverrides{Columns: map[string]ColumnOverride{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var out FileOverrides
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if out.Columns == nil {
		out.Columns = map[string]ColumnOverride{}
	}
	return &out, nil
}

// ToPipelineConfig merges bc and overrides into a build.Config ready to
// hand to build.New.
func ToPipelineConfig(bc BuildConfig, overrides *FileOverrides) (build.Config, error) {
	cfg := build.DefaultConfig(bc.StoreName)
	cfg.Thresholds = build.Thresholds{BloomThreshold: bc.BloomThreshold, SetThreshold: bc.SetThreshold}

	if len(bc.IncludedColumns) > 0 {
		cfg.IncludedColumns = make(map[string]bool, len(bc.IncludedColumns))
		for _, c := range bc.IncludedColumns {
			cfg.IncludedColumns[c] = true
		}
	}

	cfg.Overrides = make(map[string]filter.Kind)
	cfg.ColumnTypes = make(map[string]filter.Type)
	params := cfg.Params

	for column, o := range overrides.Columns {
		if o.FilterType != "" {
			cfg.Overrides[column] = filter.Kind(o.FilterType)
		}
		if o.Type != "" {
			t, err := parseType(o.Type)
			if err != nil {
				return build.Config{}, fmt.Errorf("config: column %s: %w", column, err)
			}
			cfg.ColumnTypes[column] = t
		}
		if o.BloomErrorRate > 0 {
			params.Bloom.ErrorRate = o.BloomErrorRate
		}
		if o.KDTreeRadius > 0 {
			params.KDTree.Radius = o.KDTreeRadius
		}
		if o.FuzzyThreshold > 0 {
			params.FuzzyString.Threshold = o.FuzzyThreshold
		}
	}
	cfg.Params = params

	return cfg, nil
}

func parseType(s string) (filter.Type, error) {
	switch s {
	case "int":
		return filter.TypeInt, nil
	case "float":
		return filter.TypeFloat, nil
	case "bool":
		return filter.TypeBool, nil
	case "string":
		return filter.TypeString, nil
	case "date":
		return filter.TypeDate, nil
	case "timestamp":
		return filter.TypeTimestamp, nil
	case "interval":
		return filter.TypeInterval, nil
	case "point":
		return filter.TypePoint, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", s)
	}
}

// ServerConfig holds the wire server's listen address and socket
// deadlines.
type ServerConfig struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KVDefaultTTL time.Duration
}

// ServerConfigFromEnv reads PETALS_* environment variables for the serving
// entrypoint.
func ServerConfigFromEnv() ServerConfig {
	return ServerConfig{
		ListenAddr:   getenv("PETALS_LISTEN", ":9090"),
		ReadTimeout:  time.Duration(getenvInt("PETALS_READ_TIMEOUT_SECONDS", 10)) * time.Second,
		WriteTimeout: time.Duration(getenvInt("PETALS_WRITE_TIMEOUT_SECONDS", 10)) * time.Second,
		KVDefaultTTL: time.Duration(getenvInt("PETALS_KV_DEFAULT_TTL_SECONDS", 300)) * time.Second,
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustGetenv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		fmt.Fprintf(os.Stderr, "config: missing required environment variable %s\n", k)
		os.Exit(1)
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
