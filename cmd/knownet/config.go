package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"
)

// fileConfig mirrors the TOML config file. Flags given on the command line
// take precedence over file values, which take precedence over flag defaults.
type fileConfig struct {
	CacheRoot      string  `toml:"cache_root"`
	Snapshot       string  `toml:"snapshot"`
	MatchThreshold float64 `toml:"match_threshold"`
	Depth          int     `toml:"depth"`

	AI    aiConfig    `toml:"ai"`
	Crawl crawlConfig `toml:"crawl"`
	Log   logConfig   `toml:"log"`
}

type aiConfig struct {
	Embedder       string `toml:"embedder"`  // openai or hugot
	Extractor      string `toml:"extractor"` // openai or anthropic
	EmbeddingHost  string `toml:"embedding_host"`
	ExtractorHost  string `toml:"extractor_host"`
	EmbeddingModel string `toml:"embedding_model"`
	ExtractorModel string `toml:"extractor_model"`
	ModelDir       string `toml:"model_dir"`
	MaxInputChars  int    `toml:"max_input_chars"`
	BatchSize      int    `toml:"batch_size"`
}

type crawlConfig struct {
	MaxConcurrency    int      `toml:"max_concurrency"`
	MaxRetries        int      `toml:"max_retries"`
	RetryDelay        duration `toml:"retry_delay"`
	RetryClientErrors bool     `toml:"retry_client_errors"`
	MaxLinks          int      `toml:"max_links"`
	UserAgent         string   `toml:"user_agent"`
}

type logConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// duration decodes TOML strings such as "1s" or "250ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// loadConfig reads path. An empty path yields an empty config. Unknown keys
// are rejected so typos do not pass silently.
func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

func stringSetting(c *cli.Context, flag, fromFile string) string {
	if c.IsSet(flag) || fromFile == "" {
		return c.String(flag)
	}
	return fromFile
}

func intSetting(c *cli.Context, flag string, fromFile int) int {
	if c.IsSet(flag) || fromFile == 0 {
		return c.Int(flag)
	}
	return fromFile
}

func floatSetting(c *cli.Context, flag string, fromFile float64) float64 {
	if c.IsSet(flag) || fromFile == 0 {
		return c.Float64(flag)
	}
	return fromFile
}

func durationSetting(c *cli.Context, flag string, fromFile duration) time.Duration {
	if c.IsSet(flag) || fromFile.Duration == 0 {
		return c.Duration(flag)
	}
	return fromFile.Duration
}
