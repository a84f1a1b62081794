package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration. Values come from defaults, then an
// optional YAML file (RIVER_CONFIG), then environment variables, in that
// order of precedence.
type Config struct {
	Addr      string // HTTP listen address
	OllamaURL string // Ollama API base URL
	Model     string // Ollama generation model
	SeedText  string // fallback seed the stream starts from and resets to
	DataDir   string // directory for the pidfile and event log

	Interval   time.Duration // pacing delay between generation cycles
	GenTimeout time.Duration // per-call budget for one model invocation

	MaxContext int // rolling context budget (bytes)
	MaxStream  int // visible stream display cap (bytes)
	MaxWordLen int // longest accepted contribution (runes)
	MaxChunk   int // longest continuation kept per cycle (bytes)

	NumPredict    int     // tokens requested per generation
	Temperature   float64 // sampling temperature
	TopP          float64 // nucleus sampling mass
	TopK          int     // top-k sampling cutoff
	RepeatPenalty float64 // anti-repetition penalty
	SampleSeed    int     // fixed sampling seed; 0 leaves it unset
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:          ":5000",
		OllamaURL:     "http://localhost:11434",
		Model:         "llama3.2",
		SeedText:      "Once upon a time...",
		DataDir:       "./data",
		Interval:      3 * time.Second,
		GenTimeout:    60 * time.Second,
		MaxContext:    1000,
		MaxStream:     3500,
		MaxWordLen:    15,
		MaxChunk:      78,
		NumPredict:    30,
		Temperature:   0.7,
		TopP:          0.9,
		TopK:          40,
		RepeatPenalty: 1.1,
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file named in RIVER_CONFIG (if any), overlaid by environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("RIVER_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// fileConfig mirrors Config for the YAML file. Zero values mean "not set"
// and keep the previous layer's value.
type fileConfig struct {
	Addr      string `yaml:"addr"`
	OllamaURL string `yaml:"ollama_url"`
	Model     string `yaml:"model"`
	SeedText  string `yaml:"seed_text"`
	DataDir   string `yaml:"data_dir"`

	Interval   string `yaml:"interval"`
	GenTimeout string `yaml:"gen_timeout"`

	MaxContext int `yaml:"max_context"`
	MaxStream  int `yaml:"max_stream"`
	MaxWordLen int `yaml:"max_word_len"`
	MaxChunk   int `yaml:"max_chunk"`

	NumPredict    int     `yaml:"num_predict"`
	Temperature   float64 `yaml:"temperature"`
	TopP          float64 `yaml:"top_p"`
	TopK          int     `yaml:"top_k"`
	RepeatPenalty float64 `yaml:"repeat_penalty"`
	SampleSeed    int     `yaml:"sample_seed"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	setStr(&c.Addr, fc.Addr)
	setStr(&c.OllamaURL, fc.OllamaURL)
	setStr(&c.Model, fc.Model)
	setStr(&c.SeedText, fc.SeedText)
	setStr(&c.DataDir, fc.DataDir)
	setInt(&c.MaxContext, fc.MaxContext)
	setInt(&c.MaxStream, fc.MaxStream)
	setInt(&c.MaxWordLen, fc.MaxWordLen)
	setInt(&c.MaxChunk, fc.MaxChunk)
	setInt(&c.NumPredict, fc.NumPredict)
	setInt(&c.TopK, fc.TopK)
	setInt(&c.SampleSeed, fc.SampleSeed)
	setFloat(&c.Temperature, fc.Temperature)
	setFloat(&c.TopP, fc.TopP)
	setFloat(&c.RepeatPenalty, fc.RepeatPenalty)

	if fc.Interval != "" {
		d, err := time.ParseDuration(fc.Interval)
		if err != nil {
			return fmt.Errorf("interval: %w", err)
		}
		c.Interval = d
	}
	if fc.GenTimeout != "" {
		d, err := time.ParseDuration(fc.GenTimeout)
		if err != nil {
			return fmt.Errorf("gen_timeout: %w", err)
		}
		c.GenTimeout = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Addr = envOr("RIVER_ADDR", c.Addr)
	c.OllamaURL = envOr("OLLAMA_URL", c.OllamaURL)
	c.Model = envOr("RIVER_MODEL", c.Model)
	c.SeedText = envOr("RIVER_SEED_TEXT", c.SeedText)
	c.DataDir = envOr("RIVER_DATA_DIR", c.DataDir)

	var err error
	if c.Interval, err = envDuration("RIVER_INTERVAL", c.Interval); err != nil {
		return err
	}
	if c.GenTimeout, err = envDuration("RIVER_GEN_TIMEOUT", c.GenTimeout); err != nil {
		return err
	}
	if c.MaxContext, err = envInt("RIVER_MAX_CONTEXT", c.MaxContext); err != nil {
		return err
	}
	if c.MaxStream, err = envInt("RIVER_MAX_STREAM", c.MaxStream); err != nil {
		return err
	}
	if c.MaxWordLen, err = envInt("RIVER_MAX_WORD_LEN", c.MaxWordLen); err != nil {
		return err
	}
	if c.MaxChunk, err = envInt("RIVER_MAX_CHUNK", c.MaxChunk); err != nil {
		return err
	}
	if c.NumPredict, err = envInt("RIVER_NUM_PREDICT", c.NumPredict); err != nil {
		return err
	}
	if c.TopK, err = envInt("RIVER_TOP_K", c.TopK); err != nil {
		return err
	}
	if c.SampleSeed, err = envInt("RIVER_SAMPLE_SEED", c.SampleSeed); err != nil {
		return err
	}
	if c.Temperature, err = envFloat("RIVER_TEMPERATURE", c.Temperature); err != nil {
		return err
	}
	if c.TopP, err = envFloat("RIVER_TOP_P", c.TopP); err != nil {
		return err
	}
	if c.RepeatPenalty, err = envFloat("RIVER_REPEAT_PENALTY", c.RepeatPenalty); err != nil {
		return err
	}
	return nil
}

// Validate rejects configurations that would break the buffer and queue
// invariants.
func (c Config) Validate() error {
	if c.SeedText == "" {
		return fmt.Errorf("seed text must not be empty")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.GenTimeout <= 0 {
		return fmt.Errorf("gen timeout must be positive, got %v", c.GenTimeout)
	}
	if c.MaxWordLen < 1 {
		return fmt.Errorf("max word length must be at least 1, got %d", c.MaxWordLen)
	}
	// An injected word lands at the tail of the rolling context as
	// " [[word]]"; the budget must fit one so trimming can never drop a
	// word before the next generation sees it.
	if c.MaxContext <= c.MaxWordLen+5 {
		return fmt.Errorf("max context %d too small for word length %d", c.MaxContext, c.MaxWordLen)
	}
	if c.MaxStream < c.MaxContext {
		return fmt.Errorf("max stream %d smaller than max context %d", c.MaxStream, c.MaxContext)
	}
	if c.MaxChunk < 1 {
		return fmt.Errorf("max chunk must be at least 1, got %d", c.MaxChunk)
	}
	if c.NumPredict < 1 {
		return fmt.Errorf("num predict must be at least 1, got %d", c.NumPredict)
	}
	return nil
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
