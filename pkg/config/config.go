package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cohesivestack/valgo"
	"github.com/spf13/viper"
	"github.com/theapemachine/hivemind/pkg/errors"
	"github.com/theapemachine/hivemind/pkg/provider"
)

/*
Config is the decoded form of config.yml.
*/
type Config struct {
	Data      Data      `mapstructure:"data"`
	Log       Log       `mapstructure:"log"`
	Ingest    Ingest    `mapstructure:"ingest"`
	Retrieval Retrieval `mapstructure:"retrieval"`
	Provider  Provider  `mapstructure:"provider"`
	Vector    Vector    `mapstructure:"vector"`
	Graph     Graph     `mapstructure:"graph"`
	Objects   Objects   `mapstructure:"objects"`
	Server    Server    `mapstructure:"server"`
}

type Data struct {
	Dir string `mapstructure:"dir"`
}

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type Ingest struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ExtractEvery int `mapstructure:"extract_every"`
}

type Retrieval struct {
	HistoryLimit int    `mapstructure:"history_limit"`
	NeighborK    int    `mapstructure:"neighbor_k"`
	DirectK      int    `mapstructure:"direct_k"`
	Fusion       string `mapstructure:"fusion"`
	Match        string `mapstructure:"match"`
}

type Provider struct {
	Kind       string `mapstructure:"kind"`
	Model      string `mapstructure:"model"`
	EmbedModel string `mapstructure:"embed_model"`
	BaseURL    string `mapstructure:"base_url"`
	Retries    int    `mapstructure:"retries"`
}

type Vector struct {
	Kind   string `mapstructure:"kind"`
	Qdrant Qdrant `mapstructure:"qdrant"`
}

type Qdrant struct {
	URL        string `mapstructure:"url"`
	Collection string `mapstructure:"collection"`
}

type Graph struct {
	Neo4j Neo4j `mapstructure:"neo4j"`
}

type Neo4j struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type Objects struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

type Server struct {
	Addr      string `mapstructure:"addr"`
	Documents string `mapstructure:"documents"`
}

/*
Load decodes v into a Config, expands a leading "~" in the data directory
and validates the result.
*/
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	cfg.Data.Dir = expandHome(cfg.Data.Dir)
	cfg.Log.File = expandHome(cfg.Log.File)
	cfg.Server.Documents = expandHome(cfg.Server.Documents)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) Validate() error {
	val := valgo.Is(
		valgo.String(cfg.Data.Dir, "data.dir").Not().Blank(),
		valgo.Int(cfg.Ingest.ChunkSize, "ingest.chunk_size").GreaterThan(0),
		valgo.Int(cfg.Ingest.ExtractEvery, "ingest.extract_every").GreaterThan(0),
		valgo.Int(cfg.Retrieval.HistoryLimit, "retrieval.history_limit").GreaterThan(0),
		valgo.Int(cfg.Retrieval.NeighborK, "retrieval.neighbor_k").GreaterThan(0),
		valgo.Int(cfg.Retrieval.DirectK, "retrieval.direct_k").GreaterThan(0),
		valgo.String(cfg.Retrieval.Fusion, "retrieval.fusion").InSlice([]string{"ordered", "set"}),
		valgo.String(cfg.Retrieval.Match, "retrieval.match").InSlice([]string{"substring", "word"}),
		valgo.String(cfg.Provider.Kind, "provider.kind").InSlice([]string{
			string(provider.KindGoogle),
			string(provider.KindOpenAI),
			string(provider.KindAnthropic),
			string(provider.KindOllama),
			string(provider.KindNone),
		}),
		valgo.Int(cfg.Provider.Retries, "provider.retries").GreaterOrEqualTo(0),
		valgo.String(cfg.Vector.Kind, "vector.kind").InSlice([]string{"memory", "qdrant"}),
	)

	if cfg.Vector.Kind == "qdrant" {
		val.Is(
			valgo.String(cfg.Vector.Qdrant.URL, "vector.qdrant.url").Not().Blank(),
			valgo.String(cfg.Vector.Qdrant.Collection, "vector.qdrant.collection").Not().Blank(),
			valgo.String(cfg.Provider.EmbedModel, "provider.embed_model").Not().Blank(),
		)
	}

	if !val.Valid() {
		return fmt.Errorf("config: invalid: %s", describe(val.Error()))
	}

	return nil
}

/*
describe flattens a valgo error into "key: message" pairs sorted by key, so
the failing config keys show up in the error text.
*/
func describe(err error) string {
	raw, marshalErr := json.Marshal(err)

	if marshalErr != nil {
		return err.Error()
	}

	var fields map[string][]string

	if json.Unmarshal(raw, &fields) != nil || len(fields) == 0 {
		return err.Error()
	}

	keys := make([]string, 0, len(fields))

	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))

	for _, key := range keys {
		parts = append(parts, key+": "+strings.Join(fields[key], ", "))
	}

	return strings.Join(parts, "; ")
}

// SessionDB is the path of the SQLite session log inside the data directory.
func (cfg *Config) SessionDB() string {
	return filepath.Join(cfg.Data.Dir, "history.db")
}

// RetryConfig returns nil when retries are disabled.
func (cfg *Config) RetryConfig() *errors.RetryConfig {
	if cfg.Provider.Retries <= 0 {
		return nil
	}

	retry := errors.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Provider.Retries + 1
	return retry
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()

	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
