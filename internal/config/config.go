// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quarry Contributors

package config

import (
	"errors"
	"log/slog"
	"math"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quarry-kg/quarry/internal/embed"
	"github.com/quarry-kg/quarry/internal/gateway"
	"github.com/quarry-kg/quarry/internal/kg"
	"github.com/quarry-kg/quarry/internal/linker"
	"github.com/quarry-kg/quarry/internal/pathfinder"
	"github.com/quarry-kg/quarry/internal/resolver"
	"github.com/quarry-kg/quarry/internal/sparql"
	"github.com/quarry-kg/quarry/internal/store"
	qerr "github.com/quarry-kg/quarry/pkg/errors"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "QUARRY"

// Config is the top-level Quarry configuration.
type Config struct {
	SPARQL   SPARQLConfig   `mapstructure:"sparql" yaml:"sparql"`
	Graph    GraphConfig    `mapstructure:"graph" yaml:"graph"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Refine   RefineConfig   `mapstructure:"refine" yaml:"refine"`
	Path     PathConfig     `mapstructure:"path" yaml:"path"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Linker   ProviderConfig `mapstructure:"linker" yaml:"linker"`
	Embed    ProviderConfig `mapstructure:"embed" yaml:"embed"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// SPARQLConfig points at the triple store endpoint.
type SPARQLConfig struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Delay     time.Duration `mapstructure:"delay" yaml:"delay"`
}

// GraphConfig describes the knowledge graph vocabulary and label filters.
type GraphConfig struct {
	EntityBase        string   `mapstructure:"entity_base" yaml:"entity_base"`
	EntityPrefix      string   `mapstructure:"entity_prefix" yaml:"entity_prefix"`
	RelationBase      string   `mapstructure:"relation_base" yaml:"relation_base"`
	RelationPrefix    string   `mapstructure:"relation_prefix" yaml:"relation_prefix"`
	Language          string   `mapstructure:"language" yaml:"language"`
	Denylist          string   `mapstructure:"denylist" yaml:"denylist"`
	LabelPattern      string   `mapstructure:"label_pattern" yaml:"label_pattern"`
	ExcludedRelations []string `mapstructure:"excluded_relations" yaml:"excluded_relations"`
	WikiSite          string   `mapstructure:"wiki_site" yaml:"wiki_site"`
}

type ResolverConfig struct {
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"`
	Depth     int `mapstructure:"depth" yaml:"depth"`
	MaxDepth  int `mapstructure:"max_depth" yaml:"max_depth"`
}

type RefineConfig struct {
	Marker string `mapstructure:"marker" yaml:"marker"`
}

// PathConfig weighs the cost terms of the path search.
type PathConfig struct {
	Alpha       float64 `mapstructure:"alpha" yaml:"alpha"`
	Beta        float64 `mapstructure:"beta" yaml:"beta"`
	Gamma       float64 `mapstructure:"gamma" yaml:"gamma"`
	EntityLimit int     `mapstructure:"entity_limit" yaml:"entity_limit"`
}

// StorageConfig selects the cache backend.
type StorageConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend"`
	Dir     string      `mapstructure:"dir" yaml:"dir"`
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// ServerConfig controls the HTTP lookup service.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen" yaml:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// ProviderConfig holds the model and credentials of a hosted model provider.
type ProviderConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sparql.endpoint", "https://query.wikidata.org/sparql")
	v.SetDefault("sparql.user_agent", "quarry/dev (https://github.com/quarry-kg/quarry)")
	v.SetDefault("sparql.timeout", "60s")
	v.SetDefault("sparql.delay", gateway.DefaultDelay.String())

	v.SetDefault("graph.entity_base", "http://www.wikidata.org/entity/")
	v.SetDefault("graph.entity_prefix", "Q")
	v.SetDefault("graph.relation_base", "http://www.wikidata.org/prop/direct/")
	v.SetDefault("graph.relation_prefix", "P")
	v.SetDefault("graph.language", "en")
	v.SetDefault("graph.denylist", "Wiki")
	v.SetDefault("graph.label_pattern", "^[A-Za-z0-9 -]+$")
	v.SetDefault("graph.excluded_relations", []string{"P1343"})
	v.SetDefault("graph.wiki_site", "https://en.wikipedia.org/")

	v.SetDefault("resolver.chunk_size", resolver.DefaultChunkSize)
	v.SetDefault("resolver.depth", resolver.DefaultDepth)
	v.SetDefault("resolver.max_depth", sparql.DefaultMaxDepth)
	v.SetDefault("refine.marker", "Wikimedia")

	v.SetDefault("path.alpha", pathfinder.DefaultWeights.Alpha)
	v.SetDefault("path.beta", pathfinder.DefaultWeights.Beta)
	v.SetDefault("path.gamma", pathfinder.DefaultWeights.Gamma)
	v.SetDefault("path.entity_limit", pathfinder.DefaultEntityLimit)

	v.SetDefault("storage.backend", store.DefaultBackend)
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.redis.addr", "127.0.0.1:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "quarry")

	v.SetDefault("server.listen", "127.0.0.1:5000")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("linker.provider", "annotated")
	v.SetDefault("linker.model", linker.DefaultAnthropicModel)
	v.SetDefault("linker.api_key", "")
	v.SetDefault("linker.base_url", "")

	v.SetDefault("embed.provider", "openai")
	v.SetDefault("embed.model", embed.DefaultOpenAIModel)
	v.SetDefault("embed.api_key", "")
	v.SetDefault("embed.base_url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// SetupEnv enables QUARRY_-prefixed environment overrides, with "." in keys
// mapped to "_".
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, qerr.Errorf(qerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, qerr.Errorf(qerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Load reads configuration from path (or defaults only when empty) with
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, qerr.Errorf(qerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// Validate checks the configuration for logical errors, collecting every
// problem rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateSPARQL()...)
	errs = append(errs, c.validateGraph()...)
	errs = append(errs, c.validateResolver()...)
	errs = append(errs, c.validatePath()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateProviders()...)
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func invalid(format string, args ...any) error {
	return qerr.Errorf(qerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateSPARQL() []error {
	var errs []error

	u, err := url.Parse(c.SPARQL.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, invalid("sparql.endpoint must be an absolute http(s) URL, got %q", c.SPARQL.Endpoint))
	}
	if strings.TrimSpace(c.SPARQL.UserAgent) == "" {
		errs = append(errs, invalid("sparql.user_agent must not be empty"))
	}
	if c.SPARQL.Timeout <= 0 {
		errs = append(errs, invalid("sparql.timeout must be greater than 0, got %s", c.SPARQL.Timeout))
	}
	if c.SPARQL.Delay < 0 {
		errs = append(errs, invalid("sparql.delay must not be negative, got %s", c.SPARQL.Delay))
	}

	return errs
}

func (c *Config) validateGraph() []error {
	var errs []error
	g := c.Graph

	for key, val := range map[string]string{
		"graph.entity_base":     g.EntityBase,
		"graph.entity_prefix":   g.EntityPrefix,
		"graph.relation_base":   g.RelationBase,
		"graph.relation_prefix": g.RelationPrefix,
		"graph.language":        g.Language,
	} {
		if val == "" {
			errs = append(errs, invalid("%s must not be empty", key))
		}
	}
	if g.LabelPattern != "" {
		if _, err := regexp.Compile(g.LabelPattern); err != nil {
			errs = append(errs, invalid("graph.label_pattern does not compile: %w", err))
		}
	}
	relations := kg.Namespace{Base: g.RelationBase, Prefix: g.RelationPrefix}
	for i, id := range g.ExcludedRelations {
		if !relations.ValidID(id) {
			errs = append(errs, invalid("graph.excluded_relations[%d] is not a relation id, got %q", i, id))
		}
	}

	return errs
}

func (c *Config) validateResolver() []error {
	var errs []error

	if c.Resolver.ChunkSize < 1 {
		errs = append(errs, invalid("resolver.chunk_size must be greater than 0, got %d", c.Resolver.ChunkSize))
	}
	if c.Resolver.MaxDepth < 1 || c.Resolver.MaxDepth > sparql.DepthLimit {
		errs = append(errs, invalid("resolver.max_depth must be between 1 and %d, got %d", sparql.DepthLimit, c.Resolver.MaxDepth))
	}
	if c.Resolver.Depth < 1 {
		errs = append(errs, invalid("resolver.depth must be greater than 0, got %d", c.Resolver.Depth))
	} else if c.Resolver.MaxDepth >= 1 && c.Resolver.Depth > c.Resolver.MaxDepth {
		errs = append(errs, invalid("resolver.depth must not exceed resolver.max_depth (%d), got %d", c.Resolver.MaxDepth, c.Resolver.Depth))
	}

	return errs
}

func (c *Config) validatePath() []error {
	var errs []error

	for key, w := range map[string]float64{"path.alpha": c.Path.Alpha, "path.beta": c.Path.Beta, "path.gamma": c.Path.Gamma} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			errs = append(errs, invalid("%s must be a finite number of at least 0, got %v", key, w))
		}
	}
	if c.Path.EntityLimit < 1 {
		errs = append(errs, invalid("path.entity_limit must be greater than 0, got %d", c.Path.EntityLimit))
	}

	return errs
}

var validBackends = map[string]bool{"json": true, "sqlite": true, "redis": true}

func (c *Config) validateStorage() []error {
	var errs []error

	if !validBackends[c.Storage.Backend] {
		errs = append(errs, invalid("storage.backend must be one of [json, sqlite, redis], got %q", c.Storage.Backend))
	}
	if c.Storage.Backend != "redis" && c.Storage.Dir == "" {
		errs = append(errs, invalid("storage.dir must not be empty"))
	}
	if c.Storage.Backend == "redis" && c.Storage.Redis.Addr == "" {
		errs = append(errs, invalid("storage.redis.addr must not be empty"))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		return append(errs, invalid("server.listen must not be empty"))
	}
	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		return append(errs, invalid("server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err))
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, invalid("server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, invalid("server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateProviders() []error {
	var errs []error

	switch c.Linker.Provider {
	case "annotated", "anthropic":
	default:
		errs = append(errs, invalid("linker.provider must be one of [annotated, anthropic], got %q", c.Linker.Provider))
	}
	if c.Embed.Provider != "openai" {
		errs = append(errs, invalid("embed.provider must be one of [openai], got %q", c.Embed.Provider))
	}

	return errs
}

// ParseLevel maps a log level name onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, invalid("log.level must be one of [debug, info, warn, error], got %q", s)
	}
	return level, nil
}

// Compiler returns the query compiler described by the graph section.
func (c *Config) Compiler() sparql.Compiler {
	return sparql.Compiler{
		Entities:          kg.Namespace{Base: c.Graph.EntityBase, Prefix: c.Graph.EntityPrefix},
		Relations:         kg.Namespace{Base: c.Graph.RelationBase, Prefix: c.Graph.RelationPrefix},
		Language:          c.Graph.Language,
		Denylist:          c.Graph.Denylist,
		LabelPattern:      c.Graph.LabelPattern,
		ExcludedRelations: c.Graph.ExcludedRelations,
		WikiSite:          c.Graph.WikiSite,
		MaxDepth:          c.Resolver.MaxDepth,
	}
}

func (c *Config) EndpointConfig() gateway.EndpointConfig {
	return gateway.EndpointConfig{URL: c.SPARQL.Endpoint, UserAgent: c.SPARQL.UserAgent, Timeout: c.SPARQL.Timeout}
}

func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Backend: c.Storage.Backend,
		Dir:     c.Storage.Dir,
		Redis: store.RedisConfig{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
			Prefix:   c.Storage.Redis.Prefix,
		},
	}
}

func (c *Config) ResolverConfig() resolver.Config {
	return resolver.Config{ChunkSize: c.Resolver.ChunkSize, Depth: c.Resolver.Depth}
}

func (c *Config) PathConfig() pathfinder.Config {
	return pathfinder.Config{
		Weights:     pathfinder.Weights{Alpha: c.Path.Alpha, Beta: c.Path.Beta, Gamma: c.Path.Gamma},
		EntityLimit: c.Path.EntityLimit,
	}
}

func (c *Config) LinkerConfig() linker.Config {
	return linker.Config(c.Linker)
}

func (c *Config) EmbedConfig() embed.Config {
	return embed.Config(c.Embed)
}
