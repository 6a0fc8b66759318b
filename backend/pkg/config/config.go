package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Backend identifies which graph store implementation to wire in at startup.
type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendNeo4j   Backend = "neo4j"
	BackendNeptune Backend = "neptune"
	BackendArango  Backend = "arango"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Graph backend selection
	GraphBackend Backend

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Neptune (stub)
	NeptuneEndpoint string

	// ArangoDB (stub)
	ArangoURL      string
	ArangoDB       string
	ArangoUser     string
	ArangoPassword string

	// Data paths
	DataDir    string // static seed CSVs
	UploadsDir string // user-uploaded CSVs, reapplied on restart

	// HTTP
	CORSOrigins []string

	// Analysis
	MaxCycleDepth int // upper bound on circular-trading chain length
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		GraphBackend:    Backend(getEnv("GRAPH_BACKEND", "memory")),
		Neo4jURI:        getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:       getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:   getEnv("NEO4J_PASSWORD", "gst-graph-2024"),
		NeptuneEndpoint: getEnv("NEPTUNE_ENDPOINT", ""),
		ArangoURL:       getEnv("ARANGO_URL", "http://localhost:8529"),
		ArangoDB:        getEnv("ARANGO_DB", "gst_graph"),
		ArangoUser:      getEnv("ARANGO_USER", "root"),
		ArangoPassword:  getEnv("ARANGO_PASSWORD", ""),
		DataDir:         getEnv("DATA_DIR", "backend/data"),
		UploadsDir:      getEnv("UPLOADS_DIR", "backend/data/uploads"),
		MaxCycleDepth:   getEnvInt("MAX_CYCLE_DEPTH", 5),
	}

	origins := getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000,http://localhost:80")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.GraphBackend {
	case BackendMemory, BackendNeo4j, BackendNeptune, BackendArango:
	default:
		return fmt.Errorf("GRAPH_BACKEND must be one of memory, neo4j, neptune, arango (got %q)", c.GraphBackend)
	}
	if c.GraphBackend == BackendNeo4j {
		if c.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required for the neo4j backend")
		}
		if c.Neo4jUser == "" {
			return fmt.Errorf("NEO4J_USER is required for the neo4j backend")
		}
		if c.Neo4jPassword == "" {
			return fmt.Errorf("NEO4J_PASSWORD is required for the neo4j backend")
		}
	}
	if c.MaxCycleDepth < 2 {
		return fmt.Errorf("MAX_CYCLE_DEPTH must be at least 2 (got %d)", c.MaxCycleDepth)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
