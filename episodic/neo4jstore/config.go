package neo4jstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/elyra-labs/lmm"
)

// Config holds the connection settings for a Neo4j-backed store.
type Config struct {
	// URI is the bolt/neo4j connection URI (e.g., "bolt://localhost:7687").
	URI string `yaml:"uri" json:"uri"`

	// Username and Password authenticate against the database.
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`

	// Database selects a named database. Empty uses the server default.
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	// BraidID scopes the store to one braid. All writes and reads stay
	// inside this braid.
	BraidID string `yaml:"braid_id" json:"braid_id"`
}

// DefaultConfig returns a config pointing at a local Neo4j instance.
func DefaultConfig() Config {
	return Config{
		URI:      "bolt://localhost:7687",
		Username: "neo4j",
	}
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, lmm.NewConfigurationError("neo4jstore.LoadConfig", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, lmm.NewConfigurationError("neo4jstore.LoadConfig",
			fmt.Errorf("parse %s: %w", path, err))
	}
	return cfg, nil
}

// Validate checks that the required connection fields are present.
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("%w: uri is required", lmm.ErrInvalidConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", lmm.ErrInvalidConfig)
	}
	if c.BraidID == "" {
		return fmt.Errorf("%w: braid_id is required", lmm.ErrInvalidConfig)
	}
	return nil
}
