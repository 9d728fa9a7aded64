package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
	SourceCSV      = "csv"
)

// Config represents the top-level YAML configuration.
type Config struct {
	Source     Source     `yaml:"source"`
	Discovery  Discovery  `yaml:"discovery"`
	Checkpoint Checkpoint `yaml:"checkpoint"`
	Output     Output     `yaml:"output"`
}

// Source describes where the relation is read from.
type Source struct {
	Type       string     `yaml:"type"`
	Connection Connection `yaml:"connection"`
	// Path is the SQLite database or CSV file.
	Path string `yaml:"path"`
	// Table is "schema.table" or "table" (schema defaults to public on PostgreSQL).
	Table          string   `yaml:"table"`
	Where          string   `yaml:"where"`
	Limit          int      `yaml:"limit"`
	ExcludeColumns []string `yaml:"exclude_columns"`
	NullEqualsNull *bool    `yaml:"null_equals_null"`
	CSV            CSV      `yaml:"csv"`
}

// CSV holds CSV parsing options.
type CSV struct {
	Delimiter  string   `yaml:"delimiter"`
	NoHeader   bool     `yaml:"no_header"`
	NullTokens []string `yaml:"null_tokens"`
}

// Connection holds database connection parameters.
type Connection struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Discovery holds the search parameters.
type Discovery struct {
	ErrorThreshold     float64 `yaml:"error_threshold"`
	MaxDeterminantSize int     `yaml:"max_determinant_size"`
	Workers            int     `yaml:"workers"`
	MaxLevelNodes      int     `yaml:"max_level_nodes"`
}

// Checkpoint configures the SQLite checkpoint store. An empty path disables it.
type Checkpoint struct {
	Path string `yaml:"path"`
}

// Output selects the result format and destination ("" or "-" is stdout).
type Output struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// DSN builds a PostgreSQL connection string.
func (c *Connection) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode,
	)
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config data, applies environment fallbacks and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyEnv fills in empty fields from environment variables.
// YAML values take precedence; env vars are used only as fallback.
func (c *Config) applyEnv() error {
	if c.Discovery.ErrorThreshold == 0 {
		if s := envOr("FD_ERROR_THRESHOLD"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("parsing FD_ERROR_THRESHOLD: %w", err)
			}
			c.Discovery.ErrorThreshold = v
		}
	}

	if c.Source.Type != SourcePostgres {
		return nil
	}
	conn := &c.Source.Connection
	if conn.Host == "" {
		conn.Host = envOr("PGHOST", "POSTGRES_HOST")
	}
	if conn.Port == 0 {
		if s := envOr("PGPORT", "POSTGRES_PORT"); s != "" {
			if p, err := strconv.Atoi(s); err == nil {
				conn.Port = p
			}
		}
	}
	if conn.Database == "" {
		conn.Database = envOr("PGDATABASE", "POSTGRES_DB")
	}
	if conn.User == "" {
		conn.User = envOr("PGUSER", "POSTGRES_USER")
	}
	if conn.Password == "" {
		conn.Password = envOr("PGPASSWORD", "POSTGRES_PASSWORD")
	}
	if conn.SSLMode == "" {
		conn.SSLMode = envOr("PGSSLMODE")
	}
	return nil
}

// envOr returns the first non-empty value from the given env var names.
func envOr(names ...string) string {
	for _, n := range names {
		if n == "" {
			continue
		}
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// validate checks required fields and fills defaults.
func (c *Config) validate() error {
	src := &c.Source
	switch src.Type {
	case SourcePostgres:
		if src.Connection.Host == "" {
			return fmt.Errorf("source.connection.host is required")
		}
		if src.Connection.Port == 0 {
			src.Connection.Port = 5432
		}
		if src.Connection.Database == "" {
			return fmt.Errorf("source.connection.database is required")
		}
		if src.Connection.User == "" {
			return fmt.Errorf("source.connection.user is required")
		}
		if src.Connection.SSLMode == "" {
			src.Connection.SSLMode = "disable"
		}
		if src.Table == "" {
			return fmt.Errorf("source.table is required")
		}
	case SourceSQLite:
		if src.Path == "" {
			return fmt.Errorf("source.path is required")
		}
		if src.Table == "" {
			return fmt.Errorf("source.table is required")
		}
	case SourceCSV:
		if src.Path == "" {
			return fmt.Errorf("source.path is required")
		}
		if src.Where != "" {
			return fmt.Errorf("source.where is not supported for csv sources")
		}
		if len([]rune(src.CSV.Delimiter)) > 1 {
			return fmt.Errorf("source.csv.delimiter must be a single character")
		}
	case "":
		return fmt.Errorf("source.type is required")
	default:
		return fmt.Errorf("unknown source.type: %s (supported: postgres, sqlite, csv)", src.Type)
	}
	if src.Limit < 0 {
		return fmt.Errorf("source.limit must not be negative")
	}

	d := &c.Discovery
	if d.ErrorThreshold < 0 || d.ErrorThreshold > 1 {
		return fmt.Errorf("discovery.error_threshold must be within [0, 1]")
	}
	if d.MaxDeterminantSize < 0 {
		return fmt.Errorf("discovery.max_determinant_size must not be negative")
	}
	if d.Workers < 0 {
		return fmt.Errorf("discovery.workers must not be negative")
	}
	if d.MaxLevelNodes < 0 {
		return fmt.Errorf("discovery.max_level_nodes must not be negative")
	}

	if c.Output.Format == "" {
		c.Output.Format = "text"
	}
	return nil
}

// NullsEqual reports whether NULL values compare equal when grouping tuples.
// It defaults to true.
func (s *Source) NullsEqual() bool {
	return s.NullEqualsNull == nil || *s.NullEqualsNull
}

// SchemaAndTable splits Table into schema and table name, defaulting the schema to public.
func (s *Source) SchemaAndTable() (string, string) {
	if i := strings.IndexByte(s.Table, '.'); i >= 0 {
		return s.Table[:i], s.Table[i+1:]
	}
	return "public", s.Table
}

// ExcludeSet returns a set of excluded column names for O(1) lookup.
func (s *Source) ExcludeSet() map[string]bool {
	set := make(map[string]bool, len(s.ExcludeColumns))
	for _, c := range s.ExcludeColumns {
		set[c] = true
	}
	return set
}
