package config

import (
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

// DefaultThreshold is the euclidean distance threshold used when neither
// MATCH_THRESHOLD nor a known model profile provides one.
const DefaultThreshold = 0.6

// DefaultEmbeddingDim is used when EMBEDDING_DIM is unset and the model is unknown.
const DefaultEmbeddingDim = 128

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Matching  MatchingConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	FaceIndex FaceIndexConfig
	Models    ModelsConfig `env:"-"`
}

type ServerConfig struct {
	Host           string   `env:"WEB_HOST" envDefault:"0.0.0.0"`
	Port           int      `env:"WEB_PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"WEB_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes   int64    `env:"WEB_MAX_BODY_BYTES" envDefault:"10485760"` // 10 MB, large base64 photos
}

type DatabaseConfig struct {
	Driver       string `env:"DATABASE_DRIVER" envDefault:"postgres"` // postgres or mariadb
	URL          string `env:"DATABASE_URL"`                          // PostgreSQL URL or MariaDB DSN
	MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
}

type EmbeddingConfig struct {
	Backend             string        `env:"EMBEDDING_BACKEND" envDefault:"http"` // http or dlib
	URL                 string        `env:"EMBEDDING_URL" envDefault:"http://localhost:8000"`
	Model               string        `env:"EMBEDDING_MODEL" envDefault:"dlib_face_recognition_resnet_model_v1"`
	Dim                 int           `env:"EMBEDDING_DIM"` // resolved from the model profile when unset
	DlibModelsDir       string        `env:"DLIB_MODELS_DIR" envDefault:"./models"`
	StartupTimeout      time.Duration `env:"EMBEDDING_STARTUP_TIMEOUT" envDefault:"60s"`
	Timeout             time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"30s"`
	Concurrency         int           `env:"EXTRACT_CONCURRENCY" envDefault:"4"`
	QueueTimeout        time.Duration `env:"EXTRACT_QUEUE_TIMEOUT" envDefault:"5s"`
	MaxImageSize        int           `env:"MAX_IMAGE_SIZE" envDefault:"1920"`
	RejectMultipleFaces bool          `env:"REJECT_MULTIPLE_FACES" envDefault:"false"`
}

type MatchingConfig struct {
	Threshold          float64 `env:"MATCH_THRESHOLD"` // resolved from the model profile when unset
	DuplicateFaceCheck bool    `env:"DUPLICATE_FACE_CHECK" envDefault:"false"`
}

type SecurityConfig struct {
	CredentialHashing     string `env:"CREDENTIAL_HASHING" envDefault:"bcrypt"` // plain or bcrypt
	BcryptCost            int    `env:"BCRYPT_COST" envDefault:"10"`
	HideAuthFailureReason bool   `env:"HIDE_AUTH_FAILURE_REASON" envDefault:"true"`
	AdminAPIKey           string `env:"ADMIN_API_KEY"` // admin routes are disabled when empty
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"` // console or json
}

type FaceIndexConfig struct {
	Backend string `env:"FACE_INDEX" envDefault:"hnsw"` // hnsw, store or none
	Path    string `env:"FACE_INDEX_PATH"`               // optional, index is rebuilt on startup if empty
}

type ModelsConfig struct {
	Models map[string]ModelProfile `yaml:"models"`
}

type ModelProfile struct {
	Dim       int     `yaml:"dim"`
	Threshold float64 `yaml:"threshold"`
}

// Load reads the configuration from the environment. Unset embedding dimension
// and match threshold are taken from the embedded profile of the configured model.
func Load() (*Config, error) {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// Embedded file, this is a build defect.
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	cfg := &Config{Models: models}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	profile, known := cfg.ModelProfile(cfg.Embedding.Model)
	if cfg.Embedding.Dim == 0 {
		cfg.Embedding.Dim = DefaultEmbeddingDim
		if known && profile.Dim > 0 {
			cfg.Embedding.Dim = profile.Dim
		}
	}
	if cfg.Matching.Threshold == 0 {
		cfg.Matching.Threshold = DefaultThreshold
		if known && profile.Threshold > 0 {
			cfg.Matching.Threshold = profile.Threshold
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Embedding.Dim < 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.Embedding.Dim)
	}
	if c.Matching.Threshold < 0 {
		return fmt.Errorf("MATCH_THRESHOLD must be positive, got %g", c.Matching.Threshold)
	}
	if c.Embedding.Concurrency < 1 {
		return errors.New("EXTRACT_CONCURRENCY must be at least 1")
	}
	switch c.Embedding.Backend {
	case "http", "dlib":
	default:
		return fmt.Errorf("unknown EMBEDDING_BACKEND %q", c.Embedding.Backend)
	}
	switch c.Database.Driver {
	case "postgres", "mariadb":
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.Database.Driver)
	}
	switch c.Security.CredentialHashing {
	case "plain", "bcrypt":
	default:
		return fmt.Errorf("unknown CREDENTIAL_HASHING %q", c.Security.CredentialHashing)
	}
	switch c.FaceIndex.Backend {
	case "hnsw", "store", "none":
	default:
		return fmt.Errorf("unknown FACE_INDEX %q", c.FaceIndex.Backend)
	}
	return nil
}

// ModelProfile returns the embedded profile for a model name.
func (c *Config) ModelProfile(name string) (ModelProfile, bool) {
	p, ok := c.Models.Models[name]
	return p, ok
}

// Addr returns the listen address of the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
