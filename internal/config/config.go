// Package config resolves runtime settings for the SpaceBridge MCP server.
//
// Values are layered, highest precedence first:
//
//	command-line flags (Overrides)
//	process environment
//	.env in the working directory (never overrides the environment)
//	.spacebridge/config.yaml
//	defaults
//
// Organization and project fall back to the origin remote in .git/config.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spacebridge/spacebridge-mcp/internal/ai"
	"github.com/spacebridge/spacebridge-mcp/internal/deduplication"
	"github.com/spacebridge/spacebridge-mcp/internal/spacebridge"
)

const (
	// DefaultConfigFile is relative to the working directory
	DefaultConfigFile = ".spacebridge/config.yaml"

	// DefaultDBPath is relative to the working directory
	DefaultDBPath = ".spacebridge/decisions.db"
)

// ErrMissingAPIKey means no SpaceBridge API key was found in any layer
var ErrMissingAPIKey = errors.New("SpaceBridge API key not configured (set SPACEBRIDGE_API_KEY or --spacebridge-api-key)")

// Settings is the fully resolved configuration
type Settings struct {
	APIURL  string
	APIKey  string
	Org     string
	Project string

	LLMProvider string
	LLMModel    string
	LLMAPIKey   string

	DBPath string

	Dedup     deduplication.Config
	Retention RetentionConfig

	// Sources records where Org and Project came from, for diagnostics
	OrgSource     string
	ProjectSource string
}

// Overrides are values given on the command line. Empty fields are unset.
type Overrides struct {
	APIURL      string
	APIKey      string
	LLMAPIKey   string
	LLMProvider string
	LLMModel    string
	Org         string
	Project     string
	DBPath      string
	ConfigPath  string

	// WorkDir is where .env, .git and the config file are looked up.
	// Defaults to the current directory.
	WorkDir string
}

// FileConfig is the layout of .spacebridge/config.yaml
type FileConfig struct {
	API struct {
		URL string `yaml:"url"`
		Key string `yaml:"key"`
	} `yaml:"api"`
	Org     string `yaml:"org"`
	Project string `yaml:"project"`
	LLM     struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"llm"`
	DB struct {
		Path string `yaml:"path"`
	} `yaml:"db"`
	Dedup     deduplication.FileConfig `yaml:"dedup"`
	Retention RetentionFileConfig      `yaml:"retention"`
}

// LoadFile reads a YAML config file. A missing file returns (nil, nil)
// unless required is set.
func LoadFile(path string, required bool) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// Resolve builds Settings from all layers and validates the result
func Resolve(o Overrides) (*Settings, error) {
	s, err := resolve(o)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ResolveLocal is Resolve for commands that only touch the decision log.
// The SpaceBridge API key is not required.
func ResolveLocal(o Overrides) (*Settings, error) {
	s, err := resolve(o)
	if err != nil {
		return nil, err
	}
	if err := s.Retention.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retention configuration: %w", err)
	}
	return s, nil
}

func resolve(o Overrides) (*Settings, error) {
	workDir := o.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		workDir = wd
	}

	if err := loadDotEnv(filepath.Join(workDir, ".env")); err != nil {
		return nil, err
	}

	configPath := o.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(workDir, DefaultConfigFile)
	}
	fc, err := LoadFile(configPath, o.ConfigPath != "")
	if err != nil {
		return nil, err
	}
	if fc == nil {
		fc = &FileConfig{}
	}

	s := &Settings{
		APIURL:    spacebridge.DefaultBaseURL,
		DBPath:    filepath.Join(workDir, DefaultDBPath),
		Dedup:     deduplication.DefaultConfig(),
		Retention: DefaultRetentionConfig(),
	}

	// File layer
	setIf(&s.APIURL, fc.API.URL)
	setIf(&s.APIKey, fc.API.Key)
	setIf(&s.Org, fc.Org)
	setIf(&s.Project, fc.Project)
	setIf(&s.LLMProvider, fc.LLM.Provider)
	setIf(&s.LLMModel, fc.LLM.Model)
	setIf(&s.LLMAPIKey, fc.LLM.APIKey)
	setIf(&s.DBPath, fc.DB.Path)
	s.Dedup.ApplyFile(fc.Dedup)
	s.Retention.applyFile(fc.Retention)
	if s.Org != "" {
		s.OrgSource = "config file"
	}
	if s.Project != "" {
		s.ProjectSource = "config file"
	}

	// Environment layer (.env already merged into it)
	parseEnvString("SPACEBRIDGE_API_URL", &s.APIURL)
	parseEnvString("SPACEBRIDGE_API_KEY", &s.APIKey)
	if v := os.Getenv("SPACEBRIDGE_ORG"); v != "" {
		s.Org, s.OrgSource = v, "environment"
	}
	if v := os.Getenv("SPACEBRIDGE_PROJECT"); v != "" {
		s.Project, s.ProjectSource = v, "environment"
	}
	parseEnvString("SPACEBRIDGE_LLM_PROVIDER", &s.LLMProvider)
	parseEnvString("SPACEBRIDGE_DB", &s.DBPath)
	if err := s.Dedup.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := s.Retention.applyEnv(); err != nil {
		return nil, err
	}

	// Flag layer
	setIf(&s.APIURL, o.APIURL)
	setIf(&s.APIKey, o.APIKey)
	setIf(&s.LLMProvider, o.LLMProvider)
	setIf(&s.DBPath, o.DBPath)
	if o.Org != "" {
		s.Org, s.OrgSource = o.Org, "flag"
	}
	if o.Project != "" {
		s.Project, s.ProjectSource = o.Project, "flag"
	}

	provider, err := ai.NormalizeProvider(s.LLMProvider)
	if err != nil {
		return nil, err
	}
	s.LLMProvider = provider

	// Model and key depend on the provider, so they resolve after it
	if provider == ai.ProviderOpenAI {
		parseEnvString("OPENAI_MODEL", &s.LLMModel)
	}
	parseEnvString("SPACEBRIDGE_LLM_MODEL", &s.LLMModel)
	setIf(&s.LLMModel, o.LLMModel)
	if s.LLMModel == "" {
		s.LLMModel = ai.DefaultModel(provider)
	}
	parseEnvString(ai.APIKeyEnv(provider), &s.LLMAPIKey)
	setIf(&s.LLMAPIKey, o.LLMAPIKey)

	if s.Org == "" || s.Project == "" {
		remote, err := ReadGitRemote(workDir)
		if err != nil {
			log.Printf("[CONFIG] Warning: %v", err)
		}
		if s.Org == "" && remote.Org != "" {
			s.Org, s.OrgSource = remote.Org, "git remote"
		}
		if s.Project == "" && remote.Project != "" {
			s.Project, s.ProjectSource = remote.Project, "git remote"
		}
	}

	if s.Dedup.SemanticJudgeEnabled && s.LLMAPIKey == "" {
		log.Printf("[CONFIG] No %s found, duplicate detection will use the similarity threshold only",
			ai.APIKeyEnv(provider))
		s.Dedup.SemanticJudgeEnabled = false
	}
	return s, nil
}

// Validate checks the resolved settings
func (s *Settings) Validate() error {
	if s.APIKey == "" {
		return ErrMissingAPIKey
	}
	if s.APIURL == "" {
		return fmt.Errorf("SpaceBridge API URL is empty")
	}
	if err := s.Dedup.Validate(); err != nil {
		return fmt.Errorf("invalid dedup configuration: %w", err)
	}
	if err := s.Retention.Validate(); err != nil {
		return fmt.Errorf("invalid retention configuration: %w", err)
	}
	return nil
}

// ClientConfig returns the REST client configuration
func (s *Settings) ClientConfig() spacebridge.Config {
	return spacebridge.Config{
		BaseURL: s.APIURL,
		APIKey:  s.APIKey,
		Org:     s.Org,
		Project: s.Project,
	}
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setIf(dest *string, value string) {
	if value != "" {
		*dest = value
	}
}
