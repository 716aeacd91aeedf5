package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Body parsers
const (
	ParserJSON       = "json"
	ParserText       = "text"
	ParserRaw        = "raw"
	ParserURLEncoded = "urlencoded"
)

type (
	// Env holds the values of environment variable based configuration
	Env struct {
		Host           string `envconfig:"HOST" default:"127.0.0.1" yaml:"host" json:"host"`
		Port           int    `envconfig:"PORT" default:"8080" yaml:"port" json:"port"`
		AdminPort      int    `envconfig:"ADMIN_PORT" default:"8081" yaml:"adminPort" json:"adminPort"`
		Mocks          string `envconfig:"MOCKS" yaml:"mocks" json:"mocks"`
		Headers        string `envconfig:"MOCK_HEADERS" yaml:"headers" json:"headers"`
		BodyParser     string `envconfig:"BODY_PARSER" default:"json" yaml:"body" json:"body"`
		ConfigFilePath string `envconfig:"GNOCK_CONFIG" default:"./filegnock.yaml" yaml:"-" json:"-"`
		ConfigBasePath string `envconfig:"GNOCK_BASE_PATH" default:"/gnockconfig" yaml:"configBasePath" json:"configBasePath"`
		LogLevel       string `envconfig:"LOG_LEVEL" default:"info" yaml:"logLevel" json:"logLevel"`
	}
)

// New returns a new Env config
func New() (*Env, error) {
	cfg := &Env{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return cfg, nil
}

// Load overlays the non-empty values of the YAML file at path on top of the config.
// A missing file is not an error.
func (e *Env) Load(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	overlay := Env{}
	if err := yaml.NewDecoder(f).Decode(&overlay); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode yaml %s: %w", path, err)
	}

	e.Merge(overlay)

	return nil
}

// Merge replaces the values of the config with the ones set in o. Empty strings and zero ports
// keep the current value.
func (e *Env) Merge(o Env) {
	mergeString(&e.Host, o.Host)
	mergeString(&e.Mocks, o.Mocks)
	mergeString(&e.Headers, o.Headers)
	mergeString(&e.BodyParser, o.BodyParser)
	mergeString(&e.ConfigFilePath, o.ConfigFilePath)
	mergeString(&e.ConfigBasePath, o.ConfigBasePath)
	mergeString(&e.LogLevel, o.LogLevel)

	if o.Port != 0 {
		e.Port = o.Port
	}
	if o.AdminPort != 0 {
		e.AdminPort = o.AdminPort
	}
}

func mergeString(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

// Validate checks the config can serve mocks
func (e *Env) Validate() error {
	if e.Mocks == "" {
		return fmt.Errorf("a mocks directory is required")
	}

	info, err := os.Stat(e.Mocks)
	if err != nil {
		return fmt.Errorf("mocks directory %s: %w", e.Mocks, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mocks %s is not a directory", e.Mocks)
	}

	switch e.BodyParser {
	case ParserJSON, ParserText, ParserRaw, ParserURLEncoded:
	default:
		return fmt.Errorf("unknown body parser %s", e.BodyParser)
	}

	if _, err := logrus.ParseLevel(e.LogLevel); err != nil {
		return err
	}

	return nil
}

// Level is the parsed log level, info when unparseable
func (e *Env) Level() logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(e.LogLevel))
	if err != nil {
		return logrus.InfoLevel
	}

	return level
}
