package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	EnvVars EnvVars  `json:"env"`
	Prompts *Prompts `json:"-"`
}

// EnvVars holds environment variables required by the application.
// Fields tagged `optional:"true"` are skipped by CheckConfigEnvFields.
type EnvVars struct {
	Port               string `env:"PORT" envDefault:"8080"`
	DatabaseUrl        string `env:"DATABASE_URL"`
	JwtSecretKey       string `env:"JWT_SECRET_KEY"`
	AWSRegion          string `env:"AWS_REGION" optional:"true"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" optional:"true"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" optional:"true"`
	S3Bucket           string `env:"S3_BUCKET" optional:"true"`
	AnthropicAPIKey    string `env:"ANTHROPIC_API_KEY" optional:"true"`
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	GoogleSearchKey    string `env:"GOOGLE_SEARCH_KEY" optional:"true"`
	GoogleSearchCX     string `env:"GOOGLE_SEARCH_CX" optional:"true"`
	BraveSearchKey     string `env:"BRAVE_SEARCH_KEY" optional:"true"`

	// Verifier selects which provider backs requirement verification:
	// "openai" (default) or "anthropic".
	Verifier string `env:"VERIFIER_PROVIDER" envDefault:"openai" optional:"true"`

	// InternalAPIID guards the /internal routes; they are disabled when unset.
	InternalAPIID string `env:"INTERNAL_API_ID" optional:"true"`

	Pipeline PipelineVars
}

// PipelineVars holds the pipeline tunables. All have working defaults.
type PipelineVars struct {
	BatchSize        int           `env:"PIPELINE_BATCH_SIZE" envDefault:"10" optional:"true"`
	ParseTimeout     time.Duration `env:"PIPELINE_PARSE_TIMEOUT" envDefault:"25s" optional:"true"`
	SearchCount      int           `env:"PIPELINE_SEARCH_COUNT" envDefault:"45" optional:"true"`
	ListExpansionCap int           `env:"PIPELINE_LIST_EXPANSION_CAP" envDefault:"10" optional:"true"`
	MaxPerDomain     int           `env:"PIPELINE_MAX_PER_DOMAIN" envDefault:"0" optional:"true"`
	DomainFloor      int           `env:"PIPELINE_DOMAIN_FLOOR" envDefault:"3" optional:"true"`
}

// LoadConfig parses environment variables into the Config struct.
func LoadConfig() (*Config, error) {
	var config Config
	if err := env.Parse(&config.EnvVars); err != nil {
		return nil, err
	}
	return &config, nil
}

// CheckConfigEnvFields validates that all required EnvVars fields are set.
func (c *Config) CheckConfigEnvFields() error {
	return checkFieldsRecursive(reflect.ValueOf(c.EnvVars))
}

func checkFieldsRecursive(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := v.Type().Field(i)
		if fieldType.Tag.Get("optional") == "true" {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := checkFieldsRecursive(field); err != nil {
				return err
			}
			continue
		}
		if isZeroValue(field) {
			return fmt.Errorf("$%s must be set", fieldType.Name)
		}
	}
	return nil
}

func isZeroValue(v reflect.Value) bool {
	return v.Interface() == reflect.Zero(v.Type()).Interface()
}
