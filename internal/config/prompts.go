package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptPair holds a system and user prompt template.
type PromptPair struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// DiscoveryPrompts holds the prompt templates for the discovery collaborators.
type DiscoveryPrompts struct {
	Classify PromptPair `yaml:"classify"`
	Verify   PromptPair `yaml:"verify"`
	Rank     PromptPair `yaml:"rank"`
	ListPick PromptPair `yaml:"list_pick"`
}

// Prompts is the top-level prompt configuration loaded from YAML.
type Prompts struct {
	Discovery DiscoveryPrompts `yaml:"discovery"`
}

// LoadPrompts reads and parses the prompt configuration file.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var prompts Prompts
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	return &prompts, nil
}

// Fill substitutes named placeholders of the form {key} in a prompt template.
func Fill(template string, vars map[string]string) string {
	filled := template
	for key, value := range vars {
		filled = strings.ReplaceAll(filled, "{"+key+"}", value)
	}
	return filled
}
