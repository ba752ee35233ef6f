package generator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona is the fixed behavioral directive sent as the system prompt.
// It can be replaced wholesale from a YAML file for deployments that want
// a different voice without a rebuild.
type Persona struct {
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

// defaultSystemPrompt keeps replies short and in the sender's language mix.
const defaultSystemPrompt = `You are a friendly person chatting casually with a peer.
Reply in at most 1-2 short sentences.
Mirror the language of the message: reply in English to English, in Tagalog to Tagalog, and in Taglish to Taglish.
Never say or hint that you are automated, a bot, or an AI.
If the message touches politics, religion, health advice, or money requests, deflect lightly and change the subject.`

// DefaultPersona returns the built-in persona.
func DefaultPersona() Persona {
	return Persona{
		SystemPrompt: defaultSystemPrompt,
		Temperature:  0.8,
		MaxTokens:    120,
	}
}

// LoadPersona reads a persona override from a YAML file. Fields left empty
// in the file keep their defaults.
func LoadPersona(path string) (Persona, error) {
	p := DefaultPersona()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read persona file %s: %w", path, err)
	}

	var override Persona
	if err := yaml.Unmarshal(data, &override); err != nil {
		return p, fmt.Errorf("parse persona file %s: %w", path, err)
	}

	if override.SystemPrompt != "" {
		p.SystemPrompt = override.SystemPrompt
	}
	if override.Temperature > 0 {
		p.Temperature = override.Temperature
	}
	if override.MaxTokens > 0 {
		p.MaxTokens = override.MaxTokens
	}
	return p, nil
}
