package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

const sustainabilitySentence = "🌱 Printed locally to reduce shipping impact and support your community!"

// GeneratorConfig is the merchant configuration stored on the generator metafield
type GeneratorConfig struct {
	Enabled               bool   `json:"enabled"`
	DefaultPickupTime     string `json:"defaultPickupTime"`
	SustainabilityMessage bool   `json:"sustainabilityMessage"`
}

// DefaultGeneratorConfig is used when no metafield is configured. It leaves the
// policy instruction untouched.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{Enabled: true}
}

// ParseGeneratorConfig decodes the metafield JSON. Omitted fields keep their
// defaults. On malformed JSON the defaults are returned together with the error.
func ParseGeneratorConfig(metafield *Metafield) (GeneratorConfig, error) {
	cfg := DefaultGeneratorConfig()
	if metafield == nil || strings.TrimSpace(metafield.Value) == "" {
		return cfg, nil
	}

	parsed := DefaultGeneratorConfig()
	if err := json.Unmarshal([]byte(metafield.Value), &parsed); err != nil {
		return cfg, fmt.Errorf("invalid generator configuration: %w", err)
	}
	parsed.DefaultPickupTime = strings.TrimSpace(parsed.DefaultPickupTime)
	return parsed, nil
}

// Instruction extends base with the configured pickup time and sustainability copy
func (c GeneratorConfig) Instruction(base string) string {
	var b strings.Builder
	b.WriteString(base)
	if c.DefaultPickupTime != "" {
		b.WriteString(" Ready for pickup in ")
		b.WriteString(c.DefaultPickupTime)
		b.WriteString(".")
	}
	if c.SustainabilityMessage {
		b.WriteString(" ")
		b.WriteString(sustainabilitySentence)
	}
	return b.String()
}
