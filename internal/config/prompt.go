package config

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// maxInstructionLength bounds operator-supplied prompt instructions. Anything
// longer than this is almost certainly a pasted document, not an instruction.
const maxInstructionLength = 2000

// PromptConfig overrides the built-in generation instruction.
type PromptConfig struct {
	// Instruction replaces the default system instruction sent to the model.
	// The context blocks and the "Title:" cue are always appended by the
	// generator; only the leading instruction is configurable.
	Instruction string `yaml:"instruction"`
}

// Validate performs validation of a PromptConfig value:
// - Normalizes surrounding whitespace
// - Rejects instructions above maxInstructionLength
func (cfg *PromptConfig) Validate() error {
	cfg.Instruction = strings.TrimSpace(cfg.Instruction)

	if len(cfg.Instruction) > maxInstructionLength {
		return fmt.Errorf("prompt instruction exceeds %d characters", maxInstructionLength)
	}

	return nil
}

// unmarshalPromptConfig implements a custom YAML unmarshaler for PromptConfig.
// Validates the value after unmarshaling.
func unmarshalPromptConfig(value *PromptConfig, data []byte) error {
	type Aux PromptConfig
	var aux Aux

	if err := yaml.Unmarshal(data, &aux); err != nil {
		return err
	}

	*value = PromptConfig(aux)

	if err := value.Validate(); err != nil {
		return err
	}

	return nil
}

func init() {
	// Register unmarshalers of custom types with the YAML library
	yaml.RegisterCustomUnmarshaler[PromptConfig](unmarshalPromptConfig)
}
