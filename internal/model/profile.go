package model

import "strings"

// Model families select the prompt template and turn-formatting convention.
const (
	FamilyQwen   = "qwen"
	FamilySeaLLM = "seallm"
)

// ModelProfile describes one loadable base-model + adapter pair.
// Profiles are static configuration and never mutated at runtime.
type ModelProfile struct {
	Key          string  `json:"key"`
	WeightsPath  string  `json:"weights_path"`
	AdapterPath  string  `json:"adapter_path"`
	AdapterScale float64 `json:"adapter_scale"`
	DisplayName  string  `json:"display_name"`
	Family       string  `json:"family"`
}

// ResolveFamily fills in the family from the profile key when the config
// omits it.
func (p ModelProfile) ResolveFamily() string {
	if p.Family != "" {
		return p.Family
	}
	if strings.Contains(strings.ToLower(p.Key), FamilySeaLLM) {
		return FamilySeaLLM
	}
	return FamilyQwen
}
