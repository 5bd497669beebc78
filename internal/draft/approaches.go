package draft

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Approach is a named response-writing style used to vary generated drafts.
type Approach struct {
	Name        string `yaml:"name"`
	Promotional bool   `yaml:"promotional"`
	Instruction string `yaml:"instruction"`
}

// DefaultApproaches is the built-in catalog. The promotional family works a
// brand mention in; the non-promotional family is pure goodwill building.
func DefaultApproaches() []Approach {
	return []Approach{
		{
			Name:        "personal_anecdote",
			Promotional: true,
			Instruction: "Open with a short personal anecdote about facing the same situation, then land on a specific recommendation.",
		},
		{
			Name:        "problem_solver",
			Promotional: true,
			Instruction: "Address the poster's concrete problem step by step, mentioning what finally worked for you near the end.",
		},
		{
			Name:        "casual_mention",
			Promotional: true,
			Instruction: "Give balanced, practical advice and slip a brief aside about what you personally ended up using.",
		},
		{
			Name:        "comparison",
			Promotional: true,
			Instruction: "Compare a couple of options the poster might consider, with honest tradeoffs, closing on the one you stuck with.",
		},
		{
			Name:        "helpful_expert",
			Promotional: false,
			Instruction: "Answer like a practitioner who has dealt with this many times; concrete details, no product talk.",
		},
		{
			Name:        "fellow_traveler",
			Promotional: false,
			Instruction: "Empathize first, share what the experience was like for you, and offer one practical next step.",
		},
		{
			Name:        "question_back",
			Promotional: false,
			Instruction: "Give a useful partial answer, then ask one clarifying question that moves the thread forward.",
		},
		{
			Name:        "resource_pointer",
			Promotional: false,
			Instruction: "Point at the general class of solutions and what to look for when evaluating them, without naming products.",
		},
	}
}

// LoadApproaches reads a YAML catalog replacing the built-in one.
func LoadApproaches(path string) ([]Approach, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var approaches []Approach
	if err := yaml.Unmarshal(b, &approaches); err != nil {
		return nil, fmt.Errorf("parse approaches: %w", err)
	}
	if len(approaches) == 0 {
		return nil, fmt.Errorf("approaches file %s is empty", path)
	}
	for i, a := range approaches {
		if a.Name == "" || a.Instruction == "" {
			return nil, fmt.Errorf("approach %d: name and instruction are required", i)
		}
	}
	return approaches, nil
}
