// Package seed imports the guest list from an invitation text file or YAML.
//
// Invitation text format:
//
//	# Famiglia Rossi
//	Mario Rossi
//	Anna Rossi
//
//	# Testimoni
//	## sposa
//	Giulia Bianchi
//
// Every "# " header except "Sposi" opens a family and the following lines are
// its members. A blank line closes a family that has members; names read
// while no family is open become individual guests. "## " lines are ignored.
package seed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const skippedSection = "Sposi"

// ErrEmptyName indicates a YAML plan with a blank family or guest name.
var ErrEmptyName = errors.New("seed: name must not be empty")

// Plan is the guest list to import.
type Plan struct {
	Families    []FamilyPlan `yaml:"families"`
	Individuals []string     `yaml:"individuals"`
}

// FamilyPlan is one family with its members in invitation order.
type FamilyPlan struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// GuestCount returns the number of guests the plan creates.
func (p Plan) GuestCount() int {
	count := len(p.Individuals)
	for _, family := range p.Families {
		count += len(family.Members)
	}
	return count
}

// LoadFile parses path as YAML when it has a .yaml or .yml extension and as
// an invitation text file otherwise.
func LoadFile(path string) (Plan, error) {
	file, err := os.Open(path)
	if err != nil {
		return Plan{}, fmt.Errorf("seed: open %s: %w", path, err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(file)
	default:
		return ParseInvitation(file)
	}
}

// ParseInvitation reads the invitation text format.
func ParseInvitation(r io.Reader) (Plan, error) {
	var (
		plan    Plan
		current *FamilyPlan
		skip    bool
	)
	flush := func() {
		if current != nil && len(current.Members) > 0 {
			plan.Families = append(plan.Families, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
			skip = false
		case strings.HasPrefix(line, "## "):
		case strings.HasPrefix(line, "# "):
			section := strings.TrimSpace(line[2:])
			flush()
			if section == skippedSection {
				skip = true
				current = nil
				continue
			}
			skip = false
			current = &FamilyPlan{Name: section}
		case skip:
		case current != nil:
			current.Members = append(current.Members, line)
		default:
			plan.Individuals = append(plan.Individuals, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Plan{}, fmt.Errorf("seed: read invitation: %w", err)
	}
	flush()
	return plan, nil
}

// ParseYAML reads a plan document:
//
//	families:
//	  - name: Famiglia Rossi
//	    members: [Mario Rossi, Anna Rossi]
//	individuals: [Giulia Bianchi]
func ParseYAML(r io.Reader) (Plan, error) {
	var plan Plan
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&plan); err != nil && !errors.Is(err, io.EOF) {
		return Plan{}, fmt.Errorf("seed: decode yaml: %w", err)
	}

	for i := range plan.Families {
		plan.Families[i].Name = strings.TrimSpace(plan.Families[i].Name)
		if plan.Families[i].Name == "" {
			return Plan{}, fmt.Errorf("%w: family %d", ErrEmptyName, i+1)
		}
		members, err := trimNames(plan.Families[i].Members)
		if err != nil {
			return Plan{}, fmt.Errorf("family %q: %w", plan.Families[i].Name, err)
		}
		plan.Families[i].Members = members
	}
	individuals, err := trimNames(plan.Individuals)
	if err != nil {
		return Plan{}, fmt.Errorf("individuals: %w", err)
	}
	plan.Individuals = individuals
	return plan, nil
}

func trimNames(names []string) ([]string, error) {
	trimmed := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, ErrEmptyName
		}
		trimmed = append(trimmed, name)
	}
	return trimmed, nil
}
