package results

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules holds the classification constants used by Extract and Aggregate.
//
// Go Pattern: Rules is a plain value passed into every call instead of a
// package-level global. Tests can hand in an alternate allow-list without
// touching shared state.
type Rules struct {
	// Departments is the allow-list of department codes. Course tokens on a
	// line whose register number belongs to any other department are dropped.
	Departments []string `yaml:"departments"`

	// FailGrades are the grades counted as a fail. Every other grade,
	// including unexpected strings, counts as a pass.
	FailGrades []string `yaml:"fail_grades"`
}

// DefaultRules returns the rule set for KTU result sheets.
func DefaultRules() Rules {
	return Rules{
		Departments: []string{"CS", "CE", "EE", "EC", "ME", "AI", "AD"},
		FailGrades:  []string{"F", "FE", "Absent"},
	}
}

// LoadRules reads a YAML rules file. Keys missing from the file keep their
// default values.
//
//	departments: [CS, EC, ME]
//	fail_grades: [F, FE, Absent, Withheld]
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules := DefaultRules()
	var fromFile Rules
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if len(fromFile.Departments) > 0 {
		rules.Departments = normalize(fromFile.Departments, true)
	}
	if len(fromFile.FailGrades) > 0 {
		rules.FailGrades = normalize(fromFile.FailGrades, false)
	}
	return rules, nil
}

func normalize(values []string, upper bool) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if upper {
			v = strings.ToUpper(v)
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ruleSet is the lookup form of Rules built once per call.
type ruleSet struct {
	departments map[string]struct{}
	failGrades  map[string]struct{}
}

func (r Rules) compile() ruleSet {
	rs := ruleSet{
		departments: make(map[string]struct{}, len(r.Departments)),
		failGrades:  make(map[string]struct{}, len(r.FailGrades)),
	}
	for _, d := range r.Departments {
		rs.departments[d] = struct{}{}
	}
	for _, g := range r.FailGrades {
		rs.failGrades[g] = struct{}{}
	}
	return rs
}

func (rs ruleSet) allowsDept(dept string) bool {
	_, ok := rs.departments[dept]
	return ok
}

func (rs ruleSet) isFail(grade string) bool {
	_, ok := rs.failGrades[grade]
	return ok
}
