package policy

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"bidsify/internal/services"
)

// Policy is one configured exception.
type Policy struct {
	Name               string `toml:"name" yaml:"name" json:"name"`
	StudyHash          string `toml:"study_hash" yaml:"study_hash" json:"study_hash,omitempty"`
	When               string `toml:"when" yaml:"when" json:"when,omitempty"`
	AllowUnpairedPhase bool   `toml:"allow_unpaired_phase" yaml:"allow_unpaired_phase" json:"allow_unpaired_phase,omitempty"`
	ForceSession       string `toml:"force_session" yaml:"force_session" json:"force_session,omitempty"`
}

// Facts are the study-level values a policy can be selected on.
type Facts struct {
	StudyHash        string
	StudyDescription string
	Accession        string
	PatientID        string
}

func (f Facts) env() map[string]any {
	return map[string]any{
		"study_hash":        f.StudyHash,
		"study_description": f.StudyDescription,
		"accession":         f.Accession,
		"patient_id":        f.PatientID,
	}
}

// Effective is the merged result of every policy matching one study.
type Effective struct {
	AllowUnpairedPhase bool
	ForceSession       string
	Matched            []string
}

type compiled struct {
	policy  Policy
	program *vm.Program
}

// Set is a compiled, read-only list of policies. The zero value matches nothing.
type Set struct {
	rules []compiled
}

// Compile validates and compiles policies in order.
func Compile(policies []Policy) (*Set, error) {
	set := &Set{rules: make([]compiled, 0, len(policies))}
	for i, p := range policies {
		p.Name = strings.TrimSpace(p.Name)
		p.StudyHash = strings.ToLower(strings.TrimSpace(p.StudyHash))
		p.When = strings.TrimSpace(p.When)
		p.ForceSession = strings.TrimSpace(p.ForceSession)
		if p.Name == "" {
			p.Name = fmt.Sprintf("policy-%d", i+1)
		}
		if p.StudyHash == "" && p.When == "" {
			return nil, services.Wrap(services.ErrConfiguration, "policy", p.Name, "needs study_hash or when", nil)
		}
		rule := compiled{policy: p}
		if p.When != "" {
			program, err := expr.Compile(p.When, expr.Env(Facts{}.env()), expr.AsBool())
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "policy", p.Name, fmt.Sprintf("compile %q", p.When), err)
			}
			rule.program = program
		}
		set.rules = append(set.rules, rule)
	}
	return set, nil
}

// Policies returns the normalized policies in evaluation order.
func (s *Set) Policies() []Policy {
	if s == nil {
		return nil
	}
	out := make([]Policy, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.policy
	}
	return out
}

// For merges every policy matching facts. Flags are OR-ed; the first matching
// policy with a ForceSession wins.
func (s *Set) For(facts Facts) (Effective, error) {
	var eff Effective
	if s == nil {
		return eff, nil
	}
	env := facts.env()
	for _, r := range s.rules {
		ok, err := r.matches(facts, env)
		if err != nil {
			return Effective{}, err
		}
		if !ok {
			continue
		}
		eff.Matched = append(eff.Matched, r.policy.Name)
		eff.AllowUnpairedPhase = eff.AllowUnpairedPhase || r.policy.AllowUnpairedPhase
		if eff.ForceSession == "" {
			eff.ForceSession = r.policy.ForceSession
		}
	}
	return eff, nil
}

func (r compiled) matches(facts Facts, env map[string]any) (bool, error) {
	if r.policy.StudyHash != "" && r.policy.StudyHash != facts.StudyHash {
		return false, nil
	}
	if r.program == nil {
		return true, nil
	}
	out, err := expr.Run(r.program, env)
	if err != nil {
		return false, services.Wrap(services.ErrConfiguration, "policy", r.policy.Name, fmt.Sprintf("evaluate %q", r.policy.When), err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, services.Wrap(services.ErrConfiguration, "policy", r.policy.Name, fmt.Sprintf("predicate returned %T", out), nil)
	}
	return matched, nil
}
