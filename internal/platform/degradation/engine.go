package degradation

import (
	"sort"
	"time"
)

// Decision is the outcome of one evaluation cycle. Target is the highest
// level among fired rules. Suppressed lists rules whose condition held but
// whose cooldown blocked a refire; Clean means nothing fired AND nothing was
// suppressed, so recovery never counts down while a cooldown is masking live
// pressure.
type Decision struct {
	Target     Level
	Fired      []string
	Suppressed []string
	Conflicts  []RuleConflictError
	Clean      bool
}

// Engine evaluates an ordered rule set against a metrics sample. It is a
// pure decision core: it never mutates the applied level and carries no
// goroutines. The caller serializes Evaluate and SetRules.
type Engine struct {
	rules       []Rule
	lastFiredAt map[string]time.Time
}

func NewEngine(rules []Rule) (*Engine, error) {
	e := &Engine{lastFiredAt: make(map[string]time.Time)}
	if err := e.SetRules(rules); err != nil {
		return nil, err
	}
	return e, nil
}

// SetRules replaces the rule set, keeping cooldown stamps for rules whose
// names survive so a reload cannot defeat a running cooldown.
func (e *Engine) SetRules(rules []Rule) error {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].Name < sorted[j].Name
	})

	kept := make(map[string]time.Time, len(sorted))
	for _, r := range sorted {
		if at, ok := e.lastFiredAt[r.Name]; ok {
			kept[r.Name] = at
		}
	}
	e.rules = sorted
	e.lastFiredAt = kept

	return nil
}

func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate runs every rule against the input. A rule fires when its metric
// exceeds the threshold and the rule is past its cooldown; firing stamps the
// cooldown whether or not the rule ends up supplying the maximum level.
func (e *Engine) Evaluate(in Input, now time.Time) Decision {
	decision := Decision{Target: LevelNormal}

	targetByPriority := make(map[int]Level)
	rulesByPriority := make(map[int][]string)

	for _, rule := range e.rules {
		if in.value(rule.Metric) <= rule.Threshold {
			continue
		}
		if last, ok := e.lastFiredAt[rule.Name]; ok && rule.Cooldown > 0 && now.Sub(last) < rule.Cooldown {
			decision.Suppressed = append(decision.Suppressed, rule.Name)
			continue
		}

		e.lastFiredAt[rule.Name] = now
		decision.Fired = append(decision.Fired, rule.Name)
		if rule.TargetLevel > decision.Target {
			decision.Target = rule.TargetLevel
		}

		rulesByPriority[rule.Priority] = append(rulesByPriority[rule.Priority], rule.Name)
		if prev, ok := targetByPriority[rule.Priority]; !ok || rule.TargetLevel > prev {
			if ok && rule.TargetLevel != prev {
				decision.Conflicts = append(decision.Conflicts, RuleConflictError{
					Priority: rule.Priority,
					Rules:    append([]string(nil), rulesByPriority[rule.Priority]...),
					Chosen:   maxLevel(prev, rule.TargetLevel),
				})
			}
			targetByPriority[rule.Priority] = rule.TargetLevel
		} else if rule.TargetLevel != prev {
			decision.Conflicts = append(decision.Conflicts, RuleConflictError{
				Priority: rule.Priority,
				Rules:    append([]string(nil), rulesByPriority[rule.Priority]...),
				Chosen:   prev,
			})
		}
	}

	decision.Clean = len(decision.Fired) == 0 && len(decision.Suppressed) == 0

	return decision
}

func maxLevel(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}
