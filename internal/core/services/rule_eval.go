package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"floorview/internal/core/domain"
)

// partFacts are the inspection facts a rule condition can reference.
type partFacts struct {
	Color          string
	SizeMM         float64
	Confidence     float64
	DefectDetected bool
}

func (f partFacts) lookup(field string) (interface{}, bool) {
	switch field {
	case "color":
		return f.Color, true
	case "size_mm":
		return f.SizeMM, true
	case "confidence":
		return f.Confidence, true
	case "defect_detected":
		return f.DefectDetected, true
	}
	return nil, false
}

// evaluatePolicy returns the first matching rule by ascending priority, or
// false when the default action applies.
func evaluatePolicy(p *domain.Policy, facts partFacts) (domain.DecisionRule, bool) {
	rules := make([]domain.DecisionRule, len(p.DecisionRules))
	copy(rules, p.DecisionRules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })

	for _, r := range rules {
		ok, err := matchCondition(r.Condition, facts)
		if err == nil && ok {
			return r, true
		}
	}
	return domain.DecisionRule{}, false
}

// matchCondition evaluates conjunctions such as
// "color == 'red' AND size_mm > 50".
func matchCondition(cond string, facts partFacts) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return false, fmt.Errorf("empty condition")
	}
	for _, clause := range strings.Split(cond, " AND ") {
		ok, err := matchClause(strings.TrimSpace(clause), facts)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

var operators = []string{"<=", ">=", "==", "!=", "<", ">"}

func matchClause(clause string, facts partFacts) (bool, error) {
	for _, op := range operators {
		idx := strings.Index(clause, op)
		if idx < 0 {
			continue
		}
		field := strings.TrimSpace(clause[:idx])
		literal := strings.TrimSpace(clause[idx+len(op):])
		value, ok := facts.lookup(field)
		if !ok {
			return false, fmt.Errorf("unknown field %q", field)
		}
		return compare(value, op, literal)
	}
	return false, fmt.Errorf("no operator in %q", clause)
}

func compare(value interface{}, op, literal string) (bool, error) {
	switch v := value.(type) {
	case string:
		want := strings.Trim(literal, `'"`)
		switch op {
		case "==":
			return strings.EqualFold(v, want), nil
		case "!=":
			return !strings.EqualFold(v, want), nil
		}
	case bool:
		want, err := strconv.ParseBool(literal)
		if err != nil {
			return false, err
		}
		switch op {
		case "==":
			return v == want, nil
		case "!=":
			return v != want, nil
		}
	case float64:
		want, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return false, err
		}
		switch op {
		case "<":
			return v < want, nil
		case "<=":
			return v <= want, nil
		case ">":
			return v > want, nil
		case ">=":
			return v >= want, nil
		case "==":
			return v == want, nil
		case "!=":
			return v != want, nil
		}
	}
	return false, fmt.Errorf("operator %s not supported for %T", op, value)
}
