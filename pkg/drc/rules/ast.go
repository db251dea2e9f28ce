// Package rules parses the s-expression design-rule files consumed by
// the built-in clearance checker. The format follows KiCad's custom
// rule syntax:
//
//	(version 1)
//	(rule "pwr clearance"
//	    (layer "F.Cu")
//	    (constraint clearance (min 0.3)))
package rules

// RuleSet is a complete parsed rule file.
type RuleSet struct {
	Version *VersionClause `@@?`
	Rules   []*Rule        `@@*`
}

// VersionClause is the optional (version N) header.
type VersionClause struct {
	N int `LParen "version" @Number RParen`
}

// Rule is one named rule with its scope clauses and constraints.
type Rule struct {
	Name    string    `LParen "rule" @String`
	Clauses []*Clause `@@* RParen`
}

// Clause is one scope or constraint entry inside a rule.
type Clause struct {
	Layer      *string     `  LParen "layer" @String RParen`
	Netclass   *string     `| LParen "netclass" @String RParen`
	Constraint *Constraint `| @@`
}

// Constraint carries a kind (clearance, track_width, ...) and its
// limits.
type Constraint struct {
	Kind   string   `LParen "constraint" @Ident`
	Limits []*Limit `@@* RParen`
}

// Limit is one (min|opt|max value) entry.
type Limit struct {
	Kind  string  `LParen @("min" | "opt" | "max")`
	Value float64 `@Number RParen`
}

// LayerScope returns the layer the rule is restricted to, or "" when
// it applies everywhere.
func (r *Rule) LayerScope() string {
	for _, c := range r.Clauses {
		if c.Layer != nil {
			return *c.Layer
		}
	}
	return ""
}

// Min returns the minimum limit of the first constraint of the given
// kind, if present.
func (r *Rule) Min(kind string) (float64, bool) {
	for _, c := range r.Clauses {
		if c.Constraint == nil || c.Constraint.Kind != kind {
			continue
		}
		for _, l := range c.Constraint.Limits {
			if l.Kind == "min" {
				return l.Value, true
			}
		}
	}
	return 0, false
}

// Clearance resolves the minimum clearance for a layer. Later rules
// take precedence over earlier ones; def is returned when nothing
// matches.
func (rs *RuleSet) Clearance(layer string, def float64) float64 {
	out := def
	for _, r := range rs.Rules {
		if scope := r.LayerScope(); scope != "" && scope != layer {
			continue
		}
		if v, ok := r.Min("clearance"); ok {
			out = v
		}
	}
	return out
}
