package joins

import "fmt"

// Rule is an equality predicate connecting two tables.
type Rule struct {
	Left  string `json:"left" yaml:"left"`
	Right string `json:"right" yaml:"right"`
	On    string `json:"on" yaml:"on"`
}

// String renders the rule as "left–right: predicate".
func (r Rule) String() string {
	return fmt.Sprintf("%s–%s: %s", r.Left, r.Right, r.On)
}

// DefaultRules returns the five join rules of the sample dataset.
// A fresh slice is returned on every call.
func DefaultRules() []Rule {
	return []Rule{
		{Left: "rtable1", Right: "ttable1", On: "rtable1.rcol11 = ttable1.tcol12"},
		{Left: "rtable1", Right: "rtable2", On: "rtable1.rcol11 = rtable2.rcol21"},
		{Left: "rtable1", Right: "ttable2", On: "rtable1.rcol12 = ttable2.tcol22"},
		{Left: "rtable2", Right: "ttable1", On: "rtable2.rcol22 = ttable1.tcol12"},
		{Left: "rtable2", Right: "ttable2", On: "rtable2.rcol21 = ttable2.tcol21"},
	}
}

// pairKey is the directional lookup key for a rule.
type pairKey struct {
	left, right string
}
