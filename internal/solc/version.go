package solc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Pragma version constraints follow the npm-style grammar solc accepts:
// comparator sets separated by "||", each set a conjunction of
// optionally-operated versions: "^0.8.13", ">=0.7.0 <0.9.0 || 0.6.12".

type constraintSet struct {
	Alternatives []*conjunction `@@ ( "||" @@ )*`
}

type conjunction struct {
	Terms []*comparator `@@+`
}

type comparator struct {
	Op      string   `@("^" | "~" | ">" "=" | "<" "=" | ">" | "<" | "=")?`
	Version *version `@@`
}

type version struct {
	Major int  `@Integer`
	Minor int  `"." @Integer`
	Patch *int `("." @Integer)?`
}

var constraintLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Integer", Pattern: `[0-9]+`},
	{Name: "Or", Pattern: `\|\|`},
	{Name: "Punctuation", Pattern: `[\^~><=.]`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var constraintParser = participle.MustBuild[constraintSet](
	participle.Lexer(constraintLexer),
	participle.Elide("Whitespace"),
)

// Constraint is a parsed pragma solidity version constraint.
type Constraint struct {
	text string
	set  *constraintSet
}

// ParseConstraint parses the version portion of a pragma directive, e.g.
// "^0.8.13" or ">=0.7.0 <0.9.0".
func ParseConstraint(text string) (*Constraint, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty version constraint")
	}
	set, err := constraintParser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("parsing version constraint %q: %w", text, err)
	}
	return &Constraint{text: text, set: set}, nil
}

// ConstraintFromPragma extracts and parses the constraint from a joined
// pragma literal string such as "solidity ^ 0.8 .13".
func ConstraintFromPragma(pragma string) (*Constraint, error) {
	rest, found := strings.CutPrefix(strings.TrimSpace(pragma), "solidity")
	if !found {
		return nil, fmt.Errorf("not a solidity pragma: %q", pragma)
	}
	// Joined literals carry stray spaces around dots; the lexer skips them.
	return ParseConstraint(rest)
}

func (c *Constraint) String() string { return c.text }

// Match reports whether a concrete solc version like "0.8.19" satisfies the
// constraint.
func (c *Constraint) Match(v string) bool {
	target, err := parseVersion(v)
	if err != nil {
		return false
	}
	for _, alt := range c.set.Alternatives {
		if matchConjunction(alt, target) {
			return true
		}
	}
	return false
}

func matchConjunction(conj *conjunction, target [3]int) bool {
	for _, term := range conj.Terms {
		if !matchComparator(term, target) {
			return false
		}
	}
	return true
}

func matchComparator(cmp *comparator, target [3]int) bool {
	base := cmp.Version.triple()
	switch cmp.Op {
	case "", "=":
		if cmp.Version.Patch == nil {
			return target[0] == base[0] && target[1] == base[1]
		}
		return target == base
	case "^":
		// Compatible within the leftmost non-zero component, which for the
		// 0.x Solidity line means the minor version is pinned.
		if base[0] == 0 {
			return target[0] == 0 && target[1] == base[1] && compare(target, base) >= 0
		}
		return target[0] == base[0] && compare(target, base) >= 0
	case "~":
		return target[0] == base[0] && target[1] == base[1] && compare(target, base) >= 0
	case ">":
		return compare(target, base) > 0
	case ">=":
		return compare(target, base) >= 0
	case "<":
		return compare(target, base) < 0
	case "<=":
		return compare(target, base) <= 0
	}
	return false
}

func (v *version) triple() [3]int {
	patch := 0
	if v.Patch != nil {
		patch = *v.Patch
	}
	return [3]int{v.Major, v.Minor, patch}
}

func parseVersion(v string) ([3]int, error) {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 3)
	if len(parts) < 2 {
		return [3]int{}, fmt.Errorf("malformed version %q", v)
	}
	var out [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return [3]int{}, fmt.Errorf("malformed version %q", v)
		}
		out[i] = n
	}
	return out, nil
}

func compare(a, b [3]int) int {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] - b[i]
		}
	}
	return 0
}
