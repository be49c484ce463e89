package middleware

import (
	"sort"
	"strings"
)

type RouteClass int

const (
	ClassUnclassified RouteClass = iota
	ClassPublic
	ClassProtected
	ClassAdmin
)

func (c RouteClass) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassProtected:
		return "protected"
	case ClassAdmin:
		return "admin"
	default:
		return "unclassified"
	}
}

// evaluation order; first matching class wins
var classOrder = map[RouteClass]int{
	ClassPublic:    0,
	ClassProtected: 1,
	ClassAdmin:     2,
}

type MatchKind int

const (
	MatchExact MatchKind = iota
	// MatchPrefix matches the path itself and anything below it on a segment
	// boundary: "/admin" matches "/admin/users" but not "/administrator".
	MatchPrefix
)

type RouteRule struct {
	Class RouteClass
	Kind  MatchKind
	Path  string
}

func (r RouteRule) matches(path string) bool {
	switch r.Kind {
	case MatchExact:
		return path == r.Path
	case MatchPrefix:
		if r.Path == "/" {
			return true
		}
		return path == r.Path || strings.HasPrefix(path, strings.TrimSuffix(r.Path, "/")+"/")
	default:
		return false
	}
}

// RouteTable is the auditable classification list. Paths that match no rule
// are unclassified and allowed through.
type RouteTable struct {
	rules []RouteRule
}

func NewRouteTable(rules ...RouteRule) RouteTable {
	sorted := make([]RouteRule, 0, len(rules))
	for _, r := range rules {
		if _, ok := classOrder[r.Class]; ok {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return classOrder[sorted[i].Class] < classOrder[sorted[j].Class]
	})
	return RouteTable{rules: sorted}
}

func (t RouteTable) Classify(path string) RouteClass {
	for _, r := range t.rules {
		if r.matches(path) {
			return r.Class
		}
	}
	return ClassUnclassified
}

func (t RouteTable) Rules() []RouteRule {
	out := make([]RouteRule, len(t.rules))
	copy(out, t.rules)
	return out
}

func exact(class RouteClass, paths ...string) []RouteRule {
	rules := make([]RouteRule, 0, len(paths))
	for _, p := range paths {
		rules = append(rules, RouteRule{Class: class, Kind: MatchExact, Path: p})
	}
	return rules
}

func prefix(class RouteClass, paths ...string) []RouteRule {
	rules := make([]RouteRule, 0, len(paths))
	for _, p := range paths {
		rules = append(rules, RouteRule{Class: class, Kind: MatchPrefix, Path: p})
	}
	return rules
}

// DefaultRouteTable classifies the storefront and console routes.
func DefaultRouteTable() RouteTable {
	var rules []RouteRule
	rules = append(rules, exact(ClassPublic, "/", "/login", "/register", "/pricing", "/about", "/contact")...)
	rules = append(rules, prefix(ClassPublic, "/api/auth", "/api/healthz", "/api/plans", "/_next", "/static")...)
	rules = append(rules, prefix(ClassProtected,
		"/dashboard", "/checkout", "/orders", "/invoices", "/tickets",
		"/api/user", "/api/orders", "/api/invoices", "/api/tickets",
	)...)
	rules = append(rules, prefix(ClassAdmin, "/admin", "/api/admin")...)
	return NewRouteTable(rules...)
}

func IsAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
