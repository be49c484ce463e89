package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRouteTable_Classify(t *testing.T) {
	t.Parallel()

	table := DefaultRouteTable()
	cases := map[string]RouteClass{
		"/":                         ClassPublic,
		"/login":                    ClassPublic,
		"/register":                 ClassPublic,
		"/pricing":                  ClassPublic,
		"/api/auth/login":           ClassPublic,
		"/api/auth/check":           ClassPublic,
		"/api/healthz":              ClassPublic,
		"/_next/static/chunk.js":    ClassPublic,
		"/dashboard":                ClassProtected,
		"/dashboard/servers/1":      ClassProtected,
		"/checkout":                 ClassProtected,
		"/api/user/profile":         ClassProtected,
		"/api/orders/42":            ClassProtected,
		"/admin":                    ClassAdmin,
		"/admin/users":              ClassAdmin,
		"/api/admin/users/1/unlock": ClassAdmin,
		"/administrator":            ClassUnclassified,
		"/dashboards":               ClassUnclassified,
		"/login/extra":              ClassUnclassified,
		"/favicon.ico":              ClassUnclassified,
		"/api/unknown":              ClassUnclassified,
	}

	for path, want := range cases {
		assert.Equal(t, want, table.Classify(path), path)
	}
}

func TestRouteTable_FirstClassWins(t *testing.T) {
	t.Parallel()

	table := NewRouteTable(
		RouteRule{Class: ClassAdmin, Kind: MatchPrefix, Path: "/shop"},
		RouteRule{Class: ClassPublic, Kind: MatchPrefix, Path: "/shop"},
	)

	assert.Equal(t, ClassPublic, table.Classify("/shop/cart"))
	rules := table.Rules()
	assert.Equal(t, ClassPublic, rules[0].Class)
	assert.Equal(t, ClassAdmin, rules[1].Class)
}

func TestRouteTable_DropsUnclassifiedRules(t *testing.T) {
	t.Parallel()

	table := NewRouteTable(RouteRule{Class: ClassUnclassified, Kind: MatchPrefix, Path: "/"})
	assert.Empty(t, table.Rules())
	assert.Equal(t, ClassUnclassified, table.Classify("/anything"))
}

func TestIsAPIPath(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAPIPath("/api"))
	assert.True(t, IsAPIPath("/api/user/profile"))
	assert.False(t, IsAPIPath("/apis"))
	assert.False(t, IsAPIPath("/dashboard"))
}

func TestRouteClass_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "public", ClassPublic.String())
	assert.Equal(t, "protected", ClassProtected.String())
	assert.Equal(t, "admin", ClassAdmin.String())
	assert.Equal(t, "unclassified", ClassUnclassified.String())
}
