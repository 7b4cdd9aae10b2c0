package infer

import (
	"strings"

	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// typeStringCache turns an apidoc raw type string ("const char *", "SV *",
// "STRLEN") into a TypeRepr. Parsing is deferred here from package apidoc
// (spec.md §4.6) and memoized, since the same type string recurs across
// many entries and the parse has no per-macro state.
type typeStringCache struct {
	interner *intern.Table
	cache    map[string]TypeRepr
}

func newTypeStringCache(interner *intern.Table) *typeStringCache {
	return &typeStringCache{interner: interner, cache: make(map[string]TypeRepr)}
}

func (c *typeStringCache) parse(raw string, origin Origin) TypeRepr {
	key := strings.TrimSpace(raw)
	t, ok := c.cache[key]
	if !ok {
		norm := strings.ReplaceAll(key, "*", " * ")
		t = parseTypeName(norm, c.interner)
		c.cache[key] = t
	}
	t.Origin = origin
	return t
}
