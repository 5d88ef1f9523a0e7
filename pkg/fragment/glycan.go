package fragment

import (
	"sort"

	"github.com/mjhoffman/profrag/pkg/chem"
)

// glycanVariantCount returns the number of distinct sub-compositions of a
// glycan composition, including the full composition and the empty one.
func glycanVariantCount(c chem.Composition) int {
	n := 1
	for _, count := range c {
		if count > 0 {
			n *= count + 1
		}
	}
	return n
}

// subCompositions enumerates every sub-composition of full, breadth-first by
// number of units removed, deduplicated by composition key. The first element
// is the full composition; the last is empty. Enumeration order is
// deterministic: within a level, removal follows alphabetical monosaccharide
// order of the parent compositions.
func subCompositions(full chem.Composition, limit int) ([]chem.Composition, error) {
	if required := glycanVariantCount(full); required > limit {
		return nil, &CombinatorialLimitError{Limit: limit, Required: required}
	}

	names := make([]string, 0, len(full))
	for name, count := range full {
		if count > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	seen := map[string]bool{full.Key(): true}
	order := []chem.Composition{full}
	frontier := []chem.Composition{full}
	for len(frontier) > 0 {
		var next []chem.Composition
		for _, c := range frontier {
			for _, name := range names {
				if c[name] <= 0 {
					continue
				}
				sub := c.Clone()
				sub[name]--
				if sub[name] == 0 {
					delete(sub, name)
				}
				key := sub.Key()
				if seen[key] {
					continue
				}
				seen[key] = true
				order = append(order, sub)
				next = append(next, sub)
			}
		}
		frontier = next
	}
	return order, nil
}
