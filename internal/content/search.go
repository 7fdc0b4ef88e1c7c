package content

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

func (c *Catalog) buildSearchCorpus() {
	c.searchCorpus = c.searchCorpus[:0]
	c.searchToDrug = c.searchToDrug[:0]
	for i, d := range c.Drugs {
		for _, name := range append([]string{d.Name}, d.Aliases...) {
			c.searchCorpus = append(c.searchCorpus, fold(name))
			c.searchToDrug = append(c.searchToDrug, i)
		}
	}
}

// SearchDrugs matches the query against names, aliases, classes and
// indications, ignoring case.
func (c *Catalog) SearchDrugs(query string) []Drug {
	q := fold(query)
	if q == "" {
		return nil
	}
	var out []Drug
	for _, d := range c.Drugs {
		if drugMatches(d, q) {
			out = append(out, d)
		}
	}
	return out
}

func drugMatches(d Drug, q string) bool {
	if strings.Contains(fold(d.Name), q) || strings.Contains(fold(d.Class), q) {
		return true
	}
	for _, a := range d.Aliases {
		if strings.Contains(fold(a), q) {
			return true
		}
	}
	for _, ind := range d.Indications {
		if strings.Contains(fold(ind), q) {
			return true
		}
	}
	return false
}

// SearchGlossary matches the query against terms and definitions.
func (c *Catalog) SearchGlossary(query string) []Term {
	q := fold(query)
	if q == "" {
		return nil
	}
	var out []Term
	for _, t := range c.Glossary {
		if strings.Contains(fold(t.Term), q) || strings.Contains(fold(t.Definition), q) {
			out = append(out, t)
		}
	}
	return out
}

// Suggest returns up to limit drug names that fuzzily resemble the query,
// best match first.
func (c *Catalog) Suggest(query string, limit int) []string {
	q := fold(query)
	if q == "" || limit <= 0 {
		return nil
	}
	matches := fuzzy.Find(q, c.searchCorpus)
	seen := make(map[int]struct{}, limit)
	var out []string
	for _, m := range matches {
		di := c.searchToDrug[m.Index]
		if _, dup := seen[di]; dup {
			continue
		}
		seen[di] = struct{}{}
		out = append(out, c.Drugs[di].Name)
		if len(out) == limit {
			break
		}
	}
	return out
}

// FindInteractions returns the known interactions between two inputs.
// Each input may name a drug, one of its aliases, or a class; order does
// not matter.
func (c *Catalog) FindInteractions(first, second string) []Interaction {
	a, b := c.identities(first), c.identities(second)
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	var out []Interaction
	for _, in := range c.Interactions {
		x, y := fold(in.A), fold(in.B)
		if (has(a, x) && has(b, y)) || (has(a, y) && has(b, x)) {
			out = append(out, in)
		}
	}
	return out
}

// identities lists the folded names an input can be matched under.
func (c *Catalog) identities(input string) map[string]struct{} {
	q := fold(input)
	if q == "" {
		return nil
	}
	ids := map[string]struct{}{q: {}}
	if d, ok := c.Drug(q); ok {
		ids[fold(d.Name)] = struct{}{}
		ids[fold(d.Class)] = struct{}{}
	}
	return ids
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
