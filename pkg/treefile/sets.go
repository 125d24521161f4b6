package treefile

import "sort"

type stringSet map[string]struct{}

func (s stringSet) add(v string) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

func (s stringSet) remove(v string) bool {
	if _, ok := s[v]; !ok {
		return false
	}
	delete(s, v)
	return true
}

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s stringSet) clone() stringSet {
	out := make(stringSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}
