package backend

import "sort"

// Args is a candidate constructor argument bag keyed by parameter name.
type Args map[string]any

// Filter returns a copy of a holding only the accepted names. Unknown
// names are dropped without error.
func (a Args) Filter(accepted []string) Args {
	out := make(Args, len(accepted))
	for _, name := range accepted {
		if v, ok := a[name]; ok {
			out[name] = v
		}
	}
	return out
}

func (a Args) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
