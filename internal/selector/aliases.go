package selector

import "strings"

// Aliases maps a caller-facing provider name onto the ordered list of
// concrete provider variants tried in sequence. Kept as explicit
// configuration data; resolution happens through one lookup.
type Aliases map[string][]string

// DefaultAliases returns the standard alias table: the generic "uniswap"
// name fans out to its concrete API variants in priority order.
func DefaultAliases() Aliases {
	return Aliases{
		"uniswap":  {"uniswap-trading-api", "uniswap"},
		"thirdweb": {"thirdweb"},
		"multihop": {"multihop"},
	}
}

// Resolve returns the concrete fallback chain for a preferred name. Unknown
// names resolve to themselves so a concrete provider name always works.
func (a Aliases) Resolve(preferred string) []string {
	name := strings.ToLower(strings.TrimSpace(preferred))
	if chain, ok := a[name]; ok {
		out := make([]string, len(chain))
		copy(out, chain)
		return out
	}
	return []string{name}
}
