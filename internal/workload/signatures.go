package workload

import "strings"

// extractSignatures runs every signature pattern over the whole document
// text. The primary pattern wins over the fallback; keys with no match are
// left out.
func (c *compiled) extractSignatures(text string) Signatures {
	out := Signatures{}
	for _, sig := range c.signatures {
		if sig.primary != nil {
			if m := sig.primary.FindStringSubmatch(text); m != nil {
				out[sig.key] = strings.TrimSpace(m[1])
				continue
			}
		}
		if sig.fallback != nil {
			if m := sig.fallback.FindString(text); m != "" {
				out[sig.key] = m
			}
		}
	}
	return out
}
