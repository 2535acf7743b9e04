package runscript

import "path/filepath"

// PlugAllowed implements spec 4.4's plug policy: when inHotplug is set, svc
// may proceed only if it matches (shell glob) an allow token in rules; a
// token prefixed with "!" is a denial and wins as soon as it matches,
// regardless of position. Absent inHotplug, every service is allowed.
func PlugAllowed(svc string, inHotplug bool, rules []string) bool {
	if !inHotplug {
		return true
	}
	allowed := false
	for _, rule := range rules {
		deny := false
		token := rule
		if len(token) > 0 && token[0] == '!' {
			deny = true
			token = token[1:]
		}
		ok, err := filepath.Match(token, svc)
		if err != nil || !ok {
			continue
		}
		if deny {
			return false
		}
		allowed = true
	}
	return allowed
}
