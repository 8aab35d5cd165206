package envutil

import (
	"os"
	"sort"
	"strings"
)

// Overlay composes the environment for a child process: the parent
// environment forms the base, and the overlay map overrides or adds
// keys on top of it. All other inherited variables pass through.
// Values may reference ${VAR} from the composed set; one expansion
// pass is performed, no recursion.
func Overlay(overlay map[string]string) []string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			if k == "" {
				continue
			}
			m[k] = kv[i+1:]
		}
	}
	for k, v := range overlay {
		if k == "" {
			continue
		}
		m[k] = v
	}
	expanded := make(map[string]string, len(m))
	for k, v := range m {
		expanded[k] = expand(v, m)
	}
	out := make([]string, 0, len(expanded))
	for k, v := range expanded {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func expand(s string, m map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	res := s
	for k, v := range m {
		res = strings.ReplaceAll(res, "${"+k+"}", v)
	}
	return res
}
