package ratelimit

import (
	"strings"
)

// MatchEndpoint returns the endpoint configuration for a request, or nil when
// the default tier applies. Config paths use the gateway's route syntax: a
// "{name}" segment matches any single segment, so "/evaluations/{id}/result"
// matches "/evaluations/e1/result". A literal path wins over a pattern, and a
// pattern wins over a trailing-slash prefix.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	var pattern, prefix *EndpointConfig
	segments := splitPath(path)
	for i := range configs {
		config := &configs[i]
		if config.Method != method {
			continue
		}
		switch {
		case config.Path == path:
			return config
		case pattern == nil && hasWildcard(config.Path) && matchSegments(splitPath(config.Path), segments):
			pattern = config
		case prefix == nil && strings.HasSuffix(config.Path, "/") && strings.HasPrefix(path, config.Path):
			prefix = config
		}
	}
	if pattern != nil {
		return pattern
	}
	return prefix
}

// key is the bucket key of a request matched to e. Requests matched by a
// pattern or prefix share the config's bucket whatever ids they carry.
func (e *EndpointConfig) key(path string) string {
	if hasWildcard(e.Path) || strings.HasSuffix(e.Path, "/") {
		return e.Path
	}
	return path
}

func hasWildcard(path string) bool {
	return strings.Contains(path, "{")
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func matchSegments(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if segments[i] == "" {
				return false
			}
			continue
		}
		if p != segments[i] {
			return false
		}
	}
	return true
}
