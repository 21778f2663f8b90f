package storage

import "strings"

// LiteralPattern reports whether a LIKE pattern contains no unescaped
// wildcards, and if so returns the name it matches exactly.
func LiteralPattern(pattern, escape string) (string, bool) {
	var sb strings.Builder
	rs := []rune(pattern)
	esc := escapeRune(escape)
	for i := 0; i < len(rs); i++ {
		switch {
		case esc != 0 && rs[i] == esc && i+1 < len(rs):
			i++
			sb.WriteRune(rs[i])
		case rs[i] == '%' || rs[i] == '_':
			return "", false
		default:
			sb.WriteRune(rs[i])
		}
	}
	return sb.String(), true
}

// MatchLike evaluates s LIKE pattern with the given escape. Matching is
// case-sensitive. An empty pattern matches everything.
func MatchLike(pattern, escape, s string) bool {
	if pattern == "" {
		return true
	}
	return matchLike([]rune(pattern), []rune(s), escapeRune(escape))
}

func matchLike(p, s []rune, esc rune) bool {
	for len(p) > 0 {
		switch {
		case esc != 0 && p[0] == esc && len(p) > 1:
			if len(s) == 0 || s[0] != p[1] {
				return false
			}
			p, s = p[2:], s[1:]
		case p[0] == '%':
			for len(p) > 0 && p[0] == '%' {
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if matchLike(p, s[i:], esc) {
					return true
				}
			}
			return false
		case p[0] == '_':
			if len(s) == 0 {
				return false
			}
			p, s = p[1:], s[1:]
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}

func escapeRune(escape string) rune {
	for _, r := range escape {
		return r
	}
	return 0
}
