// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package routing

import (
	"fmt"
	"strings"
)

// Values holds route values keyed by lower-case parameter name.
type Values map[string]string

// Get returns the value of key, ignoring case.
func (v Values) Get(key string) string {
	return v[strings.ToLower(key)]
}

// Segment is one "/"-separated part of a route pattern: either a literal or
// a parameter, optionally with a default ("{action=Index}") or optional
// ("{id?}").
type Segment struct {
	Literal  string
	Param    string
	Default  string
	HasDef   bool
	Optional bool
}

// IsParam reports whether s captures a value.
func (s Segment) IsParam() bool { return s.Param != "" }

// Pattern is a parsed conventional route such as
// "{controller=Home}/{action=Index}/{id?}".
type Pattern struct {
	Raw      string
	Segments []Segment
}

// ParsePattern parses raw. Parameters with defaults or marked optional may
// only be followed by parameters that are themselves defaulted or optional.
func ParsePattern(raw string) (*Pattern, error) {
	p := &Pattern{Raw: raw}
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return p, nil
	}
	seen := map[string]bool{}
	canOmit := false
	for _, part := range strings.Split(trimmed, "/") {
		if part == "" {
			return nil, fmt.Errorf("route pattern %q: empty segment", raw)
		}
		if !strings.HasPrefix(part, "{") {
			if strings.ContainsAny(part, "{}") {
				return nil, fmt.Errorf("route pattern %q: malformed segment %q", raw, part)
			}
			if canOmit {
				return nil, fmt.Errorf("route pattern %q: literal %q follows an omittable parameter", raw, part)
			}
			p.Segments = append(p.Segments, Segment{Literal: part})
			continue
		}
		if !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("route pattern %q: unterminated parameter %q", raw, part)
		}
		body := part[1 : len(part)-1]
		var seg Segment
		if name, def, ok := strings.Cut(body, "="); ok {
			seg.Param, seg.Default, seg.HasDef = name, def, true
		} else if strings.HasSuffix(body, "?") {
			seg.Param, seg.Optional = strings.TrimSuffix(body, "?"), true
		} else {
			seg.Param = body
		}
		seg.Param = strings.ToLower(strings.TrimSpace(seg.Param))
		if seg.Param == "" || strings.ContainsAny(seg.Param, "{}=?") {
			return nil, fmt.Errorf("route pattern %q: invalid parameter %q", raw, part)
		}
		if seen[seg.Param] {
			return nil, fmt.Errorf("route pattern %q: duplicate parameter %q", raw, seg.Param)
		}
		seen[seg.Param] = true
		omittable := seg.HasDef || seg.Optional
		if canOmit && !omittable {
			return nil, fmt.Errorf("route pattern %q: required parameter %q follows an omittable one", raw, seg.Param)
		}
		canOmit = canOmit || omittable
		p.Segments = append(p.Segments, seg)
	}
	return p, nil
}

// Params returns the parameter names in order.
func (p *Pattern) Params() []string {
	var out []string
	for _, s := range p.Segments {
		if s.IsParam() {
			out = append(out, s.Param)
		}
	}
	return out
}

// Match returns the route values for urlPath. Literals compare
// case-insensitively; missing trailing segments take their defaults.
func (p *Pattern) Match(urlPath string) (Values, bool) {
	trimmed := strings.Trim(urlPath, "/")
	var parts []string
	if trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}
	if len(parts) > len(p.Segments) {
		return nil, false
	}
	vals := Values{}
	for i, seg := range p.Segments {
		if i < len(parts) {
			if parts[i] == "" {
				return nil, false
			}
			if !seg.IsParam() {
				if !strings.EqualFold(parts[i], seg.Literal) {
					return nil, false
				}
				continue
			}
			vals[seg.Param] = parts[i]
			continue
		}
		switch {
		case seg.HasDef:
			vals[seg.Param] = seg.Default
		case seg.Optional:
		default:
			return nil, false
		}
	}
	return vals, true
}

// Expand returns the concrete path templates that reach the given bound
// values, longest first. Bound parameters become literals; unbound ones
// stay as "{name}" placeholders. A trailing segment may be dropped when it
// is optional or its default equals the bound value.
func (p *Pattern) Expand(bound Values) []string {
	parts := make([]string, len(p.Segments))
	for i, seg := range p.Segments {
		switch {
		case !seg.IsParam():
			parts[i] = seg.Literal
		case bound.Get(seg.Param) != "":
			parts[i] = bound.Get(seg.Param)
		default:
			parts[i] = "{" + seg.Param + "}"
		}
	}

	out := []string{"/" + strings.Join(parts, "/")}
	for n := len(p.Segments) - 1; n >= 0; n-- {
		seg := p.Segments[n]
		if !seg.IsParam() {
			break
		}
		droppable := seg.Optional
		if seg.HasDef {
			v := bound.Get(seg.Param)
			droppable = v == "" || strings.EqualFold(v, seg.Default)
		}
		if !droppable {
			break
		}
		out = append(out, "/"+strings.Join(parts[:n], "/"))
	}
	return out
}
