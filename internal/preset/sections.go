package preset

import (
	"regexp"
	"strings"
)

// Section is one bracketed block of a preset file, e.g. "[preset00]".
type Section struct {
	Name   string  // "preset00"
	Params []Param // key=value lines in file order
}

// Param is a single key=value line.
type Param struct {
	Key   string
	Value string
}

// sectionPattern matches a section header line such as "[preset00]".
var sectionPattern = regexp.MustCompile(`^\[([^\]\r\n]+)\]\s*$`)

// ParseSections splits preset content into bracketed sections.
// Lines before the first header and lines without '=' are ignored.
// The effect language itself is not interpreted; values are kept verbatim.
func ParseSections(content string) []Section {
	var sections []Section
	var cur *Section

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if m := sectionPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			sections = append(sections, Section{Name: m[1]})
			cur = &sections[len(sections)-1]
			continue
		}
		if cur == nil {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		cur.Params = append(cur.Params, Param{Key: key, Value: strings.TrimSpace(value)})
	}
	return sections
}

// Lookup returns the value of the first param named key in the section.
func (s Section) Lookup(key string) (string, bool) {
	for _, p := range s.Params {
		if strings.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}
