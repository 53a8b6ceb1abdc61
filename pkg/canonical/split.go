package canonical

import (
	"strings"

	"github.com/typetools/ttxdiff/pkg/errors"
)

// splitTTX splits a TTX dump into one text block per top-level table
// element, in table directory order.
//
// TTX output is stable, pretty-printed XML: the document element is
// <ttFont>, and each immediate child element is one table. The <ttx ...>
// processing instruction and the <ttFont ...> line themselves carry
// run-varying noise (ttLibVersion, dump timestamps) and are excluded by
// construction, since only the child blocks are kept.
func splitTTX(data []byte) (*TableSet, error) {
	lines := strings.Split(string(data), "\n")
	set := NewTableSet()

	inFont := false
	var current Tag
	var closeMarker string
	var block []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !inFont {
			if strings.HasPrefix(trimmed, "<ttFont") {
				inFont = true
			}
			continue
		}

		if current == "" {
			switch {
			case trimmed == "":
				continue
			case strings.HasPrefix(trimmed, "</ttFont"):
				return set, nil
			case strings.HasPrefix(trimmed, "<!--"):
				// Inter-table comments (e.g. table summaries) are noise.
				continue
			case strings.HasPrefix(trimmed, "<"):
				tag := elementName(trimmed)
				if tag == "" {
					return nil, errors.New(errors.ErrCodeDumpError, "malformed table dump near %q", trimmed)
				}
				if strings.HasSuffix(trimmed, "/>") {
					if err := set.Add(Tag(tag), trimmed+"\n"); err != nil {
						return nil, errors.Wrap(errors.ErrCodeDumpError, err, "parse table dump")
					}
					continue
				}
				current = Tag(tag)
				closeMarker = "</" + tag + ">"
				block = append(block[:0], trimmed)
			}
			continue
		}

		block = append(block, line)
		if trimmed == closeMarker {
			if err := set.Add(current, strings.Join(block, "\n")+"\n"); err != nil {
				return nil, errors.Wrap(errors.ErrCodeDumpError, err, "parse table dump")
			}
			current = ""
		}
	}

	if !inFont {
		return nil, errors.New(errors.ErrCodeDumpError, "not a table dump: missing <ttFont> element")
	}
	if current != "" {
		return nil, errors.New(errors.ErrCodeDumpError, "truncated table dump: unclosed <%s>", current)
	}
	return set, nil
}

// elementName extracts the element name from a line beginning with "<name ...".
func elementName(line string) string {
	rest := strings.TrimPrefix(line, "<")
	end := strings.IndexAny(rest, " >/")
	if end <= 0 {
		return ""
	}
	name := rest[:end]
	if strings.HasPrefix(name, "!") || strings.HasPrefix(name, "?") {
		return ""
	}
	return name
}
