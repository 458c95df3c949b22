package raster

import (
	"net/url"
	"strconv"
	"strings"
)

type candidate struct {
	url    string
	weight float64
}

// pickCandidate returns the srcset candidate with the largest width or density
// descriptor, resolved against base. It returns base when srcset has no usable entry.
func pickCandidate(base, srcset string) string {
	best := candidate{url: base, weight: -1}
	for _, fields := range splitSrcset(srcset) {
		c := candidate{url: fields[0], weight: 1}
		if len(fields) > 1 {
			d := fields[1]
			v, err := strconv.ParseFloat(d[:len(d)-1], 64)
			if err != nil || (!strings.HasSuffix(d, "w") && !strings.HasSuffix(d, "x")) {
				continue
			}
			c.weight = v
		}
		if c.weight > best.weight {
			best = c
		}
	}
	return resolveRef(base, best.url)
}

// splitSrcset tokenizes a srcset into candidates of URL followed by descriptors.
// A URL runs up to whitespace, so commas inside it (data URIs) are kept; a trailing
// comma ends the candidate, otherwise the descriptors run up to the next comma.
func splitSrcset(srcset string) [][]string {
	var out [][]string
	s := srcset
	for {
		s = strings.TrimLeft(s, ", \t\n\r\f")
		if s == "" {
			return out
		}
		end := strings.IndexAny(s, " \t\n\r\f")
		if end < 0 {
			end = len(s)
		}
		raw := s[:end]
		s = s[end:]

		u := strings.TrimRight(raw, ",")
		if u == "" {
			continue
		}
		fields := []string{u}
		if len(u) == len(raw) {
			desc := s
			if i := strings.IndexByte(s, ','); i >= 0 {
				desc, s = s[:i], s[i+1:]
			} else {
				s = ""
			}
			fields = append(fields, strings.Fields(desc)...)
		}
		out = append(out, fields)
	}
}

func resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
