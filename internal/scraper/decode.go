package scraper

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/samber/mo"
)

// obfuscationKey is the XOR key AllAnime applies to its source URLs
const obfuscationKey = 56

// EncodeTag turns a free-text tag into the slug form search indexes expect
func EncodeTag(tag string) string {
	s := strings.ToLower(tag)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "'-", "-and-039-")
	s = strings.ReplaceAll(s, "'", "-and-039-")
	return s
}

// DecodeObfuscated recovers a URL hidden as "-<hex>" with every byte XORed.
// Anything that is not valid hex is returned unchanged.
func DecodeObfuscated(s string) string {
	if !strings.HasPrefix(s, "-") {
		return s
	}
	payload := s[strings.LastIndex(s, "-")+1:]
	raw, err := hex.DecodeString(payload)
	if err != nil {
		return s
	}
	for i := range raw {
		raw[i] ^= obfuscationKey
	}
	return replaceInvalidUTF8(raw)
}

// replaceInvalidUTF8 substitutes U+FFFD for every byte that is not part of a valid rune
func replaceInvalidUTF8(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		b.WriteRune(r)
		raw = raw[size:]
	}
	return b.String()
}

// EncodeObfuscated is the inverse of DecodeObfuscated
func EncodeObfuscated(s string) string {
	raw := []byte(s)
	for i := range raw {
		raw[i] ^= obfuscationKey
	}
	return "--" + hex.EncodeToString(raw)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every other run of characters into "-"
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

var (
	unicodeEscape  = regexp.MustCompile(`\\u[0-9a-fA-F]{4}`)
	unicodeEscapes = regexp.MustCompile(`(?:\\u[0-9a-fA-F]{4})+`)
)

// UnescapeJS reverses the escaping applied to JSON embedded in a JS string literal
func UnescapeJS(s string) string {
	s = unicodeEscapes.ReplaceAllStringFunc(s, func(m string) string {
		var units []uint16
		for _, esc := range unicodeEscape.FindAllString(m, -1) {
			code, err := strconv.ParseUint(esc[2:], 16, 16)
			if err != nil {
				return m
			}
			units = append(units, uint16(code))
		}
		return string(utf16.Decode(units))
	})
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// InlineScript locates a JSON payload embedded in a <script> element
type InlineScript struct {
	// Selector narrows the candidate elements, "script" when empty
	Selector string
	// Marker must appear in the script text
	Marker string
	// Pattern's first capture group is the payload
	Pattern *regexp.Regexp
	Unescape bool
	Base64   bool
}

// ExtractInlineJSON finds the script, pulls out the payload and decodes it into T
func ExtractInlineJSON[T any](doc *goquery.Document, script InlineScript) mo.Result[T] {
	payload, err := inlinePayload(doc, script)
	if err != nil {
		return mo.Err[T](err)
	}

	if script.Unescape {
		payload = UnescapeJS(payload)
	}
	data := []byte(payload)
	if script.Base64 {
		data, err = decodeBase64(payload)
		if err != nil {
			return mo.Err[T](errors.Wrap(err, "inline script base64"))
		}
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return mo.Err[T](errors.Wrap(err, "inline script json"))
	}
	return mo.Ok(v)
}

func inlinePayload(doc *goquery.Document, script InlineScript) (string, error) {
	selector := script.Selector
	if selector == "" {
		selector = "script"
	}

	var payload string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if script.Marker != "" && !strings.Contains(text, script.Marker) {
			return true
		}
		if script.Pattern == nil {
			payload = text
			return false
		}
		if m := script.Pattern.FindStringSubmatch(text); len(m) > 1 {
			payload = m[1]
			return false
		}
		return true
	})

	if payload == "" {
		return "", errors.Errorf("no script matching %q", script.Marker)
	}
	return payload, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

var lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)

// StripHTML turns an HTML fragment into plain text, keeping <br> as newlines
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = lineBreak.ReplaceAllString(s, "\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// resolveURL resolves relative URLs against base
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "//"):
		return "https:" + ref
	case strings.HasPrefix(ref, "/"):
		return strings.TrimRight(base, "/") + ref
	}
	return strings.TrimRight(base, "/") + "/" + ref
}

// imageSource returns the lazy-loaded source of an <img>, falling back to src
func imageSource(s *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-lazy-src", "data-cfsrc", "srcset", "src"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			if attr == "srcset" {
				v = strings.Fields(v)[0]
			}
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Candidate is one stream URL with its source-assigned priority
type Candidate struct {
	URL      string
	Quality  string
	Priority float64
}

// SelectBestStream picks the candidate with the strictly highest priority.
// Ties keep the first candidate seen.
func SelectBestStream(candidates []Candidate) mo.Option[Candidate] {
	if len(candidates) == 0 {
		return mo.None[Candidate]()
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Priority > best.Priority {
			best = c
		}
	}
	return mo.Some(best)
}
