package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// LengthFunc measures a piece of text in the splitter's unit.
type LengthFunc func(string) int

// RuneLength counts characters.
func RuneLength(s string) int { return utf8.RuneCountInString(s) }

// TokenLength returns a LengthFunc counting tokens of the named tiktoken
// encoding, such as "cl100k_base".
func TokenLength(encoding string) (LengthFunc, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %q: %w", encoding, err)
	}
	return func(s string) int { return len(enc.Encode(s, nil, nil)) }, nil
}

// TextSeparators split prose on paragraphs, then lines, then words.
var TextSeparators = []string{"\n\n", "\n", " ", ""}

// MarkupSeparators split page sources on block elements first.
var MarkupSeparators = []string{
	"<section", "<article", "<div", "<p", "<br", "<li",
	"<h1", "<h2", "<h3", "<h4", "<h5", "<h6",
	"<ul", "<ol", "<table", "<tr", "<span",
	"\n\n", "\n", " ", "",
}

// Splitter breaks text into overlapping chunks no longer than Size, trying
// each separator in turn and recursing into pieces that are still too long.
// Separators are kept at the start of the piece that follows them.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
	Len        LengthFunc
}

// NewSplitter returns a character-measured splitter.
func NewSplitter(size, overlap int, separators []string) *Splitter {
	return &Splitter{Size: size, Overlap: overlap, Separators: separators, Len: RuneLength}
}

// Split returns the chunks of text in order. Blank chunks are dropped.
func (s *Splitter) Split(text string) []string {
	if s.Size <= 0 {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}
	seps := s.Separators
	if len(seps) == 0 {
		seps = TextSeparators
	}
	return s.split(text, seps)
}

func (s *Splitter) length(t string) int {
	if s.Len == nil {
		return RuneLength(t)
	}
	return s.Len(t)
}

func (s *Splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, candidate := range seps {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, piece := range splitKeep(text, sep) {
		if s.length(piece) < s.Size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs adjacent pieces into chunks, carrying up to Overlap of the
// previous chunk's tail into the next one.
func (s *Splitter) merge(pieces []string) []string {
	var out, current []string
	total := 0
	for _, p := range pieces {
		n := s.length(p)
		if total+n > s.Size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				out = append(out, doc)
			}
			for len(current) > 0 && (total > s.Overlap || (total+n > s.Size && total > 0)) {
				total -= s.length(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeep splits text on sep, keeping sep at the start of each following
// piece. An empty sep splits into characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
