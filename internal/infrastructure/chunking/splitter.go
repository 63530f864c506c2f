package chunking

import "strings"

// DefaultMaxChunkRunes is the conservative fallback used when the embedding
// model does not report its maximum input length. Ingestion proceeds with
// this bound instead of failing.
const DefaultMaxChunkRunes = 1000

// Splitter cuts text into sliding-window chunks whose length never exceeds
// the embedding model's maximum input. Splitting is deterministic: identical
// (text, max length, overlap) input always yields identical boundaries, so
// repeated ingestion cannot create drifting chunk sets.
type Splitter struct {
	MaxChunkRunes int
	OverlapRunes  int
}

// NewSplitter sizes the window to maxInputRunes (the active embedding
// model's limit; 0 means unknown) with the given overlap fraction, clamped
// to [0, 0.5).
func NewSplitter(maxInputRunes int, overlapFraction float64) *Splitter {
	if maxInputRunes <= 0 {
		maxInputRunes = DefaultMaxChunkRunes
	}
	if overlapFraction < 0 {
		overlapFraction = 0
	}
	if overlapFraction >= 0.5 {
		overlapFraction = 0.5
	}
	overlap := int(float64(maxInputRunes) * overlapFraction)
	if overlap >= maxInputRunes {
		overlap = maxInputRunes / 4
	}
	return &Splitter{
		MaxChunkRunes: maxInputRunes,
		OverlapRunes:  overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.MaxChunkRunes - s.OverlapRunes
	if step <= 0 {
		step = s.MaxChunkRunes
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.MaxChunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
