// Package chunker implements the procedural-statement filter and the
// sentence-boundary text chunker.
package chunker

import "strings"

// Options controls the chunking algorithm.
type Options struct {
	MaxChars     int
	OverlapRatio float64
}

// DefaultOptions returns the standard chunking parameters (1500 chars, 10% overlap).
func DefaultOptions() Options {
	return Options{MaxChars: 1500, OverlapRatio: 0.1}
}

// sentenceEnds are the terminator+whitespace pairs the boundary search looks for.
var sentenceEnds = []string{". ", "! ", "? ", ".\n", "!\n", "?\n", ".\t", "!\t", "?\t"}

// Chunk splits a trimmed, non-empty string into an ordered list of non-empty
// chunks covering the input. When a
// chunk boundary would fall mid-sentence, search backwards within a bounded
// window for the rightmost sentence terminator and cut there instead.
func Chunk(text string, opt Options) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	maxChars := opt.MaxChars
	if maxChars <= 0 {
		maxChars = 1500
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	overlap := int(float64(maxChars) * opt.OverlapRatio)

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + maxChars
		if end > len(text) {
			end = len(text)
		}
		chunkEnd := end
		if end < len(text) {
			chunkEnd = findSentenceBoundary(text, start, end, maxChars)
		}

		chunk := strings.TrimSpace(text[start:chunkEnd])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if chunkEnd >= len(text) {
			break
		}

		next := chunkEnd - overlap
		if next <= start {
			// guarantee forward progress
			next = chunkEnd
		}
		start = next
	}
	return chunks
}

// findSentenceBoundary searches backwards from end within the window
// [max(start+maxChars/2, end-200), end) for the rightmost sentence
// terminator followed by whitespace. Falls back to end when none is found.
func findSentenceBoundary(text string, start, end, maxChars int) int {
	windowStart := start + maxChars/2
	if alt := end - 200; alt > windowStart {
		windowStart = alt
	}
	if windowStart < start {
		windowStart = start
	}
	if windowStart > end {
		windowStart = end
	}
	region := text[windowStart:end]

	best := -1
	for _, sep := range sentenceEnds {
		if idx := strings.LastIndex(region, sep); idx >= 0 {
			abs := windowStart + idx + 1 // boundary is at terminator + 1
			if abs > best {
				best = abs
			}
		}
	}
	if best == -1 {
		return end
	}
	return best
}
