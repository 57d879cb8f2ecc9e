// Package playback splits server responses into speakable chunks and queues
// them on a text-to-speech synthesizer.
package playback

import (
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultBudget is the per-utterance character limit.
const DefaultBudget = 3900

// Chunk is one queued utterance.
type Chunk struct {
	Index       int
	Text        string
	UtteranceID string
}

// Segment lazily splits text into ordered chunks of at most budget runes.
//
// Whole sentences are packed greedily. A sentence longer than the budget is
// packed word by word, starting in the open chunk, and a single word longer
// than the budget is cut on rune boundaries. Apart from such cuts, joining
// the chunks with single spaces yields the whitespace-collapsed input.
func Segment(text string, budget int) iter.Seq[Chunk] {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return func(yield func(Chunk) bool) {
		s := segmenter{budget: budget, yield: yield}
		for _, sentence := range sentences(strings.Fields(text)) {
			if !s.addSentence(sentence) {
				return
			}
		}
		s.flush()
	}
}

type segmenter struct {
	budget  int
	yield   func(Chunk) bool
	index   int
	current []string
	size    int
	stopped bool
}

func (s *segmenter) addSentence(words []string) bool {
	sentence := strings.Join(words, " ")
	length := utf8.RuneCountInString(sentence)
	if length > s.budget {
		for _, word := range words {
			if !s.addWord(word) {
				return false
			}
		}
		return true
	}
	if !s.fits(length) && !s.flush() {
		return false
	}
	s.append(sentence, length)
	return true
}

func (s *segmenter) addWord(word string) bool {
	length := utf8.RuneCountInString(word)
	if length <= s.budget {
		if !s.fits(length) && !s.flush() {
			return false
		}
		s.append(word, length)
		return true
	}

	if !s.flush() {
		return false
	}
	runes := []rune(word)
	for len(runes) > s.budget {
		s.append(string(runes[:s.budget]), s.budget)
		if !s.flush() {
			return false
		}
		runes = runes[s.budget:]
	}
	s.append(string(runes), len(runes))
	return true
}

func (s *segmenter) fits(length int) bool {
	if s.size == 0 {
		return true
	}
	return s.size+1+length <= s.budget
}

func (s *segmenter) append(piece string, length int) {
	if s.size > 0 {
		s.size++
	}
	s.current = append(s.current, piece)
	s.size += length
}

// flush emits the open chunk, if any. It returns false once the consumer
// stops iterating.
func (s *segmenter) flush() bool {
	if s.stopped {
		return false
	}
	if s.size == 0 {
		return true
	}
	chunk := Chunk{
		Index:       s.index,
		Text:        strings.Join(s.current, " "),
		UtteranceID: "chunk_" + strconv.Itoa(s.index),
	}
	s.index++
	s.current = s.current[:0]
	s.size = 0
	if !s.yield(chunk) {
		s.stopped = true
		return false
	}
	return true
}

// sentences groups words, ending a sentence after a word that ends in
// '.', '!' or '?'.
func sentences(words []string) [][]string {
	var (
		out   [][]string
		start int
	)
	for i, word := range words {
		if strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?") {
			out = append(out, words[start:i+1])
			start = i + 1
		}
	}
	if start < len(words) {
		out = append(out, words[start:])
	}
	return out
}
