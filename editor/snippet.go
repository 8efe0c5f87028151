package editor

import "unicode/utf8"

// runeFloor backs i up to the nearest rune boundary in s.
func runeFloor(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// runeCeil advances i to the nearest rune boundary in s, or len(s).
func runeCeil(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// snippet captures up to radius bytes on each side of the match at idx,
// clamped outward to rune boundaries so the excerpt never tears a
// multibyte sequence, with leading/trailing ellipsis markers when the
// excerpt does not reach the start or end of the text. The returned
// offsets locate the match inside the snippet, shifted by the leading
// marker when present.
func snippet(text string, idx, findLen, radius int) (sentence string, start, end int) {
	lo := idx - radius
	if lo < 0 {
		lo = 0
	}
	lo = runeFloor(text, lo)
	hi := idx + findLen + radius
	if hi > len(text) {
		hi = len(text)
	}
	hi = runeCeil(text, hi)

	sentence = text[lo:hi]
	start = idx - lo
	if lo > 0 {
		sentence = "..." + sentence
		start += 3
	}
	if hi < len(text) {
		sentence += "..."
	}
	return sentence, start, start + findLen
}
