package glm

const truncationMarker = "\n\n[TRUNCATED: OCR output exceeded MAX_OCR_CHARS]"

// LimitText caps extracted text at maxChars characters, cutting on rune
// boundaries and appending a visible truncation marker. maxChars <= 0
// disables the cap.
func LimitText(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + truncationMarker
}
