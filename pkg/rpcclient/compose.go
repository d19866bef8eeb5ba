package rpcclient

import "strings"

const titleRunes = 30

// ComposeWithDocument prefixes a message with résumé text so the assistant
// can refer to it. Empty document text leaves content unchanged.
func ComposeWithDocument(docText, content string) string {
	if strings.TrimSpace(docText) == "" {
		return content
	}
	return "[PDF Context: " + docText + "]\n\nUser Message: " + content
}

// TitleFromPrompt derives a chat title from the first prompt: the first 30
// characters, with "..." appended when the prompt is longer.
func TitleFromPrompt(prompt string) string {
	r := []rune(prompt)
	if len(r) <= titleRunes {
		return prompt
	}
	return string(r[:titleRunes]) + "..."
}
