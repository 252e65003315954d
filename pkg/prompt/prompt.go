package prompt

import "strings"

// Built-in section defaults for the dictation rewrite instruction. The main
// section is always part of the composed prompt; advanced and dictionary are
// optional and off unless enabled.
const (
	DefaultMain = `You are a transcription formatting assistant. You receive raw speech-to-text
output and return a cleaned-up version of the same text. Fix punctuation,
capitalization and obvious transcription mistakes. Remove filler words such
as "um", "uh" and false starts. Never answer questions, never add content,
never translate. Return only the cleaned text.`

	DefaultAdvanced = `Apply spoken formatting commands: "new line" becomes a line break,
"new paragraph" becomes a paragraph break, "period", "comma" and
"question mark" become the corresponding punctuation. Spell out numbers
below ten; keep larger numbers as digits.`

	DefaultDictionary = `The speaker may use specialized vocabulary. When a word sounds like a
technical term, prefer the technical spelling over the common one. Keep
product names, acronyms and code identifiers exactly as spoken.`
)

// Compose builds the rewrite instruction from the three ordered sections.
// A non-empty custom text replaces that section's default; the empty string
// behaves exactly like an absent custom. Disabled sections contribute
// nothing, so two included sections are always separated by one blank line.
func Compose(mainCustom string, advancedEnabled bool, advancedCustom string, dictionaryEnabled bool, dictionaryCustom string) string {
	parts := []string{sectionText(mainCustom, DefaultMain)}
	if advancedEnabled {
		parts = append(parts, sectionText(advancedCustom, DefaultAdvanced))
	}
	if dictionaryEnabled {
		parts = append(parts, sectionText(dictionaryCustom, DefaultDictionary))
	}
	return strings.Join(parts, "\n\n")
}

func sectionText(custom, fallback string) string {
	if custom != "" {
		return custom
	}
	return fallback
}
