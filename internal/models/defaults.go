package models

// Defaults applied when a document is exported or synthesized.
const (
	DefaultAuthor      = "익명"
	DefaultStoryText   = "이야기가 계속됩니다..."
	DefaultEndingText  = "이야기가 끝났습니다."
	DefaultEndingTitle = "엔딩"

	ImplicitEndingPrefix  = "ending-default-"
	ImplicitEndingTitle   = "이야기 끝"
	ImplicitEndingMessage = "다른 선택을 해보세요!"
	ImplicitChoiceLabel   = "다음"
	ImplicitChoiceEmoji   = "➡️"

	StartEmoji  = "⭐"
	EndingEmoji = "🏁"
)

// Themes known to the player. The first entry is the default.
var Themes = []string{"christmas", "space"}

// DefaultTheme is used when a story names no known theme.
const DefaultTheme = "christmas"

// IsKnownTheme reports whether theme is one of Themes.
func IsKnownTheme(theme string) bool {
	for _, t := range Themes {
		if t == theme {
			return true
		}
	}
	return false
}

// ChoiceEmoji returns the marker shown next to a choice with the given letter.
func ChoiceEmoji(letter string) string {
	if letter == LetterB {
		return "💫"
	}
	return "⭐"
}

// LetterAt returns the letter of the choice at position i.
func LetterAt(i int) string {
	if i == 0 {
		return LetterA
	}
	return LetterB
}
