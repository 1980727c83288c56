package bot

import (
	"strings"
	"unicode/utf8"

	"imagegen-bot/internal/models"
)

const (
	MinPromptLength = 3
	MaxPromptLength = 500
)

// deniedKeywords проверяются как подстроки без учета регистра.
var deniedKeywords = []string{
	"violence",
	"violent",
	"gore",
	"explicit",
	"nude",
	"nsfw",
	"inappropriate",
}

// ValidatePrompt проверяет длину (в символах Unicode) и наличие запрещенных слов.
// Ошибка всегда имеет вид models.KindValidation.
func ValidatePrompt(prompt string) error {
	length := utf8.RuneCountInString(prompt)
	if length < MinPromptLength {
		return models.NewValidationError(models.ErrPromptTooShort)
	}
	if length > MaxPromptLength {
		return models.NewValidationError(models.ErrPromptTooLong)
	}

	lower := strings.ToLower(prompt)
	for _, keyword := range deniedKeywords {
		if strings.Contains(lower, keyword) {
			return models.NewValidationError(models.ErrPromptPolicy)
		}
	}
	return nil
}
