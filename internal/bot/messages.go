package bot

import (
	"errors"
	"fmt"

	"imagegen-bot/internal/models"
)

// Messages - тексты ответов бота. Каждый заканчивается строкой с подписью команды.
type Messages struct {
	Attribution string
}

func NewMessages(attribution string) Messages {
	return Messages{Attribution: attribution}
}

func (m Messages) withAttribution(body string) string {
	return fmt.Sprintf("%s\n\n_%s_", body, m.Attribution)
}

func (m Messages) Welcome() string {
	return m.withAttribution(`🎨 Welcome to the AI Image Generator Bot!

Send me any text description and I'll create a beautiful image for you using AI.

**Commands:**
/start - Get started
/help - View help

Simply type your image description and I'll generate it for you!`)
}

func (m Messages) Help() string {
	return m.withAttribution(`📖 **How to use the AI Image Generator Bot:**

1️⃣ Simply send me a text description
2️⃣ Wait for the AI to generate your image
3️⃣ Download or share your creation

**Tips for better results:**
• Be descriptive with details
• Mention colors, styles, moods
• Specify composition (wide, portrait, etc.)

**Commands:**
/start - Restart bot
/help - Show this help

**Examples:**
"A majestic sunset over a mountain landscape with purple clouds"
"A futuristic city with flying cars at night"
"Abstract art with vibrant colors and geometric shapes"`)
}

func (m Messages) TooShort() string {
	return m.withAttribution("❌ Please provide a more detailed description for better results.")
}

func (m Messages) TooLong() string {
	return m.withAttribution(fmt.Sprintf("❌ Description is too long. Please keep it under %d characters.", MaxPromptLength))
}

func (m Messages) PolicyViolation() string {
	return m.withAttribution(`⚠️ **Content Policy Violation**

I cannot generate inappropriate or harmful content. Please provide a different description that follows our content guidelines.`)
}

// Rejection подбирает ответ для ошибки ValidatePrompt.
func (m Messages) Rejection(err error) string {
	switch {
	case errors.Is(err, models.ErrPromptTooShort):
		return m.TooShort()
	case errors.Is(err, models.ErrPromptTooLong):
		return m.TooLong()
	default:
		return m.PolicyViolation()
	}
}

func (m Messages) Generating(prompt string) string {
	return m.withAttribution(fmt.Sprintf(`🎨 Generating your image...

"%s"

This may take a few seconds...`, prompt))
}

func (m Messages) Success(prompt string) string {
	return m.withAttribution(fmt.Sprintf(`✨ Here's your AI-generated image!

Prompt: "%s"
Generated successfully ⚡`, prompt))
}

func (m Messages) GenerationFailed() string {
	return m.withAttribution(`❌ **Image Generation Failed**

Sorry, I couldn't generate your image right now. This could be due to:
• Server overload
• Network issues
• Content policy restrictions

Please try again in a few moments or rephrase your description.`)
}

// Apology отправляется верхнеуровневым обработчиком при непредвиденной ошибке.
func (m Messages) Apology() string {
	return m.withAttribution("❌ Something went wrong. Please try again later.")
}
