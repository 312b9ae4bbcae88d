package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "app.title", "Healing Home Scripts")
	message.SetString(lang, "app.tagline", "Quick-access trauma-informed scripts for challenging moments with your child")
	message.SetString(lang, "app.intro", "In the heat of the moment, tap a situation below for scripts that bring calm, connection, and healing.")

	// Loading
	message.SetString(lang, "loading.message", "Loading healing scripts...")

	// Grid
	message.SetString(lang, "principles.show", "Show Core Principles")
	message.SetString(lang, "principles.hide", "Hide Core Principles")
	message.SetString(lang, "principles.heading", "Core Principles of The Healing Home Approach™")
	message.SetString(lang, "situation.script_count", "%d scripts available")
	message.SetString(lang, "situation.view", "View Scripts")

	// Detail
	message.SetString(lang, "detail.back", "← Back to situations")
	message.SetString(lang, "detail.subtitle", "Tap any script to help you respond with calm and connection")
	message.SetString(lang, "detail.scripts_heading", "Scripts to Use")
	message.SetString(lang, "detail.copy_hint", "Tap any script to copy it to your clipboard")
	message.SetString(lang, "detail.copied", "Copied to clipboard")
	message.SetString(lang, "detail.principles_heading", "Remember")

	// Footer
	message.SetString(lang, "footer.based_on", "Based on")
	message.SetString(lang, "footer.approach", "The Healing Home Approach™")
	message.SetString(lang, "footer.about", "Trauma-informed parenting rooted in neuroscience and attachment theory")

	// Errors
	message.SetString(lang, "error.not_found.title", "Page not found")
	message.SetString(lang, "error.not_found.body", "That page does not exist.")
	message.SetString(lang, "error.server.title", "Something went wrong")
	message.SetString(lang, "error.server.body", "Please try again in a moment.")
	message.SetString(lang, "error.unavailable.body", "The service is restarting. Please try again in a moment.")
	message.SetString(lang, "error.home", "Go to situations")
}
