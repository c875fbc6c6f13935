package offline

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.AmericanEnglish

	message.SetString(lang, "offline.title", "Offline")
	message.SetString(lang, "offline.heading", "You are offline")
	message.SetString(lang, "offline.message", "You are offline and this content is not available yet.")
	message.SetString(lang, "offline.features_heading", "You can still:")
	message.SetString(lang, "offline.retry", "Try again")
	message.SetString(lang, "offline.feature.meetings", "Review recently opened meetings")
	message.SetString(lang, "offline.feature.notes", "Read and edit cached notes")
	message.SetString(lang, "offline.feature.templates", "Browse saved templates")
}
