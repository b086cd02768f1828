package speech

import "strings"

// DefaultLocale is used for any language that is not recognized.
const DefaultLocale = "en-US"

var localeByLanguage = map[string]string{
	"en":         "en-US",
	"english":    "en-US",
	"es":         "es-ES",
	"spanish":    "es-ES",
	"español":    "es-ES",
	"fr":         "fr-FR",
	"french":     "fr-FR",
	"de":         "de-DE",
	"german":     "de-DE",
	"it":         "it-IT",
	"italian":    "it-IT",
	"pt":         "pt-BR",
	"portuguese": "pt-BR",
}

// LocaleFor maps a detected language (short code or full name) to a provider locale.
func LocaleFor(language string) string {
	if locale, ok := localeByLanguage[strings.ToLower(strings.TrimSpace(language))]; ok {
		return locale
	}
	return DefaultLocale
}
