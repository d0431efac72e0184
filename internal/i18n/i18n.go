// Package i18n holds the small set of user-facing messages the client
// produces on its own, in every supported locale.
package i18n

import (
	"golang.org/x/text/language"
)

// Message keys.
const (
	NetworkError  = "network_error"
	RequestFailed = "request_failed"
	UnknownError  = "unknown_error"
)

// DefaultLocale is used when a locale is empty or not supported.
var DefaultLocale = language.English

var supported = []language.Tag{
	language.English, // first entry is the matcher fallback
	language.French,
	language.Spanish,
	language.German,
}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[string]string{
	language.English: {
		NetworkError:  "Network error. Please check your connection and try again.",
		RequestFailed: "Request failed",
		UnknownError:  "An unknown error occurred",
	},
	language.French: {
		NetworkError:  "Erreur réseau. Vérifiez votre connexion et réessayez.",
		RequestFailed: "La requête a échoué",
		UnknownError:  "Une erreur inconnue est survenue",
	},
	language.Spanish: {
		NetworkError:  "Error de red. Comprueba tu conexión e inténtalo de nuevo.",
		RequestFailed: "La solicitud falló",
		UnknownError:  "Se produjo un error desconocido",
	},
	language.German: {
		NetworkError:  "Netzwerkfehler. Bitte überprüfe deine Verbindung und versuche es erneut.",
		RequestFailed: "Anfrage fehlgeschlagen",
		UnknownError:  "Ein unbekannter Fehler ist aufgetreten",
	},
}

// Match returns the supported tag closest to locale. Unparseable or empty
// locales fall back to DefaultLocale.
func Match(locale string) language.Tag {
	if locale == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLocale
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultLocale
	}
	return supported[idx]
}

// Normalize returns the canonical BCP 47 form of locale, or an error if it
// cannot be parsed.
func Normalize(locale string) (string, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// T returns the message for key in the given locale, falling back to English
// and finally to the key itself.
func T(locale, key string) string {
	if msg, ok := catalog[Match(locale)][key]; ok {
		return msg
	}
	if msg, ok := catalog[DefaultLocale][key]; ok {
		return msg
	}
	return key
}
