package chat

import (
	"fmt"
	"strings"
)

// Locale selects the copy used for fixed notices.
type Locale string

const (
	LocaleES Locale = "es"
	LocaleEN Locale = "en"
)

// ParseLocale accepts "es" or "en".
func ParseLocale(s string) (Locale, error) {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case LocaleES:
		return LocaleES, nil
	case LocaleEN:
		return LocaleEN, nil
	default:
		return "", fmt.Errorf("unsupported locale %q", s)
	}
}

func (l Locale) pageAbbrev() string {
	if l == LocaleEN {
		return "p."
	}
	return "pág."
}

// Notices is the fixed copy shown in place of an answer.
type Notices struct {
	RateLimited string
	Failed      string
	Welcome     string
}

// DefaultNotices returns the built-in copy for the locale.
func DefaultNotices(l Locale) Notices {
	if l == LocaleEN {
		return Notices{
			RateLimited: "⏱️ Rate limit reached. Wait a minute or try the full version.",
			Failed:      "❌ Could not process your question. Please try again.",
			Welcome:     "👋 Hi! Ask me about VAT, income tax, filing deadlines or any other tax question.\n\n💡 This is a limited demo.",
		}
	}
	return Notices{
		RateLimited: "⏱️ Límite alcanzado. Espera 1 minuto o accede a la versión completa.",
		Failed:      "❌ Error al procesar tu pregunta. Intenta de nuevo.",
		Welcome:     "👋 ¡Hola! Pregúntame sobre IVA, IRPF, impuestos de sociedades, plazos fiscales, o cualquier duda tributaria.\n\n💡 Esta es una versión demo limitada.",
	}
}

// ExampleQuestions are suggested prompts for an empty conversation.
func ExampleQuestions(l Locale) []string {
	if l == LocaleEN {
		return []string{
			"When is quarterly VAT filed?",
			"What is form 303?",
			"How does the VAT deduction work?",
		}
	}
	return []string{
		"¿Cuándo se presenta el IVA trimestral?",
		"¿Qué es el modelo 303?",
		"¿Cómo funciona la deducción del IVA?",
	}
}
