package domain

import (
	"fmt"
	"strings"
)

const LanguagePreferenceKey = "app_lang"

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageBangla  Language = "bn"

	DefaultLanguage = LanguageEnglish
)

func ParseLanguage(raw string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(raw)))
	switch lang {
	case LanguageEnglish, LanguageBangla:
		return lang, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, raw)
	}
}

func (l Language) Toggle() Language {
	if l == LanguageBangla {
		return LanguageEnglish
	}

	return LanguageBangla
}
