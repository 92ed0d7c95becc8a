package domain

import "strings"

// Language identifies the broadcast language of a story or translation.
type Language string

const (
	LanguageEnglish   Language = "english"
	LanguageAfrikaans Language = "afrikaans"
	LanguageXhosa     Language = "xhosa"
	LanguageZulu      Language = "zulu"
	LanguageSotho     Language = "sotho"
)

// Languages lists the languages the newsroom produces content in.
func Languages() []Language {
	return []Language{
		LanguageEnglish,
		LanguageAfrikaans,
		LanguageXhosa,
		LanguageZulu,
		LanguageSotho,
	}
}

// ParseLanguage normalizes a raw language string.
func ParseLanguage(input string) Language {
	return Language(strings.ToLower(strings.TrimSpace(input)))
}

// ReviewOutcome captures the reviewer's verdict when closing a review step.
type ReviewOutcome string

const (
	// OutcomeApprove advances the item to the next pipeline stage.
	OutcomeApprove ReviewOutcome = "approve"
	// OutcomeRevise returns the item to the sender for rework.
	OutcomeRevise ReviewOutcome = "revise"
	// OutcomeSubmit moves a draft into the review pipeline.
	OutcomeSubmit ReviewOutcome = "submit"
)
