package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	got := render(askDOBMessages, "en", map[string]string{"name": "Sia"})
	require.Contains(t, got, "Sia")
	require.NotContains(t, got, "{name}")
}

func TestRenderFallsBackToDefaultLocale(t *testing.T) {
	got := render(askNameMessages, "fr", nil)
	require.Equal(t, askNameMessages["en"], got)
}

func TestMatchLocale(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"English", "en"},
		{"  hindi ", "hi"},
		{"MARATHI", "mr"},
		{"I'd like English please", "en"},
		{"hindi me baat karo", "hi"},
		{"français", "en"}, // unknown falls back
		{"", "en"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, matchLocale(tc.input), "input %q", tc.input)
	}
}

func TestMatchAnswer(t *testing.T) {
	cases := []struct {
		input string
		code  string
		ok    bool
	}{
		{"Yes", "yes", true},
		{"sometimes", "sometimes", true},
		{"No", "no", true},
		{"Not Sure", "not_sure", true},
		{"not sure about this one", "not_sure", true},
		{"हां", "yes", true},
		{"कधीकधी", "sometimes", true},
		{"खात्री नाही", "not_sure", true},
		{"banana", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tc := range cases {
		code, ok := matchAnswer(tc.input)
		require.Equal(t, tc.ok, ok, "input %q", tc.input)
		require.Equal(t, tc.code, code, "input %q", tc.input)
	}
}

func TestIsAffirmative(t *testing.T) {
	for _, input := range []string{"yes", "Yes", " Y ", "हां", "होय"} {
		require.True(t, isAffirmative(input), "input %q", input)
	}
	for _, input := range []string{"no", "maybe", "yess", ""} {
		require.False(t, isAffirmative(input), "input %q", input)
	}
}

func TestGlobalCommandPhrasesAreExactMatch(t *testing.T) {
	require.True(t, matchesPhrase("restart", restartPhrases))
	require.True(t, matchesPhrase("start over", restartPhrases))
	require.True(t, matchesPhrase("new", restartPhrases))
	require.False(t, matchesPhrase("please restart the bot", restartPhrases))
	require.True(t, matchesPhrase("help", helpPhrases))
	require.False(t, matchesPhrase("helpful", helpPhrases))
}

func TestAnswerButtonsFor(t *testing.T) {
	require.Equal(t, []string{"Yes", "Sometimes", "No", "Not Sure"}, answerButtonsFor("en"))
	require.Equal(t, answerButtons["hi"], answerButtonsFor("hi"))
	require.Equal(t, answerButtons["en"], answerButtonsFor("xx"))
}

func TestEveryTemplateCoversAllLocales(t *testing.T) {
	tables := map[string]map[string]string{
		"welcome":                  welcomeMessages,
		"ask_name":                 askNameMessages,
		"ask_dob":                  askDOBMessages,
		"invalid_dob":              invalidDOBMessages,
		"ask_gestational":          askGestationalMessages,
		"ask_gestational_weeks":    askGestationalWeeksMessages,
		"invalid_gestational":      invalidGestationalWeeksMessages,
		"starting_assessment":      startingAssessmentMessages,
		"question_progress":        questionProgressMessages,
		"use_buttons":              useButtonsMessages,
		"assessment_complete":      assessmentCompleteMessages,
		"corrected_age_note":       correctedAgeNotes,
		"already_complete":         alreadyCompleteMessages,
		"error":                    errorMessages,
		"help":                     helpMessages,
		"resume_prompt":            resumePrompts,
	}
	for name, table := range tables {
		for _, locale := range []string{"en", "hi", "mr"} {
			require.NotEmpty(t, table[locale], "%s missing locale %s", name, locale)
		}
	}
	for _, locale := range []string{"en", "hi", "mr"} {
		require.Len(t, resumeButtons[locale], 2, "resume buttons for %s", locale)
	}
}
