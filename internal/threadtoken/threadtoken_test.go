package threadtoken_test

import (
	"testing"

	"ideagraph/internal/threadtoken"

	"github.com/stretchr/testify/assert"
)

func TestShortIDForIsDeterministic(t *testing.T) {
	a := threadtoken.ShortIDFor("task-1")
	b := threadtoken.ShortIDFor("task-1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 6)
}

func TestShortIDForDiffersAcrossIDs(t *testing.T) {
	assert.NotEqual(t, threadtoken.ShortIDFor("task-1"), threadtoken.ShortIDFor("task-2"))
}

func TestFormatSubjectInsertsOnce(t *testing.T) {
	subject := threadtoken.FormatSubject("Login broken", "A2B3C4")
	assert.Equal(t, "Login broken [IG-TASK:#A2B3C4]", subject)

	again := threadtoken.FormatSubject(subject, "A2B3C4")
	assert.Equal(t, subject, again)
}

func TestExtractShortIDRoundTrip(t *testing.T) {
	subject := threadtoken.FormatSubject("Re: Login broken", "a2b3c4")
	assert.Equal(t, "A2B3C4", threadtoken.ExtractShortID(subject))
}

func TestExtractShortIDNoMatch(t *testing.T) {
	assert.Equal(t, "", threadtoken.ExtractShortID("no token here"))
}

func TestExtractShortIDCaseInsensitive(t *testing.T) {
	assert.Equal(t, "ABC123", threadtoken.ExtractShortID("Re: thing [ig-task:#abc123]"))
}

func TestExtractShortIDLongerForms(t *testing.T) {
	assert.Equal(t, "ABCDEFG", threadtoken.ExtractShortID("[IG-TASK:#ABCDEFG]"))
	assert.Equal(t, "ABCDEFGH", threadtoken.ExtractShortID("[IG-TASK:#ABCDEFGH]"))
}
