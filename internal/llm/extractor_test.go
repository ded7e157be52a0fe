package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContract = Contract{
	Name: "Example",
	Fields: []Field{
		{Name: "verified_skills", Type: "array", Description: "skills found on both sides"},
		{Name: "explanation"},
	},
}

func TestContractAppend(t *testing.T) {
	prompt := testContract.Append("  Compare the lists.\nResume skills: [\"Go\"]  ")

	assert.True(t, strings.HasPrefix(prompt, "Compare the lists.\nResume skills: [\"Go\"]\n\n"))
	assert.Contains(t, prompt, "- verified_skills (array): skills found on both sides\n")
	assert.Contains(t, prompt, "- explanation (string)\n")
	assert.True(t, strings.HasSuffix(prompt, "no code blocks.\n"))
}

func TestContractAppend_EmptyTask(t *testing.T) {
	prompt := Contract{}.Append("   ")
	assert.Equal(t, "Return a JSON object with exactly these keys:\n\nReturn ONLY the JSON object, no markdown, no code blocks.\n", prompt)
}

func TestContractMissing(t *testing.T) {
	missing, err := testContract.Missing("```json\n{\"explanation\": \"ok\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"verified_skills"}, missing)

	missing, err = testContract.Missing(`{"verified_skills": [], "explanation": null}`)
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = testContract.Missing(`["not", "an", "object"]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Example reply is not a JSON object")
}
