package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRecognition(t *testing.T) {
	out, err := NewPromptBuilder().Render(TemplateRecognition, RecognitionData{Language: "pt-BR"})
	require.NoError(t, err)
	assert.Contains(t, out, "Write both values in pt-BR.")
	assert.Contains(t, out, `"objectName"`)
}

func TestRenderCardSynthesis(t *testing.T) {
	out, err := DefaultPromptBuilder().Render(TemplateCardSynthesis, CardSynthesisData{
		ObjectName: "Maçã",
		Category:   "Alimentos",
		Language:   "pt-BR",
	})
	require.NoError(t, err)
	assert.Contains(t, out, `"Maçã"`)
	assert.Contains(t, out, "Category: Alimentos")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := NewPromptBuilder().Render(TemplateName("missing.yaml"), nil)
	assert.Error(t, err)
}

func TestRenderCachesTemplate(t *testing.T) {
	pb := NewPromptBuilder()
	_, err := pb.Render(TemplateRecognition, RecognitionData{Language: "en"})
	require.NoError(t, err)
	_, ok := pb.templates[TemplateRecognition]
	assert.True(t, ok)
}
