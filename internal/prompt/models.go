package prompt

// RecognitionData feeds the object identification prompt.
type RecognitionData struct {
	Language string
}

// CardSynthesisData feeds the card rendering prompt.
type CardSynthesisData struct {
	ObjectName string
	Category   string
	Language   string
}
