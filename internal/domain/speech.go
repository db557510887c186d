package domain

// SpeechSettings are the per-principal voice preferences.
type SpeechSettings struct {
	VoiceID  string `json:"voiceId"`
	Language string `json:"language"`
}

// WithDefaults fills blank fields from defaults.
func (s SpeechSettings) WithDefaults(defaults SpeechSettings) SpeechSettings {
	if s.VoiceID == "" {
		s.VoiceID = defaults.VoiceID
	}
	if s.Language == "" {
		s.Language = defaults.Language
	}
	return s
}

// SpeechResult is the synthesized audio of one utterance.
type SpeechResult struct {
	Text     string `json:"text"`
	VoiceID  string `json:"voiceId"`
	Language string `json:"language"`
	MIMEType string `json:"mimeType"`
	AudioURI string `json:"audio"`
}
