package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultPCMSampleRate = 24000
	pcmBitsPerSample     = 16
	pcmChannels          = 1
)

// VoiceSynthesizer turns one utterance into playable audio.
type VoiceSynthesizer interface {
	Speak(ctx context.Context, text string, settings domain.SpeechSettings) (domain.SpeechResult, error)
}

// GeminiVoice synthesizes speech with a Gemini TTS model.
type GeminiVoice struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiVoice(client *genai.Client, model string, logger *zap.Logger) *GeminiVoice {
	if model == "" {
		model = "gemini-2.5-flash-preview-tts"
	}
	return &GeminiVoice{client: client, model: model, logger: logger}
}

func (v *GeminiVoice) Speak(ctx context.Context, text string, settings domain.SpeechSettings) (domain.SpeechResult, error) {
	if v.client == nil {
		return domain.SpeechResult{}, fmt.Errorf("gemini client not initialized")
	}

	ctx, cancel := withTimeout(ctx, constants.AITimeouts.Speech)
	defer cancel()

	speech := &genai.SpeechConfig{LanguageCode: settings.Language}
	if settings.VoiceID != "" {
		speech.VoiceConfig = &genai.VoiceConfig{
			PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: settings.VoiceID},
		}
	}

	v.logger.Debug("Synthesizing speech",
		zap.String("model", v.model),
		zap.String("voice", settings.VoiceID),
		zap.String("language", settings.Language),
		zap.Int("length", len(text)),
	)

	resp, err := v.client.Models.GenerateContent(ctx, v.model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: text}}},
	}, &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig:       speech,
	})
	if err != nil {
		v.logger.Error("Speech synthesis failed", zap.String("model", v.model), zap.Error(err))
		return domain.SpeechResult{}, err
	}

	blob, ok := extractInlineData(resp, "audio/")
	if !ok {
		return domain.SpeechResult{}, fmt.Errorf("gemini %s returned no audio: %w", v.model, ErrEmptyResponse)
	}

	mimeType, audio := normalizeAudio(blob.MIMEType, blob.Data)
	return domain.SpeechResult{
		Text:     text,
		VoiceID:  settings.VoiceID,
		Language: settings.Language,
		MIMEType: mimeType,
		AudioURI: fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(audio)),
	}, nil
}

// normalizeAudio wraps raw L16 PCM in a WAV container so clients can play it.
// Other formats pass through.
func normalizeAudio(mimeType string, data []byte) (string, []byte) {
	base, params, _ := strings.Cut(strings.ToLower(mimeType), ";")
	base = strings.TrimSpace(base)
	if base != "audio/l16" && base != "audio/pcm" && !strings.Contains(params, "codec=pcm") {
		return base, data
	}
	return "audio/wav", wrapPCM(data, pcmSampleRate(params))
}

func pcmSampleRate(params string) int {
	for _, param := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || key != "rate" {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultPCMSampleRate
}

func wrapPCM(pcm []byte, sampleRate int) []byte {
	blockAlign := pcmChannels * pcmBitsPerSample / 8
	byteRate := sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(pcmChannels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(pcmBitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
