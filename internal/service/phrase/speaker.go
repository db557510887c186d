package phrase

import (
	"context"

	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/service/ai"
	"github.com/kapu/pec-ai-go/internal/service/settings"
	"github.com/kapu/pec-ai-go/internal/util"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// HistorySaver records a spoken phrase.
type HistorySaver interface {
	SavePhrase(ctx context.Context, items []domain.PhraseItem) (*domain.SavedPhrase, error)
}

// SpeakResult is the outcome of one speech step. Spoken is false when the
// phrase was empty and nothing was sent to the voice.
type SpeakResult struct {
	Spoken bool                 `json:"spoken"`
	Speech *domain.SpeechResult `json:"speech,omitempty"`
}

// Speaker drives the Idle -> Speaking -> Idle step of a session.
type Speaker struct {
	voice    ai.VoiceSynthesizer
	settings settings.Store
	defaults domain.SpeechSettings
	history  HistorySaver
	logger   *zap.Logger
}

func NewSpeaker(voice ai.VoiceSynthesizer, store settings.Store, defaults domain.SpeechSettings, history HistorySaver, logger *zap.Logger) *Speaker {
	return &Speaker{
		voice:    voice,
		settings: store,
		defaults: defaults,
		history:  history,
		logger:   logger,
	}
}

// Speak synthesizes the session's current phrase. A second call while one is
// in flight fails with ErrAlreadySpeaking. Saving to history runs alongside
// synthesis and never fails the call.
func (s *Speaker) Speak(ctx context.Context, session *Session) (*SpeakResult, error) {
	items, text := session.Assembly.Snapshot()
	if text == "" {
		return &SpeakResult{Spoken: false}, nil
	}
	if n := len([]rune(text)); n > constants.AIInputLimits.MaxSpeechRunes {
		return nil, errors.NewValidationError("phrase is too long to speak", "text", n)
	}

	if !session.beginSpeaking() {
		return nil, errors.NewAlreadySpeakingError(session.ID)
	}
	defer session.endSpeaking()

	voiceSettings := s.loadSettings(ctx)

	var (
		speech   domain.SpeechResult
		speakErr error
		wg       conc.WaitGroup
	)
	wg.Go(func() {
		speech, speakErr = s.voice.Speak(ctx, text, voiceSettings)
	})
	if s.history != nil {
		wg.Go(func() {
			s.saveHistory(ctx, items)
		})
	}
	wg.Wait()

	if speakErr != nil {
		s.logger.Warn("Speech synthesis failed",
			zap.String("session", session.ID),
			zap.Error(speakErr),
		)
		return nil, errors.NewSynthesisError("could not speak phrase", speakErr, map[string]any{"text": util.TruncateString(text, 80)})
	}

	return &SpeakResult{Spoken: true, Speech: &speech}, nil
}

func (s *Speaker) loadSettings(ctx context.Context) domain.SpeechSettings {
	if s.settings == nil {
		return s.defaults
	}
	loaded, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Debug("Using default speech settings", zap.Error(err))
		return s.defaults
	}
	return loaded.WithDefaults(s.defaults)
}

func (s *Speaker) saveHistory(ctx context.Context, items []domain.PhraseItem) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.PhraseConfig.HistorySaveTimeout)
	defer cancel()

	if _, err := s.history.SavePhrase(ctx, items); err != nil {
		s.logger.Warn("Failed to save phrase to history", zap.Error(err))
	}
}
