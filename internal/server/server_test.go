package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kapu/pec-ai-go/internal/auth"
	"github.com/kapu/pec-ai-go/internal/config"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/service/library"
	"github.com/kapu/pec-ai-go/internal/service/phrase"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeGenerator struct {
	err       error
	gotUser   string
	gotLang   string
	gotMIME   string
	callCount int
}

func (f *fakeGenerator) GenerateCard(ctx context.Context, photo domain.EncodedImage, language string) (*domain.CardDraft, error) {
	f.callCount++
	if p, ok := domain.PrincipalFromContext(ctx); ok {
		f.gotUser = p.UserID
	}
	f.gotLang = language
	f.gotMIME = photo.MIMEType
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CardDraft{
		Name:      "Maçã",
		Category:  "Alimentos",
		CardImage: domain.NewEncodedImage(pngSignature, "image/png"),
	}, nil
}

type fakeManual struct {
	saved   int
	created int
}

func (f *fakeManual) CreateManualCard(_ context.Context, image domain.EncodedImage, name, category string) (*domain.Card, error) {
	if _, _, err := domain.NormalizeCardFields(name, category); err != nil {
		return nil, err
	}
	if err := image.Validate(0); err != nil {
		return nil, err
	}
	f.created++
	return &domain.Card{ID: uuid.NewString(), Name: name, Category: category, ImageURL: "http://cdn/card.png"}, nil
}

func (f *fakeManual) SaveDraft(_ context.Context, draft *domain.CardDraft) (*domain.Card, error) {
	f.saved++
	return &domain.Card{ID: uuid.NewString(), Name: draft.Name, Category: draft.Category, ImageURL: "http://cdn/card.png"}, nil
}

type fakeLibrary struct {
	mu          sync.Mutex
	cards       map[string]*domain.Card
	gotCategory string
	deleted     []string
	// deleteOnGet removes the card right after it is looked up once.
	deleteOnGet bool
}

func newFakeLibrary(cards ...*domain.Card) *fakeLibrary {
	l := &fakeLibrary{cards: map[string]*domain.Card{}}
	for _, c := range cards {
		l.cards[c.ID] = c
	}
	return l
}

func (l *fakeLibrary) GetCard(_ context.Context, id string) (*domain.Card, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.cards[id]
	if !ok {
		return nil, errors.NewNotFoundError("card not found", "card", id)
	}
	if l.deleteOnGet {
		delete(l.cards, id)
		l.deleteOnGet = false
	}
	cp := *c
	return &cp, nil
}

func (l *fakeLibrary) GetCardsForPrincipal(_ context.Context) ([]*domain.Card, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*domain.Card, 0, len(l.cards))
	for _, c := range l.cards {
		out = append(out, c)
	}
	return out, nil
}

func (l *fakeLibrary) Categories(ctx context.Context) ([]string, error) {
	cards, _ := l.GetCardsForPrincipal(ctx)
	return domain.Categories(cards), nil
}

func (l *fakeLibrary) CardsByCategory(ctx context.Context, category string) ([]*domain.Card, error) {
	l.gotCategory = category
	cards, _ := l.GetCardsForPrincipal(ctx)
	return domain.FilterByCategory(cards, category), nil
}

func (l *fakeLibrary) Favorites(ctx context.Context) ([]*domain.Card, error) {
	cards, _ := l.GetCardsForPrincipal(ctx)
	return domain.Favorites(cards), nil
}

func (l *fakeLibrary) ToggleFavorite(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.cards[id]
	if !ok {
		return false, errors.NewNotFoundError("card not found", "card", id)
	}
	c.IsFavorite = !c.IsFavorite
	return c.IsFavorite, nil
}

func (l *fakeLibrary) UpdateCard(_ context.Context, id string, update domain.CardUpdate) (*domain.Card, error) {
	name, category, err := domain.NormalizeCardFields(update.Name, update.Category)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.cards[id]
	if !ok {
		return nil, errors.NewNotFoundError("card not found", "card", id)
	}
	c.Name, c.Category = name, category
	cp := *c
	return &cp, nil
}

func (l *fakeLibrary) DeleteCardRecord(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cards[id]; !ok {
		return errors.NewNotFoundError("card not found", "card", id)
	}
	delete(l.cards, id)
	l.deleted = append(l.deleted, id)
	return nil
}

func (l *fakeLibrary) DeleteMany(ctx context.Context, ids []string) (*library.BulkDeleteResult, error) {
	result := &library.BulkDeleteResult{Deleted: []string{}, Failed: map[string]string{}}
	for _, id := range ids {
		if err := l.DeleteCardRecord(ctx, id); err != nil {
			result.Failed[id] = errors.CodeOf(err)
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result, nil
}

type fakeSpeaker struct {
	err      error
	lastText string
}

func (f *fakeSpeaker) Speak(_ context.Context, session *phrase.Session) (*phrase.SpeakResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	text := session.Assembly.SpeechText()
	f.lastText = text
	if text == "" {
		return &phrase.SpeakResult{Spoken: false}, nil
	}
	return &phrase.SpeakResult{Spoken: true, Speech: &domain.SpeechResult{Text: text, MIMEType: "audio/wav"}}, nil
}

type fakeHistory struct {
	phrases []*domain.SavedPhrase
}

func (f *fakeHistory) ListSavedPhrases(context.Context) ([]*domain.SavedPhrase, error) {
	return f.phrases, nil
}

func (f *fakeHistory) DeletePhrase(_ context.Context, id string) error {
	for i, p := range f.phrases {
		if p.ID == id {
			f.phrases = append(f.phrases[:i], f.phrases[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("phrase not found", "phrase", id)
}

type fakeSettings struct {
	value domain.SpeechSettings
}

func (f *fakeSettings) Load(context.Context) (domain.SpeechSettings, error) {
	return f.value.WithDefaults(domain.SpeechSettings{VoiceID: "Kore", Language: "pt-BR"}), nil
}

func (f *fakeSettings) Save(_ context.Context, value domain.SpeechSettings) error {
	f.value = value
	return nil
}

type fakeHealth struct {
	status map[string]bool
}

func (f *fakeHealth) Ping(context.Context) map[string]bool {
	return f.status
}

type testEnv struct {
	router    *gin.Engine
	token     string
	generator *fakeGenerator
	manual    *fakeManual
	library   *fakeLibrary
	speaker   *fakeSpeaker
	history   *fakeHistory
	settings  *fakeSettings
	health    *fakeHealth
	sessions  *phrase.Sessions
}

func newTestEnv(t *testing.T, cards ...*domain.Card) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokens("test-secret", time.Hour)
	token, err := tokens.Generate("user-1")
	require.NoError(t, err)

	env := &testEnv{
		token:     token,
		generator: &fakeGenerator{},
		manual:    &fakeManual{},
		library:   newFakeLibrary(cards...),
		speaker:   &fakeSpeaker{},
		history:   &fakeHistory{},
		settings:  &fakeSettings{},
		health:    &fakeHealth{status: map[string]bool{"Gemini": true}},
		sessions:  phrase.NewSessions(" "),
	}
	env.router = NewRouter(Dependencies{
		Tokens:         tokens,
		Generator:      env.generator,
		Manual:         env.manual,
		Library:        env.library,
		Sessions:       env.sessions,
		Speaker:        env.speaker,
		History:        env.history,
		Settings:       env.settings,
		Health:         env.health,
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxImageBytes:  1024,
		Logger:         zap.NewNop(),
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["code"]
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ai", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	env.health.status = map[string]bool{"Gemini": false, "OpenAI": false}
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ai", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, errors.CodeUnauthenticated, errorCode(t, rec), header)
	}
}

func TestGenerateCardFromDataURI(t *testing.T) {
	env := newTestEnv(t)
	image := domain.NewEncodedImage(pngSignature, "image/png")

	rec := env.do(t, http.MethodPost, "/api/cards/generate", generateRequest{Image: image.DataURI(), Language: "pt-BR"})
	require.Equal(t, http.StatusOK, rec.Code)

	draft := decode[draftDTO](t, rec)
	assert.Equal(t, "Maçã", draft.Name)
	assert.Equal(t, "Alimentos", draft.Category)
	assert.Contains(t, draft.CardImage, "data:image/png;base64,")
	assert.Equal(t, "user-1", env.generator.gotUser)
	assert.Equal(t, "pt-BR", env.generator.gotLang)
	assert.Zero(t, env.manual.saved)
}

func TestOversizedJSONImageIsRejectedBeforeProcessing(t *testing.T) {
	env := newTestEnv(t)
	payload := "data:image/png;base64," + strings.Repeat("A", 256<<10)

	rec := env.do(t, http.MethodPost, "/api/cards/generate", generateRequest{Image: payload})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeValidation, errorCode(t, rec))
	assert.Zero(t, env.generator.callCount)

	rec = env.do(t, http.MethodPost, "/api/cards/manual", manualCardRequest{Image: payload, Name: "Água", Category: "Bebidas"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeValidation, errorCode(t, rec))
	assert.Zero(t, env.manual.created)
}

func TestEncodedImageLimitCoversBase64Growth(t *testing.T) {
	assert.Equal(t, int64(1368+jsonImageSlack), encodedImageLimit(1024))
	assert.Equal(t, int64(4+jsonImageSlack), encodedImageLimit(1))
}

func TestGenerateCardSaveCreatesRecord(t *testing.T) {
	env := newTestEnv(t)
	image := domain.NewEncodedImage(pngSignature, "image/png")

	rec := env.do(t, http.MethodPost, "/api/cards/generate?save=true", generateRequest{Image: image.DataURI()})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, env.manual.saved)

	card := decode[domain.Card](t, rec)
	assert.Equal(t, "Maçã", card.Name)
}

func TestGenerateCardFailuresMapToStatus(t *testing.T) {
	env := newTestEnv(t)
	image := domain.NewEncodedImage(pngSignature, "image/png")

	env.generator.err = errors.NewRecognitionError("could not identify object", nil)
	rec := env.do(t, http.MethodPost, "/api/cards/generate?save=true", generateRequest{Image: image.DataURI()})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errors.CodeRecognitionFailed, errorCode(t, rec))
	assert.Zero(t, env.manual.saved)

	env.generator.err = errors.NewSynthesisError("could not generate card image", nil, nil)
	rec = env.do(t, http.MethodPost, "/api/cards/generate", generateRequest{Image: image.DataURI()})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errors.CodeSynthesisFailed, errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/api/cards/generate", generateRequest{Image: "not a data uri"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeValidation, errorCode(t, rec))
}

func multipartRequest(t *testing.T, token, path, field string, data []byte, values map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range values {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestGenerateCardFromMultipartUpload(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, env.token, "/api/cards/generate", "photo", pngSignature, map[string]string{"language": "en"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", env.generator.gotMIME)
	assert.Equal(t, "en", env.generator.gotLang)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, env.token, "/api/cards/generate", "photo", bytes.Repeat([]byte{1}, 2048), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, env.generator.callCount)
}

func TestManualCard(t *testing.T) {
	env := newTestEnv(t)
	image := domain.NewEncodedImage(pngSignature, "image/png")

	rec := env.do(t, http.MethodPost, "/api/cards/manual", manualCardRequest{Image: image.DataURI(), Name: "Água", Category: "Bebidas"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Água", decode[domain.Card](t, rec).Name)

	rec = env.do(t, http.MethodPost, "/api/cards/manual", manualCardRequest{Image: image.DataURI(), Name: "  ", Category: "Bebidas"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeValidation, errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/api/cards/manual", manualCardRequest{Name: "Água", Category: "Bebidas"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, env.token, "/api/cards/manual", "image", pngSignature, map[string]string{"name": "Bola", "category": "Brinquedos"}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, env.manual.created)
}

func TestListAndMutateCards(t *testing.T) {
	water := &domain.Card{ID: uuid.NewString(), Name: "Água", Category: "Bebidas"}
	apple := &domain.Card{ID: uuid.NewString(), Name: "Maçã", Category: "Alimentos"}
	env := newTestEnv(t, water, apple)

	rec := env.do(t, http.MethodGet, "/api/cards?category=Bebidas", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bebidas", env.library.gotCategory)
	assert.Len(t, decode[map[string][]*domain.Card](t, rec)["cards"], 1)

	rec = env.do(t, http.MethodPost, "/api/cards/"+apple.ID+"/favorite", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["isFavorite"])

	rec = env.do(t, http.MethodGet, "/api/cards?favorites=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	favorites := decode[map[string][]*domain.Card](t, rec)["cards"]
	require.Len(t, favorites, 1)
	assert.Equal(t, apple.ID, favorites[0].ID)

	rec = env.do(t, http.MethodPatch, "/api/cards/"+water.ID, updateCardRequest{Name: " Água gelada ", Category: "Bebidas"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[domain.Card](t, rec)
	assert.Equal(t, water.ID, updated.ID)
	assert.Equal(t, "Água gelada", updated.Name)

	rec = env.do(t, http.MethodGet, "/api/cards/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[map[string][]string](t, rec)["categories"], "all")

	rec = env.do(t, http.MethodDelete, "/api/cards/"+water.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/cards/"+water.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.CodeNotFound, errorCode(t, rec))
}

func TestBulkDelete(t *testing.T) {
	water := &domain.Card{ID: uuid.NewString(), Name: "Água", Category: "Bebidas"}
	env := newTestEnv(t, water)
	missing := uuid.NewString()

	rec := env.do(t, http.MethodPost, "/api/cards/bulk-delete", bulkDeleteRequest{IDs: []string{water.ID, missing}})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[library.BulkDeleteResult](t, rec)
	assert.Equal(t, []string{water.ID}, result.Deleted)
	assert.Equal(t, errors.CodeNotFound, result.Failed[missing])

	rec = env.do(t, http.MethodPost, "/api/cards/bulk-delete", bulkDeleteRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPhraseSessionFlow(t *testing.T) {
	water := &domain.Card{ID: uuid.NewString(), Name: "Água", Category: "Bebidas"}
	env := newTestEnv(t, water)
	base := "/api/phrase/tablet"

	rec := env.do(t, http.MethodPost, base+"/items/card", addCardItemRequest{CardID: water.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/items/text", addTextItemRequest{Text: "por favor"})
	require.Equal(t, http.StatusOK, rec.Code)

	view := decode[phraseDTO](t, rec)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Água por favor", view.Text)
	assert.Equal(t, "idle", view.State)

	rec = env.do(t, http.MethodPost, base+"/reorder", reorderRequest{DraggedID: view.Items[1].ID, TargetID: view.Items[0].ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "por favor Água", decode[phraseDTO](t, rec).Text)

	rec = env.do(t, http.MethodPost, base+"/move", moveRequest{ID: view.Items[1].ID, Direction: "right"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Água por favor", decode[phraseDTO](t, rec).Text)

	rec = env.do(t, http.MethodPost, base+"/move", moveRequest{ID: view.Items[1].ID, Direction: "up"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/speak", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[phrase.SpeakResult](t, rec).Spoken)
	assert.Equal(t, "Água por favor", env.speaker.lastText)

	rec = env.do(t, http.MethodDelete, base+"/items/"+view.Items[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "por favor", decode[phraseDTO](t, rec).Text)

	rec = env.do(t, http.MethodDelete, base+"/items/unknown", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[phraseDTO](t, rec).Items, 1)

	rec = env.do(t, http.MethodPost, base+"/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[phraseDTO](t, rec).Items)

	rec = env.do(t, http.MethodPost, base+"/speak", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[phrase.SpeakResult](t, rec).Spoken)
}

func TestPhraseSessionsArePerPrincipal(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/phrase/tablet/items/text", addTextItemRequest{Text: "oi"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, env.sessions.Get("user-1", "tablet").Assembly.Len())
	assert.Equal(t, 0, env.sessions.Get("user-2", "tablet").Assembly.Len())
}

func TestAddUnknownCardIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/phrase/tablet/items/card", addCardItemRequest{CardID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/phrase/tablet/items/text", addTextItemRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddCardDeletedMidRequestLeavesNoItem(t *testing.T) {
	water := &domain.Card{ID: uuid.NewString(), Name: "Água", Category: "Bebidas"}
	apple := &domain.Card{ID: uuid.NewString(), Name: "Maçã", Category: "Alimentos"}
	env := newTestEnv(t, water, apple)

	rec := env.do(t, http.MethodPost, "/api/phrase/tablet/items/card", addCardItemRequest{CardID: water.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	env.library.deleteOnGet = true
	rec = env.do(t, http.MethodPost, "/api/phrase/tablet/items/card", addCardItemRequest{CardID: apple.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/phrase/tablet", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[phraseDTO](t, rec)
	require.Len(t, got.Items, 1)
	assert.Equal(t, water.ID, got.Items[0].Card.ID)
	assert.Equal(t, "Água", got.Text)
}

func TestSpeakWhileSpeakingConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.speaker.err = errors.NewAlreadySpeakingError("tablet")

	rec := env.do(t, http.MethodPost, "/api/phrase/tablet/speak", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.CodeAlreadySpeaking, errorCode(t, rec))
}

func TestSavedPhrases(t *testing.T) {
	env := newTestEnv(t)
	saved := &domain.SavedPhrase{ID: uuid.NewString(), PhraseText: "Água por favor"}
	env.history.phrases = []*domain.SavedPhrase{saved}

	rec := env.do(t, http.MethodGet, "/api/phrases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]*domain.SavedPhrase](t, rec)["phrases"], 1)

	rec = env.do(t, http.MethodDelete, "/api/phrases/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/phrases/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSpeechSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/settings/speech", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Kore", decode[domain.SpeechSettings](t, rec).VoiceID)

	rec = env.do(t, http.MethodPut, "/api/settings/speech", domain.SpeechSettings{VoiceID: "Puck"})
	require.Equal(t, http.StatusOK, rec.Code)
	value := decode[domain.SpeechSettings](t, rec)
	assert.Equal(t, "Puck", value.VoiceID)
	assert.Equal(t, "pt-BR", value.Language)
}

func TestNewServerAppliesHeaderLimits(t *testing.T) {
	srv := NewServer(config.ServerConfig{
		Addr:              "127.0.0.1:0",
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    8 << 10,
	}, http.NotFoundHandler(), zap.NewNop())

	assert.Equal(t, 5*time.Second, srv.http.ReadHeaderTimeout)
	assert.Equal(t, 8<<10, srv.http.MaxHeaderBytes)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := NewServer(config.ServerConfig{Addr: "127.0.0.1:0"}, http.NotFoundHandler(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
