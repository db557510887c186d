package phrase

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/pkg/errors"
)

// Assembly is the ordered, mutable sequence of phrase items of one session.
// It is safe for concurrent use; each call is a single state transition.
type Assembly struct {
	mu        sync.Mutex
	items     []domain.PhraseItem
	delimiter string
	maxItems  int
	newID     func() string
}

func NewAssembly(delimiter string) *Assembly {
	if delimiter == "" {
		delimiter = " "
	}
	return &Assembly{
		delimiter: delimiter,
		maxItems:  constants.PhraseConfig.MaxSessionItems,
		newID:     uuid.NewString,
	}
}

// AddCard appends a snapshot of card at the tail.
func (a *Assembly) AddCard(card domain.Card) (domain.PhraseItem, error) {
	if strings.TrimSpace(card.ID) == "" {
		return domain.PhraseItem{}, errors.NewValidationError("card id is required", "card", "")
	}
	snapshot := card
	return a.append(domain.PhraseItem{Kind: domain.PhraseItemCard, Card: &snapshot})
}

// AddText appends a free-text token at the tail.
func (a *Assembly) AddText(text string) (domain.PhraseItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.PhraseItem{}, errors.NewValidationError("text is required", "text", "")
	}
	return a.append(domain.PhraseItem{Kind: domain.PhraseItemText, Text: text})
}

func (a *Assembly) append(item domain.PhraseItem) (domain.PhraseItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.maxItems > 0 && len(a.items) >= a.maxItems {
		return domain.PhraseItem{}, errors.NewValidationError(
			fmt.Sprintf("phrase cannot hold more than %d items", a.maxItems), "items", len(a.items))
	}
	item.ID = a.newID()
	a.items = append(a.items, item)
	return copyItem(item), nil
}

// Remove drops the item with id. Unknown ids are ignored.
func (a *Assembly) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexOf(id)
	if idx < 0 {
		return false
	}
	a.items = append(a.items[:idx], a.items[idx+1:]...)
	return true
}

// Reorder moves draggedID to the index targetID held before the move.
// Missing ids and self moves are no-ops.
func (a *Assembly) Reorder(draggedID, targetID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.reorder(draggedID, targetID)
}

func (a *Assembly) reorder(draggedID, targetID string) bool {
	if draggedID == targetID {
		return false
	}
	from := a.indexOf(draggedID)
	to := a.indexOf(targetID)
	if from < 0 || to < 0 {
		return false
	}

	dragged := a.items[from]
	a.items = append(a.items[:from], a.items[from+1:]...)
	a.items = append(a.items[:to], append([]domain.PhraseItem{dragged}, a.items[to:]...)...)
	return true
}

// MoveLeft swaps id with its left neighbour through Reorder.
func (a *Assembly) MoveLeft(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexOf(id)
	if idx <= 0 {
		return false
	}
	return a.reorder(id, a.items[idx-1].ID)
}

// MoveRight swaps id with its right neighbour through Reorder.
func (a *Assembly) MoveRight(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexOf(id)
	if idx < 0 || idx >= len(a.items)-1 {
		return false
	}
	return a.reorder(id, a.items[idx+1].ID)
}

func (a *Assembly) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
}

// RemoveByCardID drops every card item wrapping cardID and returns how many.
func (a *Assembly) RemoveByCardID(cardID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.items[:0]
	removed := 0
	for _, item := range a.items {
		if item.ReferencesCard(cardID) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(a.items); i++ {
		a.items[i] = domain.PhraseItem{}
	}
	a.items = kept
	return removed
}

// SpeechText joins item labels with the delimiter. Empty when there is nothing to say.
func (a *Assembly) SpeechText() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.JoinLabels(a.items, a.delimiter)
}

// Snapshot returns the items and their utterance from one consistent state.
func (a *Assembly) Snapshot() ([]domain.PhraseItem, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyItems(), domain.JoinLabels(a.items, a.delimiter)
}

func (a *Assembly) Items() []domain.PhraseItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyItems()
}

func (a *Assembly) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

func (a *Assembly) indexOf(id string) int {
	for i, item := range a.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (a *Assembly) copyItems() []domain.PhraseItem {
	out := make([]domain.PhraseItem, len(a.items))
	for i, item := range a.items {
		out[i] = copyItem(item)
	}
	return out
}

func copyItem(item domain.PhraseItem) domain.PhraseItem {
	if item.Card != nil {
		card := *item.Card
		item.Card = &card
	}
	return item
}
