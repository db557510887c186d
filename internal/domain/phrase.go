package domain

import (
	"strings"
	"time"
)

type PhraseItemKind string

const (
	PhraseItemCard PhraseItemKind = "card"
	PhraseItemText PhraseItemKind = "text"
)

// PhraseItem is one element of an assembled phrase. Card holds a snapshot
// copy for PhraseItemCard; Text holds the token for PhraseItemText.
type PhraseItem struct {
	ID   string         `json:"id"`
	Kind PhraseItemKind `json:"type"`
	Card *Card          `json:"card,omitempty"`
	Text string         `json:"text,omitempty"`
}

// Label is what the item contributes to the spoken utterance.
func (i PhraseItem) Label() string {
	switch i.Kind {
	case PhraseItemCard:
		if i.Card == nil {
			return ""
		}
		return i.Card.Name
	case PhraseItemText:
		return i.Text
	default:
		return ""
	}
}

// ReferencesCard reports whether the item wraps the card with the given id.
func (i PhraseItem) ReferencesCard(cardID string) bool {
	return i.Kind == PhraseItemCard && i.Card != nil && i.Card.ID == cardID
}

// JoinLabels builds the utterance for items in order.
func JoinLabels(items []PhraseItem, delimiter string) string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		if label := strings.TrimSpace(item.Label()); label != "" {
			labels = append(labels, label)
		}
	}
	return strings.Join(labels, delimiter)
}

// SavedPhrase is a spoken phrase kept in the principal's history.
type SavedPhrase struct {
	ID         string       `json:"id"`
	UserID     string       `json:"-"`
	PhraseText string       `json:"phraseText"`
	Items      []PhraseItem `json:"items"`
	CreatedAt  time.Time    `json:"createdAt"`
}
