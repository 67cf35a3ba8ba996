package model

// Card is a project board card. ContentURL points at the issue or pull
// request the card references and is empty for note-only cards.
type Card struct {
	ID         int64  `json:"id"`
	ColumnID   int64  `json:"columnId"`
	ContentURL string `json:"contentUrl,omitempty"`
}
