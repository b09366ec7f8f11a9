package game

import "github.com/google/uuid"

// UnoColor is one of the four UNO colors. Wild faces have no color until a
// player chooses one.
type UnoColor string

const (
	Red    UnoColor = "red"
	Green  UnoColor = "green"
	Blue   UnoColor = "blue"
	Yellow UnoColor = "yellow"
	NoColor UnoColor = ""
)

var unoColors = [4]UnoColor{Red, Green, Blue, Yellow}

// UnoFaceKind tags the sum type of UNO faces.
type UnoFaceKind string

const (
	FaceNumber  UnoFaceKind = "number"
	FaceSkip    UnoFaceKind = "skip"
	FaceReverse UnoFaceKind = "reverse"
	FaceDraw2   UnoFaceKind = "draw2"
	FaceWild    UnoFaceKind = "wild"
	FaceWild4   UnoFaceKind = "wild4"
)

// UnoFace is the tagged variant for a card face. Color is meaningless (NoColor)
// for Wild/Wild4 until a player chooses one at play time; Value is only
// meaningful for FaceNumber.
type UnoFace struct {
	Kind  UnoFaceKind `json:"kind"`
	Color UnoColor    `json:"color,omitempty"`
	Value int         `json:"value,omitempty"`
}

func (f UnoFace) isAction() bool {
	switch f.Kind {
	case FaceSkip, FaceReverse, FaceDraw2:
		return true
	default:
		return false
	}
}

func (f UnoFace) isWild() bool {
	return f.Kind == FaceWild || f.Kind == FaceWild4
}

// UnoCard is a single physical card: a stable identifier plus its face.
// Identifiers are unique for the lifetime of the lobby that dealt them.
type UnoCard struct {
	ID   string  `json:"id"`
	Face UnoFace `json:"face"`
}

// NewUnoDeck builds the canonical 108-card multiset (unshuffled): for each
// color one 0 and two each of 1..9, two Skip, two Reverse, two Draw2; four
// Wild and four Wild4.
func NewUnoDeck() []UnoCard {
	cards := make([]UnoCard, 0, 108)
	newCard := func(f UnoFace) UnoCard {
		return UnoCard{ID: uuid.NewString(), Face: f}
	}
	for _, c := range unoColors {
		cards = append(cards, newCard(UnoFace{Kind: FaceNumber, Color: c, Value: 0}))
		for v := 1; v <= 9; v++ {
			cards = append(cards, newCard(UnoFace{Kind: FaceNumber, Color: c, Value: v}))
			cards = append(cards, newCard(UnoFace{Kind: FaceNumber, Color: c, Value: v}))
		}
		for i := 0; i < 2; i++ {
			cards = append(cards, newCard(UnoFace{Kind: FaceSkip, Color: c}))
			cards = append(cards, newCard(UnoFace{Kind: FaceReverse, Color: c}))
			cards = append(cards, newCard(UnoFace{Kind: FaceDraw2, Color: c}))
		}
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, newCard(UnoFace{Kind: FaceWild}))
		cards = append(cards, newCard(UnoFace{Kind: FaceWild4}))
	}
	return cards
}

// ShuffledUnoDeck returns a freshly shuffled 108-card deck using src.
func ShuffledUnoDeck(src Source) []UnoCard {
	deck := NewUnoDeck()
	shuffle(src, deck)
	return deck
}

// isPlayable reports whether card is playable on top/currentColor: it is
// Wild/Wild4, there is no top (opening), its color matches currentColor, the
// top is a Number of the same value, or the top is an action card of the
// same kind.
func isPlayable(card UnoFace, top *UnoFace, currentColor UnoColor) bool {
	if card.isWild() {
		return true
	}
	if top == nil {
		return true
	}
	if card.Color == currentColor {
		return true
	}
	if top.Kind == FaceNumber && card.Kind == FaceNumber && top.Value == card.Value {
		return true
	}
	if top.isAction() && card.isAction() && top.Kind == card.Kind {
		return true
	}
	return false
}

// handHasColor reports whether any card in hand carries color c (used to
// enforce the Wild4 restriction).
func handHasColor(hand []UnoCard, c UnoColor) bool {
	for _, card := range hand {
		if card.Face.Color == c {
			return true
		}
	}
	return false
}

// handHasPlayableCard reports whether any card in hand is legal to play
// against top/currentColor, honoring the Wild4 restriction (a Wild4 only
// counts as playable if the rest of the hand holds no card of currentColor).
func handHasPlayableCard(hand []UnoCard, top *UnoFace, currentColor UnoColor) bool {
	for i, card := range hand {
		if !isPlayable(card.Face, top, currentColor) {
			continue
		}
		if card.Face.Kind == FaceWild4 && handHasColor(withoutCard(hand, i), currentColor) {
			continue
		}
		return true
	}
	return false
}
