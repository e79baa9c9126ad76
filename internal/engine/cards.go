package engine

import (
	"fmt"
	"math/rand/v2"
)

// Suit is the suit of a card.
type Suit string

const (
	Hearts   Suit = "HEARTS"
	Diamonds Suit = "DIAMONDS"
	Clubs    Suit = "CLUBS"
	Spades   Suit = "SPADES"
	Joker    Suit = "JOKER"
)

// SelectableSuits are the suits a bidder may name as trump.
var SelectableSuits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Selectable reports whether the suit may be chosen as trump.
func (s Suit) Selectable() bool {
	switch s {
	case Hearts, Diamonds, Clubs, Spades:
		return true
	}
	return false
}

func (s Suit) red() bool {
	return s == Hearts || s == Diamonds
}

// CardNumber is the face value of a card.
type CardNumber string

const (
	Two         CardNumber = "TWO"
	Three       CardNumber = "THREE"
	Four        CardNumber = "FOUR"
	Five        CardNumber = "FIVE"
	Six         CardNumber = "SIX"
	Seven       CardNumber = "SEVEN"
	Eight       CardNumber = "EIGHT"
	Nine        CardNumber = "NINE"
	Ten         CardNumber = "TEN"
	Jack        CardNumber = "JACK"
	Queen       CardNumber = "QUEEN"
	King        CardNumber = "KING"
	Ace         CardNumber = "ACE"
	JokerNumber CardNumber = "JOKER"
)

var numbers = []CardNumber{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

var pips = map[CardNumber]int{
	Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7, Eight: 8, Nine: 9, Ten: 10,
}

// Card is a single playing card.
type Card struct {
	Suit   Suit       `json:"suit"`
	Number CardNumber `json:"number"`
}

func (c Card) String() string {
	if c.Suit == Joker {
		return "JOKER"
	}
	return fmt.Sprintf("%s of %s", c.Number, c.Suit)
}

// Valid reports whether the card exists in a Hundred and Ten deck.
func (c Card) Valid() bool {
	if c.Suit == Joker {
		return c.Number == JokerNumber
	}
	if !c.Suit.Selectable() {
		return false
	}
	for _, n := range numbers {
		if n == c.Number {
			return true
		}
	}
	return false
}

// IsTrump reports whether the card counts as trump for the given trump suit.
// The joker and the ace of hearts are always trump.
func (c Card) IsTrump(trump Suit) bool {
	return c.Suit == trump || c.Suit == Joker || (c.Suit == Hearts && c.Number == Ace)
}

// newDeck returns the 53 card deck shuffled with rng.
func newDeck(rng *rand.Rand) []Card {
	deck := make([]Card, 0, 53)
	for _, s := range SelectableSuits {
		for _, n := range numbers {
			deck = append(deck, Card{Suit: s, Number: n})
		}
	}
	deck = append(deck, Card{Suit: Joker, Number: JokerNumber})
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// plainRank orders number cards: high is good in red suits, low is good in black.
func plainRank(c Card) int {
	v := pips[c.Number]
	if c.Suit.red() {
		return v
	}
	return 11 - v
}

// trumpRank orders trump cards; higher wins.
func trumpRank(c Card, trump Suit) int {
	switch {
	case c.Suit == trump && c.Number == Five:
		return 100
	case c.Suit == trump && c.Number == Jack:
		return 99
	case c.Suit == Joker:
		return 98
	case c.Suit == Hearts && c.Number == Ace:
		return 97
	case c.Suit == trump && c.Number == Ace:
		return 96
	case c.Suit == trump && c.Number == King:
		return 95
	case c.Suit == trump && c.Number == Queen:
		return 94
	}
	return 50 + plainRank(c)
}

// offsuitRank orders cards that are not trump within their suit.
func offsuitRank(c Card) int {
	switch c.Number {
	case King:
		return 30
	case Queen:
		return 29
	case Jack:
		return 28
	case Ace:
		if c.Suit.red() {
			return 0
		}
		return 27
	}
	return 10 + plainRank(c)
}

// strength is a single scale across trump and non-trump cards.
func strength(c Card, trump Suit) int {
	if c.IsTrump(trump) {
		return 100 + trumpRank(c, trump)
	}
	return offsuitRank(c)
}

func containsCard(cards []Card, c Card) int {
	for i, h := range cards {
		if h == c {
			return i
		}
	}
	return -1
}

func removeCards(hand []Card, cards []Card) []Card {
	out := make([]Card, 0, len(hand))
	for _, h := range hand {
		if containsCard(cards, h) == -1 {
			out = append(out, h)
		}
	}
	return out
}
