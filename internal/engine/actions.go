package engine

// BidAmount is a bid value. Pass is zero.
type BidAmount int

const (
	Pass         BidAmount = 0
	Fifteen      BidAmount = 15
	Twenty       BidAmount = 20
	TwentyFive   BidAmount = 25
	Thirty       BidAmount = 30
	ShootTheMoon BidAmount = 60
)

// BidAmounts lists every legal bid in ascending order.
var BidAmounts = []BidAmount{Pass, Fifteen, Twenty, TwentyFive, Thirty, ShootTheMoon}

// Valid reports whether the amount is one of BidAmounts.
func (b BidAmount) Valid() bool {
	for _, a := range BidAmounts {
		if a == b {
			return true
		}
	}
	return false
}

// Action is a move a player makes. The set of implementations is closed.
type Action interface {
	Actor() string
	isAction()
}

// Event narrates something that happened during play. The set of
// implementations is closed.
type Event interface {
	isEvent()
}

type Bid struct {
	Identifier string
	Amount     BidAmount
}

type SelectTrump struct {
	Identifier string
	Suit       Suit
}

type Discard struct {
	Identifier string
	Cards      []Card
}

type Play struct {
	Identifier string
	Card       Card
}

// Unpass withdraws a pass made before the player's turn.
type Unpass struct {
	Identifier string
}

func (a Bid) Actor() string         { return a.Identifier }
func (a SelectTrump) Actor() string { return a.Identifier }
func (a Discard) Actor() string     { return a.Identifier }
func (a Play) Actor() string        { return a.Identifier }
func (a Unpass) Actor() string      { return a.Identifier }

func (Bid) isAction()         {}
func (SelectTrump) isAction() {}
func (Discard) isAction()     {}
func (Play) isAction()        {}
func (Unpass) isAction()      {}

type GameStart struct{}

type RoundStart struct {
	Dealer string
	Hands  map[string][]Card
}

type TrickStart struct{}

type TrickEnd struct {
	Winner string
}

// Score is a per-player value in a RoundEnd event.
type Score struct {
	Identifier string
	Value      int
}

type RoundEnd struct {
	Scores []Score
}

type GameEnd struct {
	Winner string
}

func (GameStart) isEvent()   {}
func (RoundStart) isEvent()  {}
func (Bid) isEvent()         {}
func (SelectTrump) isEvent() {}
func (Discard) isEvent()     {}
func (TrickStart) isEvent()  {}
func (Play) isEvent()        {}
func (TrickEnd) isEvent()    {}
func (RoundEnd) isEvent()    {}
func (GameEnd) isEvent()     {}

// RuleError is returned when an action is not legal in the current state.
type RuleError struct {
	Msg string
}

func (e *RuleError) Error() string {
	return e.Msg
}

func rejectf(msg string) error {
	return &RuleError{Msg: msg}
}
