package vocab

import (
	"math/rand/v2"
	"sync"
)

// Deck is a flashcard review session over a snapshot of saved words
type Deck struct {
	mu      sync.Mutex
	cards   []SavedWord
	index   int
	flipped bool
	rnd     *rand.Rand
}

// NewDeck creates a deck from words. If shuffle is set the order is randomised
// with rnd (a time-seeded source when rnd is nil).
func NewDeck(words []SavedWord, shuffle bool, rnd *rand.Rand) *Deck {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	d := &Deck{
		cards: append([]SavedWord(nil), words...),
		rnd:   rnd,
	}
	if shuffle {
		d.shuffleLocked()
	}
	return d
}

// Len returns the number of cards
func (d *Deck) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cards)
}

// Index returns the position of the current card
func (d *Deck) Index() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index
}

// Cards returns the cards in review order
func (d *Deck) Cards() []SavedWord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SavedWord(nil), d.cards...)
}

// Current returns the card under review, false if the deck is empty
func (d *Deck) Current() (SavedWord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.cards) == 0 {
		return SavedWord{}, false
	}
	return d.cards[d.index], true
}

// Flipped reports whether the back of the current card is showing
func (d *Deck) Flipped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flipped
}

// Flip turns the current card over
func (d *Deck) Flip() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.cards) > 0 {
		d.flipped = !d.flipped
	}
}

// Next advances to the following card, wrapping to the first
func (d *Deck) Next() {
	d.move(1)
}

// Prev goes back one card, wrapping to the last
func (d *Deck) Prev() {
	d.move(-1)
}

// Seek jumps to position i, clamped to the deck
func (d *Deck) Seek(i int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.cards) == 0 {
		return
	}
	d.index = max(0, min(i, len(d.cards)-1))
	d.flipped = false
}

// Shuffle randomises the order and restarts at the first card
func (d *Deck) Shuffle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shuffleLocked()
}

func (d *Deck) move(step int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.cards)
	if n == 0 {
		return
	}
	d.index = ((d.index+step)%n + n) % n
	d.flipped = false
}

func (d *Deck) shuffleLocked() {
	d.rnd.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	d.index = 0
	d.flipped = false
}
