package zerodha

import "sync"

// orderBook maps broker API order ids to Kite order ids. Orders seen only
// through Kite (placed elsewhere) get the next free id.
type orderBook struct {
	mu       sync.Mutex
	next     int
	toKite   map[int]string
	fromKite map[string]int
}

func newOrderBook() *orderBook {
	return &orderBook{
		next:     1,
		toKite:   make(map[int]string),
		fromKite: make(map[string]int),
	}
}

func (b *orderBook) nextID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

// place reserves id and runs submit with the book locked, so a postback
// for the new Kite order resolves to id rather than a fresh one.
func (b *orderBook) place(id int, submit func() (string, error)) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id >= b.next {
		b.next = id + 1
	}
	kiteID, err := submit()
	if err != nil {
		return "", err
	}
	b.toKite[id] = kiteID
	b.fromKite[kiteID] = id
	return kiteID, nil
}

func (b *orderBook) kiteID(id int) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k, ok := b.toKite[id]
	return k, ok
}

// idFor returns the order id for a Kite order, assigning one if needed.
func (b *orderBook) idFor(kiteID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.fromKite[kiteID]; ok {
		return id
	}
	id := b.next
	b.next++
	b.toKite[id] = kiteID
	b.fromKite[kiteID] = id
	return id
}
