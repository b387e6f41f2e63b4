package zerodha

import (
	"sort"
	"strings"
	"sync"
)

// instrumentMapper manages the mapping between symbols and instrument
// tokens, and which market data requests are subscribed to each token.
type instrumentMapper struct {
	symbolToToken map[string]uint32
	tokenToSymbol map[uint32]string
	reqToToken    map[int]uint32
	snapshots     map[int]bool
	mu            sync.RWMutex
}

func newInstrumentMapper(instruments map[string]uint32) *instrumentMapper {
	im := &instrumentMapper{
		symbolToToken: make(map[string]uint32),
		tokenToSymbol: make(map[uint32]string),
		reqToToken:    make(map[int]uint32),
		snapshots:     make(map[int]bool),
	}
	for symbol, token := range instruments {
		im.addMapping(symbol, token)
	}
	return im
}

// addMapping adds a symbol-token mapping
func (im *instrumentMapper) addMapping(symbol string, token uint32) {
	im.mu.Lock()
	defer im.mu.Unlock()

	symbol = strings.ToUpper(symbol)
	im.symbolToToken[symbol] = token
	im.tokenToSymbol[token] = symbol
}

// getToken retrieves the token for a symbol
func (im *instrumentMapper) getToken(symbol string) (uint32, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	token, exists := im.symbolToToken[strings.ToUpper(symbol)]
	return token, exists
}

// getSymbol retrieves the symbol for a token
func (im *instrumentMapper) getSymbol(token uint32) string {
	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.tokenToSymbol[token]
}

// subscribe records reqID against token. first is true when token had no
// subscriber before. When reqID moves off another token, that token is
// returned as stale, with staleLast set if nothing else watches it.
// A snapshot request is dropped by endSnapshots after its first tick.
func (im *instrumentMapper) subscribe(reqID int, token uint32, snapshot bool) (first bool, stale uint32, staleLast bool) {
	im.mu.Lock()
	defer im.mu.Unlock()

	old, had := im.reqToToken[reqID]
	if had && old == token {
		if !snapshot {
			delete(im.snapshots, reqID)
		}
		return false, 0, false
	}
	delete(im.reqToToken, reqID)
	delete(im.snapshots, reqID)
	if had {
		stale, staleLast = old, !im.watchedLocked(old)
	}

	first = !im.watchedLocked(token)
	im.reqToToken[reqID] = token
	if snapshot {
		im.snapshots[reqID] = true
	}
	return first, stale, staleLast
}

func (im *instrumentMapper) watchedLocked(token uint32) bool {
	for _, t := range im.reqToToken {
		if t == token {
			return true
		}
	}
	return false
}

// unsubscribe drops reqID. last is true when its token has no subscriber left.
func (im *instrumentMapper) unsubscribe(reqID int) (token uint32, last bool, ok bool) {
	im.mu.Lock()
	defer im.mu.Unlock()

	token, ok = im.reqToToken[reqID]
	if !ok {
		return 0, false, false
	}
	delete(im.reqToToken, reqID)
	delete(im.snapshots, reqID)
	return token, !im.watchedLocked(token), true
}

// endSnapshots drops the snapshot requests on token and returns them,
// sorted. last is true when token has no subscriber left afterwards.
func (im *instrumentMapper) endSnapshots(token uint32) (reqIDs []int, last bool) {
	im.mu.Lock()
	defer im.mu.Unlock()

	for id := range im.snapshots {
		if im.reqToToken[id] == token {
			reqIDs = append(reqIDs, id)
		}
	}
	if len(reqIDs) == 0 {
		return nil, false
	}
	for _, id := range reqIDs {
		delete(im.reqToToken, id)
		delete(im.snapshots, id)
	}
	sort.Ints(reqIDs)
	return reqIDs, !im.watchedLocked(token)
}

// requestsFor returns the request ids subscribed to token, sorted.
func (im *instrumentMapper) requestsFor(token uint32) []int {
	im.mu.RLock()
	defer im.mu.RUnlock()

	var ids []int
	for id, t := range im.reqToToken {
		if t == token {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// subscribedTokens returns all tokens with at least one subscriber
func (im *instrumentMapper) subscribedTokens() []uint32 {
	im.mu.RLock()
	defer im.mu.RUnlock()

	seen := make(map[uint32]bool)
	tokens := make([]uint32, 0, len(im.reqToToken))
	for _, token := range im.reqToToken {
		if !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens
}

// clearSubscriptions removes all subscriptions, keeping the symbol table
func (im *instrumentMapper) clearSubscriptions() {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.reqToToken = make(map[int]uint32)
	im.snapshots = make(map[int]bool)
}
