package game

// ledger tracks points spent per player against the room cap for the open
// round. It is owned by Room and only touched inside the room's critical
// section; resolution clears it for the next round.
type ledger struct {
	cap   int
	spent map[string]int
}

func newLedger(cap int) *ledger {
	return &ledger{cap: cap, spent: make(map[string]int)}
}

// submit records a spend of |delta| points. On ErrBudgetExceeded nothing is
// recorded and the current remaining budget is returned.
func (l *ledger) submit(playerID string, delta int) (remaining int, err error) {
	cost := delta
	if cost < 0 {
		cost = -cost
	}
	if l.spent[playerID]+cost > l.cap {
		return l.cap - l.spent[playerID], ErrBudgetExceeded
	}
	l.spent[playerID] += cost
	return l.cap - l.spent[playerID], nil
}

// reset restores the player's full budget for the round.
func (l *ledger) reset(playerID string) {
	delete(l.spent, playerID)
}

// query returns (spent, remaining) for the player.
func (l *ledger) query(playerID string) (int, int) {
	s := l.spent[playerID]
	return s, l.cap - s
}

// exhausted reports whether the player has spent the full cap.
func (l *ledger) exhausted(playerID string) bool {
	return l.spent[playerID] >= l.cap
}

// untouched reports whether no player has spent anything this round.
func (l *ledger) untouched() bool {
	return len(l.spent) == 0
}

// clear wipes all entries for the next round.
func (l *ledger) clear() {
	l.spent = make(map[string]int)
}
