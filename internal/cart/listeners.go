package cart

// Listener observes the ledger after every persisted mutation.
type Listener func(Summary)

// ListenerID is the handle returned by AddListener. Func values are not
// comparable, so removal goes through the handle.
type ListenerID uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// AddListener registers fn and returns its handle. A nil fn is ignored and
// yields the zero handle.
func (l *Ledger) AddListener(fn Listener) ListenerID {
	if fn == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.listeners = append(l.listeners, listenerEntry{id: l.nextID, fn: fn})
	return l.nextID
}

// RemoveListener unregisters the listener with the given handle.
func (l *Ledger) RemoveListener(id ListenerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.listeners[:0]
	for _, entry := range l.listeners {
		if entry.id != id {
			kept = append(kept, entry)
		}
	}
	l.listeners = kept
}

func notify(listeners []listenerEntry, summary Summary) {
	for _, entry := range listeners {
		entry.fn(summary)
	}
}
