package core

import "sync"

// OpKind names an operation that holds a flight token while it runs.
type OpKind string

const (
	OpAdd       OpKind = "add"
	OpUpdate    OpKind = "update"
	OpDelete    OpKind = "delete"
	OpImport    OpKind = "import"
	OpSummarize OpKind = "summarize"
)

type flightKey struct {
	kind OpKind
	id   string
}

// Flights is the set of operations currently executing, keyed by
// (kind, document ID). Collection-wide operations use an empty ID.
type Flights struct {
	mu     sync.Mutex
	active map[flightKey]struct{}
}

// NewFlights creates an empty flight set.
func NewFlights() *Flights {
	return &Flights{active: make(map[flightKey]struct{})}
}

// Begin acquires the token for (kind, id). The returned release func must be
// called when the operation finishes; it is safe to call more than once.
func (f *Flights) Begin(kind OpKind, id string) (func(), error) {
	key := flightKey{kind: kind, id: id}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[key]; busy {
		return nil, &OperationInProgressError{Kind: kind, ID: id}
	}
	f.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.active, key)
			f.mu.Unlock()
		})
	}, nil
}

// Active reports whether (kind, id) is in flight.
func (f *Flights) Active(kind OpKind, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.active[flightKey{kind: kind, id: id}]
	return ok
}

// Len returns the number of operations in flight.
func (f *Flights) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}
