package ledger

import "errors"

// Error codes mirror spec.md §7's uniform error taxonomy. Callers should
// use errors.Is against these sentinels rather than inspecting messages.
var (
	// ErrInvalid reports malformed arguments: non-positive amounts, a
	// missing WAL path, an account id that already exists, or a mutation
	// attempted on a transaction that already reached a terminal state.
	ErrInvalid = errors.New("ledger: invalid argument")
	// ErrNotFound reports an account id absent from the store.
	ErrNotFound = errors.New("ledger: account not found")
	// ErrConstraint reports a balance that would go negative on a
	// non-reserve account, or a transaction whose debits and credits
	// don't balance.
	ErrConstraint = errors.New("ledger: constraint violation")
	// ErrIO reports an underlying file I/O failure, a WAL checksum
	// mismatch or bad file header, or a malformed checkpoint snapshot. A
	// record torn at the WAL's tail is not an error: replay stops before it.
	ErrIO = errors.New("ledger: io error")
	// ErrNoMem reports an allocation failure or the account store
	// reaching its capacity ceiling.
	ErrNoMem = errors.New("ledger: out of space")
	// ErrDeadlock is reserved for a future multi-process WAL design; the
	// single-threaded core never returns it.
	ErrDeadlock = errors.New("ledger: deadlock")
)
