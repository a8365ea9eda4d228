package ledger

import "fmt"

const (
	initialCapacity = 4096
	capacityCeiling = 1 << 20
)

type slot struct {
	inUse   bool
	account Account
}

// Store is the authoritative in-memory account table. It is an
// open-addressed hash table keyed by account id with linear probing,
// matching spec.md §4.2: ids are allocated monotonically, so clustering at
// the chosen capacity is tolerable. Store is not internally synchronized —
// it is owned by exactly one Ledger (spec.md §5).
type Store struct {
	slots    []slot
	capacity uint32
	nextID   uint32
	count    uint32
}

// NewStore returns an empty store with the initial capacity.
func NewStore() *Store {
	return &Store{
		slots:    make([]slot, initialCapacity),
		capacity: initialCapacity,
	}
}

func (s *Store) grow() error {
	if s.capacity >= capacityCeiling {
		return fmt.Errorf("%w: account store at capacity ceiling", ErrNoMem)
	}
	newCap := s.capacity * 2
	if newCap > capacityCeiling {
		newCap = capacityCeiling
	}
	old := s.slots
	s.slots = make([]slot, newCap)
	s.capacity = newCap
	s.count = 0
	for _, sl := range old {
		if sl.inUse {
			// Capacity just doubled, so this reinsertion cannot itself
			// need to grow or collide-exhaust the table.
			_ = s.insert(sl.account)
		}
	}
	return nil
}

// insert places account into its probe sequence; returns ErrNoMem only if
// the probe sequence cycles back to its start without finding a free slot
// (a full table, distinct from a capacity-driven grow).
func (s *Store) insert(a Account) error {
	start := a.ID % s.capacity
	idx := start
	for {
		if !s.slots[idx].inUse {
			s.slots[idx] = slot{inUse: true, account: a}
			s.count++
			return nil
		}
		idx = (idx + 1) % s.capacity
		if idx == start {
			return fmt.Errorf("%w: account store probe sequence exhausted", ErrNoMem)
		}
	}
}

func (s *Store) slotIndex(id uint32) (uint32, bool) {
	idx := id % s.capacity
	for n := uint32(0); n < s.capacity; n++ {
		if !s.slots[idx].inUse {
			return 0, false
		}
		if s.slots[idx].account.ID == id {
			return idx, true
		}
		idx = (idx + 1) % s.capacity
	}
	return 0, false
}

// Create allocates the next monotonically increasing id (starting at 1 in
// an empty store) and installs a zero-balance account.
func (s *Store) Create(t AccountType, currency string) (uint32, error) {
	if s.count >= s.capacity {
		if err := s.grow(); err != nil {
			return 0, err
		}
	}
	id := s.nextID + 1
	if err := s.insert(Account{ID: id, Type: t, Currency: encodeCurrency(currency)}); err != nil {
		return 0, err
	}
	s.nextID = id
	return id, nil
}

// CreateWithID inserts an account at a specific id, used during WAL
// replay, snapshot restore, and to install the cash reserve (fresh accounts created via Create never collide with it because
// next_id always advances past any id inserted this way).
func (s *Store) CreateWithID(id uint32, t AccountType, currency string) error {
	if s.count >= s.capacity {
		if err := s.grow(); err != nil {
			return err
		}
	}
	if _, ok := s.slotIndex(id); ok {
		return fmt.Errorf("%w: account %d already exists", ErrInvalid, id)
	}
	if err := s.insert(Account{ID: id, Type: t, Currency: encodeCurrency(currency)}); err != nil {
		return err
	}
	if s.nextID <= id {
		s.nextID = id
	}
	return nil
}

// Get returns a by-value copy of the account, or ErrNotFound.
func (s *Store) Get(id uint32) (Account, error) {
	idx, ok := s.slotIndex(id)
	if !ok {
		return Account{}, fmt.Errorf("%w: account %d", ErrNotFound, id)
	}
	return s.slots[idx].account, nil
}

// ApplyDelta atomically updates balance and version. It rejects a delta
// that would push a non-reserve account's balance negative; the cash
// reserve (id 0) is permitted to cross zero.
func (s *Store) ApplyDelta(id uint32, deltaCents int64, version uint64) error {
	idx, ok := s.slotIndex(id)
	if !ok {
		return fmt.Errorf("%w: account %d", ErrNotFound, id)
	}
	newBal := s.slots[idx].account.BalanceCents + deltaCents
	if newBal < 0 && id != CashAccountID {
		return fmt.Errorf("%w: account %d balance would go negative", ErrConstraint, id)
	}
	s.slots[idx].account.BalanceCents = newBal
	s.slots[idx].account.Version = version
	return nil
}

// SetBalance overwrites an account's balance and version directly; used
// only while restoring a checkpoint snapshot. Negative balances are
// refused for every account except the cash reserve (id 0), which
// normally carries a negative balance once any deposit has been made.
func (s *Store) SetBalance(id uint32, balanceCents int64, version uint64) error {
	if balanceCents < 0 && id != CashAccountID {
		return fmt.Errorf("%w: account %d balance would go negative", ErrConstraint, id)
	}
	idx, ok := s.slotIndex(id)
	if !ok {
		return fmt.Errorf("%w: account %d", ErrNotFound, id)
	}
	s.slots[idx].account.BalanceCents = balanceCents
	s.slots[idx].account.Version = version
	return nil
}

// Len returns the number of accounts currently in the store.
func (s *Store) Len() uint32 {
	return s.count
}

// Accounts returns a snapshot slice of every account in the store, in
// probe-slot order (which is not creation order). Callers needing a
// stable order should sort by ID.
func (s *Store) Accounts() []Account {
	out := make([]Account, 0, s.count)
	for _, sl := range s.slots {
		if sl.inUse {
			out = append(out, sl.account)
		}
	}
	return out
}
