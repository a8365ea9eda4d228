package ledger

import "fmt"

type txState int

const (
	txOpen txState = iota
	txCommitted
	txAborted
)

type journalEntry struct {
	accountID uint32
	amount    int64
	isDebit   bool
}

// Transaction is a short-lived builder bound to a store and a tx id. It
// accumulates journal entries until Commit or Abort; both are terminal.
// Per spec.md §9 design note 1, entry order doesn't affect the debit/credit
// totals, so a plain slice stands in for the source's reverse-order linked
// list — Commit applies entries in the order they were appended.
type Transaction struct {
	store        *Store
	txID         uint64
	entries      []journalEntry
	totalDebits  int64
	totalCredits int64
	state        txState
}

// BeginTransaction returns a new Transaction bound to store under txID.
func BeginTransaction(store *Store, txID uint64) *Transaction {
	return &Transaction{store: store, txID: txID}
}

// Debit appends a journal entry that will raise account's balance on
// commit. amount must be strictly positive.
func (tx *Transaction) Debit(accountID uint32, amount int64) error {
	return tx.append(accountID, amount, true)
}

// Credit appends a journal entry that will lower account's balance on
// commit. amount must be strictly positive.
func (tx *Transaction) Credit(accountID uint32, amount int64) error {
	return tx.append(accountID, amount, false)
}

func (tx *Transaction) append(accountID uint32, amount int64, isDebit bool) error {
	if tx.state != txOpen {
		return fmt.Errorf("%w: transaction %d is no longer open", ErrInvalid, tx.txID)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	tx.entries = append(tx.entries, journalEntry{accountID: accountID, amount: amount, isDebit: isDebit})
	if isDebit {
		tx.totalDebits += amount
	} else {
		tx.totalCredits += amount
	}
	return nil
}

// Commit requires total debits to equal total credits, then applies each
// journal entry's delta to the store in append order. If a delta fails
// partway (e.g. a non-reserve account would go negative), commit halts
// immediately and reports the error; entries already applied are not
// rolled back. Ledger avoids ever hitting this case in practice by
// ordering transfer legs so the leg that can fail is applied first (see
// Ledger.transfer).
func (tx *Transaction) Commit() error {
	if tx.state != txOpen {
		return fmt.Errorf("%w: transaction %d is no longer open", ErrInvalid, tx.txID)
	}
	if tx.totalDebits != tx.totalCredits {
		return fmt.Errorf("%w: debits %d != credits %d", ErrConstraint, tx.totalDebits, tx.totalCredits)
	}
	for _, e := range tx.entries {
		delta := e.amount
		if !e.isDebit {
			delta = -delta
		}
		if err := tx.store.ApplyDelta(e.accountID, delta, tx.txID); err != nil {
			return err
		}
	}
	tx.state = txCommitted
	return nil
}

// Abort marks the transaction terminal. It never touches the store: a
// Transaction only mutates the store from within Commit.
func (tx *Transaction) Abort() {
	if tx.state == txOpen {
		tx.state = txAborted
	}
}

// Destroy releases the journal. Safe to call in any state, including on a
// zero-value-adjacent Transaction that was never committed or aborted.
func (tx *Transaction) Destroy() {
	tx.entries = nil
}

// IsCommitted reports whether Commit has succeeded.
func (tx *Transaction) IsCommitted() bool { return tx.state == txCommitted }

// IsAborted reports whether Abort has been called.
func (tx *Transaction) IsAborted() bool { return tx.state == txAborted }
