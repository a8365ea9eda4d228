// Package ledger implements the embedded double-entry ledger's
// orchestration layer: the account store, the short-lived transaction
// state machine, and the Ledger type that couples both to the
// write-ahead log (internal/wal), per spec.md §4.5.
package ledger

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kumarlokesh/ledgerd/internal/wal"
)

// defaultCheckpointInterval is the number of successful write ops between
// automatic checkpoints when Config.CheckpointInterval is left at zero,
// per spec.md §4.5.
const defaultCheckpointInterval = 100

// SyncModeAlways is the only sync mode this build honors: every WAL
// append is followed by an fsync before the call returns, per spec.md
// §4.4.2's "no write batching" design. It is also the zero-value default.
const SyncModeAlways = "always"

// Config controls how a Ledger is opened.
type Config struct {
	// WALPath is the file the WAL is stored at.
	WALPath string
	// Logger receives structured events at checkpoint, recovery, and
	// account-creation boundaries. The zero value is a disabled logger,
	// so logging is entirely optional.
	Logger zerolog.Logger
	// CheckpointInterval is the number of successful write ops between
	// automatic checkpoints. Zero selects defaultCheckpointInterval.
	CheckpointInterval uint64
	// DefaultCurrency is used by CreateAccount whenever a caller doesn't
	// specify one. Empty selects the package's DefaultCurrency constant.
	DefaultCurrency string
	// SyncMode is advisory: this build only ever fsyncs after every WAL
	// append, since spec.md's crash-safety guarantee depends on it. A
	// value other than SyncModeAlways (or empty) is logged as a warning
	// at Open and otherwise ignored — durability is not negotiable here.
	SyncMode string
}

// Ledger is the single-process orchestrator binding the account store to
// the WAL. It holds exclusive ownership of both; spec.md §5 assumes a
// single caller with no internal locking beyond what's needed to keep the
// WAL's own file handle coherent.
type Ledger struct {
	store              *Store
	wal                *wal.WAL
	log                zerolog.Logger
	nextTxID           uint64
	opsSinceCheckpoint uint64
	checkpointInterval uint64
	defaultCurrency    string
}

// Open creates the account store with the cash reserve in it, opens (or
// creates) the WAL at cfg.WALPath, replays it to reconstruct state, and
// materializes the cash reserve account again if a restored checkpoint
// lacked it.
func Open(cfg Config) (*Ledger, error) {
	if cfg.WALPath == "" {
		return nil, fmt.Errorf("%w: WALPath is required", ErrInvalid)
	}

	if cfg.SyncMode != "" && cfg.SyncMode != SyncModeAlways {
		cfg.Logger.Warn().Str("requested", cfg.SyncMode).Str("using", SyncModeAlways).
			Msg("ledger: sync mode is not configurable in this build, forcing synchronous fsync")
	}

	w, err := wal.Open(cfg.WALPath, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	checkpointInterval := cfg.CheckpointInterval
	if checkpointInterval == 0 {
		checkpointInterval = defaultCheckpointInterval
	}
	defaultCurrency := cfg.DefaultCurrency
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}

	l := &Ledger{
		store:              NewStore(),
		wal:                w,
		log:                cfg.Logger,
		checkpointInterval: checkpointInterval,
		defaultCurrency:    defaultCurrency,
	}

	// The cash reserve is never logged, so it must exist before replay
	// applies the DEBIT/CREDIT legs of deposits and withdrawals to it.
	if err := l.ensureCashAccount(); err != nil {
		w.Close()
		return nil, err
	}

	if err := l.recover(); err != nil {
		w.Close()
		return nil, err
	}

	if err := l.ensureCashAccount(); err != nil {
		w.Close()
		return nil, err
	}

	return l, nil
}

// recover replays the WAL and rebuilds in-memory state per spec.md §4.4.5:
// BEGIN_TX advances next_tx_id, CREATE_ACCOUNT recreates an account at the
// id the record carries, DEBIT/CREDIT apply signed deltas with the tx id
// as version, and COMMIT/ABORT are advisory (this is an eager-redo design
// — see DESIGN.md).
func (l *Ledger) recover() error {
	checkpointFn := func(snapshot []byte) error {
		store, nextTxID, err := RestoreSnapshot(snapshot)
		if err != nil {
			return err
		}
		l.store = store
		if uint64(nextTxID) > l.nextTxID {
			l.nextTxID = uint64(nextTxID)
		}
		l.log.Info().Uint32("next_tx_id", nextTxID).Uint32("accounts", store.Len()).Msg("ledger: restored checkpoint")
		return nil
	}

	recordFn := func(rec wal.Record) error {
		switch rec.Op {
		case wal.OpBeginTx:
			if rec.TxID >= l.nextTxID {
				l.nextTxID = rec.TxID + 1
			}
		case wal.OpCreateAccount:
			currency := trimTrailingZero(rec.Currency)
			return l.store.CreateWithID(rec.AccountID, AccountType(rec.AcctType), string(currency))
		case wal.OpDebit:
			return l.store.ApplyDelta(rec.AccountID, -rec.Amount, rec.TxID)
		case wal.OpCredit:
			return l.store.ApplyDelta(rec.AccountID, rec.Amount, rec.TxID)
		case wal.OpCommit, wal.OpAbort:
			// advisory only; store mutations were already applied as the
			// DEBIT/CREDIT records were encountered.
		}
		return nil
	}

	if err := l.wal.Replay(recordFn, checkpointFn); err != nil {
		return fmt.Errorf("%w: replay: %v", ErrIO, err)
	}
	return nil
}

// ensureCashAccount materializes the id-0 cash reserve if the store
// doesn't already have it. Unlike the original source (spec.md §9 Open
// Question 2), this never appends a CREATE_ACCOUNT record for it: id 0 is
// deterministically recreated by every Open, so logging its creation
// would only manufacture a duplicate checking account at the next id on
// the following replay.
func (l *Ledger) ensureCashAccount() error {
	if _, err := l.store.Get(CashAccountID); err == nil {
		return nil
	}
	return l.store.CreateWithID(CashAccountID, Checking, l.defaultCurrency)
}

// Close closes the underlying WAL. The account store needs no explicit
// cleanup.
func (l *Ledger) Close() error {
	if err := l.wal.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// CreateAccount allocates a new account, durably logs its creation
// (preserving the allocated id in the record's account_id field — spec.md
// §9 Open Question 1, resolved by using the field the wire format already
// has), and ticks the checkpoint counter.
func (l *Ledger) CreateAccount(t AccountType, currency string) (uint32, error) {
	if currency == "" {
		currency = l.defaultCurrency
	}
	id, err := l.store.Create(t, currency)
	if err != nil {
		return 0, err
	}

	rec := wal.Record{
		Op:        wal.OpCreateAccount,
		AccountID: id,
		AcctType:  uint32(t),
		Currency:  encodeCurrency(currency),
	}
	if err := l.wal.Append(rec); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}

	l.log.Info().Uint32("account_id", id).Str("type", t.String()).Str("currency", currency).Msg("ledger: created account")
	l.tickCheckpoint()
	return id, nil
}

// Deposit transfers amountCents from the cash reserve into accountID.
func (l *Ledger) Deposit(accountID uint32, amountCents int64) error {
	return l.transfer(CashAccountID, accountID, amountCents)
}

// Withdraw transfers amountCents from accountID into the cash reserve.
func (l *Ledger) Withdraw(accountID uint32, amountCents int64) error {
	return l.transfer(accountID, CashAccountID, amountCents)
}

// Transfer moves amountCents from one account to another.
func (l *Ledger) Transfer(fromID, toID uint32, amountCents int64) error {
	return l.transfer(fromID, toID, amountCents)
}

// transfer is the atomic write primitive (spec.md §4.5): it logs intent to
// the WAL, then applies it in-memory via a Transaction, ordering the
// journal so the leg that can fail (the source's decrease, unless the
// source is the cash reserve) is applied before the leg that cannot (the
// destination's increase) — so a constraint failure never leaves the
// store with only half the transfer applied.
func (l *Ledger) transfer(fromID, toID uint32, amountCents int64) error {
	if amountCents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}

	txID := l.nextTxID
	l.nextTxID++

	if err := l.wal.Append(wal.Record{Op: wal.OpBeginTx, TxID: txID}); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := l.wal.Append(wal.Record{Op: wal.OpDebit, TxID: txID, AccountID: fromID, Amount: amountCents}); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := l.wal.Append(wal.Record{Op: wal.OpCredit, TxID: txID, AccountID: toID, Amount: amountCents}); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	// A missing destination is caught here, before the source leg can be
	// applied by Commit.
	if _, err := l.store.Get(toID); err != nil {
		l.abortTransfer(txID)
		return err
	}

	tx := BeginTransaction(l.store, txID)
	// "Debit the source" in the ledger sense is a store-level credit
	// (lowers the balance); "credit the destination" is a store-level
	// debit (raises it). Crediting the source first means the only leg
	// that can fail is evaluated before any store mutation happens.
	if err := tx.Credit(fromID, amountCents); err != nil {
		l.abortTransfer(txID)
		return err
	}
	if err := tx.Debit(toID, amountCents); err != nil {
		l.abortTransfer(txID)
		return err
	}

	if err := tx.Commit(); err != nil {
		tx.Destroy()
		l.abortTransfer(txID)
		return err
	}
	tx.Destroy()

	if err := l.wal.Append(wal.Record{Op: wal.OpCommit, TxID: txID}); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	l.log.Debug().Uint64("tx_id", txID).Uint32("from", fromID).Uint32("to", toID).Int64("amount", amountCents).Msg("ledger: committed transfer")
	l.tickCheckpoint()
	return nil
}

func (l *Ledger) abortTransfer(txID uint64) {
	if err := l.wal.Append(wal.Record{Op: wal.OpAbort, TxID: txID}); err != nil {
		l.log.Warn().Err(err).Uint64("tx_id", txID).Msg("ledger: failed to log abort")
	}
}

// Balance returns accountID's current balance in cents.
func (l *Ledger) Balance(accountID uint32) (int64, error) {
	a, err := l.store.Get(accountID)
	if err != nil {
		return 0, err
	}
	return a.BalanceCents, nil
}

// History is an intentional stub: spec.md's Non-goals exclude history
// queries, and the original source's ledger_history likewise always
// returns zero results.
func (l *Ledger) History(accountID uint32) (credits, debits int64, count int, err error) {
	return 0, 0, 0, nil
}

// NextTxID returns the tx id that will be assigned to the next write.
func (l *Ledger) NextTxID() uint64 { return l.nextTxID }

// AccountCount returns the number of accounts currently in the store.
func (l *Ledger) AccountCount() uint32 { return l.store.Len() }

// tickCheckpoint increments the op counter and, once it reaches the
// threshold, attempts a checkpoint. A failure to write the checkpoint is
// logged and otherwise non-fatal: checkpoints are a performance optimization, not a durability
// requirement, since replay from older records always remains correct.
func (l *Ledger) tickCheckpoint() {
	l.opsSinceCheckpoint++
	if l.opsSinceCheckpoint < l.checkpointInterval {
		return
	}
	l.opsSinceCheckpoint = 0

	snapshot := l.store.Serialize(uint32(l.nextTxID))
	if err := l.wal.Checkpoint(snapshot); err != nil {
		l.log.Warn().Err(err).Msg("ledger: checkpoint skipped")
		return
	}
	l.log.Info().Uint64("next_tx_id", l.nextTxID).Uint32("accounts", l.store.Len()).Msg("ledger: checkpoint written")
}
