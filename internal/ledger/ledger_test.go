package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumarlokesh/ledgerd/internal/wal"
)

func openTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "ledgerd-test-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "ledger.wal")
	l, err := Open(Config{WALPath: path, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return l, path
}

func TestOpenMaterializesCashAccount(t *testing.T) {
	l, _ := openTestLedger(t)
	defer l.Close()

	bal, err := l.Balance(CashAccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
}

func TestCreateAccountAndDeposit(t *testing.T) {
	l, _ := openTestLedger(t)
	defer l.Close()

	id, err := l.CreateAccount(Checking, "USD")
	require.NoError(t, err)

	require.NoError(t, l.Deposit(id, 5000))

	bal, err := l.Balance(id)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), bal)

	cashBal, err := l.Balance(CashAccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), cashBal)
}

func TestWithdrawRejectsOverdraw(t *testing.T) {
	l, _ := openTestLedger(t)
	defer l.Close()

	id, err := l.CreateAccount(Checking, "USD")
	require.NoError(t, err)
	require.NoError(t, l.Deposit(id, 100))

	err = l.Withdraw(id, 200)
	assert.ErrorIs(t, err, ErrConstraint)

	bal, err := l.Balance(id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), bal, "a rejected withdrawal must not change the balance")

	cashBal, err := l.Balance(CashAccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), cashBal, "the cash reserve must also be untouched")
}

func TestTransferConservesTotalBalance(t *testing.T) {
	l, _ := openTestLedger(t)
	defer l.Close()

	a, err := l.CreateAccount(Checking, "USD")
	require.NoError(t, err)
	b, err := l.CreateAccount(Savings, "USD")
	require.NoError(t, err)

	require.NoError(t, l.Deposit(a, 10000))
	require.NoError(t, l.Transfer(a, b, 4000))

	aBal, err := l.Balance(a)
	require.NoError(t, err)
	bBal, err := l.Balance(b)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), aBal)
	assert.Equal(t, int64(4000), bBal)
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	l, _ := openTestLedger(t)
	defer l.Close()

	a, err := l.CreateAccount(Checking, "USD")
	require.NoError(t, err)
	b, err := l.CreateAccount(Checking, "USD")
	require.NoError(t, err)

	err = l.Transfer(a, b, 0)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRecoveryReplaysWALAfterClose(t *testing.T) {
	l, path := openTestLedger(t)

	id, err := l.CreateAccount(Savings, "USD")
	require.NoError(t, err)
	require.NoError(t, l.Deposit(id, 7500))
	require.NoError(t, l.Transfer(id, CashAccountID, 2500))
	require.NoError(t, l.Close())

	reopened, err := Open(Config{WALPath: path, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer reopened.Close()

	bal, err := reopened.Balance(id)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), bal)
	assert.Equal(t, uint32(2), reopened.AccountCount(), "cash reserve plus the created account")
}

func TestRecoveryPreservesAccountIDAcrossCreateAccount(t *testing.T) {
	l, path := openTestLedger(t)

	first, err := l.CreateAccount(Checking, "USD")
	require.NoError(t, err)
	second, err := l.CreateAccount(Savings, "EUR")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := Open(Config{WALPath: path, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer reopened.Close()

	a, err := reopened.Balance(first)
	require.NoError(t, err)
	assert.Equal(t, int64(0), a)

	b, err := reopened.Balance(second)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b)

	next, err := reopened.CreateAccount(Investment, "USD")
	require.NoError(t, err)
	assert.Greater(t, next, second, "ids allocated after reopen must not collide with replayed ones")
}

func TestCheckpointWrittenAfterEnoughOps(t *testing.T) {
	l, path := openTestLedger(t)

	id, err := l.CreateAccount(Checking, "USD")
	require.NoError(t, err)
	require.NoError(t, l.Deposit(id, 1_000_000))

	const ops = defaultCheckpointInterval*2 + 5
	for i := 0; i < ops; i++ {
		require.NoError(t, l.Withdraw(id, 1))
	}
	require.NoError(t, l.Close())

	reopened, err := Open(Config{WALPath: path, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer reopened.Close()

	bal, err := reopened.Balance(id)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000-ops), bal)

	// spec.md §8 scenario 6: after enough ops, the file itself must carry
	// at least two CHECKPOINT records, not merely a balance that happens
	// to survive full replay.
	checkpoints := countCheckpoints(t, reopened)
	assert.GreaterOrEqual(t, checkpoints, 2)
}

// countCheckpoints replays l's WAL from scratch, counting CHECKPOINT
// records via the checkpoint callback, without disturbing l's own state.
func countCheckpoints(t *testing.T, l *Ledger) int {
	t.Helper()
	count := 0
	err := l.wal.Replay(func(wal.Record) error { return nil }, func([]byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	return count
}
