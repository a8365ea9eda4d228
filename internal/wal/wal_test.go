package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempWALPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "wal-test-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "test.wal")
}

func TestOpenWritesHeaderOnFreshFile(t *testing.T) {
	path := tempWALPath(t)

	w, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(fileHeaderSize), info.Size())
}

func TestOpenRejectsFileWithBadHeader(t *testing.T) {
	path := tempWALPath(t)
	require.NoError(t, os.WriteFile(path, []byte("not-a-wal-file!!"), 0644))

	_, err := Open(path, zerolog.Nop())
	assert.ErrorIs(t, err, ErrIO)
}

func TestAppendAndReplayRoundTrip(t *testing.T) {
	path := tempWALPath(t)
	w, err := Open(path, zerolog.Nop())
	require.NoError(t, err)

	records := []Record{
		{Op: OpBeginTx, TxID: 1},
		{Op: OpDebit, TxID: 1, AccountID: 1, Amount: 500},
		{Op: OpCredit, TxID: 1, AccountID: 2, Amount: 500},
		{Op: OpCommit, TxID: 1},
	}
	for _, r := range records {
		require.NoError(t, w.Append(r))
	}
	require.NoError(t, w.Close())

	w, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	var replayed []Record
	err = w.Replay(func(r Record) error {
		replayed = append(replayed, r)
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, records, replayed)
}

// TestReplayToleratesTruncationMidRecord exercises spec.md §8's
// named crash-safety scenario: a WAL truncated partway through, mid a
// torn trailing write, must still replay cleanly up to its last whole
// record rather than erroring, so the ledger can still open after a
// crash that cut off mid-append.
func TestReplayToleratesTruncationMidRecord(t *testing.T) {
	path := tempWALPath(t)
	w, err := Open(path, zerolog.Nop())
	require.NoError(t, err)

	records := []Record{
		{Op: OpBeginTx, TxID: 1},
		{Op: OpDebit, TxID: 1, AccountID: 1, Amount: 500},
		{Op: OpCredit, TxID: 1, AccountID: 2, Amount: 500},
		{Op: OpCommit, TxID: 1},
	}
	for _, r := range records {
		require.NoError(t, w.Append(r))
	}
	require.NoError(t, w.Close())

	// Truncate after the first two whole records, then again partway
	// into what would have been the third record, simulating a crash
	// mid-write.
	const keepWhole = 2
	truncateAt := int64(fileHeaderSize + keepWhole*RecordSize + RecordSize/2)
	require.NoError(t, os.Truncate(path, truncateAt))

	w, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	var replayed []Record
	err = w.Replay(func(r Record) error {
		replayed = append(replayed, r)
		return nil
	}, nil)
	require.NoError(t, err, "a torn trailing write must replay as clean EOF, not an error")
	assert.Equal(t, records[:keepWhole], replayed)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(fileHeaderSize+keepWhole*RecordSize), info.Size(),
		"replay must discard the torn tail, not just skip over it")

	// Appending after a truncated replay must not leave a gap of garbage
	// bytes between the recovered prefix and the new record: replaying
	// again afterward must see exactly the recovered records plus the
	// new one.
	require.NoError(t, w.Append(Record{Op: OpBeginTx, TxID: 2}))
	require.NoError(t, w.Close())

	w, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	var afterAppend []Record
	err = w.Replay(func(r Record) error {
		afterAppend = append(afterAppend, r)
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, append(append([]Record{}, records[:keepWhole]...), Record{Op: OpBeginTx, TxID: 2}), afterAppend)
}

func TestReplayHaltsOnChecksumMismatch(t *testing.T) {
	path := tempWALPath(t)
	w, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Op: OpBeginTx, TxID: 1}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[fileHeaderSize+5] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0644))

	w, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	err = w.Replay(func(Record) error { return nil }, nil)
	assert.ErrorIs(t, err, ErrIO)
}

func TestCheckpointRoundTripsInlineSnapshot(t *testing.T) {
	path := tempWALPath(t)
	w, err := Open(path, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, w.Append(Record{Op: OpBeginTx, TxID: 1}))
	snapshot := []byte("pretend-this-is-a-serialized-account-table")
	require.NoError(t, w.Checkpoint(snapshot))
	require.NoError(t, w.Append(Record{Op: OpBeginTx, TxID: 2}))
	require.NoError(t, w.Close())

	w, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	var seen []Record
	var gotSnapshot []byte
	err = w.Replay(func(r Record) error {
		seen = append(seen, r)
		return nil
	}, func(snap []byte) error {
		gotSnapshot = append([]byte(nil), snap...)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []Record{{Op: OpBeginTx, TxID: 1}, {Op: OpBeginTx, TxID: 2}}, seen)
	assert.Equal(t, snapshot, gotSnapshot)
}

func TestAppendAfterReplaySeeksToEnd(t *testing.T) {
	path := tempWALPath(t)
	w, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Op: OpBeginTx, TxID: 1}))

	require.NoError(t, w.Replay(func(Record) error { return nil }, nil))
	require.NoError(t, w.Append(Record{Op: OpBeginTx, TxID: 2}))
	require.NoError(t, w.Close())

	w, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	var seen []Record
	err = w.Replay(func(r Record) error {
		seen = append(seen, r)
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Len(t, seen, 2, "the second append must not have overwritten the first record")
}
