package wal

import (
	"errors"
	"fmt"
	"io"
)

// RecordFunc is invoked by Replay for every non-checkpoint record, in file
// order. Returning an error aborts the replay.
type RecordFunc func(Record) error

// CheckpointFunc is invoked by Replay when a CHECKPOINT record carrying a
// non-empty snapshot is encountered. It must reset and reload whatever
// state the snapshot describes. Returning an error aborts the replay.
type CheckpointFunc func(snapshot []byte) error

// Replay re-reads the WAL from just after the file header, invoking fn for
// each record and checkpointFn for each checkpoint's inline snapshot, per
// spec.md §4.4.4. Replay halts on the first checksum mismatch or callback
// error. A read that produces fewer than RecordSize bytes at a record
// boundary — or a checkpoint record whose inline snapshot is cut short —
// is treated as a clean end-of-file, not an error, so a torn trailing
// write (the tail of whatever was being appended when the process
// crashed) doesn't prevent the ledger from opening. That torn tail is
// then truncated away: Replay leaves the file positioned, and sized, at
// the end of the last whole record it accepted, so a subsequent Append
// can't leave garbage bytes between the recovered prefix and new writes.
// A replay that instead halts on a checksum mismatch or callback error
// leaves the file untouched, since that signals real corruption rather
// than an in-progress write.
func (w *WAL) Replay(fn RecordFunc, checkpointFn CheckpointFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(fileHeaderSize, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek to start: %v", ErrIO, err)
	}

	pos := int64(fileHeaderSize)
	buf := make([]byte, RecordSize)
	for {
		n, err := io.ReadFull(w.file, buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || n < RecordSize {
				break
			}
			return fmt.Errorf("%w: read record: %v", ErrIO, err)
		}

		rec, err := Decode(buf)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		pos += RecordSize

		if rec.Op == OpCheckpoint && rec.TxID > 0 {
			snapLen := rec.TxID
			if checkpointFn != nil {
				snap := make([]byte, snapLen)
				if _, err := io.ReadFull(w.file, snap); err != nil {
					if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
						pos -= RecordSize
						break
					}
					return fmt.Errorf("%w: read checkpoint snapshot: %v", ErrIO, err)
				}
				if err := checkpointFn(snap); err != nil {
					return err
				}
			} else {
				end, err := w.file.Seek(int64(snapLen), io.SeekCurrent)
				if err != nil {
					return fmt.Errorf("%w: skip checkpoint snapshot: %v", ErrIO, err)
				}
				info, err := w.file.Stat()
				if err != nil {
					return fmt.Errorf("%w: stat: %v", ErrIO, err)
				}
				if end > info.Size() {
					pos -= RecordSize
					break
				}
			}
			pos += int64(snapLen)
			continue
		}

		if err := fn(rec); err != nil {
			return err
		}
	}

	if err := w.file.Truncate(pos); err != nil {
		return fmt.Errorf("%w: truncate torn tail: %v", ErrIO, err)
	}
	if _, err := w.file.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: reposition after replay: %v", ErrIO, err)
	}
	return nil
}
