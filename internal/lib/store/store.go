// Package store persists pools and stake positions in LevelDB.  Every mutating operation runs inside a
// LevelDB transaction so a failed operation leaves no partial writes behind.
package store

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/TxnLab/lpstaking/internal/lib/pool"
	"github.com/TxnLab/lpstaking/internal/lib/position"
)

var (
	ErrPoolNotFound  = stderrors.New("pool not found")
	ErrInvalidPoolID = stderrors.New("invalid pool id")
)

// MaxPoolIDLen is the longest pool id whose length still fits the position key prefix.
const MaxPoolIDLen = 1<<16 - 1

const (
	poolPrefix     = 'p'
	positionPrefix = 's'

	// rate, multiplier, acc per share, last update, total staked
	poolRecordSize = 8 * 5
	// amount, reward debt, last stake time, lockup end
	positionRecordSize = 8 * 4
)

type DB struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		Filter: filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open level db")
	}
	return &DB{db: db}, nil
}

// OpenMem returns a database held entirely in memory.
func OpenMem() (*DB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "open memory level db")
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Begin opens a write transaction scoped to poolID.  Only one transaction can be open at a time - a second Begin
// blocks until the first commits or is discarded.
func (d *DB) Begin(poolID string) (*Tx, error) {
	if err := CheckPoolID(poolID); err != nil {
		return nil, err
	}
	tr, err := d.db.OpenTransaction()
	if err != nil {
		return nil, errors.Wrap(err, "open transaction")
	}
	return &Tx{reader: reader{poolID: poolID, src: tr}, tr: tr}, nil
}

// View returns a read-only snapshot scoped to poolID.  Callers must Release it.
func (d *DB) View(poolID string) (*View, error) {
	if err := CheckPoolID(poolID); err != nil {
		return nil, err
	}
	snap, err := d.db.GetSnapshot()
	if err != nil {
		return nil, errors.Wrap(err, "get snapshot")
	}
	return &View{reader: reader{poolID: poolID, src: snap}, snap: snap}, nil
}

type source interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type reader struct {
	poolID string
	src    source
}

func (r reader) PoolID() string {
	return r.poolID
}

// Pool returns ErrPoolNotFound if the pool was never initialized.
func (r reader) Pool() (*pool.Pool, error) {
	data, err := r.src.Get(poolKey(r.poolID), nil)
	if err == leveldb.ErrNotFound {
		return nil, fmt.Errorf("pool %s: %w", r.poolID, ErrPoolNotFound)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get pool %s", r.poolID)
	}
	return decodePool(r.poolID, data)
}

// Position returns position.ErrNotFound if owner never staked in this pool.
func (r reader) Position(owner string) (*position.Position, error) {
	data, err := r.src.Get(positionKey(r.poolID, owner), nil)
	if err == leveldb.ErrNotFound {
		return nil, fmt.Errorf("owner %s: %w", owner, position.ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get position %s", owner)
	}
	return decodePosition(owner, data)
}

// Positions returns every position record of the pool (including empty ones), ordered by owner.
func (r reader) Positions() ([]*position.Position, error) {
	var (
		prefix    = positionPrefixKey(r.poolID)
		positions []*position.Position
	)
	iter := r.src.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		owner := string(iter.Key()[len(prefix):])
		pos, err := decodePosition(owner, iter.Value())
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate positions")
	}
	return positions, nil
}

type Tx struct {
	reader
	tr   *leveldb.Transaction
	done bool
}

func (tx *Tx) PutPool(p *pool.Pool) error {
	if p.ID != tx.poolID {
		return fmt.Errorf("pool %s written through transaction for pool %s", p.ID, tx.poolID)
	}
	return errors.Wrapf(tx.tr.Put(poolKey(p.ID), encodePool(p), nil), "put pool %s", p.ID)
}

func (tx *Tx) PutPosition(pos *position.Position) error {
	return errors.Wrapf(tx.tr.Put(positionKey(tx.poolID, pos.Owner), encodePosition(pos), nil), "put position %s", pos.Owner)
}

// Commit writes everything put through the transaction atomically.
func (tx *Tx) Commit() error {
	if tx.done {
		return stderrors.New("transaction already finished")
	}
	tx.done = true
	return errors.Wrap(tx.tr.Commit(), "commit")
}

// Discard drops all writes.  Safe to call after Commit (no-op), so it can always be deferred.
func (tx *Tx) Discard() {
	if tx.done {
		return
	}
	tx.done = true
	tx.tr.Discard()
}

type View struct {
	reader
	snap *leveldb.Snapshot
}

func (v *View) Release() {
	v.snap.Release()
}

// CheckPoolID rejects ids too long to be length prefixed in position keys.
func CheckPoolID(poolID string) error {
	if len(poolID) > MaxPoolIDLen {
		return fmt.Errorf("pool id of %d bytes, max %d: %w", len(poolID), MaxPoolIDLen, ErrInvalidPoolID)
	}
	return nil
}

func poolKey(poolID string) []byte {
	return append([]byte{poolPrefix}, poolID...)
}

func positionPrefixKey(poolID string) []byte {
	key := make([]byte, 3, 3+len(poolID))
	key[0] = positionPrefix
	binary.BigEndian.PutUint16(key[1:3], uint16(len(poolID)))
	return append(key, poolID...)
}

func positionKey(poolID, owner string) []byte {
	return append(positionPrefixKey(poolID), owner...)
}

func encodePool(p *pool.Pool) []byte {
	data := make([]byte, poolRecordSize)
	binary.BigEndian.PutUint64(data[0:8], p.RewardRate)
	binary.BigEndian.PutUint64(data[8:16], p.RewardMultiplier)
	binary.BigEndian.PutUint64(data[16:24], p.AccRewardPerShare)
	binary.BigEndian.PutUint64(data[24:32], uint64(p.LastUpdateTime))
	binary.BigEndian.PutUint64(data[32:40], p.TotalStaked)
	return data
}

func decodePool(id string, data []byte) (*pool.Pool, error) {
	if len(data) != poolRecordSize {
		return nil, fmt.Errorf("pool %s record is %d bytes, expected %d", id, len(data), poolRecordSize)
	}
	return &pool.Pool{
		ID:                id,
		RewardRate:        binary.BigEndian.Uint64(data[0:8]),
		RewardMultiplier:  binary.BigEndian.Uint64(data[8:16]),
		AccRewardPerShare: binary.BigEndian.Uint64(data[16:24]),
		LastUpdateTime:    int64(binary.BigEndian.Uint64(data[24:32])),
		TotalStaked:       binary.BigEndian.Uint64(data[32:40]),
	}, nil
}

func encodePosition(pos *position.Position) []byte {
	data := make([]byte, positionRecordSize)
	binary.BigEndian.PutUint64(data[0:8], pos.Amount)
	binary.BigEndian.PutUint64(data[8:16], pos.RewardDebt)
	binary.BigEndian.PutUint64(data[16:24], uint64(pos.LastStakeTime))
	binary.BigEndian.PutUint64(data[24:32], uint64(pos.LockupEndTime))
	return data
}

func decodePosition(owner string, data []byte) (*position.Position, error) {
	if len(data) != positionRecordSize {
		return nil, fmt.Errorf("position %s record is %d bytes, expected %d", owner, len(data), positionRecordSize)
	}
	return &position.Position{
		Owner:         owner,
		Amount:        binary.BigEndian.Uint64(data[0:8]),
		RewardDebt:    binary.BigEndian.Uint64(data[8:16]),
		LastStakeTime: int64(binary.BigEndian.Uint64(data[16:24])),
		LockupEndTime: int64(binary.BigEndian.Uint64(data[24:32])),
	}, nil
}
