package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"go.uber.org/zap"
)

var (
	ErrRegionNotIndexed = errors.New("region not in world index")
)

const regionKeyPrefix = "region/"

func regionKey(name string) []byte {
	return []byte(regionKeyPrefix + name)
}

// KVDB is the world index: the cross section (bounds, border junctions,
// leaps) of every region ever built, so the engine can route through regions
// whose files are not on disk.
type KVDB struct {
	db     *badger.DB
	logger *zap.Logger
}

func NewKVDB(db *badger.DB, logger *zap.Logger) *KVDB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KVDB{db: db, logger: logger}
}

// Open opens (or creates) a badger database at dir. An empty dir keeps it in
// memory.
func Open(dir string, logger *zap.Logger) (*KVDB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open world index %q: %w", dir, err)
	}
	return NewKVDB(db, logger), nil
}

type batchData struct {
	key   []byte
	value *mwm.CrossSection
}

// SaveCrossSections writes cross sections in batches of batchSize.
func (k *KVDB) SaveCrossSections(ctx context.Context, sections []*mwm.CrossSection) error {
	const batchSize = 1000
	batches := make([]batchData, 0, batchSize)
	for _, cross := range sections {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batches = append(batches, batchData{key: regionKey(cross.Region), value: cross})
		if len(batches) == batchSize {
			if err := k.saveBatch(ctx, batches); err != nil {
				return err
			}
			batches = make([]batchData, 0, batchSize)
		}
	}
	if len(batches) > 0 {
		return k.saveBatch(ctx, batches)
	}
	return nil
}

func (k *KVDB) saveBatch(ctx context.Context, batchData []batchData) error {
	batch := k.db.NewWriteBatch()
	defer batch.Cancel()

	for _, data := range batchData {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		val, err := encodeCrossSection(data.value)
		if err != nil {
			return fmt.Errorf("encode cross section of %s: %w", data.value.Region, err)
		}
		if err := batch.Set(data.key, val); err != nil {
			return err
		}
	}

	if err := batch.Flush(); err != nil {
		k.logger.Error("error saving cross sections", zap.Error(err))
		return err
	}
	k.logger.Debug("saved cross sections", zap.Int("count", len(batchData)))
	return nil
}

// SaveCrossSection writes one cross section.
func (k *KVDB) SaveCrossSection(cross *mwm.CrossSection) error {
	val, err := encodeCrossSection(cross)
	if err != nil {
		return fmt.Errorf("encode cross section of %s: %w", cross.Region, err)
	}
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set(regionKey(cross.Region), val)
	})
}

func (k *KVDB) get(key []byte) ([]byte, error) {
	var val []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	return val, err
}

func (k *KVDB) GetCrossSection(name string) (*mwm.CrossSection, error) {
	val, err := k.get(regionKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotIndexed, name)
	}
	if err != nil {
		return nil, err
	}
	return loadCrossSection(val)
}

func (k *KVDB) DeleteCrossSection(name string) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(regionKey(name))
	})
}

// ForEachCrossSection visits every indexed region in name order.
func (k *KVDB) ForEachCrossSection(ctx context.Context, fn func(*mwm.CrossSection) error) error {
	prefix := []byte(regionKeyPrefix)
	return k.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			cross, err := loadCrossSection(val)
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if err := fn(cross); err != nil {
				return err
			}
		}
		return nil
	})
}

func (k *KVDB) Close() error {
	return k.db.Close()
}
