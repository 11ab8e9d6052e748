package badgerdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"imgmeta/internal/config"
	"imgmeta/internal/domain"
	"imgmeta/internal/port"
)

// Key layout:
//
//	img/<image_id>                                -> JSON record
//	usr/<user_id>\x00<inverted created_at>/<id>   -> empty
//
// The inverted timestamp is zero-padded so byte order of the user index is
// newest first, then image_id ascending.
const (
	imagePrefix = "img/"
	userPrefix  = "usr/"
	userSep     = "\x00"
)

type imageRepo struct {
	db *badger.DB
}

// Open opens (or creates) a Badger database as configured.
func Open(cfg *config.BadgerConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return db, nil
}

// NewImageRepo creates a Badger-backed ImageRepository.
func NewImageRepo(db *badger.DB) port.ImageRepository {
	return &imageRepo{db: db}
}

func imageKey(imageID string) []byte {
	return []byte(imagePrefix + imageID)
}

func userIndexPrefix(userID string) []byte {
	return []byte(userPrefix + userID + userSep)
}

func invertedNanos(img *domain.Image) string {
	return fmt.Sprintf("%019d", math.MaxInt64-img.CreatedAt.UnixNano())
}

func userIndexKey(img *domain.Image) []byte {
	return []byte(userPrefix + img.UserID + userSep + invertedNanos(img) + "/" + img.ImageID)
}

func (r *imageRepo) Create(_ context.Context, img *domain.Image) error {
	val, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("badgerdb.Create: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(imageKey(img.ImageID)); err == nil {
			return fmt.Errorf("image %s already exists", img.ImageID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(imageKey(img.ImageID), val); err != nil {
			return err
		}
		return txn.Set(userIndexKey(img), nil)
	})
	if err != nil {
		return fmt.Errorf("badgerdb.Create: %w", err)
	}
	return nil
}

func getImage(txn *badger.Txn, imageID string) (*domain.Image, error) {
	item, err := txn.Get(imageKey(imageID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var img domain.Image
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &img)
	}); err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *imageRepo) GetByID(_ context.Context, imageID string) (*domain.Image, error) {
	var img *domain.Image
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		img, err = getImage(txn, imageID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("badgerdb.GetByID: %w", err)
	}
	return img, nil
}

func (r *imageRepo) ListByUser(ctx context.Context, q port.ListQuery) ([]domain.Image, string, error) {
	prefix := userIndexPrefix(q.UserID)
	seek := prefix
	var skip []byte
	if q.After != nil {
		skip = userIndexKey(&domain.Image{UserID: q.UserID, ImageID: q.After.ImageID, CreatedAt: q.After.CreatedAt})
		seek = skip
	}

	var candidates []domain.Image
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			if skip != nil && bytes.Equal(key, skip) {
				continue
			}
			imageID := string(key[strings.LastIndexByte(string(key), '/')+1:])
			img, err := getImage(txn, imageID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			// The index prefix alone is ambiguous when a user id contains the separator.
			if img.UserID != q.UserID || !q.Matches(img) {
				continue
			}
			candidates = append(candidates, *img)
			if len(candidates) > q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("badgerdb.ListByUser: %w", err)
	}

	page, next := domain.PageOf(candidates, q.Limit)
	return page, next, nil
}

func (r *imageRepo) Delete(_ context.Context, imageID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		img, err := getImage(txn, imageID)
		if err != nil {
			return err
		}
		if err := txn.Delete(imageKey(imageID)); err != nil {
			return err
		}
		return txn.Delete(userIndexKey(img))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return err
	case errors.Is(err, badger.ErrConflict):
		// The only concurrent writer of an existing image key is another Delete.
		return domain.ErrNotFound
	default:
		return fmt.Errorf("badgerdb.Delete: %w", err)
	}
}

func (r *imageRepo) Ping(context.Context) error {
	if r.db.IsClosed() {
		return errors.New("badgerdb: database closed")
	}
	return nil
}
