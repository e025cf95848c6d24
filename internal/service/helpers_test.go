package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/office-seat-booking/internal/clock"
	"github.com/iliyamo/office-seat-booking/internal/database"
	"github.com/iliyamo/office-seat-booking/internal/model"
	"github.com/iliyamo/office-seat-booking/internal/queue"
	"github.com/iliyamo/office-seat-booking/internal/repository"
	"github.com/iliyamo/office-seat-booking/internal/schedule"
)

// Monday 2026-02-23 16:00 UTC: week 1 of the rotation, after the buffer
// window for Tuesday opened.
var testNow = time.Date(2026, 2, 23, 16, 0, 0, 0, time.UTC)

const (
	tuesday  = "2026-02-24" // Batch A designated, Batch B buffer
	saturday = "2026-02-28"
)

type memDirectory struct {
	mu    sync.Mutex
	users map[uint64]model.User
}

func newDirectory() *memDirectory { return &memDirectory{users: map[uint64]model.User{}} }

func (d *memDirectory) add(id uint64, b model.Batch) {
	d.mu.Lock()
	d.users[id] = model.User{ID: id, Batch: b}
	d.mu.Unlock()
}

func (d *memDirectory) GetByID(_ context.Context, id uint64) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) snapshot() []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.Event(nil), p.events...)
}

type fixture struct {
	svc    *BookingService
	store  repository.Store
	users  *memDirectory
	clock  *clock.Fake
	events *recordingPublisher
}

func storeOptions(designated, buffer int) repository.Options {
	return repository.Options{
		Defaults: repository.Defaults{DesignatedCapacity: designated, BufferCapacity: buffer},
		Clock:    clock.NewFake(testNow),
	}
}

func sqliteStore(t *testing.T, opts repository.Options) repository.Store {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "seats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite"))
	return repository.NewSQLStore(db, repository.DialectSQLite, opts)
}

func redisStore(t *testing.T, opts repository.Options) repository.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return repository.NewRedisStore(rdb, "svc", opts)
}

func newFixture(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	resolver, err := schedule.NewResolver(schedule.DefaultReferenceMonday, time.UTC)
	require.NoError(t, err)
	f := &fixture{
		store:  store,
		users:  newDirectory(),
		clock:  clock.NewFake(testNow),
		events: &recordingPublisher{},
	}
	f.svc = NewBookingService(Deps{
		Store:      store,
		Users:      f.users,
		Classifier: schedule.NewClassifier(resolver, schedule.DefaultPolicy()),
		Clock:      f.clock,
		Events:     f.events,
		Logger:     zerolog.Nop(),
	})
	return f
}

// eachStrategy runs fn against the transactional path (SQLite), the
// compensating path forced by a store without transactions (SQLite with
// transactions disabled) and the native non-transactional store (Redis).
func eachStrategy(t *testing.T, designated, buffer int, fn func(t *testing.T, f *fixture)) {
	t.Run("sqlite-tx", func(t *testing.T) {
		fn(t, newFixture(t, sqliteStore(t, storeOptions(designated, buffer))))
	})
	t.Run("sqlite-no-tx", func(t *testing.T) {
		opts := storeOptions(designated, buffer)
		opts.DisableTx = true
		fn(t, newFixture(t, sqliteStore(t, opts)))
	})
	t.Run("redis", func(t *testing.T) {
		fn(t, newFixture(t, redisStore(t, storeOptions(designated, buffer))))
	})
}

func (f *fixture) inventory(t *testing.T, date string) model.SeatInventory {
	t.Helper()
	d, err := model.ParseDate(date, time.UTC)
	require.NoError(t, err)
	inv, err := f.store.Ledger().Ensure(context.Background(), d)
	require.NoError(t, err)
	return inv
}

// flakyStore injects failures into the booking step.  With tx set, InTx
// delegates to the wrapped store and keeps injecting inside the
// transaction; otherwise it reports ErrTxUnsupported.
type flakyStore struct {
	repository.Store
	tx         bool
	createErr  error
	cancelErr  error
	releaseErr error
}

func (s *flakyStore) Bookings() repository.BookingStore {
	return flakyBookings{BookingStore: s.Store.Bookings(), s: s}
}

func (s *flakyStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if !s.tx {
		return repository.ErrTxUnsupported
	}
	return s.Store.InTx(ctx, func(tx repository.Store) error {
		return fn(&flakyStore{Store: tx, tx: true, createErr: s.createErr, cancelErr: s.cancelErr, releaseErr: s.releaseErr})
	})
}

type flakyBookings struct {
	repository.BookingStore
	s *flakyStore
}

func (b flakyBookings) Create(ctx context.Context, bk *model.Booking) error {
	if b.s.createErr != nil {
		return b.s.createErr
	}
	return b.BookingStore.Create(ctx, bk)
}

func (b flakyBookings) MarkCancelled(ctx context.Context, id uint64) error {
	if b.s.cancelErr != nil {
		return b.s.cancelErr
	}
	return b.BookingStore.MarkCancelled(ctx, id)
}

func (s *flakyStore) Ledger() repository.Ledger {
	return flakyLedger{Ledger: s.Store.Ledger(), s: s}
}

type flakyLedger struct {
	repository.Ledger
	s *flakyStore
}

func (l flakyLedger) ReleaseDesignated(ctx context.Context, date time.Time) error {
	if l.s.releaseErr != nil {
		return l.s.releaseErr
	}
	return l.Ledger.ReleaseDesignated(ctx, date)
}

func (l flakyLedger) ReleaseBuffer(ctx context.Context, date time.Time) error {
	if l.s.releaseErr != nil {
		return l.s.releaseErr
	}
	return l.Ledger.ReleaseBuffer(ctx, date)
}

var errDiskFull = errors.New("disk full")
