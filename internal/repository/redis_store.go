package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// RedisStore implements Store on a single Redis instance.  Each ledger and
// booking mutation is one Lua script, which Redis runs atomically, so the
// conditional updates need no client-side locking.  Redis offers no
// rollback-capable multi-step transaction, so InTx always reports
// ErrTxUnsupported and the service uses its compensating executor.
//
// Key layout, with p the configured prefix:
//
//	p:inv:YYYY-MM-DD          hash   inventory counters
//	p:booking:ID              hash   booking record
//	p:active:USER:YYYY-MM-DD  string id of the user's booked record that day
//	p:user:USER:bookings      zset   booking ids scored by day number
//	p:seq:booking             string id sequence
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	opts   Options
}

func NewRedisStore(rdb *redis.Client, prefix string, opts Options) *RedisStore {
	if prefix == "" {
		prefix = "seats"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, opts: opts.normalize()}
}

func (s *RedisStore) Ledger() Ledger { return (*redisLedger)(s) }

func (s *RedisStore) Bookings() BookingStore { return (*redisBookings)(s) }

func (s *RedisStore) InTx(context.Context, func(Store) error) error { return ErrTxUnsupported }

// Reset deletes every key under the prefix.
func (s *RedisStore) Reset(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *RedisStore) day(t time.Time) string {
	return model.FormatDate(model.DateOf(t, s.opts.Location))
}

func (s *RedisStore) invKey(day string) string { return s.prefix + ":inv:" + day }

func (s *RedisStore) bookingKey(id uint64) string {
	return s.prefix + ":booking:" + strconv.FormatUint(id, 10)
}

func (s *RedisStore) activeKey(userID uint64, day string) string {
	return fmt.Sprintf("%s:active:%d:%s", s.prefix, userID, day)
}

func (s *RedisStore) userKey(userID uint64) string {
	return fmt.Sprintf("%s:user:%d:bookings", s.prefix, userID)
}

func (s *RedisStore) seqKey() string { return s.prefix + ":seq:booking" }

// dayNumber is the sort score of a date: days since 1970-01-01.
func dayNumber(d time.Time) int {
	return model.DaysBetween(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), d)
}

// ---- ledger ----

type redisLedger RedisStore

var ensureInventoryScript = redis.NewScript(`
    if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
    redis.call('HSET', KEYS[1],
        'designated_capacity', ARGV[1],
        'buffer_base_capacity', ARGV[2],
        'designated_booked', 0,
        'buffer_booked', 0,
        'designated_released_to_buffer', 0,
        'created_at', ARGV[3],
        'updated_at', ARGV[3])
    return 1
`)

// applyDeltaScript mirrors applyDeltaSQL: add ARGV[1..5] to the counters
// only when the resulting record keeps every invariant.
// Returns -1 when the record does not exist, 0 when the guard refuses.
var applyDeltaScript = redis.NewScript(`
    local key = KEYS[1]
    if redis.call('EXISTS', key) == 0 then return -1 end
    local fields = {'designated_booked', 'buffer_booked', 'designated_capacity',
                    'buffer_base_capacity', 'designated_released_to_buffer'}
    local v = {}
    for i, f in ipairs(fields) do
        v[i] = tonumber(redis.call('HGET', key, f) or '0') + tonumber(ARGV[i])
        if v[i] < 0 then return 0 end
    end
    if v[1] > v[3] then return 0 end
    if v[2] > v[4] + v[5] then return 0 end
    for i, f in ipairs(fields) do
        redis.call('HSET', key, f, v[i])
    end
    redis.call('HSET', key, 'updated_at', ARGV[6])
    return 1
`)

func (l *redisLedger) store() *RedisStore { return (*RedisStore)(l) }

func (l *redisLedger) Ensure(ctx context.Context, date time.Time) (model.SeatInventory, error) {
	s := l.store()
	d := s.opts.Defaults
	err := ensureInventoryScript.Run(ctx, s.rdb, []string{s.invKey(s.day(date))},
		d.DesignatedCapacity, d.BufferCapacity, s.opts.Clock.Now().Unix()).Err()
	if err != nil {
		return model.SeatInventory{}, err
	}
	return l.Get(ctx, date)
}

func (l *redisLedger) Get(ctx context.Context, date time.Time) (model.SeatInventory, error) {
	s := l.store()
	day := s.day(date)
	m, err := s.rdb.HGetAll(ctx, s.invKey(day)).Result()
	if err != nil {
		return model.SeatInventory{}, err
	}
	if len(m) == 0 {
		return model.SeatInventory{}, ErrInventoryNotFound
	}
	inv := model.SeatInventory{Date: model.DateOf(date, s.opts.Location)}
	for field, dst := range map[string]*int{
		"designated_capacity":           &inv.DesignatedCapacity,
		"buffer_base_capacity":          &inv.BufferBaseCapacity,
		"designated_booked":             &inv.DesignatedBooked,
		"buffer_booked":                 &inv.BufferBooked,
		"designated_released_to_buffer": &inv.DesignatedReleasedToBuffer,
	} {
		if *dst, err = strconv.Atoi(m[field]); err != nil {
			return model.SeatInventory{}, fmt.Errorf("inventory %s: field %s: %w", day, field, err)
		}
	}
	return inv, nil
}

func (l *redisLedger) ClaimDesignated(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opClaimDesignated, 0)
}

func (l *redisLedger) ClaimBuffer(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opClaimBuffer, 0)
}

func (l *redisLedger) ReleaseDesignated(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opReleaseDesignated, 0)
}

func (l *redisLedger) ReleaseBuffer(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opReleaseBuffer, 0)
}

func (l *redisLedger) RollbackClaimDesignated(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opRollbackClaimDesignated, 0)
}

func (l *redisLedger) RollbackClaimBuffer(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opRollbackClaimBuffer, 0)
}

func (l *redisLedger) RollbackReleaseDesignated(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opRollbackReleaseDesignated, 0)
}

func (l *redisLedger) RollbackReleaseBuffer(ctx context.Context, date time.Time) error {
	return l.apply(ctx, date, opRollbackReleaseBuffer, 0)
}

func (l *redisLedger) AdjustBufferBase(ctx context.Context, date time.Time, delta int) (model.SeatInventory, error) {
	if err := l.apply(ctx, date, opAdjustBufferBase, delta); err != nil {
		return model.SeatInventory{}, err
	}
	return l.Get(ctx, date)
}

func (l *redisLedger) apply(ctx context.Context, date time.Time, op ledgerOp, n int) error {
	s := l.store()
	day := s.day(date)
	d := op.delta(n)
	res, err := applyDeltaScript.Run(ctx, s.rdb, []string{s.invKey(day)},
		d.DesignatedBooked, d.BufferBooked, d.DesignatedCapacity, d.BufferBase, d.ReleasedToBuffer,
		s.opts.Clock.Now().Unix()).Int()
	if err != nil {
		return err
	}
	switch res {
	case 1:
		return nil
	case -1:
		return ErrInventoryNotFound
	}
	return op.rejected(day)
}

// ---- bookings ----

type redisBookings RedisStore

// KEYS: active, booking, user zset
// ARGV: id, user_id, user_batch, date, seat_type, now, score
var createBookingScript = redis.NewScript(`
    if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
    redis.call('SET', KEYS[1], ARGV[1])
    redis.call('HSET', KEYS[2],
        'id', ARGV[1],
        'user_id', ARGV[2],
        'user_batch', ARGV[3],
        'booking_date', ARGV[4],
        'seat_type', ARGV[5],
        'status', 'booked',
        'created_at', ARGV[6],
        'updated_at', ARGV[6])
    redis.call('ZADD', KEYS[3], ARGV[7], ARGV[1])
    return 1
`)

// KEYS: booking, active
// ARGV: id, now
var cancelBookingScript = redis.NewScript(`
    if redis.call('HGET', KEYS[1], 'status') ~= 'booked' then return 0 end
    redis.call('HSET', KEYS[1], 'status', 'cancelled', 'updated_at', ARGV[2])
    redis.call('HDEL', KEYS[1], 'releasing_at')
    if redis.call('GET', KEYS[2]) == ARGV[1] then
        redis.call('DEL', KEYS[2])
    end
    return 1
`)

// KEYS: booking
// ARGV: now, stale (marks at or before it have expired)
var beginReleaseScript = redis.NewScript(`
    if redis.call('HGET', KEYS[1], 'status') ~= 'booked' then return 0 end
    local mark = redis.call('HGET', KEYS[1], 'releasing_at')
    if mark and tonumber(mark) > tonumber(ARGV[2]) then return 0 end
    redis.call('HSET', KEYS[1], 'releasing_at', ARGV[1])
    return 1
`)

var abortReleaseScript = redis.NewScript(`
    if redis.call('HGET', KEYS[1], 'status') ~= 'booked' then return 0 end
    return redis.call('HDEL', KEYS[1], 'releasing_at')
`)

func (b *redisBookings) store() *RedisStore { return (*RedisStore)(b) }

func (b *redisBookings) FindActive(ctx context.Context, userID uint64, date time.Time) (model.Booking, error) {
	s := b.store()
	id, err := s.rdb.Get(ctx, s.activeKey(userID, s.day(date))).Uint64()
	if errors.Is(err, redis.Nil) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	bk, err := b.get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if !bk.Active() {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return bk, nil
}

func (b *redisBookings) Create(ctx context.Context, bk *model.Booking) error {
	s := b.store()
	day := s.day(bk.Date)
	id, err := s.rdb.Incr(ctx, s.seqKey()).Uint64()
	if err != nil {
		return err
	}
	now := s.opts.Clock.Now().Unix()
	date := model.DateOf(bk.Date, s.opts.Location)
	ok, err := createBookingScript.Run(ctx, s.rdb,
		[]string{s.activeKey(bk.UserID, day), s.bookingKey(id), s.userKey(bk.UserID)},
		id, bk.UserID, string(bk.UserBatch), day, string(bk.SeatType), now, dayNumber(date)).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return fmt.Errorf("%w: user %d on %s", model.ErrDuplicateBooking, bk.UserID, day)
	}
	bk.ID = id
	bk.Date = date
	bk.Status = model.StatusBooked
	bk.CreatedAt = time.Unix(now, 0).UTC()
	bk.UpdatedAt = bk.CreatedAt
	return nil
}

func (b *redisBookings) MarkCancelled(ctx context.Context, id uint64) error {
	s := b.store()
	bk, err := b.get(ctx, id)
	if err != nil {
		return err
	}
	ok, err := cancelBookingScript.Run(ctx, s.rdb,
		[]string{s.bookingKey(id), s.activeKey(bk.UserID, s.day(bk.Date))},
		id, s.opts.Clock.Now().Unix()).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return fmt.Errorf("%w: booking %d is not active", model.ErrBookingNotFound, id)
	}
	return nil
}

func (b *redisBookings) BeginRelease(ctx context.Context, id uint64) error {
	s := b.store()
	now := s.opts.Clock.Now().Unix()
	ok, err := beginReleaseScript.Run(ctx, s.rdb, []string{s.bookingKey(id)},
		now, now-int64(ReleaseLease/time.Second)).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return fmt.Errorf("%w: booking %d is not active", model.ErrBookingNotFound, id)
	}
	return nil
}

func (b *redisBookings) AbortRelease(ctx context.Context, id uint64) error {
	s := b.store()
	return abortReleaseScript.Run(ctx, s.rdb, []string{s.bookingKey(id)}).Err()
}

func (b *redisBookings) ListByUser(ctx context.Context, userID uint64, f ListFilter) ([]model.Booking, error) {
	s := b.store()
	lo := "-inf"
	if f.From != nil {
		lo = strconv.Itoa(dayNumber(model.DateOf(*f.From, s.opts.Location)))
	}
	ids, err := s.rdb.ZRangeByScore(ctx, s.userKey(userID), &redis.ZRangeBy{Min: lo, Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("booking index for user %d: %w", userID, err)
		}
		cmds = append(cmds, pipe.HGetAll(ctx, s.bookingKey(id)))
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	out := []model.Booking{}
	for _, cmd := range cmds {
		m := cmd.Val()
		if len(m) == 0 {
			continue
		}
		bk, err := b.decode(m)
		if err != nil {
			return nil, err
		}
		if !f.IncludeCancelled && !bk.Active() {
			continue
		}
		out = append(out, bk)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (b *redisBookings) get(ctx context.Context, id uint64) (model.Booking, error) {
	s := b.store()
	m, err := s.rdb.HGetAll(ctx, s.bookingKey(id)).Result()
	if err != nil {
		return model.Booking{}, err
	}
	if len(m) == 0 {
		return model.Booking{}, fmt.Errorf("%w: booking %d", model.ErrBookingNotFound, id)
	}
	return b.decode(m)
}

func (b *redisBookings) decode(m map[string]string) (model.Booking, error) {
	s := b.store()
	var (
		bk  model.Booking
		err error
	)
	if bk.ID, err = strconv.ParseUint(m["id"], 10, 64); err != nil {
		return model.Booking{}, fmt.Errorf("booking id: %w", err)
	}
	if bk.UserID, err = strconv.ParseUint(m["user_id"], 10, 64); err != nil {
		return model.Booking{}, fmt.Errorf("booking %d user_id: %w", bk.ID, err)
	}
	if bk.Date, err = model.ParseDate(m["booking_date"], s.opts.Location); err != nil {
		return model.Booking{}, fmt.Errorf("booking %d date: %w", bk.ID, err)
	}
	created, _ := strconv.ParseInt(m["created_at"], 10, 64)
	updated, _ := strconv.ParseInt(m["updated_at"], 10, 64)
	bk.UserBatch = model.Batch(m["user_batch"])
	bk.Status = model.BookingStatus(m["status"])
	bk.SeatType = model.SeatType(m["seat_type"])
	bk.CreatedAt = time.Unix(created, 0).UTC()
	bk.UpdatedAt = time.Unix(updated, 0).UTC()
	return bk, nil
}
