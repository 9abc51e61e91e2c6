// Package redis implements store.Store on Redis.  The key layout mirrors the
// logical record paths:
//
//	portico:directory                      hash   number -> user id
//	portico:users                          set    user ids
//	portico:user:{id}:checkins             hash   check-in id -> JSON
//	portico:user:{id}:properties           hash   number -> JSON
//	portico:user:{id}:calls                list   JSON call entries, append order
//	portico:user:{id}:historic_calls       string counter (INCR)
//	portico:user:{id}:active_checkins      string counter (SET)
//
// Check-in IDs are UUIDv7, so sorting the hash fields yields insertion order.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

const (
	directoryKey = "portico:directory"
	usersKey     = "portico:users"
)

func userKey(userID, suffix string) string {
	return "portico:user:" + userID + ":" + suffix
}

type Store struct {
	rdb goredis.UniversalClient
}

func New(rdb goredis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

var _ store.Store = (*Store)(nil)

// Dial parses a redis:// URL, connects and pings.
func Dial(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

type checkInJSON struct {
	Property string `json:"property"`
	TimeMs   int64  `json:"time"`
	Name     string `json:"name,omitempty"`
}

type propertyJSON struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	DTMF    string `json:"dtmf,omitempty"`
}

type callJSON struct {
	CalledAtMs int64  `json:"ts"`
	Caller     string `json:"caller"`
	Success    bool   `json:"success"`
}

// ── Directory ────────────────────────────────────────────────────────────────

func (s *Store) LookupOwner(ctx context.Context, number string) (string, bool, error) {
	uid, err := s.rdb.HGet(ctx, directoryKey, number).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("LookupOwner: %w", err)
	}
	return uid, true, nil
}

func (s *Store) PutOwner(ctx context.Context, number, userID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, usersKey, userID)
		p.HSet(ctx, directoryKey, number, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("PutOwner: %w", err)
	}
	return nil
}

func (s *Store) DeleteOwner(ctx context.Context, number string) error {
	if err := s.rdb.HDel(ctx, directoryKey, number).Err(); err != nil {
		return fmt.Errorf("DeleteOwner: %w", err)
	}
	return nil
}

// ── Check-ins ────────────────────────────────────────────────────────────────

func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	users, err := s.rdb.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	sort.Strings(users)
	return users, nil
}

func (s *Store) ListCheckIns(ctx context.Context, userID string) ([]store.CheckIn, error) {
	raw, err := s.rdb.HGetAll(ctx, userKey(userID, "checkins")).Result()
	if err != nil {
		return nil, fmt.Errorf("ListCheckIns: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]store.CheckIn, 0, len(ids))
	for _, id := range ids {
		var v checkInJSON
		if err := json.Unmarshal([]byte(raw[id]), &v); err != nil {
			return nil, fmt.Errorf("ListCheckIns decode %s: %w", id, err)
		}
		out = append(out, store.CheckIn{ID: id, Property: v.Property, TimeMs: v.TimeMs, Name: v.Name})
	}
	return out, nil
}

func (s *Store) AddCheckIn(ctx context.Context, userID string, c store.CheckIn) (store.CheckIn, error) {
	if c.ID == "" {
		c.ID = store.NewCheckInID()
	}
	b, err := json.Marshal(checkInJSON{Property: c.Property, TimeMs: c.TimeMs, Name: c.Name})
	if err != nil {
		return store.CheckIn{}, fmt.Errorf("AddCheckIn encode: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, usersKey, userID)
		p.HSet(ctx, userKey(userID, "checkins"), c.ID, b)
		return nil
	})
	if err != nil {
		return store.CheckIn{}, fmt.Errorf("AddCheckIn: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateCheckIn(ctx context.Context, userID string, c store.CheckIn) error {
	b, err := json.Marshal(checkInJSON{Property: c.Property, TimeMs: c.TimeMs, Name: c.Name})
	if err != nil {
		return fmt.Errorf("UpdateCheckIn encode: %w", err)
	}
	key := userKey(userID, "checkins")

	// WATCH the hash so an update never resurrects a check-in that a sweep
	// deleted between the existence check and the write.
	err = s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		exists, err := tx.HExists(ctx, key, c.ID).Result()
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.HSet(ctx, key, c.ID, b)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("UpdateCheckIn: %w", err)
	}
	return nil
}

func (s *Store) DeleteCheckIn(ctx context.Context, userID, checkInID string) error {
	if err := s.rdb.HDel(ctx, userKey(userID, "checkins"), checkInID).Err(); err != nil {
		return fmt.Errorf("DeleteCheckIn: %w", err)
	}
	return nil
}

func (s *Store) SetActiveCheckIns(ctx context.Context, userID string, n int) error {
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, usersKey, userID)
		p.Set(ctx, userKey(userID, "active_checkins"), n, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("SetActiveCheckIns: %w", err)
	}
	return nil
}

func (s *Store) ActiveCheckIns(ctx context.Context, userID string) (int, error) {
	n, err := s.getInt(ctx, userKey(userID, "active_checkins"))
	if err != nil {
		return 0, fmt.Errorf("ActiveCheckIns: %w", err)
	}
	return int(n), nil
}

// ── Properties ───────────────────────────────────────────────────────────────

func (s *Store) GetProperty(ctx context.Context, userID, number string) (store.Property, bool, error) {
	raw, err := s.rdb.HGet(ctx, userKey(userID, "properties"), number).Result()
	if errors.Is(err, goredis.Nil) {
		return store.Property{}, false, nil
	}
	if err != nil {
		return store.Property{}, false, fmt.Errorf("GetProperty: %w", err)
	}
	p, err := decodeProperty(number, raw)
	if err != nil {
		return store.Property{}, false, err
	}
	return p, true, nil
}

func (s *Store) ListProperties(ctx context.Context, userID string) ([]store.Property, error) {
	raw, err := s.rdb.HGetAll(ctx, userKey(userID, "properties")).Result()
	if err != nil {
		return nil, fmt.Errorf("ListProperties: %w", err)
	}
	numbers := make([]string, 0, len(raw))
	for n := range raw {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)

	out := make([]store.Property, 0, len(numbers))
	for _, n := range numbers {
		p, err := decodeProperty(n, raw[n])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) PutProperty(ctx context.Context, userID string, p store.Property) error {
	b, err := json.Marshal(propertyJSON{Name: p.Name, Address: p.Address, DTMF: p.DTMF})
	if err != nil {
		return fmt.Errorf("PutProperty encode: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pl goredis.Pipeliner) error {
		pl.SAdd(ctx, usersKey, userID)
		pl.HSet(ctx, userKey(userID, "properties"), p.Number, b)
		return nil
	})
	if err != nil {
		return fmt.Errorf("PutProperty: %w", err)
	}
	return nil
}

func (s *Store) DeleteProperty(ctx context.Context, userID, number string) error {
	if err := s.rdb.HDel(ctx, userKey(userID, "properties"), number).Err(); err != nil {
		return fmt.Errorf("DeleteProperty: %w", err)
	}
	return nil
}

func decodeProperty(number, raw string) (store.Property, error) {
	var v propertyJSON
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return store.Property{}, fmt.Errorf("decode property %s: %w", number, err)
	}
	return store.Property{Number: number, Name: v.Name, Address: v.Address, DTMF: v.DTMF}, nil
}

// ── Call log ─────────────────────────────────────────────────────────────────

func (s *Store) AppendCall(ctx context.Context, userID string, e store.CallLogEntry) error {
	b, err := json.Marshal(callJSON(e))
	if err != nil {
		return fmt.Errorf("AppendCall encode: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, usersKey, userID)
		p.RPush(ctx, userKey(userID, "calls"), b)
		return nil
	})
	if err != nil {
		return fmt.Errorf("AppendCall: %w", err)
	}
	return nil
}

func (s *Store) ListCalls(ctx context.Context, userID string) ([]store.CallLogEntry, error) {
	raw, err := s.rdb.LRange(ctx, userKey(userID, "calls"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ListCalls: %w", err)
	}
	out := make([]store.CallLogEntry, 0, len(raw))
	for _, r := range raw {
		var v callJSON
		if err := json.Unmarshal([]byte(r), &v); err != nil {
			return nil, fmt.Errorf("ListCalls decode: %w", err)
		}
		out = append(out, store.CallLogEntry(v))
	}
	return out, nil
}

// IncrementHistoricCalls relies on INCR, which Redis executes atomically.
func (s *Store) IncrementHistoricCalls(ctx context.Context, userID string) (int64, error) {
	var incr *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.SAdd(ctx, usersKey, userID)
		incr = p.Incr(ctx, userKey(userID, "historic_calls"))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("IncrementHistoricCalls: %w", err)
	}
	return incr.Val(), nil
}

func (s *Store) HistoricCalls(ctx context.Context, userID string) (int64, error) {
	n, err := s.getInt(ctx, userKey(userID, "historic_calls"))
	if err != nil {
		return 0, fmt.Errorf("HistoricCalls: %w", err)
	}
	return n, nil
}

func (s *Store) getInt(ctx context.Context, key string) (int64, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}
