package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
	"github.com/BrandonDHaskell/Portico/internal/portico/types"
)

const (
	DefaultQueryLimit = 25
	defaultQuerySpan  = 30 * 24 * time.Hour
)

type AdminConfig struct {
	GraceWindow time.Duration
	Now         func() time.Time
	Logger      *zerolog.Logger
}

// AdminService is the host-facing management surface: property lines,
// check-ins, call history and counters.  Writing a property line also
// registers its number in the directory so calls from it are recognized.
type AdminService struct {
	directory *Directory
	records   store.Store
	grace     time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewAdminService(dir *Directory, records store.Store, cfg AdminConfig) *AdminService {
	s := &AdminService{
		directory: dir,
		records:   records,
		grace:     cfg.GraceWindow,
		now:       cfg.Now,
		logger:    zerolog.Nop(),
	}
	if s.grace <= 0 {
		s.grace = DefaultGraceWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	if cfg.Logger != nil {
		s.logger = cfg.Logger.With().Str("component", "admin").Logger()
	}
	return s
}

// ---- properties ----

func (s *AdminService) PutProperty(ctx context.Context, userID string, req types.PropertyRequest) (types.PropertyView, error) {
	if userID == "" {
		return types.PropertyView{}, ErrInvalidUserID
	}
	number := NormalizeNumber(req.Number)
	if number == "" {
		return types.PropertyView{}, ErrInvalidNumber
	}

	p := store.Property{
		Number:  number,
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
		DTMF:    req.DTMF,
	}
	if err := s.records.PutProperty(ctx, userID, p); err != nil {
		return types.PropertyView{}, fmt.Errorf("put property: %w", err)
	}
	if err := s.directory.Register(ctx, number, userID); err != nil {
		return types.PropertyView{}, fmt.Errorf("register number: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("number", number).Msg("property saved")
	return propertyView(p), nil
}

// DeleteProperty removes the line and, when the directory still maps the
// number to this user, its registration.
func (s *AdminService) DeleteProperty(ctx context.Context, userID, rawNumber string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	number := NormalizeNumber(rawNumber)
	if number == "" {
		return ErrInvalidNumber
	}

	if err := s.records.DeleteProperty(ctx, userID, number); err != nil {
		return fmt.Errorf("delete property: %w", err)
	}

	owner, found, err := s.directory.Resolve(ctx, number)
	if err != nil {
		return fmt.Errorf("resolve number: %w", err)
	}
	if found && owner == userID {
		if err := s.directory.Unregister(ctx, number); err != nil {
			return fmt.Errorf("unregister number: %w", err)
		}
	}

	s.logger.Info().Str("user_id", userID).Str("number", number).Msg("property deleted")
	return nil
}

func (s *AdminService) ListProperties(ctx context.Context, userID string) ([]types.PropertyView, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	props, err := s.records.ListProperties(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]types.PropertyView, 0, len(props))
	for _, p := range props {
		out = append(out, propertyView(p))
	}
	return out, nil
}

func propertyView(p store.Property) types.PropertyView {
	return types.PropertyView{
		Number:      p.Number,
		PhoneString: FormatPhone(p.Number),
		Name:        p.Name,
		Address:     p.Address,
		DTMF:        p.DTMF,
	}
}

// ---- check-ins ----

func (s *AdminService) CreateCheckIn(ctx context.Context, userID string, req types.CheckInRequest) (types.CheckInView, error) {
	c, err := s.checkInFromRequest(userID, req)
	if err != nil {
		return types.CheckInView{}, err
	}
	created, err := s.records.AddCheckIn(ctx, userID, c)
	if err != nil {
		return types.CheckInView{}, fmt.Errorf("add check-in: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("check_in_id", created.ID).Msg("check-in created")
	return s.checkInView(created), nil
}

// EditCheckIn replaces the check-in's fields.  It returns store.ErrNotFound
// when id does not exist.
func (s *AdminService) EditCheckIn(ctx context.Context, userID, id string, req types.CheckInRequest) (types.CheckInView, error) {
	c, err := s.checkInFromRequest(userID, req)
	if err != nil {
		return types.CheckInView{}, err
	}
	c.ID = id
	if err := s.records.UpdateCheckIn(ctx, userID, c); err != nil {
		return types.CheckInView{}, err
	}
	return s.checkInView(c), nil
}

func (s *AdminService) DeleteCheckIn(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	return s.records.DeleteCheckIn(ctx, userID, id)
}

func (s *AdminService) checkInFromRequest(userID string, req types.CheckInRequest) (store.CheckIn, error) {
	if userID == "" {
		return store.CheckIn{}, ErrInvalidUserID
	}
	property := NormalizeNumber(req.Property)
	if property == "" || req.TimeMs <= 0 {
		return store.CheckIn{}, ErrInvalidCheckIn
	}
	return store.CheckIn{
		Property: property,
		TimeMs:   req.TimeMs,
		Name:     strings.TrimSpace(req.Name),
	}, nil
}

func (s *AdminService) checkInView(c store.CheckIn) types.CheckInView {
	t := time.UnixMilli(c.TimeMs).UTC()
	return types.CheckInView{
		ID:       c.ID,
		Property: c.Property,
		Time:     t.Format(time.RFC3339),
		TimeMs:   c.TimeMs,
		Name:     c.Name,
		Status:   CheckInStatus(t, s.now(), s.grace),
	}
}

// CheckInQuery filters a user's check-ins.  The window is
// [MinTime - grace, MaxTime]; zero values default to now and now + 30 days.
type CheckInQuery struct {
	Order    string // "newest" (default) or "oldest"
	Limit    int    // 0 means DefaultQueryLimit
	MinTime  time.Time
	MaxTime  time.Time
	Keywords []string // case-insensitive; any keyword may match name or property
}

func (s *AdminService) QueryCheckIns(ctx context.Context, userID string, q CheckInQuery) ([]types.CheckInView, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	now := s.now()
	if q.MinTime.IsZero() {
		q.MinTime = now
	}
	if q.MaxTime.IsZero() {
		q.MaxTime = now.Add(defaultQuerySpan)
	}
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}
	lo := q.MinTime.Add(-s.grace).UnixMilli()
	hi := q.MaxTime.UnixMilli()

	all, err := s.records.ListCheckIns(ctx, userID)
	if err != nil {
		return nil, err
	}

	var matched []store.CheckIn
	for _, c := range all {
		if c.TimeMs < lo || c.TimeMs > hi {
			continue
		}
		if !matchesKeywords(c, q.Keywords) {
			continue
		}
		matched = append(matched, c)
	}

	if q.Order == "oldest" {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].TimeMs < matched[j].TimeMs })
	} else {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].TimeMs > matched[j].TimeMs })
	}
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]types.CheckInView, 0, len(matched))
	for _, c := range matched {
		out = append(out, s.checkInView(c))
	}
	return out, nil
}

func matchesKeywords(c store.CheckIn, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	name := strings.ToLower(c.Name)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.Contains(name, k) || strings.Contains(c.Property, k) {
			return true
		}
	}
	return false
}

// ---- history ----

// ListCalls returns the call log in append order, labelled with the
// property line name where one is known.
func (s *AdminService) ListCalls(ctx context.Context, userID string) ([]types.CallView, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	calls, err := s.records.ListCalls(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	props, err := s.records.ListProperties(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("property names unavailable for call log")
	}
	for _, p := range props {
		names[p.Number] = p.Name
	}

	out := make([]types.CallView, 0, len(calls))
	for _, e := range calls {
		out = append(out, types.CallView{
			Time:       time.UnixMilli(e.CalledAtMs).UTC().Format(time.RFC3339),
			CalledAtMs: e.CalledAtMs,
			Caller:     e.Caller,
			Property:   names[e.Caller],
			Success:    e.Success,
		})
	}
	return out, nil
}

func (s *AdminService) Counters(ctx context.Context, userID string) (types.Counters, error) {
	if userID == "" {
		return types.Counters{}, ErrInvalidUserID
	}
	historic, err := s.records.HistoricCalls(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return types.Counters{}, err
	}
	active, err := s.records.ActiveCheckIns(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return types.Counters{}, err
	}
	return types.Counters{UserID: userID, HistoricCalls: historic, ActiveCheckIns: active}, nil
}
