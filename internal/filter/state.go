// Package filter holds the dashboard's filter selection and derives the
// analytics query from it.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"exchange-analytics-dashboard/internal/model"
	"exchange-analytics-dashboard/internal/preset"
)

var (
	// ErrNotReady is returned by ToQuery until an entity and both dates
	// are selected.
	ErrNotReady = errors.New("entity and date range are required")
	// ErrRangeInverted rejects a date edit that would put start after end
	// or either endpoint after today. The previous value is kept.
	ErrRangeInverted = errors.New("date edit rejected: range must satisfy start <= end <= today")
	ErrUnknownField  = errors.New("unknown filter field")
	ErrInvalidValue  = errors.New("invalid filter value")
)

// Field names accepted by Update.
type Field string

const (
	FieldEntity       Field = "entity"
	FieldStartDate    Field = "start_date"
	FieldEndDate      Field = "end_date"
	FieldPreset       Field = "preset"
	FieldInterval     Field = "interval"
	FieldExchangeType Field = "exchange_type"
	FieldProducts     Field = "products"
	FieldAiesecer     Field = "aiesecer"
)

// State is the mutable filter selection of one dashboard. It is safe for
// concurrent use.
type State struct {
	mu        sync.Mutex
	sel       model.FilterSelection
	weekStart time.Weekday
	now       func() time.Time
	onClear   []func()
}

// New creates an empty State. now supplies "today"; nil means time.Now.
func New(weekStart time.Weekday, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{weekStart: weekStart, now: now}
}

// OnClear registers fn to run on every Clear, after the selection is reset.
func (s *State) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

func (s *State) today() time.Time {
	return preset.Day(s.now())
}

// Update sets one field from a loosely typed value, as decoded from JSON.
// A nil or empty value unsets the field.
func (s *State) Update(field Field, value any) error {
	switch field {
	case FieldEntity:
		c, err := toCandidate(value)
		if err != nil {
			return err
		}
		s.SetEntity(c)
		return nil
	case FieldStartDate:
		d, err := s.toDate(value)
		if err != nil {
			return err
		}
		return s.SetStartDate(d)
	case FieldEndDate:
		d, err := s.toDate(value)
		if err != nil {
			return err
		}
		return s.SetEndDate(d)
	case FieldPreset:
		name, err := toString(value)
		if err != nil {
			return err
		}
		return s.ApplyPreset(name)
	case FieldInterval:
		v, err := toString(value)
		if err != nil {
			return err
		}
		return s.SetInterval(v)
	case FieldExchangeType:
		v, err := toString(value)
		if err != nil {
			return err
		}
		return s.SetExchangeType(v)
	case FieldProducts:
		v, err := toStrings(value)
		if err != nil {
			return err
		}
		return s.SetProducts(v)
	case FieldAiesecer:
		v, err := toString(value)
		if err != nil {
			return err
		}
		return s.SetAiesecer(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// SetEntity selects an entity; nil clears the selection.
func (s *State) SetEntity(c *model.EntityCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil || c.ID == "" {
		s.sel.EntityID, s.sel.EntityName = "", ""
		return
	}
	s.sel.EntityID, s.sel.EntityName = c.ID, c.Name
}

// SetStartDate edits the start of the range; a zero date unsets it.
func (s *State) SetStartDate(d time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !d.IsZero() {
		d = preset.Day(d)
	}
	if !preset.Accept(d, s.sel.EndDate, s.today()) {
		return ErrRangeInverted
	}
	s.sel.StartDate = d
	s.sel.Preset = preset.Custom
	return nil
}

// SetEndDate edits the end of the range; a zero date unsets it.
func (s *State) SetEndDate(d time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !d.IsZero() {
		d = preset.Day(d)
	}
	if !preset.Accept(s.sel.StartDate, d, s.today()) {
		return ErrRangeInverted
	}
	s.sel.EndDate = d
	s.sel.Preset = preset.Custom
	return nil
}

// ApplyPreset replaces both dates with the named preset's range.
func (s *State) ApplyPreset(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := preset.Resolve(name, s.today(), s.weekStart)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	s.sel.StartDate, s.sel.EndDate, s.sel.Preset = r.Start, r.End, name
	return nil
}

func (s *State) SetInterval(v string) error {
	return s.setEnum(&s.sel.Interval, FieldInterval, v, model.Intervals)
}

func (s *State) SetExchangeType(v string) error {
	return s.setEnum(&s.sel.ExchangeType, FieldExchangeType, v, model.ExchangeTypes)
}

func (s *State) SetAiesecer(v string) error {
	return s.setEnum(&s.sel.Aiesecer, FieldAiesecer, v, model.AiesecerFlags)
}

// SetProducts replaces the product set. Duplicates collapse and the
// result follows the canonical product order.
func (s *State) SetProducts(values []string) error {
	for _, v := range values {
		if !slices.Contains(model.Products, v) {
			return fmt.Errorf("%w: %s %q", ErrInvalidValue, FieldProducts, v)
		}
	}
	products := make([]string, 0, len(values))
	for _, p := range model.Products {
		if slices.Contains(values, p) {
			products = append(products, p)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Products = products
	return nil
}

func (s *State) setEnum(dst *string, field Field, v string, allowed []string) error {
	v = strings.TrimSpace(v)
	if v != "" && !slices.Contains(allowed, v) {
		return fmt.Errorf("%w: %s %q", ErrInvalidValue, field, v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	*dst = v
	return nil
}

// Clear resets every field and runs the OnClear hooks.
func (s *State) Clear() {
	s.mu.Lock()
	s.sel = model.FilterSelection{}
	hooks := slices.Clone(s.onClear)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// CanApply reports whether ToQuery would succeed.
func (s *State) CanApply() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ready(s.sel)
}

// ToQuery snapshots the selection as a Query, omitting unset fields.
func (s *State) ToQuery() (model.Query, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ready(s.sel) {
		return model.Query{}, ErrNotReady
	}
	q := model.Query{
		EntityID:     s.sel.EntityID,
		StartDate:    s.sel.StartDate.Format(model.DateLayout),
		EndDate:      s.sel.EndDate.Format(model.DateLayout),
		Interval:     s.sel.Interval,
		ExchangeType: s.sel.ExchangeType,
		Aiesecer:     s.sel.Aiesecer,
	}
	if len(s.sel.Products) > 0 {
		q.Products = slices.Clone(s.sel.Products)
	}
	return q, nil
}

// Selection returns a copy of the current selection.
func (s *State) Selection() model.FilterSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.sel
	sel.Products = slices.Clone(s.sel.Products)
	return sel
}

// Snapshot returns the selection in its JSON form.
func (s *State) Snapshot() model.FilterSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := model.FilterSnapshot{
		EntityID:     s.sel.EntityID,
		EntityName:   s.sel.EntityName,
		Preset:       s.sel.Preset,
		Interval:     s.sel.Interval,
		ExchangeType: s.sel.ExchangeType,
		Products:     slices.Clone(s.sel.Products),
		Aiesecer:     s.sel.Aiesecer,
		CanApply:     ready(s.sel),
	}
	if snap.Products == nil {
		snap.Products = []string{}
	}
	if !s.sel.StartDate.IsZero() {
		snap.StartDate = s.sel.StartDate.Format(model.DateLayout)
	}
	if !s.sel.EndDate.IsZero() {
		snap.EndDate = s.sel.EndDate.Format(model.DateLayout)
	}
	return snap
}

func ready(sel model.FilterSelection) bool {
	return sel.EntityID != "" && !sel.StartDate.IsZero() && !sel.EndDate.IsZero()
}

func toCandidate(value any) (*model.EntityCandidate, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case model.EntityCandidate:
		return &v, nil
	case *model.EntityCandidate:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return &model.EntityCandidate{ID: strings.TrimSpace(v)}, nil
	case map[string]any:
		id, _ := v["id"].(string)
		name, _ := v["name"].(string)
		if id == "" {
			return nil, fmt.Errorf("%w: entity id is required", ErrInvalidValue)
		}
		return &model.EntityCandidate{ID: id, Name: name}, nil
	default:
		return nil, fmt.Errorf("%w: entity %v", ErrInvalidValue, value)
	}
}

func (s *State) toDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return time.Time{}, nil
		}
		d, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(v), s.now().Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidValue, v)
		}
		return d, nil
	default:
		return time.Time{}, fmt.Errorf("%w: date %v", ErrInvalidValue, value)
	}
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidValue, value)
	}
}

func toStrings(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected string, got %T", ErrInvalidValue, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected list, got %T", ErrInvalidValue, value)
	}
}
