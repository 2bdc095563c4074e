// Package roster holds the per-session seat assignments of each open table.
package roster

import (
	"context"
	"errors"
	"fmt"

	appErr "pokernight/pkg/errors"
)

// SeatCount is the number of seats at every table.
const SeatCount = 9

// Seat is a cached projection of a player row at one table seat.
type Seat struct {
	PlayerID int64   `json:"player_id"`
	Name     string  `json:"name"`
	BuyIn    float64 `json:"buy_in"`
	Balance  float64 `json:"balance"`
}

type Table struct {
	Number int              `json:"number"`
	Seats  [SeatCount]*Seat `json:"seats"`
}

func NewTable(number int) *Table {
	return &Table{Number: number}
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable(t.Number)
	for i, seat := range t.Seats {
		if seat != nil {
			copied := *seat
			out.Seats[i] = &copied
		}
	}
	return out
}

func ValidateTable(number int) error {
	if number <= 0 {
		return fmt.Errorf("%w: %d", appErr.ErrInvalidTable, number)
	}
	return nil
}

func ValidateSeat(index int) error {
	if index < 0 || index >= SeatCount {
		return fmt.Errorf("%w: %d", appErr.ErrInvalidSeat, index)
	}
	return nil
}

func (t *Table) Seat(index int) *Seat {
	if ValidateSeat(index) != nil {
		return nil
	}
	return t.Seats[index]
}

// PlayerIDs returns the distinct players seated at the table.
func (t *Table) PlayerIDs() []int64 {
	seen := make(map[int64]struct{}, SeatCount)
	ids := make([]int64, 0, SeatCount)
	for _, seat := range t.Seats {
		if seat == nil {
			continue
		}
		if _, ok := seen[seat.PlayerID]; ok {
			continue
		}
		seen[seat.PlayerID] = struct{}{}
		ids = append(ids, seat.PlayerID)
	}
	return ids
}

// SetBalance updates every seat held by playerID and reports whether any changed.
func (t *Table) SetBalance(playerID int64, balance float64) bool {
	changed := false
	for _, seat := range t.Seats {
		if seat != nil && seat.PlayerID == playerID && seat.Balance != balance {
			seat.Balance = balance
			changed = true
		}
	}
	return changed
}

var ErrTableNotFound = errors.New("table not found")

// Store persists tables per session. Implementations keep a registry of the
// table numbers each session currently has open.
type Store interface {
	LoadTable(ctx context.Context, sessionID string, number int) (*Table, error)
	SaveTable(ctx context.Context, sessionID string, table *Table) error
	DeleteTable(ctx context.Context, sessionID string, number int) error
	TableNumbers(ctx context.Context, sessionID string) ([]int, error)
}

// Session is the handle a request uses to reach its own tables.
type Session struct {
	ID    string
	store Store
}

func NewSession(id string, store Store) *Session {
	return &Session{ID: id, store: store}
}

func (s *Session) Load(ctx context.Context, number int) (*Table, error) {
	return s.store.LoadTable(ctx, s.ID, number)
}

func (s *Session) Save(ctx context.Context, table *Table) error {
	return s.store.SaveTable(ctx, s.ID, table)
}

func (s *Session) Delete(ctx context.Context, number int) error {
	return s.store.DeleteTable(ctx, s.ID, number)
}

func (s *Session) TableNumbers(ctx context.Context) ([]int, error) {
	return s.store.TableNumbers(ctx, s.ID)
}
