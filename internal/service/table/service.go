package table

import (
	"context"
	"errors"
	"fmt"
	"math"

	"pokernight/internal/model"
	"pokernight/internal/roster"
	"pokernight/internal/service/player"
	appErr "pokernight/pkg/errors"
	"pokernight/pkg/logger"

	"go.uber.org/zap"
)

// Publisher receives a snapshot of every table after it changes.
type Publisher interface {
	PublishTable(sessionID string, table *roster.Table)
}

type Config struct {
	// PropagateTables, when set, limits settle propagation to these table
	// numbers. Empty means every table the session has open.
	PropagateTables []int
	// ReuseByName seats the oldest existing player with the same name instead
	// of creating a new one.
	ReuseByName bool
}

type Service struct {
	players   *player.Service
	publisher Publisher
	cfg       Config
}

func NewService(players *player.Service, cfg Config, publisher Publisher) *Service {
	return &Service{
		players:   players,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *Service) publish(sess *roster.Session, table *roster.Table) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishTable(sess.ID, table)
}

// GetOrInit loads a table, creating an empty one on first access.
func (s *Service) GetOrInit(ctx context.Context, sess *roster.Session, number int) (*roster.Table, error) {
	if err := roster.ValidateTable(number); err != nil {
		return nil, err
	}
	table, err := sess.Load(ctx, number)
	if err == nil {
		return table, nil
	}
	if !errors.Is(err, roster.ErrTableNotFound) {
		return nil, err
	}

	table = roster.NewTable(number)
	if err := sess.Save(ctx, table); err != nil {
		return nil, err
	}
	logger.Log.Debug("table initialized",
		zap.String("sessionID", sess.ID),
		zap.Int("table", number))
	return table, nil
}

// Assign seats a player by name. An occupied seat is overwritten.
func (s *Service) Assign(ctx context.Context, sess *roster.Session, number, seatIndex int, name string, buyIn float64) (*roster.Seat, error) {
	if err := roster.ValidateTable(number); err != nil {
		return nil, err
	}
	if err := roster.ValidateSeat(seatIndex); err != nil {
		return nil, err
	}
	if math.IsNaN(buyIn) || math.IsInf(buyIn, 0) || buyIn < 0 {
		return nil, fmt.Errorf("%w: buy-in must be a non-negative number", appErr.ErrInvalidAmount)
	}

	table, err := s.GetOrInit(ctx, sess, number)
	if err != nil {
		return nil, err
	}

	p, err := s.resolvePlayer(ctx, name, buyIn)
	if err != nil {
		return nil, err
	}

	seat := &roster.Seat{
		PlayerID: p.ID,
		Name:     p.Name,
		BuyIn:    buyIn,
		Balance:  p.Balance,
	}
	table.Seats[seatIndex] = seat
	if err := sess.Save(ctx, table); err != nil {
		return nil, err
	}
	s.publish(sess, table)

	logger.Log.Info("player seated",
		zap.String("sessionID", sess.ID),
		zap.Int("table", number),
		zap.Int("seat", seatIndex),
		zap.Int64("playerID", p.ID))
	return seat, nil
}

func (s *Service) resolvePlayer(ctx context.Context, name string, buyIn float64) (*model.Player, error) {
	if s.cfg.ReuseByName {
		existing, err := s.players.FindByName(ctx, name)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, appErr.ErrPlayerNotFound) {
			return nil, err
		}
	}
	return s.players.Create(ctx, name, buyIn)
}

// Refresh overwrites every cached seat balance with the stored one and
// empties seats whose player has been deleted.
func (s *Service) Refresh(ctx context.Context, sess *roster.Session, number int) (*roster.Table, error) {
	table, err := s.GetOrInit(ctx, sess, number)
	if err != nil {
		return nil, err
	}

	players, err := s.players.GetMany(ctx, table.PlayerIDs())
	if err != nil {
		return nil, err
	}

	changed := false
	for i, seat := range table.Seats {
		if seat == nil {
			continue
		}
		p, ok := players[seat.PlayerID]
		if !ok {
			table.Seats[i] = nil
			changed = true
			continue
		}
		if seat.Balance != p.Balance || seat.Name != p.Name {
			seat.Balance = p.Balance
			seat.Name = p.Name
			changed = true
		}
	}

	if err := sess.Save(ctx, table); err != nil {
		return nil, err
	}
	if changed {
		s.publish(sess, table)
	}
	return table, nil
}

// Settle records a result for the player in the given seat and returns the
// new balance. The balance is pushed to every other seat the player holds
// within the propagation scope.
func (s *Service) Settle(ctx context.Context, sess *roster.Session, number, seatIndex int, delta float64) (float64, error) {
	if err := roster.ValidateTable(number); err != nil {
		return 0, err
	}
	if err := roster.ValidateSeat(seatIndex); err != nil {
		return 0, err
	}

	table, err := sess.Load(ctx, number)
	if err != nil {
		if errors.Is(err, roster.ErrTableNotFound) {
			return 0, appErr.ErrPlayerNotFound
		}
		return 0, err
	}
	seat := table.Seat(seatIndex)
	if seat == nil {
		return 0, appErr.ErrPlayerNotFound
	}

	updated, err := s.players.ApplySeatResult(ctx, seat.PlayerID, delta, player.SeatRef{
		TableNumber: number,
		SeatIndex:   seatIndex,
	})
	if err != nil {
		return 0, err
	}

	seat.Balance = updated.Balance
	table.SetBalance(updated.ID, updated.Balance)
	if err := sess.Save(ctx, table); err != nil {
		return 0, err
	}
	s.publish(sess, table)

	s.propagate(ctx, sess, number, updated.ID, updated.Balance)
	return updated.Balance, nil
}

func (s *Service) propagationScope(ctx context.Context, sess *roster.Session) ([]int, error) {
	if len(s.cfg.PropagateTables) > 0 {
		return s.cfg.PropagateTables, nil
	}
	return sess.TableNumbers(ctx)
}

// propagate is best effort: a failing table is logged and left stale until
// its next refresh.
func (s *Service) propagate(ctx context.Context, sess *roster.Session, from int, playerID int64, balance float64) {
	numbers, err := s.propagationScope(ctx, sess)
	if err != nil {
		logger.Log.Warn("failed to list tables for propagation",
			zap.String("sessionID", sess.ID),
			zap.Error(err))
		return
	}

	for _, n := range numbers {
		if n == from {
			continue
		}
		table, err := sess.Load(ctx, n)
		if err != nil {
			if !errors.Is(err, roster.ErrTableNotFound) {
				logger.Log.Warn("failed to load table for propagation",
					zap.String("sessionID", sess.ID),
					zap.Int("table", n),
					zap.Error(err))
			}
			continue
		}
		if !table.SetBalance(playerID, balance) {
			continue
		}
		if err := sess.Save(ctx, table); err != nil {
			logger.Log.Warn("failed to save propagated balance",
				zap.String("sessionID", sess.ID),
				zap.Int("table", n),
				zap.Error(err))
			continue
		}
		s.publish(sess, table)
	}
}

// Clear discards one table. Other tables of the session are untouched.
func (s *Service) Clear(ctx context.Context, sess *roster.Session, number int) error {
	if err := roster.ValidateTable(number); err != nil {
		return err
	}
	if err := sess.Delete(ctx, number); err != nil {
		return err
	}
	s.publish(sess, roster.NewTable(number))
	logger.Log.Info("table cleared",
		zap.String("sessionID", sess.ID),
		zap.Int("table", number))
	return nil
}

// Tables lists the table numbers the session has open.
func (s *Service) Tables(ctx context.Context, sess *roster.Session) ([]int, error) {
	return sess.TableNumbers(ctx)
}
