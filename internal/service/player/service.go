package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"pokernight/internal/model"
	appErr "pokernight/pkg/errors"
	"pokernight/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxNameLength = 100

type Service struct {
	db *gorm.DB
}

// SeatRef ties a balance movement to the table seat it was recorded from.
type SeatRef struct {
	TableNumber int
	SeatIndex   int
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", appErr.ErrInvalidName
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: at most %d characters", appErr.ErrInvalidName, maxNameLength)
	}
	return name, nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *Service) Create(ctx context.Context, name string, buyIn float64) (*model.Player, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if !validAmount(buyIn) || buyIn < 0 {
		return nil, fmt.Errorf("%w: buy-in must be a non-negative number", appErr.ErrInvalidAmount)
	}

	balance := -buyIn
	if buyIn == 0 {
		balance = 0
	}
	player := model.Player{
		Name:    name,
		Balance: balance,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&player).Error; err != nil {
			return err
		}
		return tx.Create(&model.BalanceLog{
			PlayerID:     player.ID,
			Type:         model.BalanceLogBuyIn,
			Delta:        balance,
			BalanceAfter: player.Balance,
			MetaJSON:     mustJSON(map[string]interface{}{"name": player.Name}),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("player created",
		zap.Int64("playerID", player.ID),
		zap.String("name", player.Name),
		zap.Float64("buyIn", buyIn))
	return &player, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Player, error) {
	var player model.Player
	if err := s.db.WithContext(ctx).First(&player, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

// FindByName returns the oldest player with exactly this name.
func (s *Service) FindByName(ctx context.Context, name string) (*model.Player, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	var player model.Player
	if err := s.db.WithContext(ctx).Where("name = ?", name).Order("id ASC").First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

func (s *Service) List(ctx context.Context) ([]model.Player, error) {
	players := make([]model.Player, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&players).Error; err != nil {
		return nil, err
	}
	return players, nil
}

// GetMany loads the given players keyed by id; missing ids are simply absent.
func (s *Service) GetMany(ctx context.Context, ids []int64) (map[int64]model.Player, error) {
	found := make(map[int64]model.Player, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var players []model.Player
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&players).Error; err != nil {
		return nil, err
	}
	for _, p := range players {
		found[p.ID] = p
	}
	return found, nil
}

// ApplyResult adds delta to the balance and counts one more game played.
func (s *Service) ApplyResult(ctx context.Context, id int64, delta float64) (*model.Player, error) {
	return s.applyDelta(ctx, id, delta, nil)
}

// ApplySeatResult is ApplyResult recorded against a table seat.
func (s *Service) ApplySeatResult(ctx context.Context, id int64, delta float64, seat SeatRef) (*model.Player, error) {
	return s.applyDelta(ctx, id, delta, &seat)
}

func (s *Service) applyDelta(ctx context.Context, id int64, delta float64, seat *SeatRef) (*model.Player, error) {
	if !validAmount(delta) {
		return nil, appErr.ErrInvalidAmount
	}

	var player model.Player
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Player{}).
			Where("id = ?", id).
			UpdateColumns(map[string]interface{}{
				"balance":      gorm.Expr("balance + ?", delta),
				"games_played": gorm.Expr("games_played + ?", 1),
				"updated_at":   time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return appErr.ErrPlayerNotFound
		}
		if err := tx.First(&player, id).Error; err != nil {
			return err
		}
		if !validAmount(player.Balance) {
			return fmt.Errorf("%w: balance out of range", appErr.ErrInvalidAmount)
		}

		entry := model.BalanceLog{
			PlayerID:     player.ID,
			Type:         model.BalanceLogResult,
			Delta:        delta,
			BalanceAfter: player.Balance,
			MetaJSON:     mustJSON(map[string]interface{}{"gamesPlayed": player.GamesPlayed}),
		}
		if seat != nil {
			table, index := seat.TableNumber, seat.SeatIndex
			entry.Type = model.BalanceLogSeatResult
			entry.TableNumber = &table
			entry.SeatIndex = &index
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("player balance updated",
		zap.Int64("playerID", player.ID),
		zap.Float64("delta", delta),
		zap.Float64("balance", player.Balance),
		zap.Int("gamesPlayed", player.GamesPlayed))
	return &player, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Player{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return appErr.ErrPlayerNotFound
		}
		if err := tx.Where("player_id = ?", id).Delete(&model.BalanceLog{}).Error; err != nil {
			return err
		}
		logger.Log.Info("player deleted", zap.Int64("playerID", id))
		return nil
	})
}

// History returns the balance movements of a player, newest first.
func (s *Service) History(ctx context.Context, id int64) ([]model.BalanceLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	logs := make([]model.BalanceLog, 0)
	if err := s.db.WithContext(ctx).
		Where("player_id = ?", id).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func mustJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(data)
}
