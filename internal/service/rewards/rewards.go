// Package rewards issues cosmetic-only rewards at hand end. Issuance is
// idempotent per (game, lobby, hand) and always runs outside any lobby
// lock, grounded on the teacher's settlement transactions
// (internal/service/game/settle.go in the source tree) but stripped down to
// a currency-free ledger: no wallets, no rake, no agent commission.
package rewards

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cardroom/internal/model"
)

const issueTimeout = 3 * time.Second

// Service issues and reads reward ledger rows.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Result mirrors what changed for the winner so the caller can log or
// broadcast it without a second read.
type Result struct {
	Issued bool
	Coins  int64
}

// IssueHandWin records gameType/lobbyCode/handNumber as settled and credits
// winnerUserID's ledger by coins. If the (gameType, lobbyCode, handNumber)
// triple was already issued, it is a no-op returning Issued=false — callers
// may retry freely after a timeout or crash.
func (s *Service) IssueHandWin(ctx context.Context, gameType, lobbyCode string, handNumber int, winnerUserID int64, coins int64) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, issueTimeout)
	defer cancel()

	var result Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := model.RewardEvent{
			GameType:     gameType,
			LobbyCode:    lobbyCode,
			HandNumber:   handNumber,
			WinnerUserID: winnerUserID,
			CreatedAt:    time.Now(),
		}
		err := tx.Create(&event).Error
		if err != nil {
			if isDuplicate(err) {
				return nil
			}
			return err
		}

		var ledger model.RewardLedger
		lockErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ledger, "user_id = ?", winnerUserID).Error
		switch {
		case errors.Is(lockErr, gorm.ErrRecordNotFound):
			ledger = model.RewardLedger{UserID: winnerUserID}
		case lockErr != nil:
			return lockErr
		}
		ledger.Coins += coins
		if gameType == "poker" {
			ledger.WinsPoker++
		} else {
			ledger.WinsUno++
		}
		ledger.UpdatedAt = time.Now()
		if err := tx.Save(&ledger).Error; err != nil {
			return err
		}
		result = Result{Issued: true, Coins: ledger.Coins}
		return nil
	})
	return result, err
}

// Ledger returns userID's current reward ledger, defaulting to a zeroed one
// if the user has never won a hand.
func (s *Service) Ledger(ctx context.Context, userID int64) (model.RewardLedger, error) {
	ctx, cancel := context.WithTimeout(ctx, issueTimeout)
	defer cancel()
	var ledger model.RewardLedger
	err := s.db.WithContext(ctx).First(&ledger, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RewardLedger{UserID: userID}, nil
	}
	return ledger, err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite and postgres both surface unique-violation text that gorm
	// doesn't always normalize to ErrDuplicatedKey depending on driver
	// version, so fall back to a substring check.
	msg := err.Error()
	return contains(msg, "UNIQUE constraint failed") || contains(msg, "duplicate key value")
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
