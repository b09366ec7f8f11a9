package model

import "time"

// User is the identity a JWT subject id resolves to. Issuance lives outside
// this service; only these profile fields are read here.
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Nickname  string
	Avatar    string
	Status    string `gorm:"default:normal;not null"` // normal/banned
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Admin struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Status       string `gorm:"default:active;not null"` // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RewardLedger is the running total of cosmetic-only rewards owned by a
// user. It is deliberately currency-free: Coins are a display counter, not
// a spendable balance.
type RewardLedger struct {
	UserID        int64 `gorm:"primaryKey"`
	Coins         int64 `gorm:"default:0"`
	WinsPoker     int64 `gorm:"default:0"`
	WinsUno       int64 `gorm:"default:0"`
	EquippedFrame *string
	EquippedBadge *string
	UpdatedAt     time.Time
}

// RewardEvent is one issuance record. The unique index on
// (GameType, LobbyCode, HandNumber) makes issuance idempotent: replaying the
// same hand result twice (a retried write, a duplicate dispatch) inserts
// nothing the second time.
type RewardEvent struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	GameType     string `gorm:"index:idx_reward_event_unique,unique"`
	LobbyCode    string `gorm:"index:idx_reward_event_unique,unique"`
	HandNumber   int    `gorm:"index:idx_reward_event_unique,unique"`
	WinnerUserID int64
	CreatedAt    time.Time
}
