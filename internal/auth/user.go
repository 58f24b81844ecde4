package auth

import "time"

type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`

	// TelegramChatID is the messaging channel identity reminders go to.
	TelegramChatID   *string `gorm:"type:text"`
	TelegramUsername *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// UserStatistics is created together with its user. FailedTimes and
// ErrorTimes are only ever incremented, by the deadline job.
type UserStatistics struct {
	UserID      uint64 `gorm:"primaryKey"`
	FailedTimes int    `gorm:"not null;default:0"`
	ErrorTimes  int    `gorm:"not null;default:0"`
}

func (UserStatistics) TableName() string { return "user_statistics" }
