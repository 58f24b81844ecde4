package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmailTaken         = errors.New("email already exists")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const uniqueViolation = "23505"

type Service struct {
	DB *gorm.DB
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (in RegisterInput) validate() (RegisterInput, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return in, ErrInvalidInput
	}
	if in.Password != in.ConfirmPassword {
		return in, ErrPasswordMismatch
	}
	if len(in.Password) < MinPasswordLen || !strings.Contains(in.Email, "@") {
		return in, ErrInvalidInput
	}
	return in, nil
}

// Register creates the user and its statistics row in one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkTaken(tx, 0, &in.Username, &in.Email); err != nil {
			return err
		}
		if err := tx.Create(&u).Error; err != nil {
			return translateUnique(err)
		}
		return tx.Create(&UserStatistics{UserID: u.ID}).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	var u User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !ComparePassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *Service) Get(ctx context.Context, id uint64) (*User, error) {
	var u User
	if err := s.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile changes username and/or email; nil leaves a field as is.
func (s *Service) UpdateProfile(ctx context.Context, id uint64, username, email *string) (*User, error) {
	fields := map[string]any{}
	if username != nil {
		v := strings.TrimSpace(*username)
		if v == "" {
			return nil, ErrInvalidInput
		}
		username = &v
		fields["username"] = v
	}
	if email != nil {
		v := normalizeEmail(*email)
		if v == "" || !strings.Contains(v, "@") {
			return nil, ErrInvalidInput
		}
		email = &v
		fields["email"] = v
	}
	if len(fields) == 0 {
		return nil, ErrInvalidInput
	}
	fields["updated_at"] = time.Now()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkTaken(tx, id, username, email); err != nil {
			return err
		}
		res := tx.Model(&User{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return translateUnique(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, id uint64, current, next string) error {
	if len(next) < MinPasswordLen {
		return ErrInvalidInput
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ComparePassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now()}).Error
}

// Delete removes the user; tasks, history and statistics go with it.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	res := s.DB.WithContext(ctx).Delete(&User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkTelegram stores the chat id reminders are delivered to.
func (s *Service) LinkTelegram(ctx context.Context, id uint64, chatID string, username *string) error {
	res := s.DB.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(map[string]any{
		"telegram_chat_id":  chatID,
		"telegram_username": username,
		"updated_at":        time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchTelegramUsername refreshes the username hint for an already linked
// chat. It never changes which user owns the chat.
func (s *Service) TouchTelegramUsername(ctx context.Context, chatID, username string) error {
	if username == "" {
		return nil
	}
	return s.DB.WithContext(ctx).Model(&User{}).
		Where("telegram_chat_id = ?", chatID).
		Update("telegram_username", username).Error
}

func (s *Service) Statistics(ctx context.Context, id uint64) (*UserStatistics, error) {
	var st UserStatistics
	if err := s.DB.WithContext(ctx).Where("user_id = ?", id).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (s *Service) checkTaken(tx *gorm.DB, selfID uint64, username, email *string) error {
	var n int64
	if email != nil {
		if err := tx.Model(&User{}).Where("email = ? AND id <> ?", *email, selfID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}
	}
	if username != nil {
		if err := tx.Model(&User{}).Where("username = ? AND id <> ?", *username, selfID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrUsernameTaken
		}
	}
	return nil
}

// translateUnique maps a unique violation that slipped past checkTaken.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "username") {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}
