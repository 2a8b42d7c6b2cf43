package dto

import (
	"time"

	"stock_watchlist/internal/feature/auth/domain/entity"
)

// TokenRes はログイン成功時のレスポンスです。
type TokenRes struct {
	Token string `json:"token"`
}

// UserRes は公開して良いユーザー情報です。パスワードハッシュは含めません。
type UserRes struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorRes はエラーレスポンスです。
type ErrorRes struct {
	Error string `json:"error"`
}

// ToUserRes はエンティティをレスポンスに変換します。
func ToUserRes(u *entity.User) UserRes {
	return UserRes{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}
