package domain

import (
	"time"
)

// UserModel is the GORM model for the users table. Deletes are hard: the
// delete flow returns the removed record and the row must actually be gone.
type UserModel struct {
	Identity           string    `gorm:"type:varchar(128);primaryKey"`
	Nickname           string    `gorm:"type:varchar(64);not null"`
	NicknameNormalized string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	ImageURL           string    `gorm:"type:text"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		Identity:           m.Identity,
		Nickname:           m.Nickname,
		NicknameNormalized: m.NicknameNormalized,
		ImageURL:           m.ImageURL,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		Identity:           u.Identity,
		Nickname:           u.Nickname,
		NicknameNormalized: u.NicknameNormalized,
		ImageURL:           u.ImageURL,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
