package dao

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"
)

const passwordIterations = 260000

// Пользователи
type User struct {
	ID string `gorm:"column:id;primaryKey" json:"id"`

	Password  string `json:"-"`
	Email     string `json:"email" gorm:"uniqueIndex"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	IsActive   bool       `json:"is_active" gorm:"default:true"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"-"`
	LastActive *time.Time `json:"last_active" extensions:"x-nullable"`
}

func (User) TableName() string { return "users" }

// FullName имя для писем и списков участников.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Генерация хэша пароля для базы
func GenPasswordHash(password string) string {
	letters := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	salt := make([]rune, 32)
	for i := range salt {
		nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		salt[i] = letters[nBig.Int64()]
	}

	return fmt.Sprintf("pbkdf2_sha256$%d$%s$%s",
		passwordIterations,
		string(salt),
		base64.StdEncoding.EncodeToString(pbkdf2.Key([]byte(password), []byte(string(salt)), passwordIterations, 32, sha256.New)),
	)
}

// CheckPassword сравнивает пароль с хэшем формата pbkdf2_sha256$iter$salt$hash.
func CheckPassword(password string, hash string) bool {
	ss := strings.Split(hash, "$")
	if len(ss) != 4 || ss[0] != "pbkdf2_sha256" {
		return false
	}
	var iter int
	if _, err := fmt.Sscan(ss[1], &iter); err != nil || iter <= 0 {
		return false
	}
	expected := base64.StdEncoding.EncodeToString(pbkdf2.Key([]byte(password), []byte(ss[2]), iter, 32, sha256.New))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(ss[3])) == 1
}

// GetUserByEmail ищет пользователя без учета регистра email.
func GetUserByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastActive обновляет время последней активности.
func TouchLastActive(db *gorm.DB, userID string) error {
	return db.Model(&User{}).Where("id = ?", userID).UpdateColumn("last_active", time.Now()).Error
}
