// Package jwt реализует выпуск и разбор JWT токенов портала.
//
// Maker используется dev-бэкендом для выпуска и проверки токенов доступа.
// Клиент подписи не знает и через ParseUnverified только читает claims,
// например срок действия, когда бэкенд не прислал expiresAt.
package jwt

import (
	"time"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken выпускает токен и возвращает момент его истечения.
	GenerateToken(userID, email, role string) (string, time.Time, error)
	// ParseToken проверяет подпись и срок и возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker на HS256 с секретным ключом и TTL.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
	now       func() time.Time
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
