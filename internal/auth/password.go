package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword — bcrypt с DefaultCost (намеренно медленный, десятки мс).
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword сравнивает пароль с хэшем средствами bcrypt;
// plaintext нигде не сохраняется и не логируется.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
