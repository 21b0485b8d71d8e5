package password

import (
	"golang.org/x/crypto/bcrypt"

	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
)

const (
	MinLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxLength = 72
)

// Cost is the bcrypt work factor; tests lower it to bcrypt.MinCost.
var Cost = bcrypt.DefaultCost

func Validate(plain string) error {
	if len(plain) < MinLength || len(plain) > MaxLength {
		return appErr.ErrInvalid
	}
	return nil
}

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
