// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/tskr/cliparse"
)

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

// Bcrypt hashes and checks passwords. The zero value is not ready; use
// NewBcrypt.
type Bcrypt struct {
	cost int
}

func NewBcrypt() *Bcrypt {
	return &Bcrypt{cost: bcrypt.DefaultCost}
}

// Init takes the work factor from the config. Out of range costs fall back
// to bcrypt's default.
func (b *Bcrypt) Init(cfg cliparse.Config) {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		b.cost = bcrypt.DefaultCost
		return
	}
	b.cost = cfg.BcryptCost
}

func (b *Bcrypt) Cost() int {
	return b.cost
}

// Hash returns the bcrypt hash of password
func (b *Bcrypt) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// Compare reports whether password matches hash
func (b *Bcrypt) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
