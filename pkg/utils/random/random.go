package random

import (
	"crypto/rand"
	"math/big"
)

const digits = "0123456789"
const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func Numeric(length int) string {
	return pickFromSet(digits, length)
}

func Code(length int) string {
	return pickFromSet(letters, length)
}

// LobbyCode draws from the full 36-character alphanumeric alphabet rather
// than Code's confusable-avoiding subset: lobby codes are typed once and
// shared over voice/chat by small private groups, not read off a printed
// coupon, so the wider keyspace matters more than avoiding 0/O or 1/I.
func LobbyCode(length int) string {
	return pickFromSet(alphanumeric, length)
}

func pickFromSet(set string, length int) string {
	if length <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(set)))
	runes := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			runes[i] = set[0]
			continue
		}
		runes[i] = set[n.Int64()]
	}
	return string(runes)
}
