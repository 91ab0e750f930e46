package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Token derives the unsubscribe/verification token for an entity code from
// the server secret. The secret is injected configuration; nothing here
// reads globals.
func Token(code, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

func Verify(code, secret, token string) bool {
	return hmac.Equal([]byte(Token(code, secret)), []byte(token))
}
