package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const imageKitTokenTTL = 30 * time.Minute

// ImageKitParams are the client-upload authentication parameters
type ImageKitParams struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
}

// ImageKitSigner issues upload signatures without exposing the private key
type ImageKitSigner struct {
	privateKey string
	now        func() time.Time
}

// NewImageKitSigner creates a signer. Returns nil when privateKey is empty.
func NewImageKitSigner(privateKey string) *ImageKitSigner {
	if privateKey == "" {
		return nil
	}
	return &ImageKitSigner{privateKey: privateKey, now: time.Now}
}

// Params returns a fresh token signed as HMAC-SHA1(privateKey, token+expire)
func (s *ImageKitSigner) Params() ImageKitParams {
	token := uuid.New().String()
	expire := s.now().Add(imageKitTokenTTL).Unix()

	mac := hmac.New(sha1.New, []byte(s.privateKey))
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))

	return ImageKitParams{
		Token:     token,
		Expire:    expire,
		Signature: hex.EncodeToString(mac.Sum(nil)),
	}
}
