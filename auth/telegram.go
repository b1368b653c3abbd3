// Package auth verifies Telegram WebApp init data and signs image upload requests.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"earnify/domain/apperrors"
	"earnify/domain/entities"
)

const webAppDataKey = "WebAppData"

// InitDataHeader carries the raw Telegram WebApp init data
const InitDataHeader = "X-Telegram-Init-Data"

// Verifier checks init data signed with the bot token
type Verifier struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

// NewVerifier creates a verifier. A zero maxAge disables the auth_date check.
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	return &Verifier{
		botToken: botToken,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

type telegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// VerifyPrincipal validates the payload's signature and returns the user it names
func (v *Verifier) VerifyPrincipal(rawPayload string) (*entities.Principal, error) {
	if rawPayload == "" {
		return nil, apperrors.Auth(apperrors.CodeMissingPayload, "auth data missing")
	}
	if v.botToken == "" {
		return nil, apperrors.Auth(apperrors.CodeServerMisconfigured, "bot token is not configured")
	}

	fields, err := url.ParseQuery(rawPayload)
	if err != nil {
		return nil, apperrors.Auth(apperrors.CodeMissingPayload, "auth data is not a query string")
	}

	hash := fields.Get("hash")
	if hash == "" {
		return nil, apperrors.Auth(apperrors.CodeMissingHash, "hash missing")
	}
	fields.Del("hash")

	expected := signature(dataCheckString(fields), v.botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(hash))) {
		return nil, apperrors.Auth(apperrors.CodeBadSignature, "invalid data signature")
	}

	if v.maxAge > 0 {
		authDate, err := strconv.ParseInt(fields.Get("auth_date"), 10, 64)
		if err != nil || v.now().Sub(time.Unix(authDate, 0)) > v.maxAge {
			return nil, apperrors.Auth(apperrors.CodeBadSignature, "auth data expired")
		}
	}

	var user telegramUser
	if err := json.Unmarshal([]byte(fields.Get("user")), &user); err != nil || user.ID <= 0 {
		return nil, apperrors.Auth(apperrors.CodeMissingPayload, "auth data has no user")
	}

	return &entities.Principal{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// Sign builds an init data query string signed with botToken
func Sign(fields map[string]string, botToken string) string {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", signature(dataCheckString(values), botToken))
	return values.Encode()
}

// dataCheckString joins key=value pairs sorted by key with newlines
func dataCheckString(fields url.Values) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields.Get(k))
	}
	return strings.Join(lines, "\n")
}

func signature(checkString, botToken string) string {
	secret := hmac.New(sha256.New, []byte(webAppDataKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	return hex.EncodeToString(mac.Sum(nil))
}
