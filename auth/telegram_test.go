package auth

import (
	"net/url"
	"testing"
	"time"

	"earnify/domain/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:test-token"

func signedFields() map[string]string {
	return map[string]string{
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      `{"id":279058397,"first_name":"Vlad","last_name":"S","username":"vdkfrost"}`,
		"auth_date": "1662771648",
	}
}

func TestVerifier_VerifyPrincipal(t *testing.T) {
	t.Parallel()

	payload := Sign(signedFields(), testBotToken)

	principal, err := NewVerifier(testBotToken, 0).VerifyPrincipal(payload)

	require.NoError(t, err)
	assert.Equal(t, int64(279058397), principal.ID)
	assert.Equal(t, "vdkfrost", principal.Username)
	assert.Equal(t, "Vlad", principal.FirstName)
	assert.Equal(t, "S", principal.LastName)
}

func TestVerifier_Rejections(t *testing.T) {
	t.Parallel()

	valid := Sign(signedFields(), testBotToken)

	tampered, err := url.ParseQuery(valid)
	require.NoError(t, err)
	tampered.Set("user", `{"id":1,"first_name":"Mallory"}`)

	unhashed, err := url.ParseQuery(valid)
	require.NoError(t, err)
	unhashed.Del("hash")

	tests := []struct {
		name     string
		token    string
		payload  string
		wantCode apperrors.Code
	}{
		{name: "empty payload", token: testBotToken, payload: "", wantCode: apperrors.CodeMissingPayload},
		{name: "no hash", token: testBotToken, payload: unhashed.Encode(), wantCode: apperrors.CodeMissingHash},
		{name: "tampered user", token: testBotToken, payload: tampered.Encode(), wantCode: apperrors.CodeBadSignature},
		{name: "other bot", token: "654321:other", payload: valid, wantCode: apperrors.CodeBadSignature},
		{name: "no bot token", token: "", payload: valid, wantCode: apperrors.CodeServerMisconfigured},
		{
			name:     "signed without user",
			token:    testBotToken,
			payload:  Sign(map[string]string{"auth_date": "1662771648"}, testBotToken),
			wantCode: apperrors.CodeMissingPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVerifier(tt.token, 0).VerifyPrincipal(tt.payload)

			appErr, ok := apperrors.As(err)
			require.True(t, ok, "expected classified error, got %v", err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, apperrors.KindAuth, appErr.Kind)
		})
	}
}

func TestVerifier_MaxAge(t *testing.T) {
	t.Parallel()

	payload := Sign(signedFields(), testBotToken)
	authDate := time.Unix(1662771648, 0)

	verifier := NewVerifier(testBotToken, time.Hour)

	verifier.now = func() time.Time { return authDate.Add(30 * time.Minute) }
	_, err := verifier.VerifyPrincipal(payload)
	assert.NoError(t, err)

	verifier.now = func() time.Time { return authDate.Add(2 * time.Hour) }
	_, err = verifier.VerifyPrincipal(payload)
	assert.ErrorIs(t, err, &apperrors.Error{Code: apperrors.CodeBadSignature})
}

func TestDataCheckString(t *testing.T) {
	t.Parallel()

	values := url.Values{}
	values.Set("user", "u")
	values.Set("auth_date", "1")
	values.Set("hash", "ignored")
	values.Set("query_id", "q")

	assert.Equal(t, "auth_date=1\nquery_id=q\nuser=u", dataCheckString(values))
}
