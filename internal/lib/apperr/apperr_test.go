package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := New(KindNotFound, 404, "subscription not found", nil)
	wrapped := fmt.Errorf("subscription.Get: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrServer))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server message preferred",
			err:  New(KindInvalidCredentials, 401, "Account is locked", nil),
			want: "Account is locked",
		},
		{
			name: "fallback without message",
			err:  New(KindNetwork, 0, "", errors.New("dial tcp: refused")),
			want: "fallback",
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err, "fallback"))
		})
	}
}

func TestWithKind(t *testing.T) {
	base := New(KindRejected, 400, "bad code", nil)

	err := WithKind(base, KindInvalidCode)

	assert.True(t, errors.Is(err, ErrInvalidCode))
	assert.Equal(t, "bad code", UserMessage(err, ""))
	assert.True(t, errors.Is(WithKind(errors.New("x"), KindCleanup), ErrCleanup))
}

func TestError_String(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.Equal(t, "validation error: passwords do not match", Validation("passwords do not match").Error())
}
