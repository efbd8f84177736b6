package mail

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryNone},
		{"deadline exceeded", context.DeadlineExceeded, CategoryTimeout},
		{"wrapped deadline", fmt.Errorf("smtp attempt exceeded 30s: %w", context.DeadlineExceeded), CategoryTimeout},
		{"smtp 535 bad credentials", &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"}, CategoryAuthentication},
		{"smtp 530 auth required", &textproto.Error{Code: 530, Msg: "5.7.0 Authentication Required"}, CategoryAuthentication},
		{"smtp 550 mailbox unavailable", &textproto.Error{Code: 550, Msg: "5.1.1 The email account does not exist"}, CategoryRecipient},
		{"smtp 553 bad mailbox name", &textproto.Error{Code: 553, Msg: "5.1.2 mailbox name not allowed"}, CategoryRecipient},
		{"smtp 421 service not available", &textproto.Error{Code: 421, Msg: "4.7.0 Try again later"}, CategoryConnection},
		{"smtp 451 local error", &textproto.Error{Code: 451, Msg: "4.3.0 Temporary local problem"}, CategoryConnection},
		{"connection refused string", errors.New("dial tcp 74.125.20.108:587: connection refused"), CategoryConnection},
		{"dns failure string", errors.New("dial tcp: lookup smtp.gmail.com: no such host"), CategoryConnection},
		{"code in message", errors.New("535 5.7.8 authentication failed"), CategoryAuthentication},
		{"auth substring", errors.New("SASL AUTH rejected"), CategoryAuthentication},
		{"unrecognized", errors.New("unexpected EOF"), CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestCategory_Retryable(t *testing.T) {
	assert.True(t, CategoryConnection.Retryable())
	assert.True(t, CategoryTimeout.Retryable())
	assert.True(t, CategoryUnknown.Retryable())
	assert.False(t, CategoryAuthentication.Retryable())
	assert.False(t, CategoryRecipient.Retryable())
	assert.False(t, CategoryConfiguration.Retryable())
}
