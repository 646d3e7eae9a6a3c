package errdefs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels(t *testing.T) {
	cases := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"validation", &ValidationError{Path: "se", Reason: "required field is missing"}, IsValidation},
		{"not found", &NotFoundError{Resource: "process", Query: map[string]string{"slug": "x"}}, IsNotFound},
		{"ambiguous", &AmbiguousReferenceError{Resource: "process", Count: 2}, IsAmbiguous},
		{"transport", &TransportError{Method: "GET", URL: "http://x", Err: errors.New("refused")}, IsTransport},
		{"remote", &RemoteError{StatusCode: 500}, IsRemote},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("failed to run: %w", tc.err)
			assert.True(t, tc.is(wrapped))
		})
	}
}

func TestTransportErrorUnwrapsCause(t *testing.T) {
	err := &TransportError{Method: "GET", URL: "http://x", Err: context.DeadlineExceeded}
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, IsTransport(err))
	assert.False(t, IsRemote(err))
}

func TestRemoteErrorKeepsBodyVerbatim(t *testing.T) {
	err := &RemoteError{StatusCode: 400, Method: "POST", URL: "http://x/api/data", Body: []byte(`{"input":["bad"]}`)}
	assert.Contains(t, err.Error(), `{"input":["bad"]}`)
	assert.True(t, err.ClientFault())
	assert.False(t, err.ServerFault())

	err.StatusCode = 503
	assert.True(t, err.ServerFault())
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "validation failed: group.child: required field is missing",
		(&ValidationError{Path: "group.child", Reason: "required field is missing"}).Error())
	assert.Equal(t, `process resource not found matching {ordering="-version", slug="assembler-abyss"}`,
		(&NotFoundError{Resource: "process", Query: map[string]string{"slug": "assembler-abyss", "ordering": "-version"}}).Error())
}
