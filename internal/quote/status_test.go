package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/vidrieria/internal/validation"
)

func TestRejectWithoutReason(t *testing.T) {
	q := buildTestQuote(t, standardItem("a", "100"))

	for _, reason := range []string{"", "   "} {
		got, err := q.Reject(reason)
		require.ErrorIs(t, err, validation.ErrInvalid)
		assert.Equal(t, StatusPending, got.Status)
	}
	assert.Equal(t, StatusPending, q.Status)
}

func TestTransitions(t *testing.T) {
	q := buildTestQuote(t, standardItem("a", "100"))

	approved, err := q.Approve()
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Empty(t, approved.RejectionReason)

	rejected, err := q.Reject("  cliente desistió ")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "cliente desistió", rejected.RejectionReason)

	_, err = q.Transition(StatusPending, "")
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	q := buildTestQuote(t, standardItem("a", "100"))
	approved, err := q.Approve()
	require.NoError(t, err)
	rejected, err := q.Reject("sin stock")
	require.NoError(t, err)

	for _, terminal := range []Quote{approved, rejected} {
		for _, to := range []Status{StatusPending, StatusApproved, StatusRejected} {
			got, err := terminal.Transition(to, "motivo")
			require.ErrorIs(t, err, ErrTerminalStatus)
			assert.Equal(t, terminal.Status, got.Status)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Approved ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)

	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, validation.ErrInvalid)
}
