package domain_test

import (
	"testing"
	"time"

	"github.com/aretw0/ussdflow/pkg/condition"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestSession_Expired(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := domain.SessionConfig{TimeoutSeconds: 60, MaxInactivitySeconds: 30}

	t.Run("Idle limit", func(t *testing.T) {
		s := domain.NewSession("s1", "PAY", "", "MAIN", cfg, start)
		assert.False(t, s.Expired(start.Add(29*time.Second)))
		assert.False(t, s.Expired(start.Add(30*time.Second)), "exactly at the limit is still live")
		assert.True(t, s.Expired(start.Add(30*time.Second+time.Nanosecond)))
	})

	t.Run("Activity extends idle deadline", func(t *testing.T) {
		s := domain.NewSession("s1", "PAY", "", "MAIN", cfg, start)
		s.Touch(start.Add(20 * time.Second))
		assert.False(t, s.Expired(start.Add(45*time.Second)))
	})

	t.Run("Hard lifetime wins over activity", func(t *testing.T) {
		s := domain.NewSession("s1", "PAY", "", "MAIN", cfg, start)
		s.Touch(start.Add(55 * time.Second))
		assert.Equal(t, start.Add(time.Minute), s.Deadline())
		assert.True(t, s.Expired(start.Add(61*time.Second)))
	})

	t.Run("Zero limits never expire", func(t *testing.T) {
		s := domain.NewSession("s1", "PAY", "", "MAIN", domain.SessionConfig{}, start)
		assert.True(t, s.Deadline().IsZero())
		assert.False(t, s.Expired(start.Add(24*time.Hour)))
	})
}

func TestSession_Clone(t *testing.T) {
	s := domain.NewSession("s1", "PAY", "", "MAIN", domain.SessionConfig{}, time.Now())
	s.Variables["a"] = "1"

	c := s.Clone()
	c.Variables["a"] = "2"
	c.CurrentStateID = "NEXT"

	assert.Equal(t, "1", s.Variables["a"])
	assert.Equal(t, "MAIN", s.CurrentStateID)
}

func TestTransition_Matches(t *testing.T) {
	scope := condition.ScopeFrom(map[string]string{"amount": "500"})

	tests := []struct {
		name  string
		tr    domain.Transition
		input string
		want  bool
	}{
		{"Literal match", domain.Transition{Input: "1"}, "1", true},
		{"Literal mismatch", domain.Transition{Input: "1"}, "2", false},
		{"Wildcard star", domain.Transition{Input: "*"}, "anything", true},
		{"Empty input is wildcard", domain.Transition{}, "x", true},
		{"Condition holds", domain.Transition{Condition: condition.MustParse("amount > 100")}, "x", true},
		{"Condition fails", domain.Transition{Condition: condition.MustParse("amount > 1000")}, "x", false},
		{"Input and condition both required", domain.Transition{Input: "1", Condition: condition.MustParse("amount > 1000")}, "1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tr.Matches(tt.input, scope))
		})
	}
}

func TestAPIStatus_Retryable(t *testing.T) {
	assert.True(t, domain.APITimeout.Retryable())
	assert.True(t, domain.APINetworkError.Retryable())
	assert.True(t, domain.APIServerError.Retryable())
	assert.True(t, domain.APIUnknownError.Retryable())
	assert.False(t, domain.APIClientError.Retryable())
	assert.False(t, domain.APISuccess.Retryable())
}
