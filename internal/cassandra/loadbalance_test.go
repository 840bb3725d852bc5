package cassandra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Policy
		wantErr bool
	}{
		{name: "empty defaults to random", input: "", want: RandomPolicy{}},
		{name: "random", input: "random", want: RandomPolicy{}},
		{name: "priority", input: "priority", want: PriorityPolicy{}},
		{name: "unknown", input: "round-robin", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePolicy(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				var invalid *invalidArguments
				require.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPriorityPolicy_PrefersEarliestInOrder(t *testing.T) {
	a, b := &Pool{address: "a"}, &Pool{address: "b"}
	got := PriorityPolicy{}.Pick([]*Pool{a, b})
	assert.Same(t, a, got)
}

func TestPriorityPolicy_NoneUp(t *testing.T) {
	assert.Nil(t, PriorityPolicy{}.Pick(nil))
}

func TestRandomPolicy_AlwaysPicksFromUpSet(t *testing.T) {
	a, b := &Pool{address: "a"}, &Pool{address: "b"}
	up := []*Pool{a, b}
	for i := 0; i < 20; i++ {
		got := RandomPolicy{}.Pick(up)
		assert.Contains(t, up, got)
	}
}
