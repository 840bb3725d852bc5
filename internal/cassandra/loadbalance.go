package cassandra

import (
	"math/rand"
)

// Policy selects which node's pool serves the next request, from the
// closed set of load-balancing policies.
type Policy interface {
	// Pick returns the pool to use out of the currently up ones, in the
	// configured node order. It returns nil if none are up.
	Pick(up []*Pool) *Pool
}

// RandomPolicy chooses uniformly at random among the currently up pools.
type RandomPolicy struct{}

func (RandomPolicy) Pick(up []*Pool) *Pool {
	if len(up) == 0 {
		return nil
	}
	return up[rand.Intn(len(up))]
}

// PriorityPolicy always prefers the pool appearing earliest in the
// configured node order, falling back down the list as nodes go down.
// up is expected to already be in configured node order.
type PriorityPolicy struct{}

func (PriorityPolicy) Pick(up []*Pool) *Pool {
	if len(up) == 0 {
		return nil
	}
	return up[0]
}

// ParsePolicy resolves a policy name from the closed set {random, priority}.
// Unknown names are caller misuse.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "random":
		return RandomPolicy{}, nil
	case "priority":
		return PriorityPolicy{}, nil
	default:
		return nil, &invalidArguments{Msg: "unknown load balancing policy " + name}
	}
}
