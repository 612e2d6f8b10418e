package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestCancelSubtree_TouchesEveryDescendant(t *testing.T) {
	r := NewRegistry()
	root := r.NewTaskPromise(0, nil, nil)
	a := r.NewTaskPromise(0, root, nil)
	b := r.NewTaskPromise(0, root, nil)
	c := r.NewTaskPromise(0, a, nil)

	touched := RequestCancelSubtree(root)

	require.Len(t, touched, 4)
	for _, p := range []*Promise{root, a, b, c} {
		require.True(t, p.CancelRequested(), "promise %d should be cancel-requested", p.ID())
	}
}

func TestRequestCancelSubtree_NeverWalksUpward(t *testing.T) {
	r := NewRegistry()
	root := r.NewTaskPromise(0, nil, nil)
	child := r.NewTaskPromise(0, root, nil)

	RequestCancelSubtree(child)

	require.True(t, child.CancelRequested())
	require.False(t, root.CancelRequested(), "cancelling a child must not affect the parent")
}

func TestAggregateOutcomeErrors(t *testing.T) {
	require.Nil(t, AggregateOutcomeErrors([]Outcome{{Value: 1}, {Value: 2}}))

	single := AggregateOutcomeErrors([]Outcome{{Err: ErrCancelled}, {Value: 1}})
	require.ErrorIs(t, single, ErrCancelled)

	multi := AggregateOutcomeErrors([]Outcome{{Err: ErrCancelled}, {Err: ErrForeignPromise}})
	require.Error(t, multi)
	require.ErrorIs(t, multi, ErrCancelled)
	require.ErrorIs(t, multi, ErrForeignPromise)
}
