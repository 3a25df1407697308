package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/model"
)

func TestSignInSignOut(t *testing.T) {
	s := New()
	_, ok := s.Current()
	assert.False(t, ok)

	s.SignIn(model.Shopper{ID: "u1", Name: "Aigerim", Token: "u1"})
	got, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "Aigerim", got.Name)

	s.SignOut()
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	s := New()

	type change struct{ prev, next *model.Shopper }
	var changes []change
	unsubscribe := s.Subscribe(func(prev, next *model.Shopper) {
		changes = append(changes, change{prev, next})
	})

	s.SignIn(model.Shopper{ID: "u1"})
	s.SignIn(model.Shopper{ID: "u2"})
	s.SignOut()

	require.Len(t, changes, 3)
	assert.Nil(t, changes[0].prev)
	assert.Equal(t, "u1", changes[0].next.ID)
	assert.Equal(t, "u1", changes[1].prev.ID)
	assert.Equal(t, "u2", changes[1].next.ID)
	assert.Nil(t, changes[2].next)

	unsubscribe()
	unsubscribe()
	s.SignIn(model.Shopper{ID: "u3"})
	assert.Len(t, changes, 3, "unsubscribed listener must not fire")
}

func TestListenerMayReadSession(t *testing.T) {
	s := New()
	var seen string
	s.Subscribe(func(_, _ *model.Shopper) {
		cur, _ := s.Current()
		seen = cur.ID
	})
	s.SignIn(model.Shopper{ID: "u9"})
	assert.Equal(t, "u9", seen)
}

func TestSameIdentity(t *testing.T) {
	a := &model.Shopper{ID: "x", Name: "A"}
	b := &model.Shopper{ID: "x", Name: "B"}
	c := &model.Shopper{ID: "y"}

	assert.True(t, SameIdentity(nil, nil))
	assert.True(t, SameIdentity(a, b))
	assert.False(t, SameIdentity(a, c))
	assert.False(t, SameIdentity(a, nil))
}
