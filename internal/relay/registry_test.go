package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddAssignsPlaceholders(t *testing.T) {
	r := NewRegistry()

	a := r.Add("a")
	b := r.Add("b")
	assert.Equal(t, "Bus 1", a.Name)
	assert.Equal(t, "Bus 2", b.Name)
	assert.Equal(t, RoleUnassigned, a.Role)
	assert.Equal(t, StatusAvailable, a.Status)
	assert.Nil(t, a.LastLocation)
	assert.True(t, a.LastAcceptedAt.IsZero())
	assert.Equal(t, 2, r.Len())

	// sequence never reuses numbers, even after churn
	r.Remove("a")
	c := r.Add("c")
	assert.Equal(t, "Bus 3", c.Name)
}

func TestRegistryRemoveUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Add("a")
	r.Remove("ghost")
	assert.Equal(t, 1, r.Len())
	assert.Nil(t, r.Get("ghost"))
}

func TestRegistryBusesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	loc := func(lat float64) *Location { return &Location{Lat: lat, Lng: lat} }

	for _, id := range []string{"c", "a", "b"} {
		r.Add(id)
	}
	// only bus-role records with a location appear
	r.Get("c").Role = RoleBus
	r.Get("c").LastLocation = loc(3)
	r.Get("a").Role = RoleBus // no location yet
	r.Get("b").Role = RoleCustomer
	r.Get("b").LastLocation = loc(2) // impossible in practice, still excluded

	buses := r.Buses()
	require.Len(t, buses, 1)
	assert.Equal(t, "c", buses[0].ID)

	r.Get("a").LastLocation = loc(1)
	buses = r.Buses()
	require.Len(t, buses, 2)
	assert.Equal(t, []string{"c", "a"}, []string{buses[0].ID, buses[1].ID})
}
