package navigation

import (
	"testing"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/stretchr/testify/require"
)

func TestLinksFor(t *testing.T) {
	l := LinksFor(models.Coordinates{Lat: 19.076, Lng: 72.8777})
	require.Equal(t, "comgooglemaps://?daddr=19.076,72.8777&directionsmode=driving", l.GoogleIOS)
	require.Equal(t, "google.navigation:q=19.076,72.8777&mode=d", l.GoogleAndroid)
	require.Equal(t, "https://maps.google.com/maps?daddr=19.076,72.8777", l.GoogleWeb)
	require.Equal(t, "http://maps.apple.com/?daddr=19.076,72.8777&dirflg=d", l.Apple)
}

func TestSearchURL(t *testing.T) {
	u := SearchURL(models.Coordinates{Lat: 16.5062, Lng: 80.648})
	require.Equal(t, "https://www.google.com/maps/search/?api=1&query=16.5062%2C80.648", u)
}

func TestDistanceMeters(t *testing.T) {
	a := models.Coordinates{Lat: 19.076, Lng: 72.8777}
	require.InDelta(t, 0, DistanceMeters(a, a), 1e-6)

	// Office Complex A -> Airport Hub, около 2 км
	b := models.Coordinates{Lat: 19.0896, Lng: 72.8656}
	d := DistanceMeters(a, b)
	require.InDelta(t, 1980, d, 60)
	require.InDelta(t, d, DistanceMeters(b, a), 1e-6)

	// один градус широты ~ 111.2 км
	require.InDelta(t, 111195, DistanceMeters(models.Coordinates{Lat: 0, Lng: 0}, models.Coordinates{Lat: 1, Lng: 0}), 100)
}

func TestValid(t *testing.T) {
	require.True(t, Valid(models.Coordinates{Lat: 19.076, Lng: 72.8777}))
	require.False(t, Valid(models.Coordinates{Lat: 91, Lng: 0}))
	require.False(t, Valid(models.Coordinates{Lat: 0, Lng: 181}))
}
