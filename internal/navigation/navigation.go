// Package navigation builds hand-off links for external map apps and measures
// great-circle distances between coordinates.
package navigation

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/golang/geo/s2"
)

const EarthRadiusMeters = 6371008.8

type Links struct {
	GoogleIOS     string
	GoogleAndroid string
	GoogleWeb     string
	Apple         string
}

// LinksFor returns driving-directions links to c. GoogleWeb is the fallback when
// the Google Maps app is not installed.
func LinksFor(c models.Coordinates) Links {
	dest := formatPoint(c)
	return Links{
		GoogleIOS:     fmt.Sprintf("comgooglemaps://?daddr=%s&directionsmode=driving", dest),
		GoogleAndroid: fmt.Sprintf("google.navigation:q=%s&mode=d", dest),
		GoogleWeb:     "https://maps.google.com/maps?daddr=" + dest,
		Apple:         fmt.Sprintf("http://maps.apple.com/?daddr=%s&dirflg=d", dest),
	}
}

// SearchURL is a plain web map link to a labelled point.
func SearchURL(c models.Coordinates) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("query", formatPoint(c))
	return "https://www.google.com/maps/search/?" + q.Encode()
}

func DistanceMeters(a, b models.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Valid reports whether c is a real latitude/longitude pair.
func Valid(c models.Coordinates) bool {
	return s2.LatLngFromDegrees(c.Lat, c.Lng).IsValid()
}

func formatPoint(c models.Coordinates) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}
