package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// wgs84Radius is the equatorial radius used by the local projection. Edge
// weights use earthRadiusMeters instead.
const wgs84Radius = 6_378_137.0

// DefaultScale maps one projected meter to 0.05 scene units.
const DefaultScale = 0.05

// Converter is an equirectangular projection around a fixed origin.
// Local coordinates are (x east, y north); scene coordinates flip the
// north axis so that scene z = -y.
type Converter struct {
	originLat float64
	originLon float64
	scale     float64
	kx, ky    float64
}

// NewConverter creates a converter centered on (originLat, originLon).
// A non-positive scale falls back to DefaultScale.
func NewConverter(originLat, originLon, scale float64) *Converter {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Converter{
		originLat: originLat,
		originLon: originLon,
		scale:     scale,
		kx:        wgs84Radius * math.Cos(originLat*math.Pi/180),
		ky:        wgs84Radius,
	}
}

// Origin returns the origin as [lon, lat].
func (c *Converter) Origin() orb.Point {
	return orb.Point{c.originLon, c.originLat}
}

// Scale returns the scene units per projected meter.
func (c *Converter) Scale() float64 {
	return c.scale
}

// ToLocal projects a geographic coordinate to (x east, y north).
func (c *Converter) ToLocal(lat, lon float64) (x, y float64) {
	dLat := (lat - c.originLat) * math.Pi / 180
	dLon := (lon - c.originLon) * math.Pi / 180
	return dLon * c.kx * c.scale, dLat * c.ky * c.scale
}

// ToGeo is the inverse of ToLocal.
func (c *Converter) ToGeo(x, y float64) (lat, lon float64) {
	lat = c.originLat + (y/(c.ky*c.scale))*180/math.Pi
	lon = c.originLon + (x/(c.kx*c.scale))*180/math.Pi
	return lat, lon
}

// ToScene projects a geographic coordinate into the scene frame {x, z}.
func (c *Converter) ToScene(lat, lon float64) orb.Point {
	x, y := c.ToLocal(lat, lon)
	return orb.Point{x, -y}
}

// FromScene converts a scene point back to geographic coordinates.
func (c *Converter) FromScene(p orb.Point) (lat, lon float64) {
	return c.ToGeo(p[0], -p[1])
}
