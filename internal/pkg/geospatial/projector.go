package geospatial

import (
	"math"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// Israeli Transverse Mercator (EPSG:2039) on the GRS80 ellipsoid.
const (
	grs80A        = 6378137.0
	grs80InvF     = 298.257222101
	itmLat0Deg    = 31.0 + 44.0/60 + 3.817/3600  // 31°44'03.817"
	itmLon0Deg    = 35.0 + 12.0/60 + 16.261/3600 // 35°12'16.261"
	itmScale      = 1.0000067
	itmFalseEast  = 219529.584
	itmFalseNorth = 626907.390
)

const outsideGrid = "is outside the projection grid"

// Calibration pins the grid to a data source: Reference is a surveyed
// geographic point and Surveyed its coordinates as published by the source.
type Calibration struct {
	Reference domain.GeoPoint
	Surveyed  domain.ProjectedPoint
}

// DefaultCalibration is the nominal grid origin; it yields a zero offset.
var DefaultCalibration = Calibration{
	Reference: domain.GeoPoint{Lat: itmLat0Deg, Lon: itmLon0Deg},
	Surveyed:  domain.ProjectedPoint{Easting: itmFalseEast, Northing: itmFalseNorth},
}

// Projector converts ITM grid coordinates to WGS 84. It is immutable and
// safe for concurrent use.
type Projector struct {
	tm    transverseMercator
	delta domain.ProjectedPoint
}

// NewProjector builds a Projector and computes the calibration offset once.
func NewProjector(cal Calibration) (*Projector, error) {
	if !cal.Reference.IsFinite() {
		return nil, &domain.InvalidInputError{Field: "calibration.reference", Value: firstNonFinite(cal.Reference.Lat, cal.Reference.Lon)}
	}
	if !cal.Surveyed.IsFinite() {
		return nil, &domain.InvalidInputError{Field: "calibration.surveyed", Value: firstNonFinite(cal.Surveyed.Easting, cal.Surveyed.Northing)}
	}

	tm := newITM()
	nominal := tm.forward(cal.Reference)
	return &Projector{
		tm: tm,
		delta: domain.ProjectedPoint{
			Easting:  nominal.Easting - cal.Surveyed.Easting,
			Northing: nominal.Northing - cal.Surveyed.Northing,
		},
	}, nil
}

// Delta returns the calibration offset added to every input.
func (p *Projector) Delta() domain.ProjectedPoint { return p.delta }

// Project converts a grid coordinate from the calibrated source to WGS 84.
func (p *Projector) Project(pt domain.ProjectedPoint) (domain.GeoPoint, error) {
	if math.IsNaN(pt.Easting) || math.IsInf(pt.Easting, 0) {
		return domain.GeoPoint{}, &domain.InvalidInputError{Field: "easting", Value: pt.Easting}
	}
	if math.IsNaN(pt.Northing) || math.IsInf(pt.Northing, 0) {
		return domain.GeoPoint{}, &domain.InvalidInputError{Field: "northing", Value: pt.Northing}
	}
	g := p.tm.inverse(domain.ProjectedPoint{
		Easting:  pt.Easting + p.delta.Easting,
		Northing: pt.Northing + p.delta.Northing,
	})
	if !g.Valid() {
		// Far outside the grid the series leaves the globe.
		if !(g.Lat >= -90 && g.Lat <= 90) {
			return domain.GeoPoint{}, &domain.InvalidInputError{Field: "northing", Value: pt.Northing, Reason: outsideGrid}
		}
		return domain.GeoPoint{}, &domain.InvalidInputError{Field: "easting", Value: pt.Easting, Reason: outsideGrid}
	}
	return g, nil
}

// Unproject is the inverse of Project: WGS 84 to source grid coordinates.
func (p *Projector) Unproject(g domain.GeoPoint) (domain.ProjectedPoint, error) {
	if math.IsNaN(g.Lat) || math.IsInf(g.Lat, 0) {
		return domain.ProjectedPoint{}, &domain.InvalidInputError{Field: "lat", Value: g.Lat}
	}
	if math.IsNaN(g.Lon) || math.IsInf(g.Lon, 0) {
		return domain.ProjectedPoint{}, &domain.InvalidInputError{Field: "lon", Value: g.Lon}
	}
	nominal := p.tm.forward(g)
	return domain.ProjectedPoint{
		Easting:  nominal.Easting - p.delta.Easting,
		Northing: nominal.Northing - p.delta.Northing,
	}, nil
}

// transverseMercator holds the series coefficients (Snyder, USGS PP 1395).
type transverseMercator struct {
	a, k0          float64
	e2, e4, e6     float64
	ep2, e1        float64
	lat0, lon0, m0 float64
	fe, fn         float64
}

func newITM() transverseMercator {
	f := 1 / grs80InvF
	e2 := f * (2 - f)
	t := transverseMercator{
		a:    grs80A,
		k0:   itmScale,
		e2:   e2,
		e4:   e2 * e2,
		e6:   e2 * e2 * e2,
		ep2:  e2 / (1 - e2),
		e1:   (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2)),
		lat0: toRad(itmLat0Deg),
		lon0: toRad(itmLon0Deg),
		fe:   itmFalseEast,
		fn:   itmFalseNorth,
	}
	t.m0 = t.meridianArc(t.lat0)
	return t
}

func (t transverseMercator) meridianArc(phi float64) float64 {
	return t.a * ((1-t.e2/4-3*t.e4/64-5*t.e6/256)*phi -
		(3*t.e2/8+3*t.e4/32+45*t.e6/1024)*math.Sin(2*phi) +
		(15*t.e4/256+45*t.e6/1024)*math.Sin(4*phi) -
		(35*t.e6/3072)*math.Sin(6*phi))
}

func (t transverseMercator) forward(g domain.GeoPoint) domain.ProjectedPoint {
	phi := toRad(g.Lat)
	sin, cos := math.Sincos(phi)
	tan := sin / cos

	n := t.a / math.Sqrt(1-t.e2*sin*sin)
	tt := tan * tan
	c := t.ep2 * cos * cos
	a := (toRad(g.Lon) - t.lon0) * cos
	m := t.meridianArc(phi)

	x := t.k0 * n * (a +
		(1-tt+c)*math.Pow(a, 3)/6 +
		(5-18*tt+tt*tt+72*c-58*t.ep2)*math.Pow(a, 5)/120)
	y := t.k0 * (m - t.m0 + n*tan*(a*a/2+
		(5-tt+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*tt+tt*tt+600*c-330*t.ep2)*math.Pow(a, 6)/720))

	return domain.ProjectedPoint{Easting: x + t.fe, Northing: y + t.fn}
}

func (t transverseMercator) inverse(p domain.ProjectedPoint) domain.GeoPoint {
	x := p.Easting - t.fe
	y := p.Northing - t.fn

	m := t.m0 + y/t.k0
	mu := m / (t.a * (1 - t.e2/4 - 3*t.e4/64 - 5*t.e6/256))
	e1 := t.e1
	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sin1, cos1 := math.Sincos(phi1)
	tan1 := sin1 / cos1
	c1 := t.ep2 * cos1 * cos1
	t1 := tan1 * tan1
	w := 1 - t.e2*sin1*sin1
	n1 := t.a / math.Sqrt(w)
	r1 := t.a * (1 - t.e2) / math.Pow(w, 1.5)
	d := x / (n1 * t.k0)

	phi := phi1 - (n1*tan1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*t.ep2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*t.ep2-3*c1*c1)*math.Pow(d, 6)/720)
	lam := t.lon0 + (d-
		(1+2*t1+c1)*math.Pow(d, 3)/6+
		(5-2*c1+28*t1-3*c1*c1+8*t.ep2+24*t1*t1)*math.Pow(d, 5)/120)/cos1

	return domain.GeoPoint{Lat: toDeg(phi), Lon: toDeg(lam)}
}

func firstNonFinite(vals ...float64) float64 {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}
