package seismix

import "math"

// TravelTimeModel predicts the travel time in seconds from an event
// hypocenter to a station for a given phase type. Coordinates are in the
// units of the station coordinate columns (kilometers for the defaults);
// phase types are lowercase.
type TravelTimeModel interface {
	Time(event, station []float64, phase string) float64
}

// TravelTimeFunc adapts a plain function into a TravelTimeModel.
type TravelTimeFunc func(event, station []float64, phase string) float64

func (f TravelTimeFunc) Time(event, station []float64, phase string) float64 {
	return f(event, station, phase)
}

// ConstantVelocity is a homogeneous half-space travel-time model with
// straight rays: time = distance / velocity. "s" phases travel at VS,
// everything else at VP.
type ConstantVelocity struct {
	VP float64
	VS float64
}

// DefaultVelocity returns the crustal defaults: VP = 6.0 km/s with a
// VP/VS ratio of 1.75.
func DefaultVelocity() ConstantVelocity {
	return ConstantVelocity{VP: 6.0, VS: 6.0 / 1.75}
}

func (m ConstantVelocity) Time(event, station []float64, phase string) float64 {
	v := m.VP
	if phase == "s" {
		v = m.VS
	}
	return euclidean(event, station) / v
}

// AmplitudeModel relates event magnitude to the log amplitude observed at
// a station, in both directions: Amplitude predicts the observation from a
// magnitude, Magnitude inverts one observation back to a magnitude
// estimate.
type AmplitudeModel interface {
	Amplitude(mag float64, event, station []float64) float64
	Magnitude(logAmp float64, event, station []float64) float64
}

// MLAttenuation is the local-magnitude attenuation relation of Picozzi et
// al. (2018): logA = C0 + C1*(M - RefMag) + C3*log10(max(dist, MinDist)).
// The distance floor keeps the relation finite for picks at the epicenter.
type MLAttenuation struct {
	C0      float64
	C1      float64
	C3      float64
	RefMag  float64
	MinDist float64
}

// DefaultAttenuation returns the Picozzi et al. (2018) coefficients.
func DefaultAttenuation() MLAttenuation {
	return MLAttenuation{C0: 1.08, C1: 0.93, C3: -1.68, RefMag: 3.5, MinDist: 0.1}
}

func (m MLAttenuation) Amplitude(mag float64, event, station []float64) float64 {
	return m.C0 + m.C1*(mag-m.RefMag) + m.C3*math.Log10(m.dist(event, station))
}

func (m MLAttenuation) Magnitude(logAmp float64, event, station []float64) float64 {
	return (logAmp-m.C0-m.C3*math.Log10(m.dist(event, station)))/m.C1 + m.RefMag
}

func (m MLAttenuation) dist(event, station []float64) float64 {
	return math.Max(euclidean(event, station), m.MinDist)
}

// euclidean is the straight-line distance over the shared leading
// dimensions of a and b.
func euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
