package seismix

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	// Magnitude estimates are clipped to this range.
	minMagnitude = -2.0
	maxMagnitude = 8.0

	// Components whose responsibility mass falls below this keep their
	// parameters and fade out through their mixing weight.
	minComponentMass = 1e-12

	// Determinant floor for the 2×2 feature covariance.
	minCovarDet = 1e-300

	// Iteration cap for one hypocenter refinement.
	locSolverIterations = 200
)

var log2pi = math.Log(2 * math.Pi)

// MixtureConfig controls the association mixture model.
// Start with [DefaultMixtureConfig] and override the fields you need.
type MixtureConfig struct {
	// Components is the number of event hypotheses. Must be >= 1.
	Components int

	// UseAmplitude adds a magnitude term to each component and a
	// log-amplitude column to the observations. Default: false.
	UseAmplitude bool

	// MaxIter is the maximum number of EM iterations. Set to 0 to
	// default to 100.
	MaxIter int

	// Tol stops the iteration once the change in mean per-pick
	// log-likelihood falls below it. Set to 0 to default to 1e-3.
	Tol float64

	// RegCovar is added to the diagonal of every covariance update to
	// keep components from collapsing onto exact arrivals. Set to 0 to
	// default to 1e-6.
	RegCovar float64

	// MaxCovar caps the diagonal of every covariance update, keeping a
	// single component from swallowing unrelated picks. 0 means no cap.
	// Default: 0.
	MaxCovar float64

	// TravelTime predicts phase travel times. Set to nil to default to
	// DefaultVelocity().
	TravelTime TravelTimeModel

	// Amplitude relates magnitude to observed log amplitude. Only used
	// with UseAmplitude. Set to nil to default to DefaultAttenuation().
	Amplitude AmplitudeModel

	// Bounds optionally confines the hypocenter search: Bounds[j] is the
	// {low, high} interval for station coordinate j. When set, its
	// length must match the station coordinate count.
	Bounds [][2]float64

	// WeightsInit optionally seeds the mixing weights. Shape (K,); the
	// values are normalized to sum to 1.
	WeightsInit []float64

	// CentersInit optionally seeds the component centers. Shape (K, D+1),
	// or (K, D+2) with UseAmplitude: location coordinates, origin time,
	// then magnitude.
	CentersInit *mat.Dense

	// CovariancesInit optionally seeds the feature covariances: K
	// matrices of shape (F, F), where F is 1 or 2 with UseAmplitude.
	CovariancesInit []*mat.SymDense
}

// DefaultMixtureConfig returns a MixtureConfig with the engine's defaults.
func DefaultMixtureConfig() MixtureConfig {
	return MixtureConfig{
		Components: 1,
		MaxIter:    100,
		Tol:        1e-3,
		RegCovar:   1e-6,
		TravelTime: DefaultVelocity(),
		Amplitude:  DefaultAttenuation(),
	}
}

// applyMixtureDefaults fills in zero-valued config fields with their defaults.
func applyMixtureDefaults(cfg *MixtureConfig) {
	if cfg.MaxIter == 0 {
		cfg.MaxIter = 100
	}
	if cfg.Tol == 0 {
		cfg.Tol = 1e-3
	}
	if cfg.RegCovar == 0 {
		cfg.RegCovar = 1e-6
	}
	if cfg.TravelTime == nil {
		cfg.TravelTime = DefaultVelocity()
	}
	if cfg.Amplitude == nil {
		cfg.Amplitude = DefaultAttenuation()
	}
}

func validateMixtureConfig(cfg *MixtureConfig, dims int) error {
	if cfg.Components < 1 {
		return fmt.Errorf("seismix: Components must be >= 1, got %d", cfg.Components)
	}
	if cfg.MaxIter < 1 {
		return fmt.Errorf("seismix: MaxIter must be >= 1, got %d", cfg.MaxIter)
	}
	if cfg.Tol <= 0 || math.IsNaN(cfg.Tol) {
		return fmt.Errorf("seismix: Tol must be > 0, got %f", cfg.Tol)
	}
	if cfg.RegCovar < 0 || math.IsNaN(cfg.RegCovar) {
		return fmt.Errorf("seismix: RegCovar must be >= 0, got %f", cfg.RegCovar)
	}
	if cfg.MaxCovar < 0 {
		return fmt.Errorf("seismix: MaxCovar must be >= 0 (0 means no cap), got %f", cfg.MaxCovar)
	}
	if cfg.Bounds != nil {
		if len(cfg.Bounds) != dims {
			return fmt.Errorf("seismix: Bounds must have one interval per station coordinate, got %d for %d coordinates", len(cfg.Bounds), dims)
		}
		for j, b := range cfg.Bounds {
			if b[0] > b[1] {
				return fmt.Errorf("seismix: Bounds[%d] has low %f > high %f", j, b[0], b[1])
			}
		}
	}
	return nil
}

// GaussianMixture associates phase picks with event hypotheses. Each
// component is one hypothesis: its center holds the hypocenter coordinates,
// the origin time, and (with amplitude features) the magnitude, and its
// covariance describes the residual spread in feature space. A pick's
// likelihood under a component compares the observed arrival time against
// the origin time plus the predicted travel time from the hypocenter to the
// pick's station.
type GaussianMixture struct {
	cfg         MixtureConfig
	stationLocs *mat.Dense
	phaseTypes  []string
	pickWeights []float64
	dims        int
	nFeatures   int
	fitted      bool

	// Weights holds the mixing weight of each component.
	Weights []float64

	// Centers holds one row per component: location coordinates, origin
	// time in epoch seconds, then magnitude when amplitude features are
	// enabled.
	Centers *mat.Dense

	// Covariances holds the feature-space covariance of each component.
	Covariances []*mat.SymDense

	// Converged reports whether the last Fit reached the tolerance
	// before exhausting MaxIter.
	Converged bool

	// Iterations is the number of EM iterations the last Fit ran.
	Iterations int

	// LowerBound is the final mean per-pick log-likelihood.
	LowerBound float64
}

// NewGaussianMixture builds an association model for a fixed set of picks.
// stationLocs has one row per pick (the coordinates of the station that
// recorded it), phaseTypes one phase name per pick, and pickWeights an
// optional non-negative weight per pick (nil means uniform). Observations
// passed to Fit, Predict, and Score must be row-aligned with these slices.
func NewGaussianMixture(cfg MixtureConfig, stationLocs *mat.Dense, phaseTypes []string, pickWeights []float64) (*GaussianMixture, error) {
	applyMixtureDefaults(&cfg)
	if stationLocs == nil {
		return nil, fmt.Errorf("seismix: stationLocs must not be nil")
	}
	n, dims := stationLocs.Dims()
	if err := validateMixtureConfig(&cfg, dims); err != nil {
		return nil, err
	}
	if len(phaseTypes) != n {
		return nil, fmt.Errorf("seismix: got %d phase types for %d picks", len(phaseTypes), n)
	}
	if pickWeights != nil && len(pickWeights) != n {
		return nil, fmt.Errorf("seismix: got %d pick weights for %d picks", len(pickWeights), n)
	}
	for i, w := range pickWeights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("seismix: pick weight %d must be finite and >= 0, got %v", i, w)
		}
	}

	nFeatures := 1
	if cfg.UseAmplitude {
		nFeatures = 2
	}
	centerCols := dims + 1
	if cfg.UseAmplitude {
		centerCols++
	}

	if cfg.WeightsInit != nil {
		if err := checkShape([]int{len(cfg.WeightsInit)}, []int{cfg.Components}, "weights"); err != nil {
			return nil, err
		}
		if floats.Sum(cfg.WeightsInit) <= 0 {
			return nil, fmt.Errorf("seismix: initial weights must sum to a positive value")
		}
	}
	if cfg.CentersInit != nil {
		r, c := cfg.CentersInit.Dims()
		if err := checkShape([]int{r, c}, []int{cfg.Components, centerCols}, "centers"); err != nil {
			return nil, err
		}
	}
	if cfg.CovariancesInit != nil {
		want := []int{cfg.Components, nFeatures, nFeatures}
		if len(cfg.CovariancesInit) != cfg.Components {
			return nil, &ShapeError{Param: "covariances", Want: want, Got: []int{len(cfg.CovariancesInit)}}
		}
		for _, cv := range cfg.CovariancesInit {
			if cv == nil {
				return nil, &ShapeError{Param: "covariances", Want: want, Got: []int{cfg.Components, 0, 0}}
			}
			if r, c := cv.Dims(); r != nFeatures || c != nFeatures {
				return nil, &ShapeError{Param: "covariances", Want: want, Got: []int{cfg.Components, r, c}}
			}
		}
	}

	phases := make([]string, n)
	for i, p := range phaseTypes {
		phases[i] = strings.ToLower(p)
	}
	var weights []float64
	if pickWeights != nil {
		weights = append([]float64(nil), pickWeights...)
	}

	return &GaussianMixture{
		cfg:         cfg,
		stationLocs: mat.DenseCopyOf(stationLocs),
		phaseTypes:  phases,
		pickWeights: weights,
		dims:        dims,
		nFeatures:   nFeatures,
	}, nil
}

// Fit runs EM until the mean per-pick log-likelihood changes by less than
// Tol between iterations or MaxIter is reached. X must have one row per
// pick, aligned with the station rows the model was built with, and at
// least Components rows.
func (g *GaussianMixture) Fit(X mat.Matrix) error {
	obs, err := checkObservations(X, g.cfg.Components, g.nFeatures)
	if err != nil {
		return err
	}
	n, _ := obs.Dims()
	if sr, _ := g.stationLocs.Dims(); n != sr {
		return fmt.Errorf("seismix: observation matrix has %d rows but the model was built for %d picks", n, sr)
	}

	g.initParameters(obs)

	logResp := mat.NewDense(n, g.cfg.Components, nil)
	prev := math.Inf(-1)
	for iter := 1; iter <= g.cfg.MaxIter; iter++ {
		lb := g.eStep(obs, logResp)
		g.mStep(obs, logResp)
		g.Iterations = iter
		g.LowerBound = lb
		if math.Abs(lb-prev) < g.cfg.Tol {
			g.Converged = true
			break
		}
		prev = lb
	}

	g.fitted = true
	return nil
}

// FitPredict fits the model and returns the component assignment of each
// pick.
func (g *GaussianMixture) FitPredict(X mat.Matrix) ([]int, error) {
	if err := g.Fit(X); err != nil {
		return nil, err
	}
	return g.Predict(X)
}

// Predict assigns each observation to the component with the highest
// responsibility. The model must be fitted.
func (g *GaussianMixture) Predict(X mat.Matrix) ([]int, error) {
	resp, err := g.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := resp.Dims()
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		labels[i] = argmax(resp.RawRowView(i))
	}
	return labels, nil
}

// PredictProba returns the responsibility matrix: element (i, k) is the
// posterior probability that pick i belongs to component k. Rows sum to 1.
// The model must be fitted.
func (g *GaussianMixture) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	obs, err := g.checkFitted(X)
	if err != nil {
		return nil, err
	}
	n, _ := obs.Dims()
	logResp := mat.NewDense(n, g.cfg.Components, nil)
	g.eStep(obs, logResp)
	for i := 0; i < n; i++ {
		row := logResp.RawRowView(i)
		for k := range row {
			row[k] = math.Exp(row[k])
		}
	}
	return logResp, nil
}

// Score returns the weighted mean per-pick log-likelihood of X under the
// fitted model.
func (g *GaussianMixture) Score(X mat.Matrix) (float64, error) {
	obs, err := g.checkFitted(X)
	if err != nil {
		return 0, err
	}
	n, _ := obs.Dims()
	logResp := mat.NewDense(n, g.cfg.Components, nil)
	return g.eStep(obs, logResp), nil
}

func (g *GaussianMixture) checkFitted(X mat.Matrix) (*mat.Dense, error) {
	if !g.fitted {
		return nil, fmt.Errorf("seismix: model must be fitted first")
	}
	obs, err := checkObservations(X, 0, g.nFeatures)
	if err != nil {
		return nil, err
	}
	n, _ := obs.Dims()
	if sr, _ := g.stationLocs.Dims(); n != sr {
		return nil, fmt.Errorf("seismix: observation matrix has %d rows but the model was built for %d picks", n, sr)
	}
	return obs, nil
}

// initParameters seeds weights, centers, and covariances for EM. Without
// explicit seeds, components start at the centroid of the participating
// stations with origin times spread evenly across the observed arrival
// range.
func (g *GaussianMixture) initParameters(obs *mat.Dense) {
	n, _ := obs.Dims()
	K := g.cfg.Components
	cols := g.dims + 1
	if g.nFeatures == 2 {
		cols++
	}

	g.Weights = make([]float64, K)
	if g.cfg.WeightsInit != nil {
		sum := floats.Sum(g.cfg.WeightsInit)
		for k := range g.Weights {
			g.Weights[k] = g.cfg.WeightsInit[k] / sum
		}
	} else {
		for k := range g.Weights {
			g.Weights[k] = 1.0 / float64(K)
		}
	}

	g.Centers = mat.NewDense(K, cols, nil)
	if g.cfg.CentersInit != nil {
		g.Centers.Copy(g.cfg.CentersInit)
	} else {
		centroid := make([]float64, g.dims)
		for i := 0; i < n; i++ {
			floats.Add(centroid, g.stationLocs.RawRowView(i))
		}
		floats.Scale(1/float64(n), centroid)
		g.clampToBounds(centroid)

		tMin, tMax := obs.At(0, 0), obs.At(0, 0)
		for i := 1; i < n; i++ {
			t := obs.At(i, 0)
			tMin = math.Min(tMin, t)
			tMax = math.Max(tMax, t)
		}
		for k := 0; k < K; k++ {
			row := g.Centers.RawRowView(k)
			copy(row[:g.dims], centroid)
			if K == 1 {
				row[g.dims] = (tMin + tMax) / 2
			} else {
				row[g.dims] = tMin + (tMax-tMin)*float64(k)/float64(K-1)
			}
		}
	}

	g.Covariances = make([]*mat.SymDense, K)
	for k := range g.Covariances {
		cv := mat.NewSymDense(g.nFeatures, nil)
		if g.cfg.CovariancesInit != nil {
			cv.CopySym(g.cfg.CovariancesInit[k])
		} else {
			for f := 0; f < g.nFeatures; f++ {
				cv.SetSym(f, f, 1)
			}
		}
		g.Covariances[k] = cv
	}

	g.Converged = false
	g.Iterations = 0
	g.LowerBound = math.Inf(-1)
}

// eStep fills logResp with log responsibilities and returns the weighted
// mean per-pick log-likelihood.
func (g *GaussianMixture) eStep(obs *mat.Dense, logResp *mat.Dense) float64 {
	n, _ := obs.Dims()
	K := g.cfg.Components
	row := make([]float64, K)

	var total, weightSum float64
	for i := 0; i < n; i++ {
		for k := 0; k < K; k++ {
			row[k] = math.Log(g.Weights[k]) + g.logProb(obs, i, k)
		}
		norm := floats.LogSumExp(row)
		w := g.weightAt(i)
		total += w * norm
		weightSum += w
		for k := 0; k < K; k++ {
			logResp.Set(i, k, row[k]-norm)
		}
	}
	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}

// mStep re-estimates every component from the pick-weighted
// responsibilities. Starved components keep their parameters and fade out
// through their mixing weight.
func (g *GaussianMixture) mStep(obs *mat.Dense, logResp *mat.Dense) {
	n, _ := obs.Dims()
	K := g.cfg.Components

	resp := make([]float64, n)
	masses := make([]float64, K)
	for k := 0; k < K; k++ {
		var mass float64
		for i := 0; i < n; i++ {
			r := math.Exp(logResp.At(i, k)) * g.weightAt(i)
			resp[i] = r
			mass += r
		}
		masses[k] = mass
		if mass < minComponentMass {
			continue
		}
		g.updateCenter(obs, k, resp, mass)
		g.updateCovariance(obs, k, resp, mass)
	}

	total := floats.Sum(masses)
	if total <= 0 {
		return
	}
	for k := 0; k < K; k++ {
		g.Weights[k] = masses[k] / total
	}
}

// updateCenter refines component k's hypocenter with a Nelder-Mead search
// and recomputes its origin time and magnitude in closed form. For a fixed
// hypocenter the optimal origin time is the responsibility-weighted mean
// of (arrival − travel time), so only the location coordinates need a
// numerical search.
func (g *GaussianMixture) updateCenter(obs *mat.Dense, k int, resp []float64, mass float64) {
	n, _ := obs.Dims()
	center := g.Centers.RawRowView(k)
	loc := append([]float64(nil), center[:g.dims]...)

	cov := g.Covariances[k]
	timeVar := cov.At(0, 0)
	ampVar := 1.0
	if g.nFeatures == 2 {
		ampVar = cov.At(1, 1)
	}

	objective := func(x []float64) float64 {
		t0 := g.originTimeFor(obs, x, resp, mass)
		var mag float64
		if g.nFeatures == 2 {
			mag = g.magnitudeFor(obs, x, resp, mass)
		}
		var sum float64
		for i := 0; i < n; i++ {
			if resp[i] == 0 {
				continue
			}
			sta := g.stationLocs.RawRowView(i)
			dt := obs.At(i, 0) - t0 - g.cfg.TravelTime.Time(x, sta, g.phaseTypes[i])
			sum += resp[i] * dt * dt / timeVar
			if g.nFeatures == 2 {
				da := obs.At(i, 1) - g.cfg.Amplitude.Amplitude(mag, x, sta)
				sum += resp[i] * da * da / ampVar
			}
		}
		return sum
	}

	settings := &optimize.Settings{
		MajorIterations: locSolverIterations,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-8, Iterations: 30},
	}
	result, _ := optimize.Minimize(optimize.Problem{Func: objective}, loc, settings, &optimize.NelderMead{})
	if result != nil && len(result.X) == len(loc) && objective(result.X) <= objective(loc) {
		loc = result.X
	}
	g.clampToBounds(loc)

	copy(center[:g.dims], loc)
	center[g.dims] = g.originTimeFor(obs, loc, resp, mass)
	if g.nFeatures == 2 {
		center[g.dims+1] = g.magnitudeFor(obs, loc, resp, mass)
	}
}

// updateCovariance recomputes component k's feature covariance from the
// residuals under its updated center, floors the diagonal with RegCovar,
// and applies the MaxCovar cap.
func (g *GaussianMixture) updateCovariance(obs *mat.Dense, k int, resp []float64, mass float64) {
	n, _ := obs.Dims()
	var buf [2]float64
	res := buf[:g.nFeatures]

	var c00, c01, c11 float64
	for i := 0; i < n; i++ {
		if resp[i] == 0 {
			continue
		}
		g.residual(obs, i, k, res)
		c00 += resp[i] * res[0] * res[0]
		if g.nFeatures == 2 {
			c01 += resp[i] * res[0] * res[1]
			c11 += resp[i] * res[1] * res[1]
		}
	}
	c00 = c00/mass + g.cfg.RegCovar
	if g.cfg.MaxCovar > 0 {
		c00 = math.Min(c00, g.cfg.MaxCovar)
	}

	cov := g.Covariances[k]
	cov.SetSym(0, 0, c00)
	if g.nFeatures == 2 {
		c11 = c11/mass + g.cfg.RegCovar
		if g.cfg.MaxCovar > 0 {
			c11 = math.Min(c11, g.cfg.MaxCovar)
		}
		// Keep the covariance positive definite after capping.
		c01 /= mass
		if lim := 0.99 * math.Sqrt(c00*c11); math.Abs(c01) > lim {
			c01 = math.Copysign(lim, c01)
		}
		cov.SetSym(1, 1, c11)
		cov.SetSym(0, 1, c01)
	}
}

// originTimeFor returns the responsibility-weighted origin time for a
// candidate hypocenter: the mean of (arrival − predicted travel time).
func (g *GaussianMixture) originTimeFor(obs *mat.Dense, loc, resp []float64, mass float64) float64 {
	n, _ := obs.Dims()
	var sum float64
	for i := 0; i < n; i++ {
		if resp[i] == 0 {
			continue
		}
		sta := g.stationLocs.RawRowView(i)
		sum += resp[i] * (obs.At(i, 0) - g.cfg.TravelTime.Time(loc, sta, g.phaseTypes[i]))
	}
	return sum / mass
}

// magnitudeFor returns the responsibility-weighted magnitude for a
// candidate hypocenter, clipped to [minMagnitude, maxMagnitude].
func (g *GaussianMixture) magnitudeFor(obs *mat.Dense, loc, resp []float64, mass float64) float64 {
	n, _ := obs.Dims()
	var sum float64
	for i := 0; i < n; i++ {
		if resp[i] == 0 {
			continue
		}
		sta := g.stationLocs.RawRowView(i)
		sum += resp[i] * g.cfg.Amplitude.Magnitude(obs.At(i, 1), loc, sta)
	}
	mag := sum / mass
	return math.Min(math.Max(mag, minMagnitude), maxMagnitude)
}

// residual fills res with the feature residuals of pick i under component
// k: arrival minus (origin time + travel time), and observed log amplitude
// minus predicted log amplitude when amplitude features are enabled.
func (g *GaussianMixture) residual(obs *mat.Dense, i, k int, res []float64) {
	center := g.Centers.RawRowView(k)
	loc := center[:g.dims]
	sta := g.stationLocs.RawRowView(i)
	res[0] = obs.At(i, 0) - center[g.dims] - g.cfg.TravelTime.Time(loc, sta, g.phaseTypes[i])
	if g.nFeatures == 2 {
		res[1] = obs.At(i, 1) - g.cfg.Amplitude.Amplitude(center[g.dims+1], loc, sta)
	}
}

// logProb is the log density of pick i under component k's feature
// Gaussian.
func (g *GaussianMixture) logProb(obs *mat.Dense, i, k int) float64 {
	var buf [2]float64
	res := buf[:g.nFeatures]
	g.residual(obs, i, k, res)

	cov := g.Covariances[k]
	if g.nFeatures == 1 {
		v := cov.At(0, 0)
		return -0.5 * (res[0]*res[0]/v + math.Log(v) + log2pi)
	}
	a := cov.At(0, 0)
	b := cov.At(0, 1)
	c := cov.At(1, 1)
	det := a*c - b*b
	if det < minCovarDet {
		det = minCovarDet
	}
	quad := (c*res[0]*res[0] - 2*b*res[0]*res[1] + a*res[1]*res[1]) / det
	return -0.5 * (quad + math.Log(det) + 2*log2pi)
}

func (g *GaussianMixture) weightAt(i int) float64 {
	if g.pickWeights == nil {
		return 1.0
	}
	return g.pickWeights[i]
}

func (g *GaussianMixture) clampToBounds(loc []float64) {
	if g.cfg.Bounds == nil {
		return
	}
	for j := range loc {
		loc[j] = math.Min(math.Max(loc[j], g.cfg.Bounds[j][0]), g.cfg.Bounds[j][1])
	}
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
