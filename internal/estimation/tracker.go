// Package estimation provides an optional smoothing layer for noisy position
// measurements. ADSBLoop does not use it: the loop reads raw vehicle
// snapshots, which the exact-geometry conflict tests rely on, so a Tracker
// only matters when its owner explicitly feeds it noisy measurements (e.g. a
// simulated sensor dropout scenario).
package estimation

import (
	"sync"

	"github.com/arobi/sentinel/internal/geometry"
	"gonum.org/v1/gonum/mat"
)

// state layout: [x y z vx vy vz], constant-velocity model.
const stateDim = 6

// Tracker is a constant-velocity Extended Kalman Filter over one
// aircraft's position and velocity. Position-only measurements (a GPS- or
// ADS-B-style fix) are fused via the standard predict/update cycle.
type Tracker struct {
	mu sync.Mutex

	state      *mat.VecDense
	covariance *mat.SymDense
	processVar float64
	measureVar float64

	seeded bool
}

// Config tunes the filter's noise assumptions.
type Config struct {
	ProcessVariance     float64 // per-axis velocity process noise
	MeasurementVariance float64 // per-axis position measurement noise
}

func (c Config) withDefaults() Config {
	if c.ProcessVariance == 0 {
		c.ProcessVariance = 0.05
	}
	if c.MeasurementVariance == 0 {
		c.MeasurementVariance = 4.0
	}
	return c
}

// New creates a Tracker with uninitialized state; the first Update call
// seeds position directly from the measurement with zero velocity.
func New(cfg Config) *Tracker {
	cfg = cfg.withDefaults()
	t := &Tracker{
		state:      mat.NewVecDense(stateDim, nil),
		covariance: mat.NewSymDense(stateDim, nil),
		processVar: cfg.ProcessVariance,
		measureVar: cfg.MeasurementVariance,
	}
	for i := 0; i < stateDim; i++ {
		t.covariance.SetSym(i, i, 1000.0)
	}
	return t
}

// Predict advances the filter by dt seconds with no new measurement.
func (t *Tracker) Predict(dt float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seeded {
		return
	}
	t.predictLocked(dt)
}

func (t *Tracker) predictLocked(dt float64) {
	F := stateTransition(dt)

	var predicted mat.VecDense
	predicted.MulVec(F, t.state)
	t.state.CopyVec(&predicted)

	var temp mat.Dense
	temp.Mul(F, t.covariance)
	var ft mat.Dense
	ft.CloneFrom(F.T())
	var predictedCov mat.Dense
	predictedCov.Mul(&temp, &ft)

	data := make([]float64, stateDim*stateDim)
	for i := 0; i < stateDim; i++ {
		for j := 0; j < stateDim; j++ {
			v := predictedCov.At(i, j)
			if i == j && i >= 3 {
				v += t.processVar
			}
			data[i*stateDim+j] = v
		}
	}
	t.covariance = symmetrize(data)
}

// Update fuses a position measurement taken dt seconds after the previous
// call (0 on the first call). Position returns the filtered estimate.
func (t *Tracker) Update(position geometry.Vec3, dt float64) geometry.Vec3 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.seeded {
		t.state.SetVec(0, position.X)
		t.state.SetVec(1, position.Y)
		t.state.SetVec(2, position.Z)
		t.seeded = true
		return position
	}

	t.predictLocked(dt)

	H := measurementMatrix()
	z := mat.NewVecDense(3, []float64{position.X, position.Y, position.Z})

	var expected mat.VecDense
	expected.MulVec(H, t.state)
	innovation := mat.NewVecDense(3, nil)
	innovation.SubVec(z, &expected)

	var temp mat.Dense
	temp.Mul(H, t.covariance)
	var ht mat.Dense
	ht.CloneFrom(H.T())
	var s mat.Dense
	s.Mul(&temp, &ht)
	for i := 0; i < 3; i++ {
		s.Set(i, i, s.At(i, i)+t.measureVar)
	}

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return t.positionLocked()
	}

	var k mat.Dense
	var temp2 mat.Dense
	temp2.Mul(t.covariance, &ht)
	k.Mul(&temp2, &sInv)

	var correction mat.VecDense
	correction.MulVec(&k, innovation)
	t.state.AddVec(t.state, &correction)

	var kh mat.Dense
	kh.Mul(&k, H)
	identity := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		identity.Set(i, i, 1.0)
	}
	var iMinusKH mat.Dense
	iMinusKH.Sub(identity, &kh)
	var updatedCov mat.Dense
	updatedCov.Mul(&iMinusKH, t.covariance)

	data := make([]float64, stateDim*stateDim)
	for i := 0; i < stateDim; i++ {
		for j := 0; j < stateDim; j++ {
			data[i*stateDim+j] = updatedCov.At(i, j)
		}
	}
	t.covariance = symmetrize(data)

	return t.positionLocked()
}

// Position returns the filter's current position estimate.
func (t *Tracker) Position() geometry.Vec3 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

func (t *Tracker) positionLocked() geometry.Vec3 {
	return geometry.Vec3{X: t.state.AtVec(0), Y: t.state.AtVec(1), Z: t.state.AtVec(2)}
}

// Velocity returns the filter's current velocity estimate.
func (t *Tracker) Velocity() geometry.Vec3 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return geometry.Vec3{X: t.state.AtVec(3), Y: t.state.AtVec(4), Z: t.state.AtVec(5)}
}

func stateTransition(dt float64) *mat.Dense {
	f := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		f.Set(i, i, 1.0)
	}
	f.Set(0, 3, dt)
	f.Set(1, 4, dt)
	f.Set(2, 5, dt)
	return f
}

func measurementMatrix() *mat.Dense {
	h := mat.NewDense(3, stateDim, nil)
	h.Set(0, 0, 1.0)
	h.Set(1, 1, 1.0)
	h.Set(2, 2, 1.0)
	return h
}

func symmetrize(data []float64) *mat.SymDense {
	sym := make([]float64, stateDim*stateDim)
	for i := 0; i < stateDim; i++ {
		for j := i; j < stateDim; j++ {
			v := (data[i*stateDim+j] + data[j*stateDim+i]) / 2
			sym[i*stateDim+j] = v
			sym[j*stateDim+i] = v
		}
	}
	return mat.NewSymDense(stateDim, sym)
}
