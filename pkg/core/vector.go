// pkg/core/vector.go
package core

// Vector3 is a 3-component vector. For torques the components are
// (pitch, roll, yaw) in the vessel reference frame.
type Vector3 [3]float64

// Add returns the component-wise sum.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Scale multiplies every component by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{v[0] * s, v[1] * s, v[2] * s}
}

// IsZero reports whether all components are zero.
func (v Vector3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// Tensor3 is a 3x3 tensor in row-major order.
type Tensor3 [9]float64

// Diagonal returns the diagonal components.
func (t Tensor3) Diagonal() Vector3 {
	return Vector3{t[0], t[4], t[8]}
}
