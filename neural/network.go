// Package neural provides the feedforward decision networks that drive agents.
package neural

import (
	"fmt"
	"math"
	"math/rand"
)

// Network is a feedforward net with two ReLU hidden layers and a softmax
// output. Weight matrices are stored row-major as [out][in]. A network is
// immutable for the lifetime of a generation: the genetic operators return
// fresh networks instead of editing in place.
type Network struct {
	NumInputs  int
	Hidden1    int
	Hidden2    int
	NumOutputs int

	W1 [][]float64 // input -> hidden1
	B1 []float64
	W2 [][]float64 // hidden1 -> hidden2
	B2 []float64
	W3 [][]float64 // hidden2 -> output
	B3 []float64
}

// New creates a randomly initialized network. Weights are drawn uniformly
// from [-initScale, initScale]; biases start at zero.
func New(numInputs, hidden1, hidden2, numOutputs int, initScale float64, rng *rand.Rand) *Network {
	n := newZero(numInputs, hidden1, hidden2, numOutputs)

	initMatrix := func(m [][]float64) {
		for i := range m {
			for j := range m[i] {
				m[i][j] = (rng.Float64()*2 - 1) * initScale
			}
		}
	}
	initMatrix(n.W1)
	initMatrix(n.W2)
	initMatrix(n.W3)

	return n
}

// newZero allocates a network of the given shape with all parameters zero.
func newZero(numInputs, hidden1, hidden2, numOutputs int) *Network {
	return &Network{
		NumInputs:  numInputs,
		Hidden1:    hidden1,
		Hidden2:    hidden2,
		NumOutputs: numOutputs,
		W1:         zeroMatrix(hidden1, numInputs),
		B1:         make([]float64, hidden1),
		W2:         zeroMatrix(hidden2, hidden1),
		B2:         make([]float64, hidden2),
		W3:         zeroMatrix(numOutputs, hidden2),
		B3:         make([]float64, numOutputs),
	}
}

func zeroMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// Forward computes the action distribution for a sensory vector.
// The result is a softmax distribution of length NumOutputs.
// An input length mismatch is a programming error and panics.
func (n *Network) Forward(inputs []float64) []float64 {
	if len(inputs) != n.NumInputs {
		panic(fmt.Sprintf("neural: input length %d does not match network input size %d", len(inputs), n.NumInputs))
	}

	h1 := make([]float64, n.Hidden1)
	for i := 0; i < n.Hidden1; i++ {
		sum := n.B1[i]
		row := n.W1[i]
		for j := 0; j < n.NumInputs; j++ {
			sum += row[j] * inputs[j]
		}
		h1[i] = relu(sum)
	}

	h2 := make([]float64, n.Hidden2)
	for i := 0; i < n.Hidden2; i++ {
		sum := n.B2[i]
		row := n.W2[i]
		for j := 0; j < n.Hidden1; j++ {
			sum += row[j] * h1[j]
		}
		h2[i] = relu(sum)
	}

	logits := make([]float64, n.NumOutputs)
	for i := 0; i < n.NumOutputs; i++ {
		sum := n.B3[i]
		row := n.W3[i]
		for j := 0; j < n.Hidden2; j++ {
			sum += row[j] * h2[j]
		}
		logits[i] = sum
	}

	softmaxInPlace(logits)
	return logits
}

// Argmax returns the index of the largest value. Ties resolve to the lowest
// index so a fixed network stays deterministic for a fixed input.
func Argmax(dist []float64) int {
	best := 0
	for i := 1; i < len(dist); i++ {
		if dist[i] > dist[best] {
			best = i
		}
	}
	return best
}

// Clone creates a deep copy of the network. Genomes never alias between
// agents, so every matrix is copied.
func (n *Network) Clone() *Network {
	c := newZero(n.NumInputs, n.Hidden1, n.Hidden2, n.NumOutputs)
	copyMatrix(c.W1, n.W1)
	copy(c.B1, n.B1)
	copyMatrix(c.W2, n.W2)
	copy(c.B2, n.B2)
	copyMatrix(c.W3, n.W3)
	copy(c.B3, n.B3)
	return c
}

func copyMatrix(dst, src [][]float64) {
	for i := range src {
		copy(dst[i], src[i])
	}
}

// NumParams returns the flattened parameter count.
func (n *Network) NumParams() int {
	return n.Hidden1*n.NumInputs + n.Hidden1 +
		n.Hidden2*n.Hidden1 + n.Hidden2 +
		n.NumOutputs*n.Hidden2 + n.NumOutputs
}

// Flatten appends all weights and biases to a single slice in the fixed
// order W1, B1, W2, B2, W3, B3.
func (n *Network) Flatten() []float64 {
	flat := make([]float64, 0, n.NumParams())
	for _, row := range n.W1 {
		flat = append(flat, row...)
	}
	flat = append(flat, n.B1...)
	for _, row := range n.W2 {
		flat = append(flat, row...)
	}
	flat = append(flat, n.B2...)
	for _, row := range n.W3 {
		flat = append(flat, row...)
	}
	flat = append(flat, n.B3...)
	return flat
}

// SetFlat restores all weights and biases from a flat parameter slice in the
// order produced by Flatten. The length must match exactly.
func (n *Network) SetFlat(params []float64) error {
	if len(params) != n.NumParams() {
		return fmt.Errorf("neural: parameter vector length %d does not match network size %d", len(params), n.NumParams())
	}

	idx := 0
	take := func(dst []float64) {
		copy(dst, params[idx:idx+len(dst)])
		idx += len(dst)
	}

	for i := range n.W1 {
		take(n.W1[i])
	}
	take(n.B1)
	for i := range n.W2 {
		take(n.W2[i])
	}
	take(n.B2)
	for i := range n.W3 {
		take(n.W3[i])
	}
	take(n.B3)
	return nil
}

// SameShape reports whether two networks share layer dimensions.
func (n *Network) SameShape(other *Network) bool {
	return n.NumInputs == other.NumInputs &&
		n.Hidden1 == other.Hidden1 &&
		n.Hidden2 == other.Hidden2 &&
		n.NumOutputs == other.NumOutputs
}

// Crossover splices two parents at the given split index of their flattened
// parameter sequences: the child takes a's prefix [0,split) and b's suffix
// [split,len). Both parents are left untouched. Mismatched shapes or an
// out-of-range split are programming errors.
func Crossover(a, b *Network, split int) *Network {
	if !a.SameShape(b) {
		panic("neural: crossover parents have different shapes")
	}
	fa := a.Flatten()
	fb := b.Flatten()
	if split < 0 || split > len(fa) {
		panic(fmt.Sprintf("neural: crossover split %d out of range [0,%d]", split, len(fa)))
	}

	child := make([]float64, len(fa))
	copy(child[:split], fa[:split])
	copy(child[split:], fb[split:])

	out := newZero(a.NumInputs, a.Hidden1, a.Hidden2, a.NumOutputs)
	if err := out.SetFlat(child); err != nil {
		panic(err)
	}
	return out
}

// Mutate returns a copy of the network where each parameter is independently
// perturbed with probability rate by Gaussian noise of the given standard
// deviation. The input network is never modified; generation snapshots stay
// immutable for reproducibility.
func Mutate(n *Network, rate, sigma float64, rng *rand.Rand) *Network {
	out := n.Clone()
	if rate <= 0 {
		return out
	}

	mutateSlice := func(s []float64) {
		for i := range s {
			if rng.Float64() < rate {
				s[i] += rng.NormFloat64() * sigma
			}
		}
	}

	for i := range out.W1 {
		mutateSlice(out.W1[i])
	}
	mutateSlice(out.B1)
	for i := range out.W2 {
		mutateSlice(out.W2[i])
	}
	mutateSlice(out.B2)
	for i := range out.W3 {
		mutateSlice(out.W3[i])
	}
	mutateSlice(out.B3)
	return out
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// softmaxInPlace converts logits to a probability distribution, shifting by
// the max for numerical stability. All-underflow inputs fall back to uniform.
func softmaxInPlace(z []float64) {
	if len(z) == 0 {
		return
	}
	m := z[0]
	for _, v := range z[1:] {
		if v > m {
			m = v
		}
	}
	var sum float64
	for i, v := range z {
		z[i] = math.Exp(v - m)
		sum += z[i]
	}
	if sum == 0 {
		u := 1.0 / float64(len(z))
		for i := range z {
			z[i] = u
		}
		return
	}
	for i := range z {
		z[i] /= sum
	}
}
