package neural

import (
	"encoding/json"
	"fmt"
)

// LayerWeights is a named parameter array with its shape. Bias vectors use
// Rows == 1.
type LayerWeights struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// WeightsFile is the serialized form of a network: shape metadata plus every
// layer as a named flat array. It round-trips through JSON for checkpointing.
type WeightsFile struct {
	NumInputs  int            `json:"num_inputs"`
	Hidden1    int            `json:"hidden1"`
	Hidden2    int            `json:"hidden2"`
	NumOutputs int            `json:"num_outputs"`
	Layers     []LayerWeights `json:"layers"`
}

// MarshalWeights serializes the network to JSON.
func (n *Network) MarshalWeights() ([]byte, error) {
	flatten := func(m [][]float64) []float64 {
		out := make([]float64, 0, len(m)*len(m[0]))
		for _, row := range m {
			out = append(out, row...)
		}
		return out
	}

	f := WeightsFile{
		NumInputs:  n.NumInputs,
		Hidden1:    n.Hidden1,
		Hidden2:    n.Hidden2,
		NumOutputs: n.NumOutputs,
		Layers: []LayerWeights{
			{Name: "w1", Rows: n.Hidden1, Cols: n.NumInputs, Data: flatten(n.W1)},
			{Name: "b1", Rows: 1, Cols: n.Hidden1, Data: append([]float64(nil), n.B1...)},
			{Name: "w2", Rows: n.Hidden2, Cols: n.Hidden1, Data: flatten(n.W2)},
			{Name: "b2", Rows: 1, Cols: n.Hidden2, Data: append([]float64(nil), n.B2...)},
			{Name: "w3", Rows: n.NumOutputs, Cols: n.Hidden2, Data: flatten(n.W3)},
			{Name: "b3", Rows: 1, Cols: n.NumOutputs, Data: append([]float64(nil), n.B3...)},
		},
	}
	return json.Marshal(f)
}

// UnmarshalWeights reconstructs a network from the JSON produced by
// MarshalWeights, validating layer names and shapes.
func UnmarshalWeights(data []byte) (*Network, error) {
	var f WeightsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}

	n := newZero(f.NumInputs, f.Hidden1, f.Hidden2, f.NumOutputs)

	layers := make(map[string]LayerWeights, len(f.Layers))
	for _, l := range f.Layers {
		layers[l.Name] = l
	}

	loadMatrix := func(name string, dst [][]float64, rows, cols int) error {
		l, ok := layers[name]
		if !ok {
			return fmt.Errorf("weights: missing layer %q", name)
		}
		if l.Rows != rows || l.Cols != cols || len(l.Data) != rows*cols {
			return fmt.Errorf("weights: layer %q has shape %dx%d (%d values), want %dx%d",
				name, l.Rows, l.Cols, len(l.Data), rows, cols)
		}
		for i := 0; i < rows; i++ {
			copy(dst[i], l.Data[i*cols:(i+1)*cols])
		}
		return nil
	}
	loadVector := func(name string, dst []float64) error {
		l, ok := layers[name]
		if !ok {
			return fmt.Errorf("weights: missing layer %q", name)
		}
		if len(l.Data) != len(dst) {
			return fmt.Errorf("weights: layer %q has %d values, want %d", name, len(l.Data), len(dst))
		}
		copy(dst, l.Data)
		return nil
	}

	if err := loadMatrix("w1", n.W1, n.Hidden1, n.NumInputs); err != nil {
		return nil, err
	}
	if err := loadVector("b1", n.B1); err != nil {
		return nil, err
	}
	if err := loadMatrix("w2", n.W2, n.Hidden2, n.Hidden1); err != nil {
		return nil, err
	}
	if err := loadVector("b2", n.B2); err != nil {
		return nil, err
	}
	if err := loadMatrix("w3", n.W3, n.NumOutputs, n.Hidden2); err != nil {
		return nil, err
	}
	if err := loadVector("b3", n.B3); err != nil {
		return nil, err
	}
	return n, nil
}
