// Package affect defines the affect sample value type shared across the system.
package affect

// Reading is one two-dimensional affect sample produced by an upstream
// perception model: valence (pleasantness of the observed state) and
// arousal (its intensity). Perception models emit values nominally in
// [-1, 1] per axis; no range is enforced here.
//
// Reading is an immutable value type. Every arithmetic method returns a
// new Reading and leaves the receiver untouched.
type Reading struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// Add returns the elementwise sum of r and o.
func (r Reading) Add(o Reading) Reading {
	return Reading{Valence: r.Valence + o.Valence, Arousal: r.Arousal + o.Arousal}
}

// Sub returns the elementwise difference r - o.
func (r Reading) Sub(o Reading) Reading {
	return Reading{Valence: r.Valence - o.Valence, Arousal: r.Arousal - o.Arousal}
}

// Mul returns the elementwise product of r and o.
func (r Reading) Mul(o Reading) Reading {
	return Reading{Valence: r.Valence * o.Valence, Arousal: r.Arousal * o.Arousal}
}

// Div returns the elementwise quotient r / o. Dividing by a zero
// component is the caller's responsibility to avoid.
func (r Reading) Div(o Reading) Reading {
	return Reading{Valence: r.Valence / o.Valence, Arousal: r.Arousal / o.Arousal}
}

// Scale returns r with both components multiplied by s.
func (r Reading) Scale(s float64) Reading {
	return Reading{Valence: r.Valence * s, Arousal: r.Arousal * s}
}

// DivScale returns r with both components divided by s. Callers only
// divide by counts >= 1.
func (r Reading) DivScale(s float64) Reading {
	return Reading{Valence: r.Valence / s, Arousal: r.Arousal / s}
}

// Columns splits a reading slice into parallel valence and arousal
// series, in order. Used wherever per-axis vector math or plotting
// needs dense float columns.
func Columns(readings []Reading) (valence, arousal []float64) {
	valence = make([]float64, len(readings))
	arousal = make([]float64, len(readings))
	for i, r := range readings {
		valence[i] = r.Valence
		arousal[i] = r.Arousal
	}
	return valence, arousal
}
