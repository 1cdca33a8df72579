package heuristic

// Audio reserves the spectral slot; no combination rule is defined so it always scores Default
type Audio struct{}

// Admit accepts any audio sample
func (Audio) Admit(s Sample) bool {
	switch v := s.(type) {
	case AudioSample:
		return true
	case *AudioSample:
		return v != nil
	}
	return false
}

// Score returns Default
func (Audio) Score(Sample) Score { return Default }
