package wheel

import "lukechampine.com/frand"

// Source produces uniform draws in [0, 1).
type Source interface {
	Float64() float64
}

const float64Mantissa = 1 << 53

type cryptoSource struct{}

// CryptoSource returns a Source backed by a CSPRNG. It is safe for concurrent use.
func CryptoSource() Source {
	return cryptoSource{}
}

func (cryptoSource) Float64() float64 {
	return float64(frand.Uint64n(float64Mantissa)) / float64Mantissa
}
