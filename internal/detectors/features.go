package detectors

import "math"

const histogramBins = 16

// featuresOf reduces a raw audio sample to a fixed-size vector: a
// normalized byte histogram plus mean energy. It is a stand-in for a real
// acoustic embedding but stable enough for similarity comparisons.
func featuresOf(sample []byte) []float64 {
	features := make([]float64, histogramBins+1)
	if len(sample) == 0 {
		return features
	}

	var energy float64
	for _, b := range sample {
		features[int(b)/(256/histogramBins)]++
		energy += float64(b)
	}
	for i := 0; i < histogramBins; i++ {
		features[i] /= float64(len(sample))
	}
	features[histogramBins] = energy / float64(len(sample)) / 255
	return features
}

// cosine returns the cosine similarity of two equal-length vectors in
// [0,1] for non-negative inputs.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// euclidean returns the euclidean distance of two equal-length vectors.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func centroid(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i := range v {
			out[i] += v[i]
		}
	}
	for i := range out {
		out[i] /= float64(len(vectors))
	}
	return out
}
