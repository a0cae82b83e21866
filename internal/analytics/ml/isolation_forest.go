package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// IsolationTree represents a single tree in the Isolation Forest
type IsolationTree struct {
	splitFeature int
	splitValue   float64
	left         *IsolationTree
	right        *IsolationTree
	size         int
	isLeaf       bool
}

// Config holds the forest parameters.
type Config struct {
	// NumTrees is the number of isolation trees in the ensemble.
	NumTrees int
	// SubSampleSize caps the rows drawn (without replacement) for each tree.
	SubSampleSize int
	// MaxDepth limits tree height; 0 derives ceil(log2(sub-sample size)).
	MaxDepth int
	// Seed makes fitting reproducible: the same data and seed give the same trees.
	Seed int64
}

// DefaultConfig returns the ensemble defaults: 100 trees, 256-row sub-samples, seed 42.
func DefaultConfig() Config {
	return Config{
		NumTrees:      100,
		SubSampleSize: 256,
		Seed:          42,
	}
}

// IsolationForest implements the Isolation Forest algorithm for anomaly detection
type IsolationForest struct {
	cfg        Config
	trees      []*IsolationTree
	sampleSize int
	maxDepth   int
	rng        *rand.Rand
}

// DataPoint represents a multi-dimensional data point
type DataPoint struct {
	Features []float64
	Label    string  // Optional label, e.g. the ISO date of a daily value
	Value    float64 // Scalar value used when Features is empty
}

// AnomalyResult contains the anomaly score for one point.
type AnomalyResult struct {
	Score      float64 // 0.0 to 1.0, higher = more anomalous
	IsAnomaly  bool
	PathLength float64
}

// ErrInvalidContamination is returned for contamination outside (0, 0.5].
var ErrInvalidContamination = errors.New("contamination must be in (0, 0.5]")

// NewIsolationForest creates a new Isolation Forest. Zero fields fall back to DefaultConfig.
func NewIsolationForest(cfg Config) *IsolationForest {
	def := DefaultConfig()
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = def.NumTrees
	}
	if cfg.SubSampleSize <= 0 {
		cfg.SubSampleSize = def.SubSampleSize
	}
	return &IsolationForest{cfg: cfg}
}

// normalizeDataPoints ensures every DataPoint has a populated Features slice.
// If Features is empty, [Value] is used as a 1-D feature vector.
func normalizeDataPoints(data []DataPoint) []DataPoint {
	normalized := make([]DataPoint, len(data))
	for i, dp := range data {
		if len(dp.Features) == 0 {
			dp.Features = []float64{dp.Value}
		}
		normalized[i] = dp
	}
	return normalized
}

// Fit trains the forest on data. Each call reseeds the generator, so refitting the same
// data yields the same trees.
func (f *IsolationForest) Fit(data []DataPoint) error {
	f.trees = make([]*IsolationTree, 0, f.cfg.NumTrees)
	f.rng = rand.New(rand.NewSource(f.cfg.Seed))
	if len(data) == 0 {
		return nil
	}

	data = normalizeDataPoints(data)

	f.sampleSize = f.cfg.SubSampleSize
	if f.sampleSize > len(data) {
		f.sampleSize = len(data)
	}
	f.maxDepth = f.cfg.MaxDepth
	if f.maxDepth <= 0 {
		f.maxDepth = int(math.Ceil(math.Log2(math.Max(float64(f.sampleSize), 2))))
	}

	for i := 0; i < f.cfg.NumTrees; i++ {
		sample := f.sampleData(data)
		f.trees = append(f.trees, f.buildTree(sample, 0))
	}
	return nil
}

// Predict calculates the anomaly score for a single data point.
// IsAnomaly is left false; use FitPredict for contamination-based labels.
func (f *IsolationForest) Predict(point DataPoint) AnomalyResult {
	if len(point.Features) == 0 {
		point.Features = []float64{point.Value}
	}
	if len(f.trees) == 0 {
		return AnomalyResult{Score: 0.5}
	}

	totalPathLength := 0.0
	for _, tree := range f.trees {
		totalPathLength += f.pathLength(tree, point, 0)
	}
	avgPathLength := totalPathLength / float64(len(f.trees))

	// score = 2^(-E[h(x)] / c(n))
	c := averagePathLength(f.sampleSize)
	score := 1.0
	if c > 0 {
		score = math.Pow(2, -avgPathLength/c)
	}

	return AnomalyResult{
		Score:      score,
		PathLength: avgPathLength,
	}
}

// BatchPredict predicts anomaly scores for multiple data points
func (f *IsolationForest) BatchPredict(points []DataPoint) []AnomalyResult {
	results := make([]AnomalyResult, len(points))
	for i, point := range points {
		results[i] = f.Predict(point)
	}
	return results
}

// FitPredict fits the forest on data and labels the top contamination share of scores
// as anomalies. A point is anomalous when its score is strictly above the
// (1-contamination) quantile of all scores.
func (f *IsolationForest) FitPredict(data []DataPoint, contamination float64) ([]AnomalyResult, error) {
	if contamination <= 0 || contamination > 0.5 || math.IsNaN(contamination) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidContamination, contamination)
	}
	if err := f.Fit(data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []AnomalyResult{}, nil
	}

	results := f.BatchPredict(normalizeDataPoints(data))
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	threshold := Percentile(scores, 1-contamination)
	for i := range results {
		results[i].IsAnomaly = results[i].Score > threshold
	}
	return results, nil
}

// Percentile returns the q-quantile (0..1) of values using linear interpolation between
// closest ranks.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

// sampleData draws a sub-sample without replacement.
func (f *IsolationForest) sampleData(data []DataPoint) []DataPoint {
	// Fisher-Yates shuffle and take first sampleSize elements
	shuffled := make([]DataPoint, len(data))
	copy(shuffled, data)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := f.rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled[:f.sampleSize]
}

// buildTree recursively builds an isolation tree
func (f *IsolationForest) buildTree(data []DataPoint, depth int) *IsolationTree {
	if len(data) <= 1 || depth >= f.maxDepth || allIdentical(data) {
		return &IsolationTree{
			size:   len(data),
			isLeaf: true,
		}
	}

	numFeatures := len(data[0].Features)
	splitFeature := f.rng.Intn(numFeatures)

	minVal, maxVal := featureRange(data, splitFeature)
	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	left, right := splitData(data, splitFeature, splitValue)

	// If split didn't partition the data, make it a leaf
	if len(left) == 0 || len(right) == 0 {
		return &IsolationTree{
			size:   len(data),
			isLeaf: true,
		}
	}

	return &IsolationTree{
		splitFeature: splitFeature,
		splitValue:   splitValue,
		left:         f.buildTree(left, depth+1),
		right:        f.buildTree(right, depth+1),
		size:         len(data),
	}
}

// pathLength calculates the path length for a data point in a tree
func (f *IsolationForest) pathLength(tree *IsolationTree, point DataPoint, currentDepth int) float64 {
	if tree.isLeaf {
		// Add average path length for remaining points in leaf
		return float64(currentDepth) + averagePathLength(tree.size)
	}

	if point.Features[tree.splitFeature] < tree.splitValue {
		return f.pathLength(tree.left, point, currentDepth+1)
	}
	return f.pathLength(tree.right, point, currentDepth+1)
}

// averagePathLength is c(n), the average path length of an unsuccessful BST search.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}

	// c(n) = 2H(n-1) - (2(n-1)/n)
	return 2*harmonicNumber(n-1) - (2 * float64(n-1) / float64(n))
}

// harmonicNumber approximates H(n) ≈ ln(n) + γ.
func harmonicNumber(n int) float64 {
	return math.Log(float64(n)) + 0.5772156649
}

func allIdentical(data []DataPoint) bool {
	if len(data) <= 1 {
		return true
	}

	first := data[0].Features
	for i := 1; i < len(data); i++ {
		for j := range first {
			if math.Abs(data[i].Features[j]-first[j]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

func featureRange(data []DataPoint, feature int) (float64, float64) {
	minVal := data[0].Features[feature]
	maxVal := data[0].Features[feature]

	for _, point := range data {
		val := point.Features[feature]
		if val < minVal {
			minVal = val
		}
		if val > maxVal {
			maxVal = val
		}
	}

	return minVal, maxVal
}

func splitData(data []DataPoint, feature int, splitValue float64) ([]DataPoint, []DataPoint) {
	left := make([]DataPoint, 0)
	right := make([]DataPoint, 0)

	for _, point := range data {
		if point.Features[feature] < splitValue {
			left = append(left, point)
		} else {
			right = append(right, point)
		}
	}

	return left, right
}
