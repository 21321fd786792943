package profsim

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Strategy labels reported in ClusteringReport.Algorithm.
const (
	algorithmDensity   = "density"
	algorithmPartition = "partition"
)

const (
	noiseLabel        = -1
	defaultDBSCANEps  = 0.5
	kmeansMaxIter     = 100
	kmeansTolerance   = 1e-4
	kmeansSeed        = 42
	maxReducedDim     = 50
	minPartitionCount = 3
	maxPartitionCount = 15
)

// ClusterMember is a faculty record with its final cluster assignment.
type ClusterMember struct {
	Faculty
	ClusterID   int     `json:"cluster_id"`
	Probability float64 `json:"cluster_probability"`
}

// ClusterGroup is one cluster with its members.
type ClusterGroup struct {
	ClusterID int             `json:"cluster_id"`
	Size      int             `json:"size"`
	Members   []ClusterMember `json:"members"`
}

// ClusteringReport is the full result of one clustering run. Silhouette is
// -1 when fewer than two distinct labels were produced. The sum of all group
// sizes plus Outliers equals the number of input records.
type ClusteringReport struct {
	Clusters      []ClusterGroup `json:"clusters"`
	Outliers      int            `json:"outliers"`
	TotalClusters int            `json:"total_clusters"`
	Silhouette    float64        `json:"silhouette_score"`
	Algorithm     string         `json:"algorithm_used"`
}

// DimensionalityReducer projects the rows of an n x d matrix into dim
// columns.
type DimensionalityReducer interface {
	Reduce(m *mat.Dense, dim int) (*mat.Dense, error)
}

// DensityClusterer labels each row with a non-negative cluster id, or -1 for
// noise, and reports a per-point membership confidence in [0, 1].
type DensityClusterer interface {
	Cluster(m *mat.Dense, minClusterSize int) (labels []int, probabilities []float64, err error)
}

// PartitionClusterer assigns every row to one of k clusters.
type PartitionClusterer interface {
	Partition(m *mat.Dense, k int) ([]int, error)
}

// SilhouetteScorer rates a labeling of the rows of m. Higher is better.
type SilhouetteScorer interface {
	Score(m *mat.Dense, labels []int) float64
}

// ClusterEngine runs the two-phase clustering pipeline: density-based
// clustering first, partition-based clustering as the fallback when the
// density pass finds fewer than two clusters.
type ClusterEngine struct {
	reducer    DimensionalityReducer
	density    DensityClusterer
	partition  PartitionClusterer
	silhouette SilhouetteScorer
}

// EngineOption overrides one of the engine's numerical primitives.
type EngineOption func(*ClusterEngine)

func WithReducer(r DimensionalityReducer) EngineOption {
	return func(e *ClusterEngine) { e.reducer = r }
}

func WithDensityClusterer(c DensityClusterer) EngineOption {
	return func(e *ClusterEngine) { e.density = c }
}

func WithPartitionClusterer(c PartitionClusterer) EngineOption {
	return func(e *ClusterEngine) { e.partition = c }
}

func WithSilhouetteScorer(s SilhouetteScorer) EngineOption {
	return func(e *ClusterEngine) { e.silhouette = s }
}

// NewClusterEngine creates an engine with the default primitives: PCA
// reduction, DBSCAN, seeded k-means and euclidean silhouette scoring.
func NewClusterEngine(opts ...EngineOption) *ClusterEngine {
	e := &ClusterEngine{
		reducer:    PCAReducer{},
		density:    &DBSCAN{Eps: defaultDBSCANEps},
		partition:  &KMeans{MaxIterations: kmeansMaxIter, Tolerance: kmeansTolerance, Seed: kmeansSeed},
		silhouette: EuclideanSilhouette{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cluster groups faculty by embedding similarity and reports the result.
// It fails when there are fewer records than minClusterSize or when any
// numerical primitive faults; there are no partial reports.
func (e *ClusterEngine) Cluster(embeddings [][]float64, faculty []Faculty, minClusterSize int) (*ClusteringReport, error) {
	if err := ValidateEmbeddings(embeddings, len(faculty)); err != nil {
		return nil, err
	}
	n := len(embeddings)
	if n < minClusterSize {
		return nil, fmt.Errorf("%w: %d records is fewer than min_cluster_size %d", ErrClustering, n, minClusterSize)
	}

	data := denseFromRows(embeddings)
	standardizeColumns(data)

	targetDim := maxReducedDim
	if targetDim > n-1 {
		targetDim = n - 1
	}
	if _, d := data.Dims(); targetDim > d {
		targetDim = d
	}
	if targetDim < 1 {
		targetDim = 1
	}
	reduced, err := e.reducer.Reduce(data, targetDim)
	if err != nil {
		return nil, fmt.Errorf("%w: dimensionality reduction: %v", ErrClustering, err)
	}

	labels, probabilities, err := e.density.Cluster(reduced, minClusterSize)
	if err != nil {
		return nil, fmt.Errorf("%w: density clustering: %v", ErrClustering, err)
	}

	algorithm := algorithmDensity
	if countNonNoiseClusters(labels) < 2 {
		// The density pass found no usable structure. Re-cluster with a
		// hard partition; every point gets full membership and no point
		// is left as noise.
		k := clampInt(n/10, minPartitionCount, maxPartitionCount)
		labels, err = e.partition.Partition(reduced, k)
		if err != nil {
			return nil, fmt.Errorf("%w: partition clustering: %v", ErrClustering, err)
		}
		probabilities = make([]float64, n)
		for i := range probabilities {
			probabilities[i] = 1.0
		}
		algorithm = algorithmPartition
	}

	quality := -1.0
	if countDistinctLabels(labels) > 1 {
		quality = e.silhouette.Score(reduced, labels)
	}

	return buildReport(faculty, labels, probabilities, quality, algorithm), nil
}

// countNonNoiseClusters counts distinct non-negative labels.
func countNonNoiseClusters(labels []int) int {
	seen := make(map[int]struct{})
	for _, label := range labels {
		if label != noiseLabel {
			seen[label] = struct{}{}
		}
	}
	return len(seen)
}

// countDistinctLabels counts distinct labels, noise included. The quality
// score is defined as soon as two labels of any kind are present.
func countDistinctLabels(labels []int) int {
	seen := make(map[int]struct{})
	for _, label := range labels {
		seen[label] = struct{}{}
	}
	return len(seen)
}

// buildReport groups records by label, drops noise into the outlier
// counter, orders clusters largest-first and renumbers them 0..k-1.
func buildReport(faculty []Faculty, labels []int, probabilities []float64, quality float64, algorithm string) *ClusteringReport {
	memberIndices := make(map[int][]int)
	var labelOrder []int
	outliers := 0

	for i, label := range labels {
		if label == noiseLabel {
			outliers++
			continue
		}
		if _, seen := memberIndices[label]; !seen {
			labelOrder = append(labelOrder, label)
		}
		memberIndices[label] = append(memberIndices[label], i)
	}

	groups := make([]ClusterGroup, 0, len(labelOrder))
	for _, label := range labelOrder {
		indices := memberIndices[label]
		group := ClusterGroup{Size: len(indices), Members: make([]ClusterMember, 0, len(indices))}
		for _, idx := range indices {
			group.Members = append(group.Members, ClusterMember{
				Faculty:     faculty[idx],
				Probability: probabilities[idx],
			})
		}
		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Size > groups[j].Size
	})
	for i := range groups {
		groups[i].ClusterID = i
		for j := range groups[i].Members {
			groups[i].Members[j].ClusterID = i
		}
	}

	return &ClusteringReport{
		Clusters:      groups,
		Outliers:      outliers,
		TotalClusters: len(groups),
		Silhouette:    quality,
		Algorithm:     algorithm,
	}
}

// denseFromRows copies row vectors into a gonum matrix.
func denseFromRows(rows [][]float64) *mat.Dense {
	n := len(rows)
	d := len(rows[0])
	m := mat.NewDense(n, d, nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

// standardizeColumns rescales each column in place to zero mean and unit
// variance. Constant columns are centered only.
func standardizeColumns(m *mat.Dense) {
	n, d := m.Dims()
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, m)
		mean, stdDev := stat.MeanStdDev(col, nil)
		if stdDev == 0 || math.IsNaN(stdDev) {
			stdDev = 1
		}
		for i := 0; i < n; i++ {
			m.Set(i, j, (col[i]-mean)/stdDev)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PCAReducer projects rows onto their leading principal components.
type PCAReducer struct{}

func (PCAReducer) Reduce(m *mat.Dense, dim int) (*mat.Dense, error) {
	n, d := m.Dims()
	if limit := min(n, d); dim > limit {
		dim = limit
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}
	var vectors mat.Dense
	pc.VectorsTo(&vectors)

	reduced := mat.NewDense(n, dim, nil)
	reduced.Mul(m, vectors.Slice(0, d, 0, dim))
	return reduced, nil
}

// DBSCAN is the density-based clusterer: points within Eps (euclidean) of a
// core point grow a cluster, everything else is noise. Membership confidence
// is the point's cosine similarity to its cluster centroid, clamped to
// [0, 1]; noise points carry 0.
type DBSCAN struct {
	Eps float64
}

func (c *DBSCAN) Cluster(m *mat.Dense, minClusterSize int) ([]int, []float64, error) {
	n, _ := m.Dims()
	if minClusterSize < 1 {
		return nil, nil, fmt.Errorf("min cluster size must be positive, got %d", minClusterSize)
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = noiseLabel
	}
	visited := make([]bool, n)
	currentCluster := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := c.findNeighbors(m, i)
		if len(neighbors) < minClusterSize {
			labels[i] = noiseLabel
			continue
		}
		c.expandCluster(m, i, neighbors, currentCluster, minClusterSize, visited, labels)
		currentCluster++
	}

	return labels, c.membershipProbabilities(m, labels), nil
}

// findNeighbors returns the indices of all points within Eps of point i,
// the point itself included. DBSCAN counts the core point toward the
// minimum neighborhood size.
func (c *DBSCAN) findNeighbors(m *mat.Dense, i int) []int {
	n, _ := m.Dims()
	point := m.RawRowView(i)
	var neighbors []int
	for j := 0; j < n; j++ {
		if floats.Distance(point, m.RawRowView(j), 2) <= c.Eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

func (c *DBSCAN) expandCluster(m *mat.Dense, pointIdx int, neighbors []int, clusterID, minClusterSize int, visited []bool, labels []int) {
	labels[pointIdx] = clusterID

	queued := make(map[int]bool, len(neighbors))
	for _, idx := range neighbors {
		queued[idx] = true
	}

	for i := 0; i < len(neighbors); i++ {
		idx := neighbors[i]
		if !visited[idx] {
			visited[idx] = true
			next := c.findNeighbors(m, idx)
			if len(next) >= minClusterSize {
				for _, candidate := range next {
					if !queued[candidate] {
						queued[candidate] = true
						neighbors = append(neighbors, candidate)
					}
				}
			}
		}
		if labels[idx] == noiseLabel {
			labels[idx] = clusterID
		}
	}
}

// membershipProbabilities scores each clustered point by its cosine
// similarity to the cluster centroid.
func (c *DBSCAN) membershipProbabilities(m *mat.Dense, labels []int) []float64 {
	n, d := m.Dims()

	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for i, label := range labels {
		if label == noiseLabel {
			continue
		}
		if sums[label] == nil {
			sums[label] = make([]float64, d)
		}
		floats.Add(sums[label], m.RawRowView(i))
		counts[label]++
	}

	centroids := make(map[int][]float64, len(sums))
	for label, sum := range sums {
		centroid := make([]float64, d)
		copy(centroid, sum)
		floats.Scale(1/float64(counts[label]), centroid)
		centroids[label] = centroid
	}

	probabilities := make([]float64, n)
	for i, label := range labels {
		if label == noiseLabel {
			continue
		}
		similarity := CosineSimilarity(m.RawRowView(i), centroids[label])
		probabilities[i] = math.Min(1, math.Max(0, similarity))
	}
	return probabilities
}

// KMeans is the partition-based fallback clusterer with k-means++
// initialization. A fixed seed keeps runs reproducible for a given input.
type KMeans struct {
	MaxIterations int
	Tolerance     float64
	Seed          int64
}

func (c *KMeans) Partition(m *mat.Dense, k int) ([]int, error) {
	n, _ := m.Dims()
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(c.Seed))
	centroids := c.initializeCentroids(m, k, rng)

	assignments := make([]int, n)
	for iteration := 0; iteration < c.MaxIterations; iteration++ {
		next := assignToCentroids(m, centroids)

		converged := true
		for i := range assignments {
			if assignments[i] != next[i] {
				converged = false
				break
			}
		}
		assignments = next
		if converged && iteration > 0 {
			break
		}

		updated := recomputeCentroids(m, assignments, centroids)
		change := 0.0
		for i := 0; i < k; i++ {
			change += floats.Distance(centroids.RawRowView(i), updated.RawRowView(i), 2)
		}
		centroids = updated
		if change/float64(k) < c.Tolerance {
			break
		}
	}
	return assignments, nil
}

// initializeCentroids seeds k-means with the k-means++ scheme: the first
// centroid is a random point, each further centroid is drawn with
// probability proportional to its squared distance to the nearest chosen
// centroid.
func (c *KMeans) initializeCentroids(m *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := m.Dims()
	centroids := mat.NewDense(k, d, nil)
	centroids.SetRow(0, m.RawRowView(rng.Intn(n)))

	distances := make([]float64, n)
	for i := 1; i < k; i++ {
		total := 0.0
		for j := 0; j < n; j++ {
			point := m.RawRowView(j)
			minDist := math.Inf(1)
			for chosen := 0; chosen < i; chosen++ {
				if dist := floats.Distance(point, centroids.RawRowView(chosen), 2); dist < minDist {
					minDist = dist
				}
			}
			distances[j] = minDist * minDist
			total += distances[j]
		}

		if total == 0 {
			// All points coincide with a chosen centroid.
			centroids.SetRow(i, m.RawRowView(rng.Intn(n)))
			continue
		}

		target := rng.Float64() * total
		cumulative := 0.0
		for j, dist := range distances {
			cumulative += dist
			if cumulative >= target {
				centroids.SetRow(i, m.RawRowView(j))
				break
			}
		}
	}
	return centroids
}

func assignToCentroids(m, centroids *mat.Dense) []int {
	n, _ := m.Dims()
	k, _ := centroids.Dims()
	assignments := make([]int, n)
	for i := 0; i < n; i++ {
		point := m.RawRowView(i)
		best := 0
		minDist := math.Inf(1)
		for j := 0; j < k; j++ {
			if dist := floats.Distance(point, centroids.RawRowView(j), 2); dist < minDist {
				minDist = dist
				best = j
			}
		}
		assignments[i] = best
	}
	return assignments
}

// recomputeCentroids averages the members of each cluster. A cluster that
// lost all members keeps its previous centroid.
func recomputeCentroids(m *mat.Dense, assignments []int, previous *mat.Dense) *mat.Dense {
	n, d := m.Dims()
	k, _ := previous.Dims()
	centroids := mat.NewDense(k, d, nil)
	counts := make([]int, k)

	for i := 0; i < n; i++ {
		cluster := assignments[i]
		point := m.RawRowView(i)
		for j := 0; j < d; j++ {
			centroids.Set(cluster, j, centroids.At(cluster, j)+point[j])
		}
		counts[cluster]++
	}
	for i := 0; i < k; i++ {
		if counts[i] == 0 {
			centroids.SetRow(i, previous.RawRowView(i))
			continue
		}
		for j := 0; j < d; j++ {
			centroids.Set(i, j, centroids.At(i, j)/float64(counts[i]))
		}
	}
	return centroids
}

// EuclideanSilhouette computes the mean silhouette coefficient over all
// points. Noise points count as their own group, matching how the labeling
// is scored as a whole.
type EuclideanSilhouette struct{}

func (EuclideanSilhouette) Score(m *mat.Dense, labels []int) float64 {
	n, _ := m.Dims()
	if n == 0 {
		return 0
	}

	members := make(map[int][]int)
	for i, label := range labels {
		members[label] = append(members[label], i)
	}
	if len(members) < 2 {
		return 0
	}

	total := 0.0
	for i := 0; i < n; i++ {
		point := m.RawRowView(i)
		own := labels[i]

		// Mean distance to the rest of the point's own cluster.
		a := 0.0
		if size := len(members[own]); size > 1 {
			for _, j := range members[own] {
				if j != i {
					a += floats.Distance(point, m.RawRowView(j), 2)
				}
			}
			a /= float64(size - 1)
		} else {
			// Singleton clusters contribute a zero silhouette.
			continue
		}

		b := math.Inf(1)
		for label, indices := range members {
			if label == own {
				continue
			}
			sum := 0.0
			for _, j := range indices {
				sum += floats.Distance(point, m.RawRowView(j), 2)
			}
			if avg := sum / float64(len(indices)); avg < b {
				b = avg
			}
		}

		if maxAB := math.Max(a, b); maxAB > 0 {
			total += (b - a) / maxAB
		}
	}
	return total / float64(n)
}

type clusterFacultyRequest struct {
	Embeddings     [][]float64 `json:"embeddings" jsonschema:"description=Embedding vectors in faculty_data order"`
	FacultyData    []Faculty   `json:"faculty_data" jsonschema:"description=Faculty records matching embeddings by index"`
	MinClusterSize int         `json:"min_cluster_size,omitempty" jsonschema:"description=Smallest allowed cluster (default 3)"`
}

type clusterFacultyResponse struct {
	Success    bool              `json:"success"`
	Clustering *ClusteringReport `json:"clustering"`
}

var ClusterFacultyCmd = &cobra.Command{
	Use:   "cluster_faculty",
	Short: "Group faculty into topical clusters from their embeddings",
	Run: func(cmd *cobra.Command, args []string) {
		runClusterFaculty(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runClusterFaculty(in io.Reader, out io.Writer) {
	var req clusterFacultyRequest
	if err := decodeRequest(in, &req); err != nil {
		writeError(out, err)
		return
	}

	minClusterSize := req.MinClusterSize
	if minClusterSize <= 0 {
		minClusterSize = defaultMinClusterSize
	}

	faculty, err := ValidateFaculty(req.FacultyData)
	if err != nil {
		writeError(out, err)
		return
	}

	report, err := NewClusterEngine().Cluster(req.Embeddings, faculty, minClusterSize)
	if err != nil {
		writeError(out, err)
		return
	}
	writeResult(out, clusterFacultyResponse{Success: true, Clustering: report})
}
