package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"math"

	"github.com/matzehuels/sgtsnepi/pkg/knn"
	"github.com/matzehuels/sgtsnepi/pkg/sparse"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashGraph returns the content hash of a graph's CSR arrays.
func HashGraph(g *sparse.Graph) string {
	h := sha256.New()
	writeInt(h, "graph", g.N)
	writeInts(h, g.RowPtr)
	writeInts(h, g.Col)
	writeFloats(h, g.Val)
	return hex.EncodeToString(h.Sum(nil))
}

// HashPoints returns the content hash of a point cloud.
func HashPoints(x knn.PointCloud) string {
	h := sha256.New()
	writeInt(h, "points", x.N)
	writeInt(h, "", x.D)
	writeFloats(h, x.Data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashFloats returns the content hash of a float slice.
func HashFloats(v []float64) string {
	h := sha256.New()
	writeFloats(h, v)
	return hex.EncodeToString(h.Sum(nil))
}

func writeInt(h hash.Hash, tag string, v int) {
	h.Write([]byte(tag))
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	h.Write(b[:])
}

func writeInts(h hash.Hash, v []int) {
	writeInt(h, "", len(v))
	var b [8]byte
	for _, x := range v {
		binary.LittleEndian.PutUint64(b[:], uint64(x))
		h.Write(b[:])
	}
}

func writeFloats(h hash.Hash, v []float64) {
	writeInt(h, "", len(v))
	var b [8]byte
	for _, x := range v {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
		h.Write(b[:])
	}
}
