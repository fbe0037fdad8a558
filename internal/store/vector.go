package store

import (
	"database/sql"
	"encoding/json"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"gonum.org/v1/gonum/floats"
)

// Embeddings are stored twice: JSON-encoded in materials.embedding (source
// of truth) and unit-normalized float32 in the material_vec index. On
// normalized vectors L2 distance maps to cosine distance:
//   cosine_dist = L2² / 2
// so similarity = 1 - cosine_dist = 1 - L2²/2.

func encodeEmbedding(emb []float64) []byte {
	if len(emb) == 0 {
		return nil
	}
	b, err := json.Marshal(emb)
	if err != nil {
		return nil
	}
	return b
}

func decodeEmbedding(b []byte) []float64 {
	if len(b) == 0 {
		return nil
	}
	var emb []float64
	if err := json.Unmarshal(b, &emb); err != nil {
		return nil
	}
	return emb
}

// upsertVecRow writes one embedding into the material_vec index. vec0 does
// not reliably support INSERT OR REPLACE; delete then insert.
func (s *Store) upsertVecRow(db *sql.DB, rowid int64, materialID string, embJSON []byte) error {
	emb := decodeEmbedding(embJSON)
	if len(emb) != s.dim {
		return nil // wrong dimension, leave it to the scan fallback
	}
	serialized, err := sqlite_vec.SerializeFloat32(normalizeFloat32(toFloat32(emb)))
	if err != nil {
		return err
	}
	db.Exec(`DELETE FROM material_vec WHERE rowid = ?`, rowid)
	_, err = db.Exec(`INSERT INTO material_vec(rowid, embedding, material_id) VALUES (?, ?, ?)`,
		rowid, serialized, materialID)
	return err
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// normalizeFloat32 returns a unit-length copy of the vector
func normalizeFloat32(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// l2ToSimilarity converts an L2 distance on normalized vectors to cosine
// similarity: 1 - L2²/2
func l2ToSimilarity(l2 float64) float64 {
	return 1.0 - (l2*l2)/2.0
}

// cosineSimilarity is the Go-side fallback when the vec index is unavailable
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
