package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Key returns the primary key for a (model, text) pair.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Get returns the stored vector for text under model. A row whose vector
// length differs from dim is treated as a miss; dim <= 0 accepts any length.
func (db *DB) Get(ctx context.Context, model, text string, dim int) ([]float32, bool, error) {
	var blob []byte
	var length int
	err := db.QueryRow(ctx, `
		SELECT vector, vec_length(vector) FROM embeddings
		WHERE key = ? AND model = ?
	`, Key(model, text), model).Scan(&blob, &length)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read embedding: %w", err)
	}

	if dim > 0 && length != dim {
		return nil, false, nil
	}

	vec, err := deserializeFloat32(blob)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Put stores vector for text under model, replacing any previous row.
func (db *DB) Put(ctx context.Context, model, text string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("refusing to store empty embedding")
	}

	serialized, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO embeddings (key, model, dim, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			dim = excluded.dim,
			vector = excluded.vector,
			created_at = CURRENT_TIMESTAMP
	`, Key(model, text), model, len(vector), serialized)
	if err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}
	return nil
}

// Count returns the number of stored embeddings.
func (db *DB) Count(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

// deserializeFloat32 is the inverse of sqlite_vec.SerializeFloat32.
func deserializeFloat32(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
