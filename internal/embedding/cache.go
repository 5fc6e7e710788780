package embedding

import (
	"context"
	"fmt"
)

// LoadOrGenerate returns the vector for prompt. A stored blob is
// decoded and reused as-is; otherwise a new vector is generated,
// normalized, handed to persist and returned. The bool result reports
// whether generation happened. A malformed stored blob is treated as
// absent and regenerated.
func LoadOrGenerate(
	ctx context.Context,
	blob []byte,
	prompt string,
	provider Provider,
	retry RetryConfig,
	persist func([]float32) error,
) ([]float32, bool, error) {
	if len(blob) > 0 {
		if vec, err := DecodeBlob(blob); err == nil {
			return vec, false, nil
		}
	}

	vectors, err := GenerateWithRetry(ctx, provider, []string{prompt}, retry)
	if err != nil {
		return nil, false, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, false, fmt.Errorf("provider returned no embedding")
	}

	vec := Normalize(vectors[0])
	if err := persist(vec); err != nil {
		return nil, false, fmt.Errorf("persist embedding: %w", err)
	}
	return vec, true, nil
}
