package postprocess

import (
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-detect/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func det(x, y, w, h, class int, score float32) Detection {
	return Detection{Box: images.Box{X: x, Y: y, W: w, H: h}, Class: class, Score: score}
}

func TestSuppress_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		dets   DetectionSet
		config *NMSConfig
		want   RetainedIndices
	}{
		{
			name:   "empty set",
			dets:   DetectionSet{},
			config: nil,
			want:   RetainedIndices{},
		},
		{
			name: "overlap above threshold keeps higher score",
			dets: DetectionSet{
				det(25, 0, 100, 100, 0, 0.6),
				det(0, 0, 100, 100, 0, 0.9), // IoU with the first box is 0.6
			},
			want: RetainedIndices{1},
		},
		{
			name: "overlap below threshold keeps both",
			dets: DetectionSet{
				det(0, 0, 100, 100, 0, 0.55),
				det(80, 0, 100, 100, 0, 0.95), // IoU ~0.11
			},
			want: RetainedIndices{0, 1},
		},
		{
			name: "single detection",
			dets: DetectionSet{det(10, 10, 5, 5, 0, 0.99)},
			want: RetainedIndices{0},
		},
		{
			name: "equal scores favor earlier scan order",
			dets: DetectionSet{
				det(0, 0, 50, 50, 1, 0.8),
				det(0, 0, 50, 50, 2, 0.8),
				det(0, 0, 50, 50, 3, 0.8),
			},
			want: RetainedIndices{0},
		},
		{
			name: "suppressed box does not suppress others",
			dets: DetectionSet{
				det(0, 0, 100, 100, 0, 0.9),
				det(30, 0, 100, 100, 0, 0.8),
				det(60, 0, 100, 100, 0, 0.7),
			},
			want: RetainedIndices{0, 2},
		},
		{
			name: "different classes suppress each other by default",
			dets: DetectionSet{
				det(0, 0, 100, 100, 0, 0.9),
				det(0, 0, 100, 100, 5, 0.8),
			},
			want: RetainedIndices{0},
		},
		{
			name: "class aware keeps different classes",
			dets: DetectionSet{
				det(0, 0, 100, 100, 0, 0.9),
				det(0, 0, 100, 100, 5, 0.8),
				det(0, 0, 100, 100, 5, 0.7),
			},
			config: &NMSConfig{ScoreThreshold: 0.5, IoUThreshold: 0.4, ClassAware: true},
			want:   RetainedIndices{0, 1},
		},
		{
			name: "scores at the threshold are discarded",
			dets: DetectionSet{
				det(0, 0, 10, 10, 0, 0.5),
				det(100, 100, 10, 10, 0, 0.51),
			},
			want: RetainedIndices{1},
		},
		{
			name: "zero area box neither suppresses nor is suppressed",
			dets: DetectionSet{
				det(10, 10, 0, 0, 0, 0.99),
				det(0, 0, 100, 100, 0, 0.9),
				det(5, 5, -3, 20, 0, 0.8),
			},
			want: RetainedIndices{0, 1, 2},
		},
		{
			name: "top k limits survivors",
			dets: DetectionSet{
				det(0, 0, 10, 10, 0, 0.6),
				det(100, 0, 10, 10, 0, 0.9),
				det(200, 0, 10, 10, 0, 0.7),
			},
			config: &NMSConfig{ScoreThreshold: 0.5, IoUThreshold: 0.4, TopK: 2},
			want:   RetainedIndices{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suppress(tt.dets, tt.config)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func randomDetections(r *rand.Rand, n int) DetectionSet {
	dets := make(DetectionSet, n)
	for i := range dets {
		dets[i] = det(
			r.Intn(600)-50, r.Intn(400)-50,
			r.Intn(200), r.Intn(200),
			r.Intn(80),
			float32(r.Intn(1000))/1000,
		)
	}
	return dets
}

func TestSuppress_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	config := DefaultNMSConfig()

	for round := 0; round < 50; round++ {
		dets := randomDetections(r, 1+r.Intn(60))
		kept := Suppress(dets, &config)

		seen := make(map[int]bool, len(kept))
		for _, i := range kept {
			require.GreaterOrEqual(t, i, 0)
			require.Less(t, i, len(dets))
			require.False(t, seen[i], "duplicate index %d", i)
			require.Greater(t, dets[i].Score, config.ScoreThreshold)
			seen[i] = true
		}

		// Survivors never overlap each other beyond the threshold, so running
		// suppression again keeps all of them.
		survivors := dets.Select(kept)
		again := Suppress(survivors, &config)
		require.Len(t, again, len(survivors))
		for i := range survivors {
			assert.Equal(t, i, again[i])
		}
	}
}

func TestSuppress_DoesNotReorderInput(t *testing.T) {
	dets := DetectionSet{
		det(0, 0, 10, 10, 0, 0.6),
		det(0, 0, 10, 10, 0, 0.9),
	}
	before := append(DetectionSet(nil), dets...)

	Suppress(dets, nil)
	assert.Equal(t, before, dets)
}

func TestDetectionSet_Select(t *testing.T) {
	dets := DetectionSet{det(0, 0, 1, 1, 0, 0.6), det(1, 1, 1, 1, 1, 0.7), det(2, 2, 1, 1, 2, 0.8)}

	assert.Equal(t, DetectionSet{dets[0], dets[2]}, dets.Select(RetainedIndices{0, 2}))
	assert.Equal(t, DetectionSet{dets[1]}, dets.Select(RetainedIndices{-1, 1, 9}))
	assert.Empty(t, dets.Select(nil))

	assert.True(t, RetainedIndices{0, 2}.Contains(2))
	assert.False(t, RetainedIndices{0, 2}.Contains(1))
}
