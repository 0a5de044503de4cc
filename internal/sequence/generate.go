package sequence

import (
	"fmt"
	"math/rand"
	"sort"
)

type GenerateOptions struct {
	Sequences     int
	Length        int
	Columns       int
	ActivePerStep int
	Repeats       int
	Seed          int64
}

// Generate builds Sequences random sequences of Length sparse column
// patterns and presents each of them Repeats times, in order. The last
// step of every presentation carries the reset flag.
func Generate(opts GenerateOptions) ([]Record, error) {
	if opts.Sequences <= 0 || opts.Length <= 0 || opts.Repeats <= 0 {
		return nil, fmt.Errorf("sequences, length and repeats must be > 0")
	}
	if opts.ActivePerStep <= 0 || opts.ActivePerStep > opts.Columns {
		return nil, fmt.Errorf("active per step must be within [1,%d], got %d", opts.Columns, opts.ActivePerStep)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	patterns := make([][][]int, opts.Sequences)
	for s := range patterns {
		patterns[s] = make([][]int, opts.Length)
		for i := range patterns[s] {
			patterns[s][i] = randomPattern(rng, opts.Columns, opts.ActivePerStep)
		}
	}

	records := make([]Record, 0, opts.Sequences*opts.Length*opts.Repeats)
	for r := 0; r < opts.Repeats; r++ {
		for s, steps := range patterns {
			for i, cols := range steps {
				records = append(records, Record{
					Reset:         i == len(steps)-1,
					SequenceID:    s,
					ActiveColumns: append([]int(nil), cols...),
				})
			}
		}
	}
	return records, nil
}

func randomPattern(rng *rand.Rand, columns, active int) []int {
	out := append([]int(nil), rng.Perm(columns)[:active]...)
	sort.Ints(out)
	return out
}
