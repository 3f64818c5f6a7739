package sequencer

// Euclidean spreads hits as evenly as possible over steps using the bucket
// method, then rotates the result left by rotation. hits is clamped to
// 0..steps; a non-positive steps yields nil.
func Euclidean(hits, steps, rotation int) []bool {
	if steps <= 0 {
		return nil
	}
	hits = clampInt(hits, 0, steps)
	pattern := make([]bool, steps)
	if hits == 0 {
		return pattern
	}

	bucket := 0
	for i := range pattern {
		bucket += hits
		if bucket >= steps {
			bucket -= steps
			pattern[i] = true
		}
	}

	rotation %= steps
	if rotation < 0 {
		rotation += steps
	}
	rotated := make([]bool, steps)
	for i := range rotated {
		rotated[i] = pattern[(i+rotation)%steps]
	}
	return rotated
}
