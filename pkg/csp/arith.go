package csp

// IsInf reports whether v is saturated.
func IsInf(v int) bool { return v >= Inf || v <= -Inf }

// SatAdd returns a+b clamped to [-Inf, Inf]. An infinite operand dominates;
// Inf + -Inf yields 0.
func SatAdd(a, b int) int {
	switch {
	case a >= Inf && b <= -Inf, a <= -Inf && b >= Inf:
		return 0
	case a >= Inf || b >= Inf:
		return Inf
	case a <= -Inf || b <= -Inf:
		return -Inf
	}
	return clamp(a + b)
}

// SatMul returns a·b clamped to [-Inf, Inf]. Zero times anything is zero.
func SatMul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	neg := (a < 0) != (b < 0)
	ua, ub := abs(a), abs(b)
	if ua >= Inf || ub >= Inf || ua > Inf/ub {
		if neg {
			return -Inf
		}
		return Inf
	}
	return clamp(a * b)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
