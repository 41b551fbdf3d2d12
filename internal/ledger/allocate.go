package ledger

import "math"

func toCents(x float64) int64 {
	return int64(math.Round((x + 1e-9) * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}

// allocateByWeight splits amount cents across weights proportionally. Each
// share is rounded on its own, then the drift left by rounding is pushed onto
// the entries in preference order so the shares sum exactly to amount. No
// share ever exceeds its weight or drops below zero.
func allocateByWeight(amount int64, weights []int64, preference []int) []int64 {
	shares := make([]int64, len(weights))
	if amount <= 0 || len(weights) == 0 {
		return shares
	}
	var total int64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return shares
	}
	if amount > total {
		amount = total
	}

	var distributed int64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		shares[i] = int64(math.Round(float64(amount) * float64(w) / float64(total)))
		if shares[i] > w {
			shares[i] = w
		}
		distributed += shares[i]
	}

	drift := amount - distributed
	for _, i := range preference {
		if drift == 0 {
			break
		}
		if i < 0 || i >= len(weights) || weights[i] <= 0 {
			continue
		}
		next := shares[i] + drift
		switch {
		case next > weights[i]:
			drift = next - weights[i]
			shares[i] = weights[i]
		case next < 0:
			drift = next
			shares[i] = 0
		default:
			shares[i] = next
			drift = 0
		}
	}
	return shares
}
