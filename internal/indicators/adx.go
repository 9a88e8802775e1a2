package indicators

import "math"

// ADX computes Wilder's Average Directional Index. It needs 2*period bars.
func ADX(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period <= 0 || len(highs) != n || len(lows) != n || n < 2*period {
		return 0, false
	}

	p := float64(period)
	var trS, plusS, minusS float64
	var dxSum, adx float64
	dxCount := 0

	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		plusDM, minusDM := 0.0, 0.0
		if up > down && up > 0 {
			plusDM = up
		}
		if down > up && down > 0 {
			minusDM = down
		}
		tr := math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))

		if i <= period {
			trS += tr
			plusS += plusDM
			minusS += minusDM
			if i < period {
				continue
			}
		} else {
			trS = trS - trS/p + tr
			plusS = plusS - plusS/p + plusDM
			minusS = minusS - minusS/p + minusDM
		}

		dx := 0.0
		if trS > 0 {
			plusDI := 100 * plusS / trS
			minusDI := 100 * minusS / trS
			if sum := plusDI + minusDI; sum > 0 {
				dx = 100 * math.Abs(plusDI-minusDI) / sum
			}
		}

		if dxCount < period {
			dxSum += dx
			dxCount++
			if dxCount == period {
				adx = dxSum / p
			}
			continue
		}
		adx = (adx*(p-1) + dx) / p
	}
	return adx, dxCount == period
}
