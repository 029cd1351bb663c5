// Package colorspace implements the CIELAB color representation and the
// CIEDE2000 perceptual color-difference metric used to compare garment
// colors.
//
// No third-party library in the retrieval pack offers a CIEDE2000
// implementation (gonum, used elsewhere in the corpus for plotting, does
// not provide colorimetry beyond basic color.Color conversions) so this is
// implemented against the standard library only; see DESIGN.md.
package colorspace

import "math"

// LAB is a CIELAB color sample: L* (lightness), a*, b* (opponent axes).
type LAB struct {
	L float64
	A float64
	B float64
}

// Histogram is a small quantized color histogram accompanying the mean LAB
// value for a garment. It is not consumed by the scoring fusion directly
// but is kept alongside Mean for audit/debugging and future refinement.
type Histogram struct {
	Mean LAB
	Bins []LAB
}

// MeanWeighted computes the quality-weighted mean LAB color across a set of
// per-tracklet garment color observations, used by the journey builder's
// outfit summary.
func MeanWeighted(colors []LAB, weights []float64) LAB {
	if len(colors) == 0 {
		return LAB{}
	}
	var sumW, l, a, b float64
	for i, c := range colors {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		if w <= 0 {
			continue
		}
		l += c.L * w
		a += c.A * w
		b += c.B * w
		sumW += w
	}
	if sumW == 0 {
		return colors[0]
	}
	return LAB{L: l / sumW, A: a / sumW, B: b / sumW}
}

// deg2rad / rad2deg are small helpers kept local to avoid repeated
// allocation of math.Pi/180 in the hot CIEDE2000 path.
func deg2rad(d float64) float64 { return d * math.Pi / 180.0 }
func rad2deg(r float64) float64 { return r * 180.0 / math.Pi }

// DeltaE2000 computes the CIEDE2000 color difference between two LAB
// samples. This is the single canonical implementation used everywhere a
// color distance is required, so fused scores stay bit-reproducible across
// runs.
//
// Reference: Sharma, Wu, Dalal (2005), "The CIEDE2000 Color-Difference
// Formula: Implementation Notes, Supplementary Test Data, and Mathematical
// Observations".
func DeltaE2000(lab1, lab2 LAB) float64 {
	const kL, kC, kH = 1.0, 1.0, 1.0

	L1, a1, b1 := lab1.L, lab1.A, lab1.B
	L2, a2, b2 := lab2.L, lab2.A, lab2.B

	c1 := math.Hypot(a1, b1)
	c2 := math.Hypot(a2, b2)
	cBar := (c1 + c2) / 2.0

	c7 := math.Pow(cBar, 7)
	g := 0.5 * (1 - math.Sqrt(c7/(c7+math.Pow(25, 7))))

	a1p := a1 * (1 + g)
	a2p := a2 * (1 + g)

	c1p := math.Hypot(a1p, b1)
	c2p := math.Hypot(a2p, b2)

	h1p := hueAngle(a1p, b1)
	h2p := hueAngle(a2p, b2)

	deltaLp := L2 - L1
	deltaCp := c2p - c1p

	var deltahp float64
	if c1p*c2p == 0 {
		deltahp = 0
	} else {
		diff := h2p - h1p
		switch {
		case diff > 180:
			diff -= 360
		case diff < -180:
			diff += 360
		}
		deltahp = diff
	}
	deltaHp := 2 * math.Sqrt(c1p*c2p) * math.Sin(deg2rad(deltahp)/2)

	lBarP := (L1 + L2) / 2.0
	cBarP := (c1p + c2p) / 2.0

	var hBarP float64
	if c1p*c2p == 0 {
		hBarP = h1p + h2p
	} else {
		sum := h1p + h2p
		diff := math.Abs(h1p - h2p)
		switch {
		case diff > 180 && sum < 360:
			hBarP = (sum + 360) / 2
		case diff > 180 && sum >= 360:
			hBarP = (sum - 360) / 2
		default:
			hBarP = sum / 2
		}
	}

	t := 1 - 0.17*math.Cos(deg2rad(hBarP-30)) +
		0.24*math.Cos(deg2rad(2*hBarP)) +
		0.32*math.Cos(deg2rad(3*hBarP+6)) -
		0.20*math.Cos(deg2rad(4*hBarP-63))

	deltaTheta := 30 * math.Exp(-math.Pow((hBarP-275)/25, 2))
	rc := 2 * math.Sqrt(math.Pow(cBarP, 7)/(math.Pow(cBarP, 7)+math.Pow(25, 7)))
	sl := 1 + (0.015*math.Pow(lBarP-50, 2))/math.Sqrt(20+math.Pow(lBarP-50, 2))
	sc := 1 + 0.045*cBarP
	sh := 1 + 0.015*cBarP*t
	rt := -math.Sin(deg2rad(2*deltaTheta)) * rc

	termL := deltaLp / (kL * sl)
	termC := deltaCp / (kC * sc)
	termH := deltaHp / (kH * sh)

	deltaE2 := termL*termL + termC*termC + termH*termH + rt*termC*termH
	if deltaE2 < 0 {
		deltaE2 = 0
	}
	return math.Sqrt(deltaE2)
}

func hueAngle(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	h := rad2deg(math.Atan2(b, a))
	if h < 0 {
		h += 360
	}
	return h
}

// ColorScore converts a CIEDE2000 distance into the [0,1] similarity used
// by the outfit sub-score: exp(-ΔE/12)
func ColorScore(lab1, lab2 LAB) float64 {
	deltaE := DeltaE2000(lab1, lab2)
	return math.Exp(-deltaE / 12.0)
}
