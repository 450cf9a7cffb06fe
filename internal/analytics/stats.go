package analytics

import (
	"math"
	"sort"
)

// Quantile возвращает q-квантиль (0..1) с линейной интерполяцией между
// соседними наблюдениями. Пустая выборка даёт 0.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	frac := pos - float64(lower)

	if lower+1 >= len(sorted) {
		return sorted[lower]
	}

	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// Median медиана выборки; 0 для пустой выборки.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// TrimmedPopulation возвращает значения v, для которых
// quantile(lowPct) <= v <= quantile(highPct). Границы включительные.
// На маленьких выборках границы могут совпасть — тогда остаются значения,
// равные границе. Порядок исходной выборки сохраняется.
func TrimmedPopulation(values []float64, lowPct, highPct float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	lower := Quantile(values, lowPct)
	upper := Quantile(values, highPct)

	trimmed := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lower && v <= upper {
			trimmed = append(trimmed, v)
		}
	}
	return trimmed
}
