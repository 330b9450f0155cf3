package eeg

import "math"

// artifactSigma - порог отсечения артефактов в сигмах
const artifactSigma = 3.0

// Features вычисляет признаки сигнала по одному каналу видимого окна:
// статистика амплитуды, энергия, длина линии и мощности частотных полос,
// если они присутствуют в данных
func Features(points []SamplePoint, channel string) map[string]float64 {
	values := channelValues(points, channel)
	if len(values) == 0 {
		return map[string]float64{}
	}

	mean := meanOf(values)
	variance := varianceOf(values, mean)

	min, max := values[0], values[0]
	energy := 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		energy += v * v
	}

	lineLength := 0.0
	for i := 1; i < len(values); i++ {
		lineLength += math.Abs(values[i] - values[i-1])
	}

	features := map[string]float64{
		"mean":        mean,
		"std_dev":     math.Sqrt(variance),
		"variance":    variance,
		"min":         min,
		"max":         max,
		"range":       max - min,
		"energy":      energy,
		"line_length": lineLength,
	}

	for _, band := range []string{"alpha", "beta", "theta", "delta"} {
		if power, ok := bandPower(points, band); ok {
			features[band+"_power"] = power
		}
	}

	return features
}

// DetectArtifacts помечает точки, отклонившиеся от среднего больше чем
// на три сигмы. Возвращает индексы подозрительных точек
func DetectArtifacts(points []SamplePoint, channel string) []int {
	values := channelValues(points, channel)
	if len(values) == 0 {
		return nil
	}

	mean := meanOf(values)
	stdDev := math.Sqrt(varianceOf(values, mean))
	threshold := artifactSigma * stdDev

	var artifacts []int
	for i, v := range values {
		if math.Abs(v-mean) > threshold {
			artifacts = append(artifacts, i)
		}
	}
	return artifacts
}

func channelValues(points []SamplePoint, channel string) []float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if v, ok := p.Channels[channel]; ok {
			values = append(values, v)
		}
	}
	return values
}

func bandPower(points []SamplePoint, band string) (float64, bool) {
	sum := 0.0
	count := 0
	for _, p := range points {
		if v, ok := p.Channels[band]; ok {
			sum += v * v
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func varianceOf(values []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(values))
}
