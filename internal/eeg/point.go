package eeg

// ElectrodeChannels содержит канонические имена электродов по схеме 10-20,
// в том порядке, в котором их отдает бэкенд в eeg_data
var ElectrodeChannels = []string{
	"Fp1", "Fp2", "Fz", "Cz", "Pz",
	"F3", "F4", "F7", "F8",
	"C3", "C4", "P3", "P4",
	"T3", "T4", "T5", "T6",
	"O1", "O2",
}

// BandChannels содержит имена частотных полос для источников,
// которые отдают не электроды, а агрегированные полосы
var BandChannels = []string{"amplitude", "alpha", "beta", "theta", "delta", "gamma"}

// SamplePoint представляет один момент многоканального сигнала ЭЭГ.
// Time строго неубывает внутри одного буфера
type SamplePoint struct {
	Time     float64            `json:"time"`
	Channels map[string]float64 `json:"channels"`
}

// Value возвращает значение канала и признак его наличия
func (p SamplePoint) Value(channel string) (float64, bool) {
	v, ok := p.Channels[channel]
	return v, ok
}
