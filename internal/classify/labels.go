package classify

// Label представляет класс паттерна мозговой активности,
// который возвращает ML модель
type Label string

const (
	LabelSeizure Label = "Seizure"
	LabelLPD     Label = "LPD"
	LabelGPD     Label = "GPD"
	LabelLRDA    Label = "LRDA"
	LabelGRDA    Label = "GRDA"
	LabelOthers  Label = "Others"
)

// LabelPriority задает фиксированный порядок классов: он же порядок
// индексов модели (prediction id) и порядок разрешения ничьих при argmax
var LabelPriority = []Label{
	LabelSeizure,
	LabelLPD,
	LabelGPD,
	LabelLRDA,
	LabelGRDA,
	LabelOthers,
}

// Severity представляет клиническую тяжесть класса
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Тяжесть и цвет индикатора - чистая функция от класса
var labelSeverity = map[Label]Severity{
	LabelSeizure: SeverityCritical,
	LabelLPD:     SeverityHigh,
	LabelGPD:     SeverityHigh,
	LabelLRDA:    SeverityMedium,
	LabelGRDA:    SeverityMedium,
	LabelOthers:  SeverityLow,
}

var labelColor = map[Label]string{
	LabelSeizure: "#b91c1c",
	LabelLPD:     "#dc2626",
	LabelGPD:     "#ea580c",
	LabelLRDA:    "#d97706",
	LabelGRDA:    "#ca8a04",
	LabelOthers:  "#16a34a",
}

// Severity возвращает клиническую тяжесть класса
func (l Label) Severity() Severity {
	if s, ok := labelSeverity[l]; ok {
		return s
	}
	return SeverityLow
}

// Color возвращает цвет индикатора для UI
func (l Label) Color() string {
	if c, ok := labelColor[l]; ok {
		return c
	}
	return labelColor[LabelOthers]
}

// ScoreKey возвращает ключ класса в карте confidence_scores бэкенда
func (l Label) ScoreKey() string {
	switch l {
	case LabelSeizure:
		return "seizure"
	case LabelLPD:
		return "lpd"
	case LabelGPD:
		return "gpd"
	case LabelLRDA:
		return "lrda"
	case LabelGRDA:
		return "grda"
	default:
		return "others"
	}
}

// LabelByID возвращает класс по индексу модели.
// Для неизвестного индекса возвращает false вторым значением
func LabelByID(id int) (Label, bool) {
	if id < 0 || id >= len(LabelPriority) {
		return LabelOthers, false
	}
	return LabelPriority[id], true
}
