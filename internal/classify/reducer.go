package classify

import (
	"log"
	"math/rand"
	"sync"
)

const (
	// Границы шкалы уверенности в симулированном режиме
	scoreScale = 100.0
	// Максимальное случайное отклонение за один тик
	driftBound = 5.0
)

// State - снимок текущей классификации: класс и уверенность модели
// по каждому из классов
type State struct {
	Label    Label             `json:"label"`
	Severity Severity          `json:"severity"`
	Color    string            `json:"color"`
	Scores   map[Label]float64 `json:"scores"`
}

// Reducer отслеживает текущую классификацию. Поддерживает два режима
// обновления: авторитетные события от бэкенда (продакшен) и
// симулированный дрейф уверенности (стенд для разработки).
// Состояние мутируется только здесь, все внешние чтения - через Snapshot
type Reducer struct {
	mu     sync.RWMutex
	label  Label
	scores map[Label]float64
	rng    *rand.Rand
}

// NewReducer создает редьюсер с дефолтным классом и равномерной уверенностью
func NewReducer(seed int64) *Reducer {
	r := &Reducer{
		label:  LabelOthers,
		scores: make(map[Label]float64, len(LabelPriority)),
		rng:    rand.New(rand.NewSource(seed)),
	}
	for _, l := range LabelPriority {
		r.scores[l] = scoreScale / float64(len(LabelPriority))
	}
	return r
}

// ApplyEvent применяет авторитетное событие классификации: класс берется
// по индексу модели, уверенность перезаписывается целиком. Суммироваться
// в единицу оценки не обязаны - модель отдает независимые выходы.
// Неизвестный индекс - это проблема качества данных, а не причина падать:
// логируем и откатываемся к дефолтному классу
func (r *Reducer) ApplyEvent(labelID int, scores map[string]float64) {
	label, known := LabelByID(labelID)
	if !known {
		log.Printf("[WARN] Unknown classification label id %d, falling back to %s", labelID, label)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.label = label
	r.scores = make(map[Label]float64, len(LabelPriority))
	for _, l := range LabelPriority {
		r.scores[l] = scores[l.ScoreKey()]
	}
}

// Drift выполняет один тик симулированного режима: к каждой оценке
// добавляется ограниченное случайное отклонение, значения зажимаются
// в [0, 100] и ренормализуются так, чтобы сумма была ровно 100.
// Класс после тика - argmax, ничьи разрешаются порядком LabelPriority.
// Режим предназначен только для стендов без бэкенда
func (r *Reducer) Drift() {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := 0.0
	for _, l := range LabelPriority {
		score := r.scores[l] + (r.rng.Float64()*2-1)*driftBound
		if score < 0 {
			score = 0
		}
		if score > scoreScale {
			score = scoreScale
		}
		r.scores[l] = score
		sum += score
	}

	if sum == 0 {
		// Деление на ноль заменяем равномерным распределением
		uniform := scoreScale / float64(len(LabelPriority))
		for _, l := range LabelPriority {
			r.scores[l] = uniform
		}
	} else {
		for _, l := range LabelPriority {
			r.scores[l] = r.scores[l] / sum * scoreScale
		}
	}

	r.label = argmax(r.scores)
}

// Reset возвращает редьюсер к дефолтному состоянию.
// Вызывается при смене пациента
func (r *Reducer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.label = LabelOthers
	uniform := scoreScale / float64(len(LabelPriority))
	for _, l := range LabelPriority {
		r.scores[l] = uniform
	}
}

// Snapshot возвращает копию текущего состояния для чтения
func (r *Reducer) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scores := make(map[Label]float64, len(r.scores))
	for l, s := range r.scores {
		scores[l] = s
	}

	return State{
		Label:    r.label,
		Severity: r.label.Severity(),
		Color:    r.label.Color(),
		Scores:   scores,
	}
}

// argmax возвращает класс с максимальной оценкой; при равенстве
// выигрывает класс, стоящий раньше в LabelPriority
func argmax(scores map[Label]float64) Label {
	best := LabelPriority[0]
	bestScore := scores[best]
	for _, l := range LabelPriority[1:] {
		if scores[l] > bestScore {
			best = l
			bestScore = scores[l]
		}
	}
	return best
}
