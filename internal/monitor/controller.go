package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MK-DEV369/HMS-Brain/internal/backend"
	"github.com/MK-DEV369/HMS-Brain/internal/classify"
	"github.com/MK-DEV369/HMS-Brain/internal/eeg"
)

// Config - настройки контроллера живого канала
type Config struct {
	Mode           Mode
	BufferCapacity int
	WindowSize     int
	ReplayInterval time.Duration
	DriftInterval  time.Duration
	FeatureChannel string
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModePush
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = 100
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 50
	}
	if c.ReplayInterval <= 0 {
		c.ReplayInterval = 200 * time.Millisecond
	}
	if c.DriftInterval <= 0 {
		c.DriftInterval = time.Second
	}
	if c.FeatureChannel == "" {
		c.FeatureChannel = "amplitude"
	}
	return c
}

// session - одна открытая сессия живого канала. Несет собственный
// идентификатор: поздние сообщения разорванной сессии отбрасываются
// по нему, а не мутируют буфер новой
type session struct {
	id        uuid.UUID
	patientID string
	cancel    context.CancelFunc
	transport Transport
	done      chan struct{}
}

// Controller владеет жизненным циклом живой сессии выбранного пациента:
// открытие при выборе, закрытие при паузе и смене, разбор входящих
// сообщений и раздача их в буфер и редьюсер. Буфер и классификация
// принадлежат контроллеру монопольно; внешние чтения - через Snapshot
type Controller struct {
	cfg           Config
	appCtx        context.Context
	dial          DialFunc
	fetchSnapshot SnapshotFunc
	publish       func(Snapshot)

	mu        sync.Mutex
	patientID string
	status    ConnectionStatus
	buffer    *eeg.RollingBuffer
	reducer   *classify.Reducer
	vitals    *backend.VitalSigns
	pointer   int
	nextIndex int
	session   *session
	rng       *rand.Rand
}

// NewController создает контроллер. ctx задает время жизни всех
// сессий контроллера: его отмена закрывает активную сессию так же,
// как Stop. dial нужен для режима push, fetchSnapshot - для replay;
// ненужный для выбранного режима аргумент может быть nil
func NewController(ctx context.Context, cfg Config, dial DialFunc, fetchSnapshot SnapshotFunc) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:           cfg,
		appCtx:        ctx,
		dial:          dial,
		fetchSnapshot: fetchSnapshot,
		status:        StatusIdle,
		buffer:        eeg.NewRollingBuffer(cfg.BufferCapacity),
		reducer:       classify.NewReducer(time.Now().UnixNano()),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetPublisher задает получателя снимков (обычно WebSocket хаб).
// Вызывается один раз при сборке приложения
func (c *Controller) SetPublisher(publish func(Snapshot)) {
	c.publish = publish
}

// Reset закрывает текущую сессию и полностью сбрасывает состояние
// под нового пациента: буфер, классификацию, витальные показатели
// и указатель воспроизведения
func (c *Controller) Reset(patientID string) {
	c.Stop()

	c.mu.Lock()
	c.patientID = patientID
	c.buffer = eeg.NewRollingBuffer(c.cfg.BufferCapacity)
	c.reducer.Reset()
	c.vitals = nil
	c.pointer = 0
	c.nextIndex = 0
	c.status = StatusIdle
	c.mu.Unlock()

	log.Printf("[MONITOR] State reset for patient %s", patientID)
}

// SetVitals обновляет витальные показатели (last-write-wins)
func (c *Controller) SetVitals(vitals *backend.VitalSigns) {
	c.mu.Lock()
	c.vitals = vitals
	c.mu.Unlock()
	c.publishSnapshot()
}

// PatientID возвращает пациента текущей сессии
func (c *Controller) PatientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.patientID
}

// Status возвращает видимый статус соединения
func (c *Controller) Status() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Start открывает новую сессию для выбранного пациента. Предыдущая
// сессия закрывается до открытия новой: два транспорта никогда не
// пишут в один буфер. ctx ограничивает только синхронную часть
// открытия (подключение, загрузку записи); время жизни сессии от него
// не зависит - сессию закрывают Stop, Reset и отмена контекста
// приложения
func (c *Controller) Start(ctx context.Context) error {
	c.Stop()

	c.mu.Lock()
	patientID := c.patientID
	if patientID == "" {
		c.mu.Unlock()
		return ErrNoPatient
	}

	sctx, cancel := context.WithCancel(c.appCtx)
	s := &session{
		id:        uuid.New(),
		patientID: patientID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	c.session = s
	c.status = StatusConnecting
	mode := c.cfg.Mode
	c.mu.Unlock()

	log.Printf("[MONITOR] Opening %s session %s for patient %s", mode, s.id, patientID)

	switch mode {
	case ModeReplay:
		return c.startReplay(ctx, sctx, s)
	case ModeSimulated:
		c.startSimulated(sctx, s)
		return nil
	default:
		return c.startPush(ctx, sctx, s)
	}
}

// Stop закрывает активную сессию: отменяет контекст, освобождает
// транспорт и дожидается выхода фоновой горутины. После возврата
// ни один таймер и ни один обработчик сессии не трогает буфер
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	if s != nil {
		c.status = StatusClosed
	}
	c.mu.Unlock()

	if s == nil {
		return
	}

	s.cancel()
	if s.transport != nil {
		s.transport.Close()
	}
	<-s.done

	log.Printf("[MONITOR] Session %s closed for patient %s", s.id, s.patientID)
}

// ===== Режим push =====

func (c *Controller) startPush(ctx, sctx context.Context, s *session) error {
	transport, err := c.dial(ctx, s.patientID)
	if err != nil {
		c.failSession(s, err)
		close(s.done)
		return fmt.Errorf("failed to open live channel: %w", err)
	}

	c.mu.Lock()
	if c.session != s {
		// Сессию отменили, пока мы подключались
		c.mu.Unlock()
		transport.Close()
		close(s.done)
		return nil
	}
	s.transport = transport
	c.status = StatusConnected
	c.mu.Unlock()

	log.Printf("[MONITOR] Live channel connected for patient %s", s.patientID)
	c.publishSnapshot()

	go func() {
		defer close(s.done)
		for {
			select {
			case <-sctx.Done():
				c.closeSession(s)
				return
			case envelope, ok := <-transport.Messages():
				if !ok {
					// Транспорт умер: если сессия еще активна, это обрыв
					c.mu.Lock()
					if c.session == s {
						c.session = nil
						c.status = StatusDisconnected
						log.Printf("[WARN] Live channel lost for patient %s: %v", s.patientID, transport.Err())
					}
					c.mu.Unlock()
					c.publishSnapshot()
					return
				}
				c.applyEnvelope(s, envelope)
			}
		}
	}()

	return nil
}

// applyEnvelope применяет входящее сообщение к состоянию сессии.
// Сообщение чужой (разорванной) сессии отбрасывается до любых мутаций
func (c *Controller) applyEnvelope(s *session, envelope backend.Envelope) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}

	switch envelope.Type {
	case backend.MessageTypeEEGData:
		var raws []map[string]any
		if err := json.Unmarshal(envelope.Data, &raws); err != nil {
			log.Printf("[WARN] Malformed eeg_data payload: %v", err)
			break
		}
		points := eeg.NormalizeBatch(raws, c.nextIndex)
		c.nextIndex += len(points)
		c.buffer.Append(points...)

	case backend.MessageTypeClassification:
		var event backend.ClassificationEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			log.Printf("[WARN] Malformed classification payload: %v", err)
			break
		}
		c.reducer.ApplyEvent(event.Prediction, event.ConfidenceScores)

	case backend.MessageTypeVitalSigns:
		var vitals backend.VitalSigns
		if err := json.Unmarshal(envelope.Data, &vitals); err != nil {
			log.Printf("[WARN] Malformed vital_signs payload: %v", err)
			break
		}
		c.vitals = &vitals

	default:
		// Неизвестные типы игнорируем ради форвард-совместимости
	}
	c.mu.Unlock()

	c.publishSnapshot()
}

// ===== Режим replay =====

func (c *Controller) startReplay(ctx, sctx context.Context, s *session) error {
	// Запись загружается один раз; после паузы продолжаем с того же
	// указателя по уже загруженному буферу
	c.mu.Lock()
	needFetch := c.buffer.Len() == 0
	c.mu.Unlock()

	if needFetch {
		snapshot, err := c.fetchSnapshot(ctx, s.patientID)
		if err != nil {
			c.failSession(s, err)
			close(s.done)
			return fmt.Errorf("failed to fetch recording: %w", err)
		}

		points := eeg.NormalizeBatch(snapshot.EEGData, 0)

		c.mu.Lock()
		if c.session != s {
			c.mu.Unlock()
			close(s.done)
			return nil
		}
		capacity := len(points)
		if capacity < c.cfg.BufferCapacity {
			capacity = c.cfg.BufferCapacity
		}
		c.buffer = eeg.NewRollingBuffer(capacity)
		c.buffer.Append(points...)
		c.pointer = 0
		if snapshot.VitalSigns != nil {
			c.vitals = snapshot.VitalSigns
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		close(s.done)
		return nil
	}
	c.status = StatusConnected
	c.mu.Unlock()

	c.publishSnapshot()
	go c.replayLoop(sctx, s)
	return nil
}

func (c *Controller) replayLoop(ctx context.Context, s *session) {
	defer close(s.done)

	ticker := time.NewTicker(c.cfg.ReplayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.closeSession(s)
			return
		case <-ticker.C:
			if finished := c.advanceReplay(s); finished {
				return
			}
		}
	}
}

// advanceReplay сдвигает указатель воспроизведения на одну точку.
// Возвращает true, когда запись кончилась: таймер останавливает сам
// себя, а последнее окно остается на экране
func (c *Controller) advanceReplay(s *session) bool {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return true
	}

	length := c.buffer.Len()
	if c.pointer+c.cfg.WindowSize >= length {
		c.mu.Unlock()
		log.Printf("[MONITOR] Replay finished for patient %s at pointer %d", s.patientID, c.pointer)
		c.publishSnapshot()
		return true
	}
	c.pointer++
	c.mu.Unlock()

	c.publishSnapshot()
	return false
}

// ===== Режим simulated =====

func (c *Controller) startSimulated(ctx context.Context, s *session) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		close(s.done)
		return
	}
	c.status = StatusConnected
	c.mu.Unlock()

	c.publishSnapshot()

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(c.cfg.DriftInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.closeSession(s)
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.session != s {
					c.mu.Unlock()
					return
				}
				t := float64(c.nextIndex)
				c.nextIndex++
				c.buffer.Append(c.syntheticPoint(t))
				c.reducer.Drift()
				c.mu.Unlock()

				c.publishSnapshot()
			}
		}
	}()
}

// syntheticPoint генерирует одну точку синтетической волны:
// синусоида с шумом, как на стендовом мониторе
func (c *Controller) syntheticPoint(t float64) eeg.SamplePoint {
	return eeg.SamplePoint{
		Time: t,
		Channels: map[string]float64{
			"amplitude": math.Sin(t*0.1)*10 + c.rng.Float64()*5,
			"alpha":     math.Sin(t*0.1)*5 + c.rng.Float64()*2,
			"beta":      math.Cos(t*0.1)*3 + c.rng.Float64()*1.5,
		},
	}
}

// ===== Общее =====

// failSession переводит упавшую сессию в DISCONNECTED. Статус остается
// видимым в UI; автоматических ретраев нет - пользователь сам
// перевключает живой режим
func (c *Controller) failSession(s *session, err error) {
	log.Printf("[ERROR] Session %s failed for patient %s: %v", s.id, s.patientID, err)

	s.cancel()

	c.mu.Lock()
	if c.session == s {
		c.session = nil
		c.status = StatusDisconnected
	}
	c.mu.Unlock()

	c.publishSnapshot()
}

// closeSession завершает сессию после отмены ее контекста. После Stop
// сессия уже снята и транспорт закрыт - тогда все ветки вырождаются в
// no-op; после отмены контекста приложения здесь происходит настоящий
// переход в CLOSED с освобождением транспорта
func (c *Controller) closeSession(s *session) {
	c.mu.Lock()
	current := c.session == s
	if current {
		c.session = nil
		c.status = StatusClosed
	}
	c.mu.Unlock()

	if s.transport != nil {
		s.transport.Close()
	}

	if current {
		log.Printf("[MONITOR] Session %s closed by shutdown for patient %s", s.id, s.patientID)
		c.publishSnapshot()
	}
}

// Snapshot возвращает read-only снимок состояния монитора
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var window []eeg.SamplePoint
	if c.cfg.Mode == ModeReplay {
		window = c.buffer.Windowed(c.pointer, c.cfg.WindowSize)
	} else {
		offset := c.buffer.Len() - c.cfg.WindowSize
		if offset < 0 {
			offset = 0
		}
		window = c.buffer.Windowed(offset, c.cfg.WindowSize)
	}

	return Snapshot{
		PatientID: c.patientID,
		Mode:      c.cfg.Mode,
		Status:    c.status,
		Window:    window,
		BufferLen: c.buffer.Len(),
		Pointer:   c.pointer,
		State:     c.reducer.Snapshot(),
		Vitals:    c.vitals,
		Features:  eeg.Features(window, c.cfg.FeatureChannel),
		Artifacts: eeg.DetectArtifacts(window, c.cfg.FeatureChannel),
		UpdatedAt: time.Now(),
	}
}

func (c *Controller) publishSnapshot() {
	if c.publish == nil {
		return
	}
	c.publish(c.Snapshot())
}
