package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Stream - одно открытое WebSocket подключение к живому каналу пациента.
// Сообщения читаются в фоне и отдаются через канал Messages; при ошибке
// или закрытии канал закрывается, причину можно узнать через Err
type Stream struct {
	conn      *websocket.Conn
	patientID string

	messages chan Envelope

	mu     sync.Mutex
	err    error
	closed bool
}

// DialStream открывает живой канал для пациента.
// ws(s)://.../ws/eeg/{patientId}
func DialStream(ctx context.Context, wsBaseURL, patientID string) (*Stream, error) {
	url := fmt.Sprintf("%s/ws/eeg/%s", wsBaseURL, patientID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial live channel %s: %w", url, err)
	}

	s := &Stream{
		conn:      conn,
		patientID: patientID,
		messages:  make(chan Envelope, 64),
	}

	go s.readPump()

	return s, nil
}

// Messages возвращает канал входящих сообщений. Канал закрывается
// при ошибке транспорта или после Close
func (s *Stream) Messages() <-chan Envelope {
	return s.messages
}

// PatientID возвращает пациента, к которому привязан канал
func (s *Stream) PatientID() string {
	return s.patientID
}

// Err возвращает ошибку транспорта, если она была
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close закрывает транспорт. Повторные вызовы безопасны
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.conn.Close()
}

// readPump читает сообщения до ошибки или закрытия соединения
func (s *Stream) readPump() {
	defer close(s.messages)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			if !closed {
				s.err = err
			}
			s.mu.Unlock()

			if !closed && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ERROR] Live channel error for patient %s: %v", s.patientID, err)
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			// Сломанное сообщение не фатально, пропускаем
			log.Printf("[WARN] Malformed live channel message for patient %s: %v", s.patientID, err)
			continue
		}

		s.messages <- envelope
	}
}
