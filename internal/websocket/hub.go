package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/MK-DEV369/HMS-Brain/internal/monitor"
)

// Hub управляет WebSocket соединениями дашборда
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для отмены регистрации клиентов
	unregister chan *Client

	// Канал исходящих кадров мониторинга
	broadcast chan []byte

	// Мютекс для безопасной работы с картой клиентов
	mu sync.RWMutex

	// Последний отправленный кадр: новый клиент получает его сразу
	lastFrame []byte
	frameMu   sync.RWMutex
}

// Client представляет WebSocket клиента дашборда
type Client struct {
	hub *Hub

	// WebSocket соединение
	conn *websocket.Conn

	// Буферизованный канал исходящих сообщений
	send chan []byte
}

// MonitorFrame - кадр мониторинга для фронтенда
type MonitorFrame struct {
	Type      string           `json:"type"`
	PatientID string           `json:"patient_id"`
	Mode      string           `json:"mode"`
	Status    string           `json:"status"`
	Snapshot  monitor.Snapshot `json:"snapshot"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене следует проверять домен
		return true
	},
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

// Run запускает Hub до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Dashboard client registered: %p", client)

			// Новому клиенту сразу отдаем последний кадр
			h.frameMu.RLock()
			frame := h.lastFrame
			h.frameMu.RUnlock()
			if frame != nil {
				select {
				case client.send <- frame:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Dashboard client unregistered: %p", client)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastSnapshot отправляет снимок монитора всем клиентам дашборда
func (h *Hub) BroadcastSnapshot(snapshot monitor.Snapshot) {
	frame := MonitorFrame{
		Type:      "monitor_frame",
		PatientID: snapshot.PatientID,
		Mode:      string(snapshot.Mode),
		Status:    string(snapshot.Status),
		Snapshot:  snapshot,
	}

	message, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal monitor frame: %v", err)
		return
	}

	h.frameMu.Lock()
	h.lastFrame = message
	h.frameMu.Unlock()

	select {
	case h.broadcast <- message:
	default:
		log.Printf("[WARN] Broadcast channel full, dropping frame")
	}
}

// ClientCount возвращает число подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket обрабатывает WebSocket соединения дашборда
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	// Запускаем горутины для клиента
	go client.writePump()
	go client.readPump()
}

// readPump обрабатывает входящие сообщения от клиента
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ERROR] WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("[ERROR] Failed to write message: %v", err)
			return
		}
	}

	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
