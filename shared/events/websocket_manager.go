package events

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"guildhall-backend/shared/config"
)

// WebSocketManager pushes published events to connected clients.
type WebSocketManager struct {
	clients    map[string]*websocket.Conn // client id -> connection
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	register   chan *ClientConnection
	unregister chan *ClientConnection
	broadcast  chan Event
}

// ClientConnection represents a client WebSocket connection
type ClientConnection struct {
	ClientID   string
	Connection *websocket.Conn
}

// Global WebSocket manager instance
var wsManager *WebSocketManager
var once sync.Once

// GetWebSocketManager returns singleton WebSocket manager
func GetWebSocketManager() *WebSocketManager {
	once.Do(func() {
		wsManager = &WebSocketManager{
			clients: make(map[string]*websocket.Conn),
			upgrader: websocket.Upgrader{
				CheckOrigin: func(r *http.Request) bool {
					origin := r.Header.Get("Origin")

					allowedOrigins := []string{
						config.GetConfig().FrontendURL,
					}

					for _, allowed := range allowedOrigins {
						if origin == allowed {
							return true
						}
					}

					log.Printf("🚫 WebSocket connection rejected from origin: %s", origin)
					return false
				},
			},
			register:   make(chan *ClientConnection, 100),
			unregister: make(chan *ClientConnection, 100),
			broadcast:  make(chan Event, 1000),
		}
		go wsManager.run()
	})
	return wsManager
}

// SubscribeTo forwards every bus event to connected clients.
func (wsm *WebSocketManager) SubscribeTo(bus *Bus) {
	bus.Subscribe(func(event Event) {
		select {
		case wsm.broadcast <- event:
		default:
			log.Printf("⚠️ Broadcast queue full, dropping event: %s", event.Type)
		}
	})
}

// run handles WebSocket manager event loop
func (wsm *WebSocketManager) run() {
	for {
		select {
		case client := <-wsm.register:
			wsm.registerClient(client)

		case client := <-wsm.unregister:
			wsm.unregisterClient(client)

		case event := <-wsm.broadcast:
			wsm.broadcastEvent(event)
		}
	}
}

// registerClient adds a new client connection
func (wsm *WebSocketManager) registerClient(client *ClientConnection) {
	wsm.mutex.Lock()
	defer wsm.mutex.Unlock()

	// Close existing connection if any
	if existingConn, exists := wsm.clients[client.ClientID]; exists {
		existingConn.Close()
	}

	wsm.clients[client.ClientID] = client.Connection
	log.Printf("🔌 WebSocket client connected: %s (Total: %d)", client.ClientID, len(wsm.clients))
}

// unregisterClient removes a client connection
func (wsm *WebSocketManager) unregisterClient(client *ClientConnection) {
	wsm.mutex.Lock()
	defer wsm.mutex.Unlock()

	if _, exists := wsm.clients[client.ClientID]; exists {
		delete(wsm.clients, client.ClientID)
		client.Connection.Close()
		log.Printf("🔌 WebSocket client disconnected: %s (Total: %d)", client.ClientID, len(wsm.clients))
	}
}

// broadcastEvent sends an event to all connected clients
func (wsm *WebSocketManager) broadcastEvent(event Event) {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()

	for clientID, conn := range wsm.clients {
		err := conn.WriteJSON(event)
		if err != nil {
			log.Printf("❌ Failed to send event to client %s: %v", clientID, err)
			// Remove failed connection
			go func(cid string, connection *websocket.Conn) {
				wsm.unregister <- &ClientConnection{ClientID: cid, Connection: connection}
			}(clientID, conn)
		}
	}
}

// SendToClient sends an event to a specific client
func (wsm *WebSocketManager) SendToClient(clientID string, event Event) error {
	wsm.mutex.RLock()
	conn, exists := wsm.clients[clientID]
	wsm.mutex.RUnlock()

	if !exists {
		return fmt.Errorf("client %s not connected", clientID)
	}

	err := conn.WriteJSON(event)
	if err != nil {
		log.Printf("❌ Failed to send event to client %s: %v", clientID, err)
		go func() {
			wsm.unregister <- &ClientConnection{ClientID: clientID, Connection: conn}
		}()
		return err
	}
	return nil
}

// HandleWebSocketConnection upgrades HTTP connection to WebSocket
func (wsm *WebSocketManager) HandleWebSocketConnection(c *gin.Context) {
	clientID := c.Param("client_id")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Client ID required"})
		return
	}

	// Upgrade HTTP connection to WebSocket
	conn, err := wsm.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Failed to upgrade WebSocket: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	// Register client
	client := &ClientConnection{
		ClientID:   clientID,
		Connection: conn,
	}

	wsm.register <- client

	// Handle connection lifecycle
	defer func() {
		wsm.unregister <- client
	}()

	// Keep connection alive and handle incoming messages
	for {
		var message map[string]interface{}
		err := conn.ReadJSON(&message)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket error for client %s: %v", clientID, err)
			}
			break
		}

		if msgType, ok := message["type"].(string); ok && msgType == "ping" {
			if err := conn.WriteJSON(map[string]string{"type": "pong"}); err != nil {
				break
			}
		}
	}
}

// GetConnectedClients returns list of connected client IDs
func (wsm *WebSocketManager) GetConnectedClients() []string {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()

	clients := make([]string, 0, len(wsm.clients))
	for clientID := range wsm.clients {
		clients = append(clients, clientID)
	}
	return clients
}

// GetConnectionCount returns number of active connections
func (wsm *WebSocketManager) GetConnectionCount() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.clients)
}
