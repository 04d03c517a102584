package fakeapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dashboard-realtime/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient is one connected realtime consumer and the set of room keys it
// has joined.
type wsClient struct {
	id    string
	conn  *websocket.Conn
	send  chan realtime.Envelope
	mu    sync.Mutex
	rooms map[string]bool
}

func (s *Server) handleWS(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}
	if _, _, err := parseToken(s.secret, tokenString); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		id:    uuid.New().String(),
		conn:  conn,
		send:  make(chan realtime.Envelope, 64),
		rooms: make(map[string]bool),
	}
	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()
	s.log.Info("realtime client connected", "clientID", client.id)

	go s.writeLoop(client)
	go s.readLoop(client)
}

func (s *Server) readLoop(client *wsClient) {
	defer func() {
		s.mu.Lock()
		if s.clients[client] {
			delete(s.clients, client)
			close(client.send)
		}
		s.mu.Unlock()
		client.conn.Close()
		s.log.Info("realtime client disconnected", "clientID", client.id)
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.log.Debug("undecodable client frame", "clientID", client.id, "error", err)
			continue
		}

		var payload struct {
			RoomID     string `json:"roomId"`
			SolutionID string `json:"solutionId"`
		}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				s.log.Debug("undecodable room payload", "clientID", client.id, "error", err)
				continue
			}
		}

		switch env.Event {
		case realtime.EventJoin:
			client.setRoom(payload.RoomID, true)
		case realtime.EventJoinSolution:
			client.setRoom(realtime.SolutionRoom(payload.SolutionID).Key(), true)
		case realtime.EventLeave:
			client.setRoom(payload.RoomID, false)
		case realtime.EventLeaveSolution:
			client.setRoom(realtime.SolutionRoom(payload.SolutionID).Key(), false)
		default:
			s.log.Debug("unhandled client event", "clientID", client.id, "event", env.Event)
		}
	}
}

func (s *Server) writeLoop(client *wsClient) {
	for env := range client.send {
		if err := client.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

func (c *wsClient) setRoom(key string, joined bool) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if joined {
		c.rooms[key] = true
	} else {
		delete(c.rooms, key)
	}
}

func (c *wsClient) inRoom(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[key]
}

// ClientsInRoom counts connected clients that have joined the room. Tests
// poll it to know a join has been processed before emitting.
func (s *Server) ClientsInRoom(roomKey string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for client := range s.clients {
		if client.inRoom(roomKey) {
			n++
		}
	}
	return n
}

// DropConnections force-closes every realtime connection, simulating a
// transport failure.
func (s *Server) DropConnections() {
	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for client := range s.clients {
		conns = append(conns, client.conn)
	}
	s.mu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}
}

// EmitSolutionStatus pushes a solution_status_updated event into the
// solution's room.
func (s *Server) EmitSolutionStatus(solutionID, status string) {
	s.emit(realtime.SolutionRoom(solutionID).Key(), realtime.StatusUpdate{
		SolutionID: solutionID,
		Status:     status,
	})
}

// EmitChallengeStatus pushes a solution_status_updated event into the
// challenge's room.
func (s *Server) EmitChallengeStatus(challengeID, status string) {
	s.emit(realtime.ChallengeRoom(challengeID).Key(), realtime.StatusUpdate{
		ChallengeID: challengeID,
		Status:      status,
	})
}

func (s *Server) emit(roomKey string, update realtime.StatusUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		s.log.Error("encode status update", "error", err)
		return
	}
	env := realtime.Envelope{Event: realtime.EventSolutionStatusUpdated, Data: data}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if !client.inRoom(roomKey) {
			continue
		}
		select {
		case client.send <- env:
		default:
			s.log.Warn("client send buffer full", "clientID", client.id)
		}
	}
}
