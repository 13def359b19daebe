package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/utils"
)

// Event types
const (
	EventOrderUpdate     = "order_update"
	EventOrderSplit      = "order_split"
	EventKitchenUpdate   = "kitchen_update"
	EventTableUpdate     = "table_update"
	EventPaymentUpdate   = "payment_update"
	EventDashboardUpdate = "dashboard_update"
	EventMenuUpdate      = "menu_update"
)

const (
	writeWait = 5 * time.Second
	// PongWait is how long a client may stay silent before its read side gives up.
	PongWait   = 60 * time.Second
	pingPeriod = PongWait * 9 / 10
	// sendBuffer messages may queue per client before it counts as too slow.
	sendBuffer = 64
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// client owns one connection. Only its write loop touches conn.
type client struct {
	conn Conn
	role string
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				utils.ErrorLogger.Printf("Dropping %s client after write error: %v", c.role, err)
				drop(c)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				drop(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// KDSHub holds connected kitchen displays and staff dashboards.
type KDSHub struct {
	clients map[Conn]*client
	mutex   sync.Mutex
}

var kdsHub = KDSHub{
	clients: make(map[Conn]*client),
}

// RegisterClient starts delivering broadcasts and keepalive pings to conn.
func RegisterClient(conn Conn, role string) {
	c := &client{
		conn: conn,
		role: role,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	kdsHub.mutex.Lock()
	if old, ok := kdsHub.clients[conn]; ok {
		old.stop()
	}
	kdsHub.clients[conn] = c
	kdsHub.mutex.Unlock()
	go c.writeLoop()
}

// UnregisterClient stops delivery. The write loop closes the connection on its way out.
func UnregisterClient(conn Conn) {
	kdsHub.mutex.Lock()
	c, ok := kdsHub.clients[conn]
	if ok {
		delete(kdsHub.clients, conn)
	}
	kdsHub.mutex.Unlock()
	if ok {
		c.stop()
	}
}

func drop(c *client) {
	kdsHub.mutex.Lock()
	if kdsHub.clients[c.conn] == c {
		delete(kdsHub.clients, c.conn)
	}
	kdsHub.mutex.Unlock()
	c.stop()
}

func ClientCount() int {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	return len(kdsHub.clients)
}

func BroadcastOrderUpdate(order models.Order) {
	broadcast(Message{Event: EventOrderUpdate, Data: order})
}

// BroadcastOrderSplit announces the orders that replaced originalID.
func BroadcastOrderSplit(originalID uint, orders []models.Order) {
	broadcast(Message{
		Event: EventOrderSplit,
		Data: map[string]interface{}{
			"original_order_id": originalID,
			"orders":            orders,
		},
	})
}

// BroadcastKitchenUpdate -> update for the kitchen display
func BroadcastKitchenUpdate(data interface{}) {
	broadcast(Message{Event: EventKitchenUpdate, Data: data})
}

func BroadcastTableUpdate(table models.RestaurantTable) {
	broadcast(Message{Event: EventTableUpdate, Data: table})
}

func BroadcastPaymentUpdate(payment models.Payment, order models.Order) {
	broadcast(Message{
		Event: EventPaymentUpdate,
		Data: map[string]interface{}{
			"payment": payment,
			"order":   order,
		},
	})
}

func BroadcastDashboardUpdate(data interface{}) {
	broadcast(Message{Event: EventDashboardUpdate, Data: data})
}

func BroadcastMenuUpdate(data interface{}) {
	broadcast(Message{Event: EventMenuUpdate, Data: data})
}

// broadcast queues msg for every client without waiting on any socket. A
// client whose queue is full is dropped.
func broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling %s message: %v", msg.Event, err)
		return
	}

	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()

	for conn, c := range kdsHub.clients {
		select {
		case c.send <- data:
		default:
			utils.ErrorLogger.Printf("Dropping slow %s client: %d messages queued", c.role, len(c.send))
			delete(kdsHub.clients, conn)
			c.stop()
		}
	}
}
