// Package wstransport bridges WebSocket sessions onto the realtime hub. A
// session joins rooms with explicit frames and receives every event
// published to them; riders additionally stream location samples upstream.
package wstransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/viper"

	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/models/event"
	"github.com/everestmart/delivery-svc/internal/service/models/geo"
	"github.com/everestmart/delivery-svc/internal/service/services/ordersvc"
	"github.com/everestmart/delivery-svc/pkg/auth"
)

// Client frame names. Server-to-client events reuse the names in the event
// package.
const (
	frameJoinOrder      = "join-order"
	frameLeaveOrder     = "leave-order"
	frameJoinRider      = "join-rider"
	frameJoinAdmin      = "join-admin"
	frameUpdateLocation = "update-location"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

type WSTransport struct {
	hub      *realtime.Hub
	orderSvc *ordersvc.OrderService
	upgrader websocket.Upgrader
}

func NewWSTransport(hub *realtime.Hub, orderSvc *ordersvc.OrderService) *WSTransport {
	return &WSTransport{
		hub:      hub,
		orderSvc: orderSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS policy is enforced at the HTTP layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinOrderData struct {
	OrderID string `json:"orderId"`
}

type locationData struct {
	OrderID    string     `json:"orderId"`
	Location   geo.Point  `json:"location"`
	Heading    float64    `json:"heading"`
	RecordedAt *time.Time `json:"recordedAt"`
}

// Serve upgrades the connection. The bearer token rides in the token query
// parameter because browsers cannot set headers on WebSocket dials.
func (t *WSTransport) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := auth.Parse(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	buffer := viper.GetInt("server.ws.buffer")
	sub := t.hub.Subscribe(buffer)

	// Customers always hear their private room so the delivery code
	// reaches them without an explicit join.
	if claims.Role == auth.RoleCustomer {
		sub.Join(realtime.RoomCustomer(claims.Subject))
	}
	if claims.Role == auth.RoleRider {
		sub.Join(realtime.RoomRider(claims.Subject))
	}

	go t.writePump(conn, sub)
	t.readPump(conn, sub, claims)
}

func (t *WSTransport) readPump(conn *websocket.Conn, sub *realtime.Subscriber, claims *auth.Claims) {
	defer func() {
		sub.Close()
		_ = conn.Close()
	}()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket closed unexpectedly", "error", err)
			}
			return
		}

		t.handleFrame(sub, claims, frame)
	}
}

func (t *WSTransport) handleFrame(sub *realtime.Subscriber, claims *auth.Claims, frame clientFrame) {
	switch frame.Event {
	case frameJoinOrder:
		var data joinOrderData
		if err := json.Unmarshal(frame.Data, &data); err != nil || data.OrderID == "" {
			return
		}
		if !t.mayViewOrder(claims, data.OrderID) {
			return
		}
		sub.Join(realtime.RoomOrder(data.OrderID))

		// Late joiners get the latest applied location immediately.
		if sample, ok := t.orderSvc.LastKnownLocation(data.OrderID); ok {
			t.hub.Publish(realtime.RoomOrder(data.OrderID), realtime.Event{
				Name: event.NameLiveLocation,
				Data: event.LiveLocation{
					OrderID:    data.OrderID,
					Location:   sample.Location,
					Heading:    sample.Heading,
					RecordedAt: sample.RecordedAt,
				},
			})
		}

	case frameLeaveOrder:
		var data joinOrderData
		if err := json.Unmarshal(frame.Data, &data); err != nil || data.OrderID == "" {
			return
		}
		sub.Leave(realtime.RoomOrder(data.OrderID))

	case frameJoinRider:
		if claims.Role != auth.RoleRider {
			return
		}
		sub.Join(realtime.RoomRiders)

	case frameJoinAdmin:
		if claims.Role != auth.RoleAdmin {
			return
		}
		sub.Join(realtime.RoomAdmin)

	case frameUpdateLocation:
		if claims.Role != auth.RoleRider {
			return
		}
		var data locationData
		if err := json.Unmarshal(frame.Data, &data); err != nil || data.OrderID == "" {
			return
		}
		sample := realtime.Sample{Location: data.Location, Heading: data.Heading}
		if data.RecordedAt != nil {
			sample.RecordedAt = *data.RecordedAt
		}
		if err := t.orderSvc.RelayLocation(context.Background(), data.OrderID, claims.Subject, sample); err != nil {
			slog.Debug("location relay rejected", "order_id", data.OrderID, "error", err)
		}
	}
}

// mayViewOrder scopes per-order rooms: customers to their own orders,
// riders to orders they hold, admins to everything.
func (t *WSTransport) mayViewOrder(claims *auth.Claims, orderID string) bool {
	if claims.Role == auth.RoleAdmin {
		return true
	}

	o, err := t.orderSvc.GetOrder(context.Background(), orderID)
	if err != nil {
		return false
	}
	switch claims.Role {
	case auth.RoleCustomer:
		return o.CustomerID == claims.Subject
	case auth.RoleRider:
		return o.AssignedTo(claims.Subject)
	default:
		return false
	}
}

func (t *WSTransport) writePump(conn *websocket.Conn, sub *realtime.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
