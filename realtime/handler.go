package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"visitrack.net/visitrack/core"
	"visitrack.net/visitrack/security"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

// close codes in the 4xxx application range
const (
	closeInvalidCredential = 4001
	closeAccessDenied      = 4003
)

type joinMessage struct {
	Action    string `json:"action"`
	CompanyID int32  `json:"companyId"`
}

// Handler upgrades connections and runs the handshake state machine: a
// device credential binds the connection to its station (evicting any
// previous one), anything else is an admin that must announce its company
// before it receives broadcasts.
type Handler struct {
	hub      *Hub
	sessions *core.SessionService
	secret   []byte
	log      *slog.Logger

	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, sessions *core.SessionService, secret []byte, log *slog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		sessions: sessions,
		secret:   secret,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &Client{ID: uuid.NewString(), Send: make(chan []byte, sendBuffer)}
	h.hub.Register(client)

	token := credentialFromRequest(c.Request)
	var userClaims *security.UserClaims

	switch security.TokenType(token, h.secret) {
	case security.TypeDevice:
		station, err := h.sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.hub.Unregister(client)
			h.closeWith(conn, closeInvalidCredential, "invalid credential")
			return
		}
		h.hub.BindStation(client, station.ID)
	case security.TypeUser:
		claims, err := security.ParseUserToken(token, h.secret)
		if err != nil {
			h.hub.Unregister(client)
			h.closeWith(conn, closeInvalidCredential, "invalid credential")
			return
		}
		userClaims = claims
	default:
		// No usable credential: admin-pending until joinCompany.
	}

	go h.writePump(client, conn)
	h.readPump(client, conn, userClaims)
}

func (h *Handler) writePump(client *Client, conn *websocket.Conn) {
	for message := range client.Send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
	// Send channel closed: unregistered or evicted.
	_ = conn.Close()
}

func (h *Handler) readPump(client *Client, conn *websocket.Conn, userClaims *security.UserClaims) {
	defer h.hub.Unregister(client)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var join joinMessage
		if err := json.Unmarshal(message, &join); err != nil || join.Action != "joinCompany" {
			continue
		}
		// A credentialed admin may only join its own company's room.
		if userClaims != nil && userClaims.CompanyID != join.CompanyID {
			h.closeWith(conn, closeAccessDenied, "access denied")
			return
		}
		h.hub.JoinCompany(client, join.CompanyID)
	}
}

func (h *Handler) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

func credentialFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
