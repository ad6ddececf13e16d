package realtime

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Типы событий клиент -> сервер
const (
	TypeJoinRoom       = "join_room"
	TypeLeaveRoom      = "leave_room"
	TypeSendMessage    = "send_message"
	TypeGetRoomUsers   = "get_room_users"
	TypeOffer          = "offer"
	TypeAnswer         = "answer"
	TypeICECandidate   = "ice_candidate"
	TypeUserMicEnabled = "user_mic_enabled"
	TypeUserMicMuted   = "user_mic_muted"
)

// Типы событий сервер -> клиент
const (
	TypeConnected     = "connected"
	TypeRoomUsersList = "room_users_list" // участники комнаты до входа
	TypeJoinedRoom    = "joined_room"
	TypeLeftRoom      = "left_room"
	TypeNewMessage    = "new_message"
	TypeError         = "error"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Envelope описывает входящее сообщение; payload разбирается обработчиком.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ID принимает и число, и строку с числом: клиенты шлют room_id по-разному.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*id = ID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n)
	return nil
}

// --- client payloads ---

type RoomRequest struct {
	RoomID ID `json:"room_id"`
}

type SendMessageRequest struct {
	RoomID  ID     `json:"room_id"`
	Content string `json:"content"`
}

// SignalRequest приходит в offer/answer/ice_candidate. Поля offer/answer/candidate
// оставлены для старых клиентов, payload имеет приоритет.
type SignalRequest struct {
	RoomID       ID              `json:"room_id"`
	TargetUserID ID              `json:"target_user_id"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

func (r SignalRequest) Body() json.RawMessage {
	for _, b := range []json.RawMessage{r.Payload, r.Offer, r.Answer, r.Candidate} {
		if len(b) > 0 {
			return b
		}
	}
	return nil
}

// --- server payloads ---

type ConnectedPayload struct {
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
	UserCity string `json:"user_city"`
}

type RoomUsersPayload struct {
	RoomID int64             `json:"room_id"`
	Users  []domain.Identity `json:"users"`
}

type JoinedRoomPayload struct {
	RoomID int64           `json:"room_id"`
	User   domain.Identity `json:"user"`
}

type LeftRoomPayload struct {
	RoomID int64 `json:"room_id"`
	UserID int64 `json:"user_id"`
}

type NewMessagePayload struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	Username  string `json:"username"`
	UserCity  string `json:"user_city"`
	UserID    int64  `json:"user_id"`
	Timestamp string `json:"timestamp"`
	RoomID    int64  `json:"room_id"`
}

type SignalPayload struct {
	RoomID     int64           `json:"room_id"`
	FromUserID int64           `json:"from_user_id"`
	Payload    json.RawMessage `json:"payload"`
}

type MicPayload struct {
	RoomID int64 `json:"room_id"`
	UserID int64 `json:"user_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func ErrorMessage(msg string) Message {
	return Message{Type: TypeError, Payload: ErrorPayload{Message: msg}}
}

func NewMessage(m domain.Message) Message {
	return Message{Type: TypeNewMessage, Payload: MessagePayload(m)}
}

// MessagePayload переводит сообщение в клиентский вид; им же отдаётся история по HTTP.
func MessagePayload(m domain.Message) NewMessagePayload {
	return NewMessagePayload{
		ID:        m.ID,
		Content:   m.Content,
		Username:  m.Username,
		UserCity:  m.UserCity,
		UserID:    m.UserID,
		Timestamp: FormatTimestamp(m.CreatedAt),
		RoomID:    m.RoomID,
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
