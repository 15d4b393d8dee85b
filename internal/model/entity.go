package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout — формат всех меток времени в хранилище.
const TimeLayout = "2006-01-02 15:04:05"

// TicketPrefix и TicketBase задают вид номера тикета: TKT-1001, TKT-1002, ...
const (
	TicketPrefix = "TKT-"
	TicketBase   = 1000
)

type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// Ticket хранится по пути tickets/{userId}.
type Ticket struct {
	Ticket  string       `json:"ticket"`
	Status  TicketStatus `json:"status"`
	Created string       `json:"created"`
}

// UserProfile хранится по пути users/{userId}.
type UserProfile struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Ticket   string `json:"ticket"`
	Joined   string `json:"joined"`
}

// MessageEntry — запись истории: messages/{ticketId}/{generatedKey}.
type MessageEntry struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// Relay связывает сообщение, пересланное администратору, с тикетом и пользователем:
// relays/{adminMessageId}.
type Relay struct {
	Ticket  string `json:"ticket"`
	UserID  int64  `json:"user_id"`
	Created string `json:"created"`
}

// Identity — отправитель входящего сообщения.
type Identity struct {
	ID        int64
	FirstName string
	Username  string
}

// TicketID форматирует номер тикета по порядковому номеру n (n >= 1).
func TicketID(n int64) string {
	return fmt.Sprintf("%s%d", TicketPrefix, TicketBase+n)
}

// TicketNumber возвращает числовую часть номера тикета: TKT-1001 -> 1001.
func TicketNumber(ticket string) (int64, bool) {
	digits, ok := strings.CutPrefix(ticket, TicketPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Timestamp форматирует t в TimeLayout.
func Timestamp(t time.Time) string {
	return t.Format(TimeLayout)
}
