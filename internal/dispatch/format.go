package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/psds-microservice/support-bot/internal/errs"
	"github.com/psds-microservice/support-bot/internal/model"
	"github.com/psds-microservice/support-bot/internal/store"
)

// Маркеры в тексте сообщений администратору; по ним разбирается ответ.
const (
	markerTicket = "Ticket:"
	markerUserID = "User ID:"
)

// Уведомления администратору.
const (
	NoticeFormatMismatch = "❌ ফরম্যাট মিলছে না। বটের পাঠানো মেসেজে রিপ্লাই দিন।"
	NoticeReplyFailed    = "❌ Reply failed"
)

func newTicketText(ticket string, u model.Identity) string {
	return "🆕 New Ticket\n\n" +
		fmt.Sprintf("🎫 %s %s\n", markerTicket, ticket) +
		fmt.Sprintf("👤 Name: %s\n", u.FirstName) +
		fmt.Sprintf("🆔 %s %d", markerUserID, u.ID)
}

func supportMessageText(ticket string, u model.Identity, body string) string {
	return "📩 Support Message\n\n" +
		fmt.Sprintf("🎫 %s %s\n", markerTicket, ticket) +
		fmt.Sprintf("👤 Name: %s\n", u.FirstName) +
		fmt.Sprintf("🆔 %s %d\n\n", markerUserID, u.ID) +
		"💬 Message:\n" + body
}

func welcomeText(ticket string) string {
	return fmt.Sprintf("স্বাগতম! আপনার সমস্যাটি লিখুন 🙂\n\n🎫 %s %s", markerTicket, ticket)
}

// markerValue возвращает текст после первого вхождения marker до конца строки.
func markerValue(text, marker string) (string, bool) {
	i := strings.Index(text, marker)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(marker):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

// ParseReplyContext извлекает тикет и id пользователя из текста пересланного администратору сообщения.
func ParseReplyContext(text string) (string, int64, error) {
	ticket, ok := markerValue(text, markerTicket)
	if !ok {
		return "", 0, fmt.Errorf("%w: no %q marker", errs.ErrReplyContext, markerTicket)
	}
	rawID, ok := markerValue(text, markerUserID)
	if !ok {
		return "", 0, fmt.Errorf("%w: no %q marker", errs.ErrReplyContext, markerUserID)
	}
	if !store.ValidKey(ticket) {
		return "", 0, fmt.Errorf("%w: bad ticket %q", errs.ErrReplyContext, ticket)
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad user id %q", errs.ErrReplyContext, rawID)
	}
	return ticket, userID, nil
}

// commandName возвращает имя команды без "/" и "@botname"; для обычного текста — "".
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.TrimPrefix(name, "/")
}
