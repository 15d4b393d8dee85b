package errs

import "errors"

// Виды ошибок. Проверяются через errors.Is, оборачиваются через %w.
var (
	// ErrStoreUnavailable — хранилище документов недоступно (сеть, авторизация).
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrChatUnavailable — не удалось отправить сообщение через Telegram.
	ErrChatUnavailable = errors.New("chat unavailable")
	// ErrReplyContext — в сообщении, на которое ответил администратор, нет тикета или пользователя.
	ErrReplyContext = errors.New("reply context not recognized")
	// ErrInvalidPath — недопустимый путь в хранилище.
	ErrInvalidPath = errors.New("invalid store path")
)
