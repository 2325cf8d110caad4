package errs

import (
	"errors"
	"fmt"
)

// Kind определяет категорию доменной ошибки
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindInvalidState
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Error представляет доменную ошибку с контекстом для вызывающей стороны
type Error struct {
	Kind   Kind
	Entity string // exchange, payment, toy, user, message, room
	ID     int64
	Op     string
	From   string
	To     string
	Msg    string
}

// Сентинелы для errors.Is
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.From != "" || e.To != "":
		return fmt.Sprintf("%s %d: %s (%s -> %s)", e.Entity, e.ID, msg, e.From, e.To)
	case e.Entity != "" && e.ID != 0:
		return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, msg)
	default:
		return msg
	}
}

// Is сравнивает только категорию, чтобы errors.Is(err, ErrInvalidState) работал для любого экземпляра
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Transition возвращает описание попытки перехода, если оно есть
func (e *Error) Transition() string {
	if e.From == "" && e.To == "" {
		return ""
	}
	return e.From + "->" + e.To
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id int64) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Msg: entity + " not found"}
}

func Conflict(entity string, id int64, format string, args ...any) error {
	return &Error{Kind: KindConflict, Entity: entity, ID: id, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(entity string, id int64, format string, args ...any) error {
	return &Error{Kind: KindForbidden, Entity: entity, ID: id, Msg: fmt.Sprintf(format, args...)}
}

// InvalidState описывает запрещённый переход из текущего состояния
func InvalidState(entity string, id int64, op, from, to string) error {
	return &Error{
		Kind:   KindInvalidState,
		Entity: entity,
		ID:     id,
		Op:     op,
		From:   from,
		To:     to,
		Msg:    fmt.Sprintf("cannot %s from status %q", op, from),
	}
}

// KindOf извлекает категорию из цепочки ошибок
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
