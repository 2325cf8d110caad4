//go:generate go run go.uber.org/mock/mockgen -source=catalog.go -destination=../mocks/mock_catalog.go -package=mocks
package catalog

import (
	"context"

	"github.com/rajivgeraev/toyswap-api/internal/models"
)

// Catalog - то, что ядру нужно от хранилища пользователей и игрушек.
// Отсутствующие записи возвращаются как errs.NotFound.
type Catalog interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetToy(ctx context.Context, id int64) (*models.Toy, error)
	// TransferToy меняет владельца, только если текущий владелец равен from
	TransferToy(ctx context.Context, toyID, from, to int64) error
}

// MessagePurger удаляет переписку пользователя при каскадном удалении
type MessagePurger interface {
	PurgeUser(ctx context.Context, userID int64, toyIDs []int64) error
}
