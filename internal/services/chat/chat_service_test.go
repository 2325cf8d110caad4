package chat

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	chatroom "github.com/rajivgeraev/toyswap-api/internal/chat"
	"github.com/rajivgeraev/toyswap-api/internal/config"
	"github.com/rajivgeraev/toyswap-api/internal/ledger"
	"github.com/rajivgeraev/toyswap-api/internal/logger"
	"github.com/rajivgeraev/toyswap-api/internal/mocks"
	"github.com/rajivgeraev/toyswap-api/internal/models"
)

func setup(t *testing.T) (*fiber.App, *ChatService) {
	t.Helper()
	store, err := ledger.OpenBadgerStore(t.TempDir(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	catalog := mocks.NewMockCatalog(gomock.NewController(t))
	for _, id := range []int64{1, 2, 3} {
		catalog.EXPECT().GetUser(gomock.Any(), id).Return(&models.User{ID: id}, nil).AnyTimes()
	}

	router := chatroom.NewRouter(ledger.New(store, catalog, logger.Discard()), logger.Discard())
	cfg := &config.Config{JWTSecret: "secret", JWTTTL: time.Hour}
	svc := NewChatService(cfg, router, logger.Discard())

	app := fiber.New()
	svc.SetupRoutes(app)
	return app, svc
}

func do(t *testing.T, app *fiber.App, svc *ChatService, userID int64, method, path, body string) (int, map[string]any) {
	t.Helper()
	token, err := svc.jwtService.GenerateToken(userID)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestRoomWith(t *testing.T) {
	app, svc := setup(t)

	status, body := do(t, app, svc, 2, "GET", "/api/chats/with/1", "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "chat_1_2", body["room_id"])

	status, _ = do(t, app, svc, 2, "GET", "/api/chats/with/2", "")
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestSendAndReadHistory(t *testing.T) {
	app, svc := setup(t)

	status, msg := do(t, app, svc, 1, "POST", "/api/chats/chat_1_2/messages", `{"text":"hi"}`)
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, "hi", msg["text"])
	require.EqualValues(t, 2, msg["receiver_id"])

	status, body := do(t, app, svc, 2, "GET", "/api/chats/chat_1_2/messages", "")
	require.Equal(t, fiber.StatusOK, status)
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
}

func TestOutsiderCannotReadOrWrite(t *testing.T) {
	app, svc := setup(t)

	status, _ := do(t, app, svc, 3, "GET", "/api/chats/chat_1_2/messages", "")
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = do(t, app, svc, 3, "POST", "/api/chats/chat_1_2/messages", `{"text":"hey"}`)
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = do(t, app, svc, 1, "GET", "/api/chats/room-42/messages", "")
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestEmptyTextRejected(t *testing.T) {
	app, svc := setup(t)

	status, body := do(t, app, svc, 1, "POST", "/api/chats/chat_1_2/messages", `{"text":""}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "validation", body["kind"])
}
