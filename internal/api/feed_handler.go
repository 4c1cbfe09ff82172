package api

import (
	"log/slog"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"bloghub.com/internal/infra"
)

// FeedRequest 客户端发送的订阅指令
type FeedRequest struct {
	Action string `json:"Action"`
	Author string `json:"Author"`
}

// InitFeed 注册 /ws/feed: 新发布的文章实时推送
func InitFeed(app *fiber.App, hub *infra.FeedHub) {
	// Middleware to force upgrade
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/feed", websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c)
		defer hub.Unregister(client)

		if author := strings.TrimSpace(c.Query("author")); author != "" {
			hub.Follow(client, author)
		}

		var msg FeedRequest
		for {
			if err := c.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("feed read error", "component", "feed", "error", err)
				}
				return
			}

			switch msg.Action {
			case "follow":
				hub.Follow(client, msg.Author)
			case "unfollow":
				hub.Unfollow(client, msg.Author)
			default:
				slog.Debug("unexpected feed action", "component", "feed", "action", msg.Action)
			}
		}
	}))
}
