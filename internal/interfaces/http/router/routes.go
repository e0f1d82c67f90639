// Package router 提供 HTTP 路由配置
package router

import (
	"slidekit-ai-api/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	authHandler *handler.AuthHandler,
	brainstormHandler *handler.BrainstormHandler,
	deckHandler *handler.DeckHandler,
) {
	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.POST("/logout", authHandler.Logout)
	}

	// 用户管理
	users := v1.Group("/users")
	{
		users.GET("/me", authHandler.GetMe)
	}

	// 头脑风暴会话
	sessions := v1.Group("/brainstorm/sessions")
	{
		sessions.POST("", brainstormHandler.CreateSession)
		sessions.GET("", brainstormHandler.ListSessions)
		sessions.GET("/:sid", brainstormHandler.GetSession)
		sessions.GET("/:sid/turns", brainstormHandler.ListTurns)
		sessions.POST("/:sid/messages", brainstormHandler.SendMessage) // JSON 或 SSE
	}

	// 已保存文稿
	decks := v1.Group("/decks")
	{
		decks.GET("", deckHandler.ListDecks)
		decks.POST("/search", deckHandler.SearchSlides)
		decks.GET("/:rid", deckHandler.GetDeck)
		decks.GET("/:rid/markdown", deckHandler.GetDeckMarkdown)
		decks.POST("/:rid/export", deckHandler.ExportDeck)
		decks.DELETE("/:rid", deckHandler.DeleteDeck)
	}
}
