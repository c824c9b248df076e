package handlers

import (
	"context"
	"encoding/xml"
	"log"
	"net/http"
	"strings"
	"time"

	"silverbot-chat-api/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionCookieName は Web チャットの訪問者IDを保持するクッキー名
const SessionCookieName = "silverbot_session"

const whatsappSessionPrefix = "whatsapp:"

// ChatResponder はセッションごとに1メッセージへ応答する
type ChatResponder interface {
	HandleMessage(ctx context.Context, sessionID, text string) (*models.ChatReply, error)
}

// ChatHandler は Web と WhatsApp の両方の入口を扱います。
type ChatHandler struct {
	chat         ChatResponder
	cookieMaxAge int
	secureCookie bool
}

// NewChatHandler は新しいChatHandlerを生成します。
func NewChatHandler(chat ChatResponder, sessionTTL time.Duration, secureCookie bool) *ChatHandler {
	return &ChatHandler{
		chat:         chat,
		cookieMaxAge: int(sessionTTL.Seconds()),
		secureCookie: secureCookie,
	}
}

// sessionID は訪問者IDを返す。クッキーがなければ新規発行する。
func (h *ChatHandler) sessionID(c *gin.Context) string {
	if id, err := c.Cookie(SessionCookieName); err == nil {
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id
		}
	}
	id := uuid.New().String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, id, h.cookieMaxAge, "/", "", h.secureCookie, true)
	return id
}

// Home はセッションを用意してウェルカムメッセージを返します。
func (h *ChatHandler) Home(c *gin.Context) {
	h.sessionID(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "SilverBot is ready. Send your message to /get-response/?msg=...",
	})
}

// GetResponse は Web チャットの1メッセージを処理します。
func (h *ChatHandler) GetResponse(c *gin.Context) {
	id := h.sessionID(c)
	msg := c.Query("msg")

	reply, err := h.chat.HandleMessage(c.Request.Context(), id, msg)
	if err != nil {
		log.Printf("❌ [chat] web message failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Something went wrong. Please try again.",
		})
		return
	}
	c.JSON(http.StatusOK, reply)
}

// twimlResponse は Twilio の MessagingResponse 形式
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// WhatsAppWebhook は Twilio から転送された WhatsApp メッセージを処理します。
func (h *ChatHandler) WhatsAppWebhook(c *gin.Context) {
	from := strings.TrimSpace(c.PostForm("From"))
	if from == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "From is required"})
		return
	}
	body := c.PostForm("Body")

	reply, err := h.chat.HandleMessage(c.Request.Context(), whatsappSessionPrefix+strings.TrimPrefix(from, "whatsapp:"), body)
	if err != nil {
		log.Printf("❌ [whatsapp] message failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong"})
		return
	}

	c.XML(http.StatusOK, twimlResponse{Message: WhatsAppText(reply.Reply)})
}

// WhatsAppStatus は GET での疎通確認に応答します。
func (h *ChatHandler) WhatsAppStatus(c *gin.Context) {
	c.String(http.StatusOK, "WhatsApp bot running ✅")
}

// WhatsAppText は Web 用の <br> を改行に変換します。
func WhatsAppText(reply string) string {
	return strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(reply)
}
