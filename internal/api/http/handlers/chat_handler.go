package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// ChatHandler serves the conversation endpoints.
type ChatHandler struct {
	conversations *service.ConversationService
	attachments   storage.AttachmentStore
	maxAttachment int64
}

// NewChatHandler constructs the handler.
func NewChatHandler(conversations *service.ConversationService, attachments storage.AttachmentStore, maxAttachment int64) *ChatHandler {
	return &ChatHandler{conversations: conversations, attachments: attachments, maxAttachment: maxAttachment}
}

// Open GET /chat?counterpart_id=.
func (h *ChatHandler) Open(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	requested, err := optionalID(c.Query("counterpart_id"), "counterpart_id")
	if err != nil {
		return err
	}
	view, err := h.conversations.OpenChat(c.UserContext(), caller, requested)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Chat(view, caller.ID(), h.resolve)})
}

// Counterparts GET /chat/counterparts?search=.
func (h *ChatHandler) Counterparts(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	entries, err := h.conversations.SearchCounterparts(c.UserContext(), caller, c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CounterpartEntries(entries)})
}

// Thread GET /chat/threads/:counterpartId.
func (h *ChatHandler) Thread(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	counterpartID, err := parseID(c.Params("counterpartId"), "counterpart_id")
	if err != nil {
		return err
	}
	view, err := h.conversations.ViewThread(c.UserContext(), caller, counterpartID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ThreadResponse{
		Counterpart: dto.Account(view.Counterpart),
		Messages:    dto.Messages(view.Messages, caller.ID(), view.Counterpart, h.resolve),
	}})
}

// PostMessage POST /chat/messages (multipart: content, attachment, recipient_id).
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	recipientID, err := optionalID(c.FormValue("recipient_id"), "recipient_id")
	if err != nil {
		return err
	}
	attachment, err := h.readAttachment(c)
	if err != nil {
		return err
	}
	msg, err := h.conversations.PostMessage(c.UserContext(), caller, service.PostMessageInput{
		RecipientID: recipientID,
		Body:        c.FormValue("content"),
		Attachment:  attachment,
	})
	if err != nil {
		return err
	}
	resp := dto.MessageResponse{
		ID:          msg.ID,
		SenderLabel: dto.LabelSelf,
		Body:        msg.Body,
		CreatedAt:   msg.CreatedAt,
	}
	if msg.Attachment != nil {
		url := h.resolve(*msg.Attachment)
		resp.AttachmentURL = &url
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resp})
}

func (h *ChatHandler) readAttachment(c *fiber.Ctx) ([]byte, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	header, err := c.FormFile("attachment")
	if errors.Is(err, fasthttp.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewValidationError("malformed multipart body", map[string]any{"field": "attachment"})
	}
	if h.maxAttachment > 0 && header.Size > h.maxAttachment {
		return nil, apperrors.NewValidationError("attachment too large", map[string]any{
			"field":     "attachment",
			"max_bytes": h.maxAttachment,
		})
	}
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable attachment", map[string]any{"field": "attachment"})
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable attachment", map[string]any{"field": "attachment"})
	}
	return content, nil
}

func (h *ChatHandler) resolve(ref string) string {
	if h.attachments == nil {
		return ref
	}
	return h.attachments.Resolve(ref)
}
