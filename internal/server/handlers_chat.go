package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/assistant"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/toolkit"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// ChatRequest is the body of POST /chat. An empty ConversationID starts a
// new conversation.
type ChatRequest struct {
	ConversationID string             `json:"conversationID,omitempty"`
	Message        string             `json:"message"`
	Context        *assistant.Context `json:"context,omitempty"`
	Model          string             `json:"model,omitempty"`
}

// ChatReply is the data of the terminal "reply" event.
type ChatReply struct {
	ConversationID string            `json:"conversationID"`
	Topic          string            `json:"topic"`
	Message        types.ChatMessage `json:"message"`
	Error          string            `json:"error,omitempty"`
}

// ConversationInfo is returned by GET /chat/{conversationID}.
type ConversationInfo struct {
	ID      string              `json:"id"`
	Topic   string              `json:"topic"`
	History []types.ChatMessage `json:"history"`
}

type chatRegistry struct {
	mu    sync.Mutex
	convs map[string]*assistant.Conversation
}

func newChatRegistry() *chatRegistry {
	return &chatRegistry{convs: make(map[string]*assistant.Conversation)}
}

func (c *chatRegistry) get(id string) (*assistant.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return conv, nil
}

func (c *chatRegistry) add(conv *assistant.Conversation) {
	c.mu.Lock()
	c.convs[conv.ID()] = conv
	c.mu.Unlock()
}

func (c *chatRegistry) remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.convs[id]
	delete(c.convs, id)
	return ok
}

// sendChat streams the assistant's reply as "delta" events and ends with a
// "reply" event.
func (s *Server) sendChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	var conv *assistant.Conversation
	if req.ConversationID != "" {
		c, err := s.chats.get(req.ConversationID)
		if err != nil {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "conversation not found: "+req.ConversationID)
			return
		}
		conv = c
		if req.Context != nil {
			conv.SetContext(*req.Context)
		}
	} else {
		p, model, err := s.resolveSmall(req.Model)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		var chatCtx assistant.Context
		if req.Context != nil {
			chatCtx = *req.Context
		}
		topics := toolkit.New(p, toolkit.WithModel(model.ID), toolkit.WithBus(s.bus))
		conv = assistant.New(p, chatCtx,
			assistant.WithModel(model.ID),
			assistant.WithBus(s.bus),
			assistant.WithTopics(topics),
		)
		s.chats.add(conv)
	}

	sse, ok := startSSE(w)
	if !ok {
		return
	}

	msg, err := conv.Send(r.Context(), req.Message, func(delta string) {
		sse.writeEvent(SSEEventDelta, map[string]string{"text": delta})
	})
	if errors.Is(err, assistant.ErrEmptyMessage) {
		sse.writeEvent(SSEEventError, ErrorDetail{Code: ErrCodeInvalidRequest, Message: err.Error()})
		return
	}

	reply := ChatReply{ConversationID: conv.ID(), Topic: conv.Topic(), Message: msg}
	if err != nil {
		reply.Error = err.Error()
	}
	sse.writeEvent(SSEEventReply, reply)
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	conv, err := s.chats.get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "conversation not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, ConversationInfo{ID: conv.ID(), Topic: conv.Topic(), History: conv.History()})
}

func (s *Server) deleteChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if !s.chats.remove(id) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "conversation not found: "+id)
		return
	}
	writeSuccess(w)
}
