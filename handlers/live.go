package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/recitalsite/recital/backend/go-services/internal/content"
	"github.com/recitalsite/recital/backend/go-services/internal/realtime"
	"github.com/recitalsite/recital/backend/go-services/internal/store"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// liveMessage is one frame on a live socket: a full snapshot or the
// terminal error. The socket closes after an error frame.
type liveMessage struct {
	Seq   uint64 `json:"seq,omitempty"`
	Items any    `json:"items,omitempty"`
	Error string `json:"error,omitempty"`
}

// LiveHandler streams collection snapshots over websockets.
type LiveHandler struct {
	repo *content.Repository
	log  *zap.SugaredLogger
}

func NewLiveHandler(repo *content.Repository) *LiveHandler {
	return &LiveHandler{repo: repo, log: logger.Named("live")}
}

// Register adds GET /live/:collection. Comments accept ?storyId= to follow a
// single story.
func (h *LiveHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/live/:collection", h.Serve)
}

func (h *LiveHandler) Serve(c *gin.Context) {
	collection := c.Param("collection")
	switch collection {
	case store.Stories, store.Comments, store.Feedback:
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnw("upgrade failed", "error", err)
		return
	}

	// Detached from the request; readPump cancels once the peer disconnects.
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan liveMessage, 1)
	if err := h.open(ctx, collection, c.Query("storyId"), out); err != nil {
		cancel()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(liveMessage{Error: err.Error()})
		_ = conn.Close()
		return
	}

	log := h.log.With("collection", collection, "remote", c.ClientIP())
	log.Debug("live stream opened")
	go readPump(conn, cancel)
	writePump(conn, out, cancel, log)
}

// open subscribes and starts forwarding decoded snapshots to out.
func (h *LiveHandler) open(ctx context.Context, collection, storyID string, out chan<- liveMessage) error {
	switch collection {
	case store.Stories:
		view, err := h.repo.SubscribeStories(ctx)
		if err != nil {
			return err
		}
		go forward(ctx, view, out)
	case store.Comments:
		var view *realtime.View[content.Comment]
		var err error
		if storyID != "" {
			view, err = h.repo.SubscribeCommentsForStory(ctx, storyID)
		} else {
			view, err = h.repo.SubscribeComments(ctx)
		}
		if err != nil {
			return err
		}
		go forward(ctx, view, out)
	case store.Feedback:
		view, err := h.repo.SubscribeFeedback(ctx)
		if err != nil {
			return err
		}
		go forward(ctx, view, out)
	}
	return nil
}

// forward relays every snapshot of view until ctx ends or the view fails,
// then closes out.
func forward[T any](ctx context.Context, view *realtime.View[T], out chan<- liveMessage) {
	defer close(out)
	defer view.Cancel()
	var seq uint64
	for {
		items, err := view.Next(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, realtime.ErrCancelled) {
				select {
				case out <- liveMessage{Error: err.Error()}:
				case <-ctx.Done():
				}
			}
			return
		}
		seq++
		select {
		case out <- liveMessage{Seq: seq, Items: items}:
		case <-ctx.Done():
			return
		}
	}
}

// readPump discards client frames and cancels the stream once the peer goes
// away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, out <-chan liveMessage, cancel context.CancelFunc, log *zap.SugaredLogger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = conn.Close()
		log.Debug("live stream closed")
	}()
	for {
		select {
		case msg, ok := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debugw("write failed", "error", err)
				return
			}
			if msg.Error != "" {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "live query failed"))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
