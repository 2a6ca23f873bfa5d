package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/mdobak/go-xerrors"

	"spectrum-monitor/db"
	"spectrum-monitor/models"
	"spectrum-monitor/utils"
)

// socketController pushes anomaly events to connected dashboards and answers
// stats snapshot requests.
type socketController struct {
	server *socketio.Server
	store  db.DBClient
}

func newSocketController(store db.DBClient) *socketController {
	allowOriginFunc := func(r *http.Request) bool {
		return true
	}

	server := socketio.NewServer(&engineio.Options{
		PingTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: allowOriginFunc,
			},
			&polling.Transport{
				CheckOrigin: allowOriginFunc,
			},
		},
	})

	c := &socketController{server: server, store: store}

	server.OnConnect("/", func(socket socketio.Conn) error {
		socket.SetContext("")
		utils.GetLogger().InfoContext(context.Background(), "socket connected",
			slog.String("socketID", socket.ID()),
			slog.String("remoteAddr", socket.RemoteAddr().String()),
		)
		return nil
	})

	server.OnEvent("/", "requestStats", func(socket socketio.Conn) {
		c.handleRequestStats(socket)
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		utils.GetLogger().ErrorContext(context.Background(), "socket error", slog.Any("error", xerrors.New(e)))
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		utils.GetLogger().InfoContext(context.Background(), "socket disconnected",
			slog.String("socketID", s.ID()),
			slog.String("reason", reason),
		)
	})

	return c
}

// Serve runs the engine.io loop. Blocks until Close.
func (c *socketController) Serve() error {
	return c.server.Serve()
}

func (c *socketController) Close() error {
	return c.server.Close()
}

// Handler returns the HTTP handler to mount at /socket.io/.
func (c *socketController) Handler() http.Handler {
	return c.server
}

func (c *socketController) handleRequestStats(socket socketio.Conn) {
	logger := utils.GetLogger()
	ctx := context.Background()

	stats, err := c.store.GetLocationStats(time.Now().UTC())
	if err != nil {
		logger.ErrorContext(ctx, "failed to load location stats for socket",
			slog.String("socketID", socket.ID()),
			slog.Any("error", xerrors.New(err)),
		)
		socket.Emit("statsError", map[string]string{"message": "failed to load stats"})
		return
	}
	socket.Emit("stats", stats)
}

// BroadcastAnomaly pushes a freshly stored anomalous result to every
// connected dashboard.
func (c *socketController) BroadcastAnomaly(record models.AnomalyRecord) {
	utils.GetLogger().InfoContext(context.Background(), "broadcasting anomaly",
		slog.Int64("analysisID", record.AnalysisID),
		slog.String("locationID", record.LocationID),
	)
	c.server.BroadcastToNamespace("/", "anomaly", record)
}
