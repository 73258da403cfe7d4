package server

import (
	"log/slog"
	"net/http"

	"ctarcade/Game-Arcade/internal/api/controller"
	"ctarcade/Game-Arcade/internal/api/response"
	"ctarcade/Game-Arcade/internal/game"
	"ctarcade/Game-Arcade/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

// Server hangs the REST surface and the websocket upgrade route off one gin
// engine.
type Server struct {
	hub      *hub.Hub
	users    *controller.UserController
	queries  *controller.QueryController
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

func NewServer(h *hub.Hub, users *controller.UserController, queries *controller.QueryController) *Server {
	s := &Server{
		hub:     h,
		users:   users,
		queries: queries,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine = s.buildEngine()
	return s
}

// Engine returns the configured gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) buildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api")
	{
		api.POST("/register", s.users.Register)
		api.POST("/login", s.users.Login)
		api.POST("/guest", s.users.GuestLogin)

		authed := api.Group("", s.users.RequireAuth)
		{
			authed.GET("/rooms", s.queries.ListRooms)
			authed.GET("/rooms/:id", s.queries.GetRoom)
			authed.GET("/rooms/code/:code", s.queries.GetRoomByCode)
			authed.GET("/games/:id", s.queries.GetSession)
			authed.GET("/queue/:kind/status", s.queries.GetQueueStatus)
			authed.GET("/tournaments", s.queries.ListTournaments)
			authed.GET("/tournaments/:id", s.queries.GetTournament)
			authed.POST("/tournaments", s.createTournament)
			authed.GET("/history", s.queries.GetHistory)
		}
	}

	engine.GET("/ws", s.users.RequireAuth, s.handleWebSocket)
	return engine
}

type createTournamentRequest struct {
	GameKind   game.Kind `json:"game_kind" binding:"required"`
	EntrantIDs []string  `json:"entrant_ids" binding:"required,min=2"`
}

// createTournament seeds a bracket over already-connected participants.
func (s *Server) createTournament(c *gin.Context) {
	var req createTournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.hub.CreateTournament(c.Request.Context(), req.GameKind, req.EntrantIDs)
	if err != nil {
		response.ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	response.SuccessResponse(c, snap)
}

// handleWebSocket upgrades the connection and hands it to the hub, which
// owns it until it drops. The credential was already resolved by the auth
// middleware.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.Path),
	))
	defer span.End()

	identity, ok := controller.IdentityFrom(c)
	if !ok {
		response.ErrorResponse(c, http.StatusUnauthorized, "missing credentials")
		return
	}
	span.SetAttributes(attribute.String("player.id", identity.ID))

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upgrade connection")
		return
	}

	s.hub.HandleConnection(ctx, identity, conn)
}
