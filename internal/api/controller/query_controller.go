package controller

import (
	"errors"
	"net/http"
	"strconv"

	"ctarcade/Game-Arcade/internal/api/response"
	"ctarcade/Game-Arcade/internal/game"
	"ctarcade/Game-Arcade/internal/repository"
	"ctarcade/Game-Arcade/internal/room"
	"ctarcade/Game-Arcade/internal/tournament"

	"github.com/gin-gonic/gin"
)

// QueryController serves the synchronous read side: room, session, queue
// and tournament state over plain HTTP. It reads the same stores the
// websocket push path writes, so both views agree.
type QueryController struct {
	rooms       *room.Manager
	tournaments *tournament.Manager
	sessions    repository.SessionRepository
	queues      repository.QueueRepository
	history     repository.HistoryRepository
}

// NewQueryController creates a new QueryController.
func NewQueryController(
	rooms *room.Manager,
	tournaments *tournament.Manager,
	sessions repository.SessionRepository,
	queues repository.QueueRepository,
	history repository.HistoryRepository,
) *QueryController {
	return &QueryController{
		rooms:       rooms,
		tournaments: tournaments,
		sessions:    sessions,
		queues:      queues,
		history:     history,
	}
}

// ListRooms returns snapshots of every live room.
func (qc *QueryController) ListRooms(c *gin.Context) {
	response.SuccessResponse(c, gin.H{"rooms": qc.rooms.List()})
}

// GetRoom returns one room snapshot by id.
func (qc *QueryController) GetRoom(c *gin.Context) {
	r, err := qc.rooms.Find(c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}
	response.SuccessResponse(c, r.Snapshot())
}

// GetRoomByCode resolves a private room's join code to its snapshot.
func (qc *QueryController) GetRoomByCode(c *gin.Context) {
	r, err := qc.rooms.FindByCode(c.Param("code"))
	if err != nil {
		response.ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}
	response.SuccessResponse(c, r.Snapshot())
}

// GetSession returns the latest snapshot of a game session.
func (qc *QueryController) GetSession(c *gin.Context) {
	snap, err := qc.sessions.FindSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.ErrorResponse(c, http.StatusNotFound, "session not found")
			return
		}
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.SuccessResponse(c, snap)
}

// GetQueueStatus returns the caller's latest queue entry for a game kind.
func (qc *QueryController) GetQueueStatus(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		response.ErrorResponse(c, http.StatusUnauthorized, "missing credentials")
		return
	}
	kind := game.Kind(c.Param("kind"))

	entry, err := qc.queues.FindEntry(c.Request.Context(), identity.ID, kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.ErrorResponse(c, http.StatusNotFound, "no queue entry for this game kind")
			return
		}
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.SuccessResponse(c, entry)
}

// ListTournaments returns snapshots of every registered tournament.
func (qc *QueryController) ListTournaments(c *gin.Context) {
	response.SuccessResponse(c, gin.H{"tournaments": qc.tournaments.List()})
}

// GetTournament returns one bracket snapshot by id.
func (qc *QueryController) GetTournament(c *gin.Context) {
	t, err := qc.tournaments.Find(c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}
	response.SuccessResponse(c, t.Snapshot())
}

// GetHistory returns the caller's recent match history.
func (qc *QueryController) GetHistory(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		response.ErrorResponse(c, http.StatusUnauthorized, "missing credentials")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := qc.history.ForPlayer(c.Request.Context(), identity.ID, limit)
	if err != nil {
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.SuccessResponse(c, gin.H{"matches": records})
}
