package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/domain"
)

// MeetingAPI is the scheduling boundary the surrounding product talks to. The
// orchestration core only reads from it via the gate.
type MeetingAPI struct {
	Dir  app.MeetingDirectory
	Gate *app.Gate
}

type createMeetingRequest struct {
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	DurationMin int       `json:"durationMinutes" binding:"required,min=1"`
}

func (a *MeetingAPI) Create(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid meeting fields"})
		return
	}

	m := &domain.Meeting{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Status:      domain.MeetingScheduled,
		ScheduledAt: req.ScheduledAt,
		Duration:    time.Duration(req.DurationMin) * time.Minute,
	}
	a.Dir.Put(m)
	log.Info().Str("module", "adapters.http").Str("meeting", m.ID).Time("scheduled_at", m.ScheduledAt).Msg("meeting created")
	c.JSON(http.StatusCreated, m)
}

func (a *MeetingAPI) Fetch(c *gin.Context) {
	m, err := a.Dir.Find(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// Access is the pre-join validation call: valid | expired | cancelled |
// not-found for a given meeting id.
func (a *MeetingAPI) Access(c *gin.Context) {
	verdict := a.Gate.Admit(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": string(verdict)})
}
