package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"pokernight/internal/middleware"
	"pokernight/internal/roster"
	"pokernight/internal/service"
	"pokernight/internal/web"
	"pokernight/internal/ws"
	appErr "pokernight/pkg/errors"
	"pokernight/pkg/logger"
	"pokernight/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const invalidInput = "Invalid input"

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Hub, services.Table)

	r.SetHTMLTemplate(web.MustTemplates())

	r.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"message": "pong"})
	})

	site := r.Group("/")
	site.Use(middleware.Session(services.Signer, services.Roster, middleware.SessionOptions{
		CookieName: services.Config.Session.CookieName,
		Secure:     services.Config.Session.Secure,
	}))
	{
		site.GET("/", handler.Home)

		site.GET("/manage_players", handler.ManagePlayers)
		site.GET("/add_player", handler.AddPlayerForm)
		site.POST("/add_player", handler.AddPlayer)
		site.GET("/update_player/:player_id", handler.UpdatePlayerForm)
		site.POST("/update_player/:player_id", handler.UpdatePlayer)
		site.POST("/delete_player/:player_id", handler.DeletePlayer)
		site.GET("/player_history/:player_id", handler.PlayerHistory)

		site.GET("/setup_game/:table_number", handler.SetupGame)
		site.GET("/add_player/:table_number/:seat_index", handler.SeatPlayerForm)
		site.POST("/add_player/:table_number/:seat_index", handler.SeatPlayer)
		site.POST("/update_player_in_game/:table_number/:seat_index", handler.UpdatePlayerInGame)
		site.GET("/clear_game/:table_number", handler.ClearGame)

		site.GET("/ws/table/:table_number", wsHandler.HandleTableFeed)
	}
}

type addPlayerForm struct {
	Name  string `form:"name" binding:"required"`
	BuyIn string `form:"buy_in"`
}

type changeForm struct {
	Change string `form:"change" binding:"required"`
}

func (h *Handler) Home(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	tables, err := h.services.Table.Tables(c.Request.Context(), sess)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	next := 1
	if len(tables) > 0 {
		next = tables[len(tables)-1] + 1
	}
	c.HTML(http.StatusOK, "home.html", gin.H{
		"Title":     "Poker Night",
		"Tables":    tables,
		"NextTable": next,
	})
}

func (h *Handler) ManagePlayers(c *gin.Context) {
	players, err := h.services.Player.List(c.Request.Context())
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.HTML(http.StatusOK, "manage_players.html", gin.H{
		"Title":   "Players",
		"Players": players,
	})
}

func (h *Handler) AddPlayerForm(c *gin.Context) {
	c.HTML(http.StatusOK, "add_player.html", gin.H{"Title": "Add player"})
}

func (h *Handler) AddPlayer(c *gin.Context) {
	var form addPlayerForm
	if err := c.ShouldBind(&form); err != nil {
		response.Text(c, http.StatusBadRequest, invalidInput)
		return
	}
	buyIn, err := parseAmount(form.BuyIn, true)
	if err != nil {
		response.Text(c, http.StatusBadRequest, invalidInput)
		return
	}

	if _, err := h.services.Player.Create(c.Request.Context(), form.Name, buyIn); err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/manage_players")
}

func (h *Handler) UpdatePlayerForm(c *gin.Context) {
	id, ok := parsePlayerID(c)
	if !ok {
		return
	}
	p, err := h.services.Player.Get(c.Request.Context(), id)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.HTML(http.StatusOK, "update_player.html", gin.H{
		"Title":  "Update " + p.Name,
		"Player": p,
	})
}

func (h *Handler) UpdatePlayer(c *gin.Context) {
	id, ok := parsePlayerID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.services.Player.Get(ctx, id); err != nil {
		h.renderServiceError(c, err)
		return
	}

	var form changeForm
	if err := c.ShouldBind(&form); err != nil {
		response.Text(c, http.StatusBadRequest, invalidInput)
		return
	}
	change, err := parseAmount(form.Change, false)
	if err != nil {
		response.Text(c, http.StatusBadRequest, invalidInput)
		return
	}

	if _, err := h.services.Player.ApplyResult(ctx, id, change); err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/manage_players")
}

func (h *Handler) DeletePlayer(c *gin.Context) {
	id, ok := parsePlayerID(c)
	if !ok {
		return
	}
	if err := h.services.Player.Delete(c.Request.Context(), id); err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/manage_players")
}

func (h *Handler) PlayerHistory(c *gin.Context) {
	id, ok := parsePlayerID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := h.services.Player.Get(ctx, id)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	logs, err := h.services.Player.History(ctx, id)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.HTML(http.StatusOK, "player_history.html", gin.H{
		"Title":  p.Name + " history",
		"Player": p,
		"Logs":   logs,
	})
}

func (h *Handler) SetupGame(c *gin.Context) {
	number, ok := parseTableNumber(c)
	if !ok {
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	table, err := h.services.Table.Refresh(c.Request.Context(), sess, number)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.HTML(http.StatusOK, "setup_game.html", gin.H{
		"Title": fmt.Sprintf("Table %d", number),
		"Table": table,
	})
}

func (h *Handler) SeatPlayerForm(c *gin.Context) {
	number, seatIndex, ok := parseSeat(c)
	if !ok {
		return
	}
	players, err := h.services.Player.List(c.Request.Context())
	if err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.HTML(http.StatusOK, "seat_player.html", gin.H{
		"Title":       fmt.Sprintf("Table %d, seat %d", number, seatIndex),
		"TableNumber": number,
		"SeatIndex":   seatIndex,
		"Players":     players,
	})
}

func (h *Handler) SeatPlayer(c *gin.Context) {
	number, seatIndex, ok := parseSeat(c)
	if !ok {
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var form addPlayerForm
	if err := c.ShouldBind(&form); err != nil {
		response.Text(c, http.StatusBadRequest, invalidInput)
		return
	}
	buyIn, err := parseAmount(form.BuyIn, true)
	if err != nil {
		response.Text(c, http.StatusBadRequest, invalidInput)
		return
	}

	if _, err := h.services.Table.Assign(c.Request.Context(), sess, number, seatIndex, form.Name, buyIn); err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/setup_game/%d", number))
}

func (h *Handler) UpdatePlayerInGame(c *gin.Context) {
	number, errT := strconv.Atoi(c.Param("table_number"))
	seatIndex, errS := strconv.Atoi(c.Param("seat_index"))
	if errT != nil || errS != nil || roster.ValidateTable(number) != nil || roster.ValidateSeat(seatIndex) != nil {
		response.Fail(c, http.StatusNotFound, "Player not found")
		return
	}
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Fail(c, http.StatusInternalServerError, "missing session")
		return
	}

	var form changeForm
	if err := c.ShouldBind(&form); err != nil {
		response.Fail(c, http.StatusBadRequest, invalidInput)
		return
	}
	change, err := parseAmount(form.Change, false)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, invalidInput)
		return
	}

	newBalance, err := h.services.Table.Settle(c.Request.Context(), sess, number, seatIndex, change)
	if err != nil {
		switch {
		case errors.Is(err, appErr.ErrPlayerNotFound):
			response.Fail(c, http.StatusNotFound, "Player not found")
		case errors.Is(err, appErr.ErrInvalidAmount):
			response.Fail(c, http.StatusBadRequest, invalidInput)
		default:
			logger.Log.Error("failed to settle seat", zap.Error(err))
			response.Fail(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	response.Balance(c, newBalance)
}

func (h *Handler) ClearGame(c *gin.Context) {
	number, ok := parseTableNumber(c)
	if !ok {
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.services.Table.Clear(c.Request.Context(), sess, number); err != nil {
		h.renderServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/setup_game/%d", number))
}

func (h *Handler) session(c *gin.Context) (*roster.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		renderError(c, http.StatusInternalServerError, "missing session")
		return nil, false
	}
	return sess, true
}

func (h *Handler) renderServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrPlayerNotFound):
		renderError(c, http.StatusNotFound, "Player not found")
	case errors.Is(err, appErr.ErrInvalidTable), errors.Is(err, appErr.ErrInvalidSeat):
		renderError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, appErr.ErrInvalidName), errors.Is(err, appErr.ErrInvalidAmount):
		response.Text(c, http.StatusBadRequest, invalidInput)
	default:
		_ = c.Error(err)
		logger.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		renderError(c, http.StatusInternalServerError, "Something went wrong")
	}
}

func renderError(c *gin.Context, status int, msg string) {
	c.HTML(status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": msg,
	})
}

// parseAmount parses a form amount. An empty value is 0 when optional.
func parseAmount(raw string, optional bool) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" && optional {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, appErr.ErrInvalidAmount
	}
	return v, nil
}

func parsePlayerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("player_id"), 10, 64)
	if err != nil || id <= 0 {
		renderError(c, http.StatusNotFound, "Player not found")
		return 0, false
	}
	return id, true
}

func parseTableNumber(c *gin.Context) (int, bool) {
	number, err := strconv.Atoi(c.Param("table_number"))
	if err != nil || roster.ValidateTable(number) != nil {
		renderError(c, http.StatusNotFound, "Table not found")
		return 0, false
	}
	return number, true
}

func parseSeat(c *gin.Context) (int, int, bool) {
	number, ok := parseTableNumber(c)
	if !ok {
		return 0, 0, false
	}
	seatIndex, err := strconv.Atoi(c.Param("seat_index"))
	if err != nil || roster.ValidateSeat(seatIndex) != nil {
		renderError(c, http.StatusNotFound, "Seat not found")
		return 0, 0, false
	}
	return number, seatIndex, true
}
