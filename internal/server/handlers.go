package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/avelar/parley/internal/coordinator"
)

// handleWebSocket upgrades the connection and runs one session for its
// lifetime. The handler blocks until the session ends; echo runs each request
// on its own goroutine, which gives us the one-worker-per-connection model.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Clients are native apps, not browsers; no origin to check.
	})
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return err
	}

	session := coordinator.NewSession(s.Coord, conn)
	// The request context dies with the handler's HTTP machinery once the
	// connection is hijacked, so the session reads under its own context.
	session.Serve(context.Background())
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRooms(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Coord.ListRooms())
}

type createRoomRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "room name required",
		})
	}

	if err := s.Coord.CreateRoom(req.Name); err != nil {
		if errors.Is(err, coordinator.ErrRoomExists) || errors.Is(err, coordinator.ErrRoomCapacity) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, map[string]string{"name": req.Name})
}

func (s *Server) handleDeleteRoom(c echo.Context) error {
	name := c.Param("name")
	if err := s.Coord.DeleteRoom(name); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleKick(c echo.Context) error {
	username := c.Param("username")
	if err := s.Coord.KickIdentity(username); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"kicked": username})
}

func (s *Server) handleActivePresence(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Coord.ActivePresence())
}

func (s *Server) handleInactivePresence(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Coord.InactivePresence())
}
