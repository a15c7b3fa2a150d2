package server

// registerRoutes wires the WebSocket endpoint and the operator admin API.
func (s *Server) registerRoutes() {
	s.E.GET("/ws", s.handleWebSocket)

	s.E.GET("/healthz", s.handleHealth)

	api := s.E.Group("/api")
	api.GET("/rooms", s.handleListRooms)
	api.POST("/rooms", s.handleCreateRoom)
	api.DELETE("/rooms/:name", s.handleDeleteRoom)
	api.POST("/kick/:username", s.handleKick)
	api.GET("/presence/active", s.handleActivePresence)
	api.GET("/presence/inactive", s.handleInactivePresence)
}
