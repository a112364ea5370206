package docs

// @title           Ride Dispatch API
// @version         1.0
// @description     Dispatches ride requests to nearby drivers and coordinates each ride from request to rating. Live updates go over a WebSocket at /ws.

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
