package web

import (
	"pairchat/auth"
	"pairchat/errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) setupRoutes() {
	s.app.Get("/", s.rootHandler)
	s.app.Get("/health", s.healthHandler)
	s.app.Post("/signup", s.signupHandler)
	s.app.Post("/login", s.loginHandler)
	s.app.Get("/me", auth.RequireToken(s.tokens), s.meHandler)
	s.app.Get("/users", s.onlineUsersHandler)
	s.app.Get("/all-users", s.allUsersHandler)
	s.app.Get("/messages", s.messagesHandler)
	s.app.Get("/messages/search", auth.RequireToken(s.tokens), s.searchHandler)
	s.app.Get("/stats", s.statsHandler)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWebSocket))
}

func (s *Server) rootHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Chat server is running!"})
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// signupHandler handles POST /signup.
func (s *Server) signupHandler(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	token, err := s.auth.Register(req.Username, req.Password)
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(TokenResponse{Message: "User created", Token: token.String()})
	case errors.Is(err, errors.ErrInvalidPassword):
		return badRequest(c, "Username and password are required, password needs at least 6 characters")
	case errors.Is(err, errors.ErrUserAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "conflict", Message: "Username already exists"})
	default:
		s.log.Error("Signup failed", "username", req.Username, "error", err)
		return fiber.ErrInternalServerError
	}
}

// loginHandler handles POST /login.
func (s *Server) loginHandler(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	token, err := s.auth.Login(req.Username, req.Password)
	switch {
	case err == nil:
		return c.JSON(TokenResponse{Message: "Login successful", Token: token.String()})
	case errors.Is(err, errors.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "unauthorized", Message: "Invalid username or password"})
	default:
		s.log.Error("Login failed", "username", req.Username, "error", err)
		return fiber.ErrInternalServerError
	}
}

func (s *Server) meHandler(c *fiber.Ctx) error {
	name, _ := c.Locals(auth.UsernameKey).(string)
	identity, err := s.chat.FindUser(name)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(toUserResponse(identity))
}

func (s *Server) onlineUsersHandler(c *fiber.Ctx) error {
	users, err := s.chat.OnlineUsers()
	if err != nil {
		s.log.Error("Listing online users failed", "error", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(toUserResponses(users))
}

func (s *Server) allUsersHandler(c *fiber.Ctx) error {
	users, err := s.chat.AllUsers()
	if err != nil {
		s.log.Error("Listing users failed", "error", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(toUserResponses(users))
}

func (s *Server) messagesHandler(c *fiber.Ctx) error {
	messages, err := s.chat.RecentMessages()
	if err != nil {
		s.log.Error("Listing messages failed", "error", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(toMessageResponses(messages))
}

// searchHandler handles GET /messages/search?q=...&limit=...
// Only the caller's own conversations are searched.
func (s *Server) searchHandler(c *fiber.Ctx) error {
	name, _ := c.Locals(auth.UsernameKey).(string)
	messages, err := s.chat.Search(c.UserContext(), name, c.Query("q"), c.QueryInt("limit"))
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			return badRequest(c, "Query parameter q is required")
		}
		s.log.Error("Search failed", "user", name, "error", err)
		return fiber.ErrInternalServerError
	}
	return c.JSON(toMessageResponses(messages))
}

func (s *Server) statsHandler(c *fiber.Ctx) error {
	return c.JSON(s.chat.Stats())
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_error", Message: message})
}
