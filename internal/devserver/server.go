package devserver

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/internal/auth"
)

// Server hosts the development backend.
type Server struct {
	echo      *echo.Echo
	store     *store
	logger    *zap.Logger
	withAudio bool
	// sample rate of synthesized answer audio
	sampleRate int
}

// New builds the server with all routes registered. When withAudio is set,
// answers carry a base64 audio_data payload like the real backend.
func New(logger *zap.Logger, withAudio bool) *Server {
	s := &Server{
		echo:       echo.New(),
		store:      newStore(),
		logger:     logger,
		withAudio:  withAudio,
		sampleRate: 16000,
	}
	s.echo.HideBanner = true

	s.echo.Use(middleware.Logger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "gramvaani-devserver",
		})
	})

	s.echo.POST("/api/signup", s.signup)
	s.echo.POST("/api/login", s.login)
	s.echo.GET("/api/location", s.location)
	s.echo.POST("/api/reverse-geocode", s.reverseGeocode)

	protected := s.echo.Group("", s.requireToken)
	protected.GET("/api/me", s.me)
	protected.PUT("/api/profile", s.updateProfile)
	protected.GET("/api/user-queries", s.userQueries)
	protected.POST("/process-audio", s.processAudio)
	protected.POST("/process-text", s.processText)
	protected.POST("/api/weather", s.weather)
	protected.POST("/api/crop-prices", s.cropPrices)
	protected.POST("/api/gov-schemes", s.govSchemes)

	return s
}

// Echo exposes the underlying instance for serving and for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func detail(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"detail": message})
}

// requireToken validates the bearer token and stores the caller's email in
// the request context.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if len(header) <= 7 || header[:7] != "Bearer " {
			return detail(c, http.StatusUnauthorized, "Not authenticated")
		}
		claims, err := auth.ValidateToken(header[7:])
		if err != nil {
			s.logger.Warn("Rejected token", zap.Error(err))
			return detail(c, http.StatusUnauthorized, "Invalid or expired token")
		}
		c.Set("email", claims.Email)
		return next(c)
	}
}

func (s *Server) signup(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Language string `json:"language"`
		Location string `json:"location"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || req.Password == "" {
		return detail(c, http.StatusBadRequest, "Email and password are required")
	}
	user, err := s.store.createUser(req.Email, req.Password, req.Language, req.Location)
	if err != nil {
		return detail(c, http.StatusBadRequest, "Email already registered")
	}
	token, err := auth.GenerateUserToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return detail(c, http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request format")
	}
	user, ok := s.store.authenticate(req.Email, req.Password)
	if !ok {
		return detail(c, http.StatusUnauthorized, "Invalid credentials")
	}
	token, err := auth.GenerateUserToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return detail(c, http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) me(c echo.Context) error {
	user, err := s.store.findByEmail(c.Get("email").(string))
	if err != nil {
		return detail(c, http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, userJSON(user))
}

func (s *Server) updateProfile(c echo.Context) error {
	var req struct {
		Language string `json:"language"`
		Location string `json:"location"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request format")
	}
	user, err := s.store.updateProfile(c.Get("email").(string), req.Language, req.Location)
	if err != nil {
		return detail(c, http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, userJSON(user))
}

func (s *Server) userQueries(c echo.Context) error {
	records := s.store.queriesFor(c.Get("email").(string))
	queries := make([]map[string]any, 0, len(records))
	for _, r := range records {
		queries = append(queries, map[string]any{
			"type":      r.Type,
			"query":     r.Query,
			"response":  r.Response,
			"timestamp": r.Timestamp.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"queries": queries})
}

func (s *Server) processAudio(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return detail(c, http.StatusBadRequest, "Audio file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return detail(c, http.StatusBadRequest, "Failed to read audio file")
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		return detail(c, http.StatusBadRequest, "Failed to read audio file")
	}

	transcript := transcribe(len(audio))
	answer := textAnswer(transcript)
	s.record(c, "voice", transcript, answer)
	return s.answer(c, map[string]any{
		"transcript":    transcript,
		"response_text": answer,
	})
}

func (s *Server) processText(c echo.Context) error {
	var req struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request format")
	}
	if req.Text == "" {
		return detail(c, http.StatusBadRequest, "Text is required")
	}
	answer := textAnswer(req.Text)
	s.record(c, "text", req.Text, answer)
	return s.answer(c, map[string]any{"response_text": answer})
}

func (s *Server) weather(c echo.Context) error {
	var req struct {
		City string `json:"city"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request format")
	}
	answer := weatherAnswer(req.City)
	s.record(c, "weather", req.City, answer)
	return s.answer(c, map[string]any{"response_text": answer})
}

func (s *Server) cropPrices(c echo.Context) error {
	var req struct {
		Crop   string `json:"crop"`
		Market string `json:"market"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request format")
	}
	answer := cropPriceAnswer(req.Crop, req.Market)
	s.record(c, "crop", req.Crop, answer)
	return s.answer(c, map[string]any{"response_text": answer})
}

func (s *Server) govSchemes(c echo.Context) error {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request format")
	}
	answer := schemeAnswer(req.Topic)
	s.record(c, "scheme", req.Topic, answer)
	return s.answer(c, map[string]any{"response_text": answer})
}

func (s *Server) location(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"location": "Delhi, India"})
}

func (s *Server) reverseGeocode(c echo.Context) error {
	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request format")
	}
	address := reverseGeocodeAnswer(req.Latitude, req.Longitude)
	return c.JSON(http.StatusOK, map[string]string{"address": address})
}

// answer attaches synthesized audio when enabled and writes the response.
func (s *Server) answer(c echo.Context, payload map[string]any) error {
	if s.withAudio {
		audio, err := synthesize(s.sampleRate)
		if err != nil {
			s.logger.Warn("Failed to synthesize answer audio", zap.Error(err))
		} else {
			payload["audio_data"] = audio
		}
	}
	return c.JSON(http.StatusOK, payload)
}

func (s *Server) record(c echo.Context, queryType, query, response string) {
	email, _ := c.Get("email").(string)
	if email == "" {
		return
	}
	s.store.appendQuery(email, queryRecord{
		Type:      queryType,
		Query:     query,
		Response:  response,
		Timestamp: time.Now().UTC(),
	})
}

func userJSON(user *userRecord) map[string]string {
	return map[string]string{
		"id":       user.ID,
		"email":    user.Email,
		"language": user.Language,
		"location": user.Location,
	}
}
