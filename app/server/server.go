package server

import (
	"context"
	"log"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"visamate/app/agent"
	"visamate/app/api"
	"visamate/app/middleware"
	"visamate/chunker"
	"visamate/loader"
	"visamate/model"
	"visamate/store"
	"visamate/types"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
	BodyLimit:    types.MaxUploadSize + 1<<20,
}

type Server struct {
	cfg    types.Config
	logger *slog.Logger
}

func NewServer(cfg types.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()

	// Configuration problems surface before any collaborator is dialed.
	if err := s.cfg.Check(); err != nil {
		log.Fatal(err)
		return
	}

	index, err := store.NewPostgresStore(ctx, s.cfg.VectorDBURL, s.cfg.VectorIndex, s.cfg.VectorDim)
	if err != nil {
		log.Fatal("error to connect to vector database: ", err)
		return
	}

	if err := index.Init(ctx); err != nil {
		log.Fatal("error to create index tables: ", err)
		return
	}

	var (
		embedder  = model.NewOpenAIEmbedder(s.cfg.OpenAIBaseURL, s.cfg.OpenAIKey, s.cfg.EmbedModel)
		completer = model.NewOpenAICompleter(s.cfg.OpenAIBaseURL, s.cfg.OpenAIKey, s.cfg.ChatModel)
		answerer  = agent.New(embedder, index, completer)
		ingester  = loader.New(chunker.New(s.cfg.ChunkSize, s.cfg.ChunkOverlap), embedder, index)

		app           = fiber.New(config)
		checkHandler  = api.NewCheckHandler()
		chatHandler   = api.NewChatHandler(answerer)
		uploadHandler = api.NewUploadHandler(ingester)

		check = app.Group("/check")
		apiv1 = app.Group("/api/v1")
	)

	app.Use(middleware.RequestLogger(s.logger))

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/chat", chatHandler.HandleChat)
	apiv1.Post("/documents/upload", uploadHandler.HandleUpload)

	if err := app.Listen(s.cfg.ServerAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}
