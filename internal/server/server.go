package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/matkrin/lintgutter/internal/coordinator"
	"github.com/matkrin/lintgutter/internal/lsp"
	"github.com/matkrin/lintgutter/internal/mainloop"
)

// Server answers LSP requests. Every incoming message runs on the server's
// loop, which is also where finished analyses are delivered, so documents and
// their surfaces are only touched from that one goroutine.
type Server struct {
	name        string
	version     string
	state       State
	writer      io.Writer
	loop        *mainloop.Loop
	coordinator *coordinator.Coordinator
	logger      *slog.Logger
	exit        func(int)
	mu          sync.Mutex
}

func NewServer(
	name, version string,
	state State,
	writer io.Writer,
	runner coordinator.Runner,
	logger *slog.Logger,
) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		name:    name,
		version: version,
		state:   state,
		writer:  writer,
		loop:    mainloop.New(),
		logger:  logger,
		exit:    os.Exit,
	}

	coord, err := coordinator.New(coordinator.Options{
		Language:   state.Config.Language,
		Runner:     runner,
		Dispatcher: s.loop,
		OnComplete: s.onComplete,
		Debounce:   state.Config.Debounce,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	s.coordinator = coord

	s.loop.Start()
	return s, nil
}

func (s *Server) HandleMessage(method string, contents []byte) {
	if !s.loop.Post(func() { s.dispatchMessage(method, contents) }) {
		s.logger.Warn("Server stopped, dropping message", "method", method)
	}
}

// Stop handles the messages still queued, then cancels all analyses.
func (s *Server) Stop() {
	s.loop.Stop()
	s.coordinator.Shutdown()
}

func (s *Server) dispatchMessage(method string, contents []byte) {
	s.logger.Info("Received message", "method", method)

	switch method {
	case "initialize":
		var request lsp.InitializeRequest
		if err := json.Unmarshal(contents, &request); err != nil {
			s.logger.Error("Could not parse request", "method", method, "err", err)
			s.replyError(contents, lsp.ErrorCodeInvalidParams, err.Error())
			return
		}

		if info := request.Params.ClientInfo; info != nil {
			s.logger.Info("Connected to client", "name", info.Name, "version", info.Version)
		}

		capabilities := lsp.ServerCapabilities{
			TextDocumentSync: lsp.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    lsp.TextDocumentSyncFull,
				Save:      lsp.SaveOptions{IncludeText: true},
			},
			HoverProvider: true,
		}
		info := lsp.ServerInfo{
			Name:    s.name,
			Version: s.version,
		}

		msg := lsp.NewInitializeResponse(request.ID, &capabilities, &info)
		s.writeResponse(msg)

	case "shutdown":
		var request lsp.ShutdownRequest
		if err := json.Unmarshal(contents, &request); err != nil {
			s.logger.Error("Could not parse request", "method", method, "err", err)
		}

		s.logger.Info("Received shutdown request")
		s.state.ShutdownRequested = true
		s.coordinator.Shutdown()
		for uri := range s.state.Documents {
			s.closeDocument(uri)
		}

		response := lsp.ShutdownResponse{
			Response: lsp.Response{
				RPC: lsp.RPC_VERSION,
				ID:  &request.ID,
			},
			Result: nil,
		}
		s.writeResponse(response)

	case "exit":
		s.logger.Info("Exiting")
		if s.state.ShutdownRequested {
			s.exit(0)
		} else {
			s.logger.Warn("Exiting without shutdown preceding shutdown request")
			s.exit(1)
		}

	case "textDocument/didOpen":
		var request lsp.DidOpenTextDocumentNotification
		if err := json.Unmarshal(contents, &request); err != nil {
			s.logger.Error("Could not parse request", "method", method, "err", err)
			return
		}

		item := request.Params.TextDocument
		s.logger.Info("Opened document", "uri", item.URI)
		doc := s.openDocument(item)
		s.analyze(doc)

	case "textDocument/didChange":
		var request lsp.TextDocumentDidChangeNotification
		if err := json.Unmarshal(contents, &request); err != nil {
			s.logger.Error("Could not parse request", "method", method, "err", err)
			return
		}

		uri := request.Params.TextDocument.URI
		doc, ok := s.state.Documents[uri]
		if !ok {
			s.logger.Warn("Change for unknown document", "uri", uri)
			return
		}
		s.logger.Debug("Changed document", "uri", uri)

		changes := request.Params.ContentChanges
		if len(changes) > 0 {
			doc.text = changes[len(changes)-1].Text
		}
		doc.version = request.Params.TextDocument.Version
		s.analyze(doc)

	case "textDocument/didSave":
		var request lsp.DidSaveTextDocumentNotification
		if err := json.Unmarshal(contents, &request); err != nil {
			s.logger.Error("Could not parse request", "method", method, "err", err)
			return
		}

		uri := request.Params.TextDocument.URI
		doc, ok := s.state.Documents[uri]
		if !ok {
			s.logger.Warn("Save for unknown document", "uri", uri)
			return
		}
		s.logger.Info("Saved document", "uri", uri)

		if request.Params.Text != nil {
			doc.text = *request.Params.Text
		}
		s.analyze(doc)

	case "textDocument/didClose":
		var request lsp.DidCloseTextDocumentNotification
		if err := json.Unmarshal(contents, &request); err != nil {
			s.logger.Error("Could not parse request", "method", method, "err", err)
			return
		}

		uri := request.Params.TextDocument.URI
		s.logger.Info("Closed document", "uri", uri)
		s.coordinator.Close(uri)
		s.closeDocument(uri)

	case "textDocument/hover":
		var request lsp.HoverRequest
		if err := json.Unmarshal(contents, &request); err != nil {
			s.logger.Error("Could not parse request", "method", method, "err", err)
			s.replyError(contents, lsp.ErrorCodeInvalidParams, err.Error())
			return
		}
		s.writeResponse(s.handleHover(&request))

	default:
		s.replyError(contents, lsp.ErrorCodeMethodNotFound, "method not found: "+method)
	}
}

// replyError answers a request with an error. Notifications, which carry no
// id, get no answer.
func (s *Server) replyError(contents []byte, code int, message string) {
	var request struct {
		ID *int `json:"id"`
	}
	if err := json.Unmarshal(contents, &request); err != nil || request.ID == nil {
		return
	}
	s.writeResponse(lsp.NewErrorResponse(request.ID, code, message))
}

// HandleDecodeError answers a message that could not be decoded at all.
func (s *Server) HandleDecodeError(err error) {
	s.logger.Error("Could not decode message", "err", err)
	if !s.loop.Post(func() {
		s.writeResponse(lsp.NewErrorResponse(nil, lsp.ErrorCodeParseError, err.Error()))
	}) {
		s.logger.Warn("Server stopped, dropping parse error")
	}
}

// analyze triggers a run for doc, taking its markers away when the linter
// does not apply to it.
func (s *Server) analyze(doc *Document) {
	if !s.coordinator.Trigger(doc) {
		doc.surface.Deactivate()
	}
}

func (s *Server) onComplete(completion coordinator.Completion) {
	doc, ok := s.state.Documents[completion.URI]
	if !ok {
		return
	}
	if !doc.surface.SetProjection(completion.Generation, completion.Projection) {
		s.logger.Debug("Stale projection rejected", "uri", completion.URI, "generation", completion.Generation)
	}
}

func (s *Server) pushDiagnostic(uri string, version *int, diagnostics []lsp.Diagnostic) {
	notification := lsp.NewDiagnosticNotification(uri, version, diagnostics)
	s.writeResponse(notification)
}

func (s *Server) writeResponse(msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply := lsp.EncodeMessage(msg)
	if _, err := s.writer.Write([]byte(reply)); err != nil {
		s.logger.Error("Could not write response", "err", err)
	}
}
