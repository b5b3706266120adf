package server

import (
	"time"

	"github.com/matkrin/lintgutter/internal/annotation"
	"github.com/matkrin/lintgutter/internal/language"
	"github.com/matkrin/lintgutter/internal/lsp"
	"github.com/matkrin/lintgutter/internal/utils"
)

type Config struct {
	Language string
	Encoding string // used for every document, LSP text is always UTF-8
	Debounce time.Duration
	Priority int
}

type State struct {
	Documents         map[string]*Document
	Config            Config
	ShutdownRequested bool
}

func NewState(config Config) State {
	return State{
		Documents:         make(map[string]*Document),
		Config:            config,
		ShutdownRequested: false,
	}
}

// Document is an open editor buffer together with its marker surface.
type Document struct {
	uri        string
	text       string
	languageID string
	encoding   string
	version    int
	surface    *annotation.Surface
}

func (d *Document) URI() string      { return d.uri }
func (d *Document) Text() string     { return d.text }
func (d *Document) Encoding() string { return d.encoding }

// Language is the languageId the client sent, or a guess from the path and
// shebang when the client left it empty.
func (d *Document) Language() string {
	if d.languageID != "" {
		return d.languageID
	}
	path, err := utils.UriToPath(d.uri)
	if err != nil {
		path = ""
	}
	return language.Detect(path, d.text)
}

func (s *Server) openDocument(item lsp.TextDocumentItem) *Document {
	if old, ok := s.state.Documents[item.URI]; ok {
		old.surface.Deactivate()
	}

	doc := &Document{
		uri:        item.URI,
		text:       item.Text,
		languageID: item.LanguageID,
		encoding:   s.state.Config.Encoding,
		version:    item.Version,
	}
	doc.surface = annotation.NewSurface(&publishingMargin{server: s, doc: doc}, s.state.Config.Priority)
	s.state.Documents[item.URI] = doc
	return doc
}

func (s *Server) closeDocument(uri string) {
	doc, ok := s.state.Documents[uri]
	if !ok {
		return
	}
	doc.surface.Deactivate()
	delete(s.state.Documents, uri)
}
