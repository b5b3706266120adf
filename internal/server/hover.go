package server

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/matkrin/lintgutter/internal/lsp"
)

// handleHover shows the tooltip of the hovered line. Lines without a marker
// get a null result.
func (s *Server) handleHover(request *lsp.HoverRequest) *lsp.HoverResponse {
	response := lsp.HoverResponse{
		Response: lsp.Response{
			RPC: lsp.RPC_VERSION,
			ID:  &request.ID,
		},
	}

	doc, ok := s.state.Documents[request.Params.TextDocument.URI]
	if !ok {
		return &response
	}

	line, err := safecast.Conv[int](request.Params.Position.Line)
	if err != nil {
		s.logger.Error("Hover position out of range", "line", request.Params.Position.Line, "err", err)
		return &response
	}

	tooltip, ok := doc.surface.QueryTooltip(line + 1)
	if !ok {
		return &response
	}

	marker, _ := doc.surface.QueryMarker(line + 1)
	response.Result = &lsp.HoverResult{
		Contents: lsp.MarkupContent{
			Kind:  lsp.MarkupKindPlainText,
			Value: fmt.Sprintf("%s: %s", marker.Severity, tooltip.Text),
		},
	}
	return &response
}
