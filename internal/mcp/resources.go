package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/mcp/tools"
	"github.com/usestring/harreplay/internal/results"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/mutate"
)

// Resource URI scheme: harreplay://
// Supported URIs:
//   harreplay://session/{session}/entry/{index}
//   harreplay://session/{session}/outcome/{index}

// entryResource is the full form of one captured transaction.
type entryResource struct {
	Index        int          `json:"index"`
	Entry        har.Entry    `json:"entry"`
	Effective    har.Request  `json:"effective_request"`
	Modification *mutate.Spec `json:"modification,omitempty"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: tools.ResourceScheme + "session/{session}/entry/{index}",
		Name:        "Captured Transaction",
		Description: "Full captured entry with the effective request after overrides. High context cost - harreplay_get_entry already returns compacted bodies.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceEntry)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: tools.ResourceScheme + "session/{session}/outcome/{index}",
		Name:        "Replay Outcome",
		Description: "Latest replay outcome with the complete live response body. High context cost - harreplay_diff_outcome already returns previews of what changed.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.6,
		},
	}, s.handleResourceOutcome)
}

func (s *Server) handleResourceEntry(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	ref, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	if ref.kind != "entry" {
		return nil, tools.ErrInvalidInput("expected an entry URI")
	}
	sess, err := s.deps.Session(ref.session)
	if err != nil {
		return nil, err
	}

	entry, err := sess.Replayer.Entry(ref.index)
	if err != nil {
		return nil, tools.WrapReplayError(err)
	}
	effective, _ := sess.Replayer.Request(ref.index)
	content := entryResource{Index: ref.index, Entry: entry, Effective: effective}
	if spec, ok := sess.Replayer.Modification(ref.index); ok {
		content.Modification = &spec
	}
	return toResourceResult(req.Params.URI, content)
}

func (s *Server) handleResourceOutcome(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	ref, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	if ref.kind != "outcome" {
		return nil, tools.ErrInvalidInput("expected an outcome URI")
	}
	sess, err := s.deps.Session(ref.session)
	if err != nil {
		return nil, err
	}

	if _, err := sess.Replayer.Entry(ref.index); err != nil {
		return nil, tools.WrapReplayError(err)
	}
	o, ok := sess.Replayer.Outcome(ref.index)
	if !ok {
		return nil, tools.ErrNotFound("outcome", strconv.Itoa(ref.index))
	}
	return toResourceResult(req.Params.URI, results.NewRecord(o))
}

type resourceRef struct {
	session string
	kind    string
	index   int
}

// parseResourceURI extracts parameters from a harreplay:// URI.
func parseResourceURI(uri string) (resourceRef, error) {
	path, ok := strings.CutPrefix(uri, tools.ResourceScheme)
	if !ok {
		return resourceRef{}, tools.ErrInvalidInput("invalid URI scheme: expected " + tools.ResourceScheme)
	}

	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != "session" || parts[1] == "" {
		return resourceRef{}, tools.ErrInvalidInput("resource URI must be session/{session}/{entry|outcome}/{index}")
	}
	switch parts[2] {
	case "entry", "outcome":
	default:
		return resourceRef{}, tools.ErrInvalidInput(fmt.Sprintf("unknown resource type: %s", parts[2]))
	}
	index, err := strconv.Atoi(parts[3])
	if err != nil || index < 0 {
		return resourceRef{}, tools.ErrInvalidInput(fmt.Sprintf("invalid index: %s", parts[3]))
	}
	return resourceRef{session: parts[1], kind: parts[2], index: index}, nil
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}
	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
