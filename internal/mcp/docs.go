package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `dirstream serves a small directory of Users and Projects.

Tools here are one-shot fetches:
- get_users / get_projects return whole collections in stored order.
- get_user_by_id / get_project_by_id return a single record, or null when the id is unknown.
  An empty id is rejected with INVALID_ID.

Every Project embeds its owner as a full User object.

For chunked delivery with progress, connect to the websocket hub instead
(see dirstream://docs/streaming).
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "dirstream://docs/streaming",
		Name:        "docs_streaming",
		Title:       "Streaming protocol",
		Description: "How to stream a collection over the websocket hub, one record per envelope.",
		Content: `# Streaming protocol

Connect a websocket to the hub path (default /hub). Every frame is one
JSON-RPC 2.0 message.

## Requests

- startStream {"kind":"users"|"projects"} -> {"accepted":true}
- stopStream {} -> {}
- ping -> {"timestamp":"..."}

The startStream acknowledgement is written before the first envelope.

## Envelopes

Envelopes arrive as notifications named receiveUserChunk or
receiveProjectChunk, with the envelope as params:

    {"data":{...},"isComplete":false,"error":null,"chunkIndex":0,"totalChunks":5,"timestamp":"..."}

- chunkIndex runs 0..totalChunks-1 without gaps.
- The last envelope has isComplete=true.
- A failed stream sends exactly one envelope with data=null, an error
  message, isComplete=true, chunkIndex=0 and totalChunks=0.
- An empty collection sends one envelope with data=null, error=null,
  isComplete=true and totalChunks=0.
- Starting a second stream while one is active yields one error envelope
  "stream already in progress"; the active stream continues.
- stopStream and disconnecting end the stream with no further envelope.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
