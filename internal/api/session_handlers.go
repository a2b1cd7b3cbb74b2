package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/memopack/internal/collector"
	"github.com/listenupapp/memopack/internal/domain"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		Summary:       "Create session",
		Description:   "Starts a new session holding one empty memo draft",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{sessionID}",
		Summary:     "Get session",
		Description: "Returns the drafts of a session in order",
		Tags:        []string{"Sessions"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteSession",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sessions/{sessionID}",
		Summary:       "Delete session",
		Description:   "Ends a session and discards its drafts and attachments",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteSession)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addDraft",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions/{sessionID}/drafts",
		Summary:       "Add draft",
		Description:   "Appends an empty memo draft to the session",
		Tags:          []string{"Drafts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddDraft)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeDraft",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sessions/{sessionID}/drafts/{draftID}",
		Summary:       "Remove draft",
		Description:   "Removes a draft and its attachments. The other drafts keep their order.",
		Tags:          []string{"Drafts"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveDraft)

	huma.Register(s.api, huma.Operation{
		OperationID: "setDraftText",
		Method:      http.MethodPut,
		Path:        "/api/v1/sessions/{sessionID}/drafts/{draftID}/text",
		Summary:     "Set draft text",
		Description: "Replaces the free text of a draft. The text is stored as typed, whitespace included.",
		Tags:        []string{"Drafts"},
	}, s.handleSetDraftText)
}

// FileResponse describes one attachment.
type FileResponse struct {
	Name string `json:"name" doc:"Original filename; becomes images/<name> in the archive"`
	Size int    `json:"size" doc:"Size in bytes"`
}

// DraftResponse is a memo draft in API responses.
type DraftResponse struct {
	ID    string         `json:"id" doc:"Draft ID"`
	Text  string         `json:"text" doc:"Free text"`
	Files []FileResponse `json:"files" doc:"Attachments in order"`
}

// SessionResponse is a session with its drafts.
type SessionResponse struct {
	ID     string          `json:"id" doc:"Session ID"`
	Drafts []DraftResponse `json:"drafts" doc:"Drafts in display order"`
}

// SessionPathInput identifies a session.
type SessionPathInput struct {
	SessionID string `path:"sessionID" doc:"Session ID"`
}

// DraftPathInput identifies a draft within a session.
type DraftPathInput struct {
	SessionID string `path:"sessionID" doc:"Session ID"`
	DraftID   string `path:"draftID" doc:"Draft ID"`
}

// SessionOutput wraps a session for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// DraftOutput wraps a draft for Huma.
type DraftOutput struct {
	Body DraftResponse
}

// SetDraftTextInput replaces a draft's text.
type SetDraftTextInput struct {
	SessionID string `path:"sessionID" doc:"Session ID"`
	DraftID   string `path:"draftID" doc:"Draft ID"`
	Body      struct {
		Text string `json:"text" doc:"New free text; may be empty"`
	}
}

func (s *Server) handleCreateSession(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	c, err := s.registry.Create()
	if err != nil {
		return nil, s.humaError(ctx, err)
	}
	return &SessionOutput{Body: toSessionResponse(c)}, nil
}

func (s *Server) handleGetSession(ctx context.Context, input *SessionPathInput) (*SessionOutput, error) {
	c, err := s.registry.Get(input.SessionID)
	if err != nil {
		return nil, s.humaError(ctx, err)
	}
	return &SessionOutput{Body: toSessionResponse(c)}, nil
}

func (s *Server) handleDeleteSession(ctx context.Context, input *SessionPathInput) (*struct{}, error) {
	if err := s.registry.Delete(input.SessionID); err != nil {
		return nil, s.humaError(ctx, err)
	}
	return nil, nil
}

func (s *Server) handleAddDraft(ctx context.Context, input *SessionPathInput) (*DraftOutput, error) {
	c, err := s.registry.Get(input.SessionID)
	if err != nil {
		return nil, s.humaError(ctx, err)
	}

	d, err := c.AddDraft()
	if err != nil {
		return nil, s.humaError(ctx, err)
	}
	return &DraftOutput{Body: toDraftResponse(d)}, nil
}

func (s *Server) handleRemoveDraft(ctx context.Context, input *DraftPathInput) (*struct{}, error) {
	c, err := s.registry.Get(input.SessionID)
	if err != nil {
		return nil, s.humaError(ctx, err)
	}

	if err := c.RemoveDraft(input.DraftID); err != nil {
		return nil, s.humaError(ctx, err)
	}
	return nil, nil
}

func (s *Server) handleSetDraftText(ctx context.Context, input *SetDraftTextInput) (*DraftOutput, error) {
	c, err := s.registry.Get(input.SessionID)
	if err != nil {
		return nil, s.humaError(ctx, err)
	}

	if err := c.SetText(input.DraftID, input.Body.Text); err != nil {
		return nil, s.humaError(ctx, err)
	}

	d, err := c.Draft(input.DraftID)
	if err != nil {
		return nil, s.humaError(ctx, err)
	}
	return &DraftOutput{Body: toDraftResponse(d)}, nil
}

func toSessionResponse(c *collector.Collector) SessionResponse {
	drafts := c.Drafts()
	resp := SessionResponse{
		ID:     c.ID(),
		Drafts: make([]DraftResponse, len(drafts)),
	}
	for i, d := range drafts {
		resp.Drafts[i] = toDraftResponse(d)
	}
	return resp
}

func toDraftResponse(d domain.Draft) DraftResponse {
	files := make([]FileResponse, len(d.Files))
	for i, f := range d.Files {
		files[i] = FileResponse{Name: f.Name()}
		if sz, ok := f.(domain.Sizer); ok {
			files[i].Size = sz.Size()
		}
	}
	return DraftResponse{ID: d.ID, Text: d.Text, Files: files}
}
