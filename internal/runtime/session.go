package runtime

import (
	"context"
	"fmt"
)

// Session groups jobs on one backend so they are scheduled together.
type Session struct {
	ID      string `json:"id"`
	Backend string `json:"backend_name"`
	Mode    string `json:"mode"`

	svc *Service
}

// OpenSession starts a dedicated session on backend.
func (s *Service) OpenSession(ctx context.Context, backend string) (*Session, error) {
	body := map[string]any{"backend": backend, "mode": "dedicated"}
	if s.opts.Channel == ChannelIBMQuantum && s.opts.Instance != "" {
		body["instance"] = s.opts.Instance
	}
	var out Session
	resp, err := s.request(ctx).SetBody(body).SetResult(&out).Post("/sessions")
	if err := s.check(resp, err, ErrBackendNotFound); err != nil {
		return nil, fmt.Errorf("open session on %s: %w", backend, err)
	}
	if out.Backend == "" {
		out.Backend = backend
	}
	out.svc = s
	s.logger.Debug("session opened", "id", out.ID, "backend", backend)
	return &out, nil
}

// Close stops the session from accepting new jobs. Queued jobs still run.
func (sess *Session) Close(ctx context.Context) error {
	resp, err := sess.svc.request(ctx).
		SetPathParam("id", sess.ID).
		Delete("/sessions/{id}/close")
	if err := sess.svc.check(resp, err, nil); err != nil {
		return fmt.Errorf("close session %s: %w", sess.ID, err)
	}
	sess.svc.logger.Debug("session closed", "id", sess.ID)
	return nil
}
