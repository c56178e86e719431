package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/playbin/internal/config"
	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/player"
	"github.com/ManuGH/playbin/internal/validate"
	"github.com/go-chi/chi/v5"
)

// PlayerStatus is the JSON view of one player.
type PlayerStatus struct {
	ID          string   `json:"id"`
	State       string   `json:"state"`
	Playing     bool     `json:"playing"`
	Source      string   `json:"source,omitempty"`
	Width       int      `json:"width,omitempty"`
	Height      int      `json:"height,omitempty"`
	Framerate   float64  `json:"framerate,omitempty"`
	Position    float64  `json:"position"`
	Duration    float64  `json:"duration"`
	Rate        float64  `json:"rate"`
	Volume      float64  `json:"volume"`
	Muted       bool     `json:"muted"`
	Looping     bool     `json:"looping"`
	AutoStart   bool     `json:"autoStart"`
	PendingSeek *float64 `json:"pendingSeek,omitempty"`
	LastError   string   `json:"lastError,omitempty"`
}

type createPlayerRequest struct {
	ID        string   `json:"id"`
	URI       string   `json:"uri,omitempty"`
	AutoStart bool     `json:"autoStart"`
	Loop      bool     `json:"loop"`
	Volume    *float64 `json:"volume,omitempty"`
	Muted     bool     `json:"muted"`
	Rate      *float64 `json:"rate,omitempty"`
}

func (req createPlayerRequest) validate() error {
	v := validate.New()
	if !config.ValidPlayerID(req.ID) {
		v.AddError("id", "invalid player id", req.ID)
	}
	if req.URI != "" {
		v.MediaURI("uri", req.URI)
	}
	if req.Volume != nil {
		v.FloatRange("volume", *req.Volume, 0, 10)
	}
	if req.Rate != nil && (*req.Rate <= 0 || *req.Rate > 16) {
		v.AddError("rate", "rate must be in (0, 16]", *req.Rate)
	}
	return v.Err()
}

func (s *Server) status(id string, p *player.Player) PlayerStatus {
	st := PlayerStatus{
		ID:        id,
		State:     p.State().String(),
		Playing:   p.IsPlaying(),
		Position:  p.Position().Seconds(),
		Duration:  p.Duration().Seconds(),
		Rate:      p.PlaybackRate(),
		Volume:    p.Volume(),
		Muted:     p.Muted(),
		Looping:   p.Looping(),
		AutoStart: p.AutoStart(),
	}
	if uri, ok := p.Source(); ok {
		st.Source = uri
	}
	if d, ok := p.VideoDetails(); ok {
		st.Width, st.Height, st.Framerate = d.Width, d.Height, d.Framerate
	}
	if pos, ok := s.reg.PendingSeek(id); ok {
		st.PendingSeek = &pos
	}
	if err := s.reg.LastError(id); err != nil {
		st.LastError = err.Error()
	}
	return st
}

// lookup resolves {id} or writes 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, *player.Player, bool) {
	id := chi.URLParam(r, "id")
	p, ok := s.reg.Player(id)
	if !ok {
		writeNotFound(w, r, "player")
		return id, nil, false
	}
	return id, p, true
}

func (s *Server) handleListPlayers(w http.ResponseWriter, _ *http.Request) {
	out := make([]PlayerStatus, 0)
	for _, id := range s.reg.IDs() {
		if p, ok := s.reg.Player(id); ok {
			out = append(out, s.status(id, p))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "bad request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "bad request", err)
		return
	}

	b := player.NewBuilder(req.ID).WithAutoStart(req.AutoStart)
	if req.URI != "" {
		b = b.WithURI(req.URI)
	}
	ctx := log.ContextWithPlayerID(r.Context(), req.ID)
	if err := s.reg.Start(ctx, b); err != nil {
		writePlayerError(w, r, err)
		return
	}
	p, ok := s.reg.Player(req.ID)
	if !ok {
		writeProblem(w, r, http.StatusConflict, "player replaced concurrently", nil)
		return
	}

	settings := player.Settings{Loop: req.Loop, Volume: 1, Muted: req.Muted}
	if req.Volume != nil {
		settings.Volume = *req.Volume
	}
	if req.Rate != nil {
		settings.Rate = *req.Rate
	}
	if err := settings.Apply(p); err != nil {
		writePlayerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.status(req.ID, p))
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id, p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.status(id, p))
}

func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.reg.Remove(id) {
		writeNotFound(w, r, "player")
		return
	}
	s.hub.Drop(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var ev player.ControlEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "bad request", err)
		return
	}
	found, err := s.reg.Control(id, ev)
	if !found {
		writeNotFound(w, r, "player")
		return
	}
	if err != nil {
		writePlayerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoop(w http.ResponseWriter, r *http.Request) {
	_, p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Loop bool `json:"loop"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "bad request", err)
		return
	}
	p.SetLooping(body.Loop)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	_, p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Rate float64 `json:"rate"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "bad request", err)
		return
	}
	if body.Rate <= 0 || body.Rate > 16 {
		writeProblem(w, r, http.StatusBadRequest, "bad request", errors.New("rate must be in (0, 16]"))
		return
	}
	if err := p.SetPlaybackRate(body.Rate); err != nil {
		writePlayerError(w, r, err)
		return
	}
	// A concurrent update may have won; report the rate in effect.
	writeJSON(w, http.StatusOK, map[string]float64{"rate": p.PlaybackRate()})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	_, p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := p.RestartStream(); err != nil {
		writePlayerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	_, p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := p.Stop(); err != nil {
		writePlayerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
