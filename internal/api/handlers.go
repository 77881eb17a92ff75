package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"kovorka/internal/models"
)

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Reason: name + " must be a positive integer"}
	}
	return id, nil
}

func decodeBody(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return &models.ValidationError{Reason: "invalid JSON body"}
	}
	return nil
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, err)
		return
	}

	sess, err := s.sessions.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":    sess.Token,
		"user_id":  sess.UserID,
		"name":     sess.Name,
		"is_admin": sess.IsAdmin,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context(), r.Header.Get(sessionHeader)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	booking, err := s.lifecycle.Create(r.Context(), sess, &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	booking, err := s.lifecycle.GetBooking(r.Context(), sess, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleBookingCost(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	summary, err := s.hierarchy.CostSummary(r.Context(), sess, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	booking, err := s.lifecycle.Cancel(r.Context(), sess, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleExtendOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var body struct {
		DesiredEnd time.Time `json:"desired_end"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, err)
		return
	}

	// Ownership check runs on the fetch; negotiation itself is read-only.
	booking, err := s.lifecycle.GetBooking(r.Context(), sess, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// Off-grid requests snap forward to the next slot boundary.
	desired := models.RoundUpToSlot(body.DesiredEnd, s.booking.SlotMinutes)

	opts, err := s.negotiator.Negotiate(r.Context(), booking, desired)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *HTTPServer) handleExtendConfirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var body struct {
		NewEnd time.Time `json:"new_end"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, err)
		return
	}

	if _, err := s.lifecycle.GetBooking(r.Context(), sess, id); err != nil {
		s.writeServiceError(w, err)
		return
	}

	booking, err := s.negotiator.ConfirmExtend(r.Context(), id, body.NewEnd)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleChangeHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "change history is not configured")
		return
	}

	// Ownership check before touching the journal.
	if _, err := s.lifecycle.GetBooking(r.Context(), sess, id); err != nil {
		s.writeServiceError(w, err)
		return
	}

	limit := defaultChangeHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxChangeHistoryLimit {
			s.writeServiceError(w, &models.ValidationError{Reason: "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	changes, err := s.journal.ListChanges(r.Context(), id, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking_id": id, "changes": changes})
}

const (
	defaultChangeHistoryLimit = 20
	maxChangeHistoryLimit     = 100
)

func (s *HTTPServer) handleChangeOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	opts, err := s.lifecycle.ChangeOptions(r.Context(), sess, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *HTTPServer) handleApplyChange(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var body struct {
		ResourceID int64 `json:"resource_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, err)
		return
	}

	booking, err := s.lifecycle.ApplyChange(r.Context(), sess, id, body.ResourceID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleDeclineChange(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	booking, err := s.lifecycle.DeclineChange(r.Context(), sess, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleAttachEquipment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var body struct {
		Items []models.EquipmentItem `json:"items"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, err)
		return
	}

	children, err := s.hierarchy.AttachEquipment(r.Context(), sess, id, body.Items)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bookings": children})
}

func (s *HTTPServer) handleDetachEquipment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	childID, err := pathID(r, "childID")
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	child, err := s.hierarchy.DetachEquipment(r.Context(), sess, id, childID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, child)
}

func (s *HTTPServer) handleEquipmentCheck(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(w, r); !ok {
		return
	}

	var body struct {
		Start time.Time              `json:"start"`
		End   time.Time              `json:"end"`
		Items []models.EquipmentItem `json:"items"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeServiceError(w, err)
		return
	}

	result, err := s.gate.Check(r.Context(), models.Window{Start: body.Start, End: body.End}, body.Items)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleExportChangelog(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !sess.IsAdmin {
		s.writeServiceError(w, models.ErrForbidden)
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	since := time.Now().AddDate(0, -1, 0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeServiceError(w, &models.ValidationError{Reason: "since must be YYYY-MM-DD"})
			return
		}
		since = parsed
	}

	path, err := s.exporter.ExportChangeLog(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file_path": path})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
